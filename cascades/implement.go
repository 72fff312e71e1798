// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package cascades

import (
	"github.com/vantage-db/qengine/memo"
	"github.com/vantage-db/qengine/rel"
)

// implement produces the one physical counterpart of a logical member.
// The physical plan is a closed variant set: every
// logical operator this optimizer ever sees has exactly one physical
// shape, so there is no branching implementation-rule search the way a
// full Cascades has for, say, choosing between a hash join and a merge
// join. The one place a real choice exists - which side of a Join is
// the hash-join build side - is instead explored by offering the
// logical Join group a commuted alternative (see explore.go) and
// letting the two logical members compete on cost here.
//
// implement returns the same Operator fields as mx (so a HashJoin
// physical member keeps its logical Join's JoinType/LeftKeys/RightKeys),
// with Kind left unchanged: physical-vs-logical is distinguished by
// MExpr.Physical, not by a separate Op value, since the physical plan
// package (see package physicalplan) re-derives its own closed variant
// type from Physical MExprs rather than from rel.Op.
func implement(mx *memo.MExpr) *memo.MExpr {
	phys := *mx
	phys.Physical = true
	return &phys
}

// buildSide reports which child index of a physical Join MExpr is the
// hash-join build side. By convention the right child is the build
// side (probe pulls from the left), matching package hashjoin's
// BuildState naming; CommuteJoin's swap is what lets the cost model
// consider building from either original side.
func buildSide(mx *memo.MExpr) int {
	if mx.Kind == rel.OpJoin {
		return 1
	}
	return -1
}
