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

// cost estimates the incremental cost of mx's own processing, given
// its children's cost has already been accounted for by the caller.
// The model is deliberately simple (row-count-proportional, with a
// per-kind multiplier standing in for relative CPU expense): the
// actual per-row cost of evaluating an expression is a property of the
// out-of-scope expression runtime, so this only needs
// to be internally consistent enough to make HashJoin build-side
// choice and join-order decisions correctly, not to predict wall-clock
// time.
func cost(m *memo.Memo, gid memo.GroupId, mx *memo.MExpr) float64 {
	rows := rowEstimate(m, gid)

	switch mx.Kind {
	case rel.OpJoin:
		return joinCost(m, mx, rows)
	case rel.OpAggregate, rel.OpSort, rel.OpWindow:
		// Blocking operators: roughly proportional to input size times
		// a log factor for the sort/hash-build work, approximated here
		// as a flat 2x multiplier rather than an actual log(n) term
		// (no real distribution of input sizes to calibrate against).
		return inputRows(m, mx) * 2
	case rel.OpUnionAll, rel.OpExchange:
		return rows
	default:
		return rows * 0.1
	}
}

// joinCost charges the build side (by convention the right child, see
// implement.go's buildSide) its full row count again to stand in for
// hash-table construction, on top of the probe pass over the left
// child that produces rows.
func joinCost(m *memo.Memo, mx *memo.MExpr, outputRows float64) float64 {
	if len(mx.Children) != 2 {
		return outputRows
	}
	buildRows := rowEstimate(m, mx.Children[1])
	return outputRows + buildRows
}

func inputRows(m *memo.Memo, mx *memo.MExpr) float64 {
	if len(mx.Children) == 0 {
		return baseTableRows
	}
	total := 0.0
	for _, c := range mx.Children {
		total += rowEstimate(m, c)
	}
	return total
}
