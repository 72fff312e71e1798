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

// baseTableRows is the row estimate assigned to every scan leaf. Real
// per-table cardinality comes from catalog/storage statistics, which
// are out of scope; every leaf is assumed equally
// sized so that plan choice is driven by operator shape and join
// selectivity rather than by invented statistics.
const baseTableRows = 1000

// joinSelectivity is the same fixed join selectivity package dphyp
// uses for its cardinality model (see dphyp.go's estimateJoinRows), so
// DPhyp's join-order choice and Cascades' join-implementation choice
// agree on what a join "costs" in row terms. dphyp has no filter
// estimate; filterSelectivity is used only here.
const (
	filterSelectivity = 0.5
	joinSelectivity   = 0.1
)

// rowEstimate returns (and caches on the Group) a row-count estimate
// for gid, computed bottom-up from its first logical member. It is the
// only cardinality signal the cost model in cost.go uses.
func rowEstimate(m *memo.Memo, gid memo.GroupId) float64 {
	g := m.Group(gid)
	if g.LogicalProps.RowCount > 0 {
		return g.LogicalProps.RowCount
	}
	mx := firstLogicalMember(g)
	childRows := make([]float64, len(mx.Children))
	for i, c := range mx.Children {
		childRows[i] = rowEstimate(m, c)
	}

	rows := estimateOpRows(mx, childRows)
	g.LogicalProps.RowCount = rows
	g.LogicalProps.OutputCols = len(g.Schema)
	return rows
}

func estimateOpRows(mx *memo.MExpr, childRows []float64) float64 {
	switch len(childRows) {
	case 0:
		return baseTableRows
	case 1:
		rows := childRows[0]
		if mx.Kind == rel.OpFilter {
			rows *= filterSelectivity
		}
		if rows < 1 {
			rows = 1
		}
		return rows
	default:
		rows := childRows[0] * childRows[1] * joinSelectivity
		if rows < 1 {
			rows = 1
		}
		return rows
	}
}

func firstLogicalMember(g *memo.Group) *memo.MExpr {
	for _, mx := range g.Members {
		if !mx.Physical {
			return mx
		}
	}
	return g.Members[0]
}
