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

package memo

import (
	"fmt"
	"io"

	"github.com/vantage-db/qengine/expr"
	"github.com/vantage-db/qengine/rel"
)

// writeOpFingerprint writes a best-effort textual fingerprint of op's
// typed fields to w, used as input to the group-dedup hash. It does
// not need to be collision-free (findEqualMember re-checks with a real
// equality test); it only needs to put structurally-identical operators
// in the same hash bucket so that lookups are O(1) in the common case.
func writeOpFingerprint(w io.Writer, op rel.Operator) {
	switch op.Kind {
	case rel.OpScan, rel.OpDummyTableScan:
		fmt.Fprintf(w, "t:%s", op.Table)
	case rel.OpFilter:
		writeExprs(w, op.Predicates)
	case rel.OpProject, rel.OpEvalScalar:
		writeExprs(w, op.Exprs)
	case rel.OpJoin:
		fmt.Fprintf(w, "j:%d", op.JoinType)
		writeExprs(w, op.LeftKeys)
		writeExprs(w, op.RightKeys)
	case rel.OpAggregate:
		writeExprs(w, op.GroupBy)
		writeExprs(w, op.Aggregates)
	case rel.OpSort, rel.OpWindow:
		for _, k := range op.SortKeys {
			writeExpr(w, k.Expr)
		}
		for _, k := range op.OrderBy {
			writeExpr(w, k.Expr)
		}
	case rel.OpLimit:
		fmt.Fprintf(w, "l:%d:%d", op.LimitCount, op.LimitOffset)
	case rel.OpExchange:
		fmt.Fprintf(w, "e:%d", op.ExchangeKind)
		writeExprs(w, op.PartitionKeys)
	}
}

func writeExprs(w io.Writer, es []expr.Node) {
	for _, e := range es {
		writeExpr(w, e)
	}
}

func writeExpr(w io.Writer, e expr.Node) {
	if e == nil {
		io.WriteString(w, "<nil>")
		return
	}
	fmt.Fprintf(w, "%v", e)
}

// opEqual is a thin re-export of rel's structural field comparison,
// used by findEqualMember; it lives here (rather than being exported
// from rel) because only the Memo needs to compare bare Operators
// without their children.
func opEqual(a, b rel.Operator) bool {
	wrap := func(o rel.Operator) *rel.Expr { return rel.New(o) }
	return rel.Equal(wrap(a), wrap(b))
}
