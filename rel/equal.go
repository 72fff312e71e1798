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

package rel

import "github.com/vantage-db/qengine/expr"

// Equal reports whether a and b have the same operator kind, the same
// typed fields, and structurally equal children. It is used by the Memo
// to detect duplicate group members (see memo.Memo.insertInto).
func Equal(a, b *Expr) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	if !opFieldsEqual(&a.Operator, &b.Operator) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func opFieldsEqual(a, b *Operator) bool {
	switch a.Kind {
	case OpScan, OpDummyTableScan:
		return a.Table == b.Table
	case OpFilter:
		return exprSliceEqual(a.Predicates, b.Predicates)
	case OpProject, OpEvalScalar:
		return exprSliceEqual(a.Exprs, b.Exprs)
	case OpJoin:
		return a.JoinType == b.JoinType &&
			exprSliceEqual(a.LeftKeys, b.LeftKeys) &&
			exprSliceEqual(a.RightKeys, b.RightKeys) &&
			expr.Equal(a.NonEquiPred, b.NonEquiPred)
	case OpAggregate:
		return exprSliceEqual(a.GroupBy, b.GroupBy) && exprSliceEqual(a.Aggregates, b.Aggregates)
	case OpSort:
		return sortKeysEqual(a.SortKeys, b.SortKeys)
	case OpLimit:
		return a.LimitCount == b.LimitCount && a.LimitOffset == b.LimitOffset
	case OpWindow:
		return exprSliceEqual(a.PartitionBy, b.PartitionBy) && sortKeysEqual(a.OrderBy, b.OrderBy)
	case OpExchange:
		return a.ExchangeKind == b.ExchangeKind && exprSliceEqual(a.PartitionKeys, b.PartitionKeys)
	default:
		return true
	}
}

func exprSliceEqual(a, b []expr.Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !expr.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func sortKeysEqual(a, b []SortKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Desc != b[i].Desc || a[i].NullsLast != b[i].NullsLast {
			return false
		}
		if !expr.Equal(a[i].Expr, b[i].Expr) {
			return false
		}
	}
	return true
}
