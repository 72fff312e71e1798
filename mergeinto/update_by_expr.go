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

package mergeinto

import (
	"github.com/vantage-db/qengine/block"
	"github.com/vantage-db/qengine/expr"
)

// Evaluator evaluates scalar expressions over a Block's rows, the
// out-of-scope expression-evaluation runtime this mutator consumes as
// an external collaborator. EvalBool must return one
// boolean per row of b; EvalScalar must return one value per row.
type Evaluator interface {
	EvalBool(b *block.Block, predicate expr.Node) ([]bool, error)
	EvalScalar(b *block.Block, e expr.Node) ([]interface{}, error)
}

// UpdateItem is one `SET col = expr` assignment of one WHEN MATCHED
// THEN UPDATE clause, keyed by the column's position in the original
// (pre-mutation) input schema.
type UpdateItem struct {
	ColumnIndex int
	ColumnName  string
	Value       expr.Node
}

// UpdateByExprMutator applies one `WHEN MATCHED [AND predicate] THEN
// UPDATE SET ...` clause to a block, threading a rolling filter column
// across successive calls for successive clauses of the same MERGE
// INTO statement
//
// Grounded in original_source's update_by_expr_mutator.rs; the actual
// scalar/boolean evaluation it calls (Evaluator, BlockOperator::Map,
// eval_function) is out of scope here, so this mutator only reproduces
// the rolling-filter bookkeeping and column assembly, the part that is
// this module's concern.
type UpdateByExprMutator struct {
	eval Evaluator

	// predicate is nil for an unconditional UPDATE (WHEN MATCHED with
	// no AND clause), matching the Rust side's expr: Option<Expr>.
	predicate   expr.Node
	updateList  []UpdateItem
	origColumns int
}

// NewUpdateByExprMutator constructs a mutator for one clause.
// origColumns is the number of columns the *original* (pre-MERGE-INTO)
// input schema carries, used to detect whether a block already carries
// a rolling filter column from an earlier clause.
func NewUpdateByExprMutator(eval Evaluator, predicate expr.Node, updateList []UpdateItem, origColumns int) *UpdateByExprMutator {
	return &UpdateByExprMutator{eval: eval, predicate: predicate, updateList: updateList, origColumns: origColumns}
}

// UpdateByExpr applies this clause to b, returning the rewritten block
// with updated columns substituted and the rolling filter column
// appended (or combined with the incoming one)
func (m *UpdateByExprMutator) UpdateByExpr(b *block.Block) (*block.Block, error) {
	hasFilter := len(b.Columns) != m.origColumns
	return m.updateBlock(b, hasFilter)
}

func (m *UpdateByExprMutator) updateBlock(b *block.Block, hasFilter bool) (*block.Block, error) {
	predicate := m.predicate
	if predicate == nil {
		predicate = expr.Bool(true)
	}

	thisPredicate, err := m.eval.EvalBool(b, predicate)
	if err != nil {
		return nil, err
	}

	var origBlock *block.Block
	var rollingFilter []bool

	if hasFilter {
		oldFilterCol, _ := b.Column(rollingFilterColumn)
		oldFilter := asBools(oldFilterCol.Values)

		// origBlock carries the real input columns, with the previous
		// clause's rolling filter stripped off.
		origBlock = b.PopColumns(1)

		effective := make([]bool, len(thisPredicate))
		newRolling := make([]bool, len(thisPredicate))
		for i := range thisPredicate {
			// earlier clauses win: this clause only updates rows the
			// prior rolling filter did not already claim.
			effective[i] = !oldFilter[i] && thisPredicate[i]
			newRolling[i] = oldFilter[i] || thisPredicate[i]
		}
		thisPredicate = effective
		rollingFilter = newRolling
	} else {
		origBlock = b
		rollingFilter = thisPredicate
	}

	out := &block.Block{NumRows: origBlock.NumRows, Meta: origBlock.Meta}
	out.Columns = append(out.Columns, origBlock.Columns...)

	for _, item := range m.updateList {
		values, err := m.eval.EvalScalar(b, item.Value)
		if err != nil {
			return nil, err
		}
		applyMasked(out.Columns[item.ColumnIndex].Values, values, thisPredicate)
	}

	out = out.AddColumn(block.Column{Name: rollingFilterColumn, Values: toInterfaceBools(rollingFilter)})
	return out, nil
}

// rollingFilterColumn is the reserved name of the trailing filter
// column this mutator appends; it never collides with a user column
// name since user schemas are validated before reaching MERGE INTO
// planning.
const rollingFilterColumn = "__merge_into_filter"

func asBools(vals []interface{}) []bool {
	out := make([]bool, len(vals))
	for i, v := range vals {
		if b, ok := v.(bool); ok {
			out[i] = b
		}
	}
	return out
}

func toInterfaceBools(vals []bool) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

// applyMasked overwrites dst[i] with src[i] wherever mask[i] is true,
// leaving other rows at their original (pre-update) value.
func applyMasked(dst []interface{}, src []interface{}, mask []bool) {
	for i := range dst {
		if i < len(mask) && mask[i] {
			dst[i] = src[i]
		}
	}
}
