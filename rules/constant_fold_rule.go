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

package rules

import (
	"github.com/vantage-db/qengine/expr"
	"github.com/vantage-db/qengine/rel"
)

// constantFoldRule folds algebraic constants in the scalar slots of
// Filter, Project, EvalScalar, Join, Aggregate and Window (for Window,
// PartitionBy only) using expr.Simplify/expr.SimplifyLogic, the bottom-up
// rewrite the expr package already provides for query-time constant
// folding.
type constantFoldRule struct{}

func (constantFoldRule) ID() RuleID { return RuleConstantFold }

func (constantFoldRule) Match(e *rel.Expr) bool {
	switch e.Kind {
	case rel.OpFilter, rel.OpProject, rel.OpEvalScalar, rel.OpJoin, rel.OpAggregate, rel.OpWindow:
		return true
	}
	return false
}

func (constantFoldRule) Apply(e *rel.Expr, result *TransformResult) error {
	op := e.Operator
	changed := false

	foldLogic := func(ns []expr.Node) []expr.Node {
		out := make([]expr.Node, len(ns))
		for i, n := range ns {
			folded := expr.SimplifyLogic(n, expr.HintFn(expr.NoHint))
			if !expr.Equal(folded, n) {
				changed = true
			}
			out[i] = folded
		}
		return out
	}
	fold := func(ns []expr.Node) []expr.Node {
		out := make([]expr.Node, len(ns))
		for i, n := range ns {
			folded := expr.Simplify(n, expr.HintFn(expr.NoHint))
			if !expr.Equal(folded, n) {
				changed = true
			}
			out[i] = folded
		}
		return out
	}

	switch op.Kind {
	case rel.OpFilter:
		op.Predicates = foldLogic(op.Predicates)
	case rel.OpProject, rel.OpEvalScalar:
		op.Exprs = fold(op.Exprs)
	case rel.OpJoin:
		op.LeftKeys = fold(op.LeftKeys)
		op.RightKeys = fold(op.RightKeys)
		if op.NonEquiPred != nil {
			folded := expr.SimplifyLogic(op.NonEquiPred, expr.HintFn(expr.NoHint))
			if !expr.Equal(folded, op.NonEquiPred) {
				changed = true
			}
			op.NonEquiPred = folded
		}
	case rel.OpAggregate:
		op.GroupBy = fold(op.GroupBy)
		op.Aggregates = fold(op.Aggregates)
	case rel.OpWindow:
		op.PartitionBy = fold(op.PartitionBy)
	}
	if !changed {
		return nil
	}

	children := make([]*rel.Expr, 0, 2)
	if c := e.Child(0); c != nil {
		children = append(children, c)
	}
	if c := e.Child(1); c != nil {
		children = append(children, c)
	}
	result.Push(rel.New(op, children...))
	return nil
}
