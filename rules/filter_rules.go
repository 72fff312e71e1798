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

// eliminateFilterRule drops a Filter whose predicate list is empty or
// whose only predicate is the constant `true`.
type eliminateFilterRule struct{}

func (eliminateFilterRule) ID() RuleID { return RuleEliminateFilter }

func (eliminateFilterRule) Match(e *rel.Expr) bool { return e.Kind == rel.OpFilter }

func (eliminateFilterRule) Apply(e *rel.Expr, result *TransformResult) error {
	preds := e.Predicates
	if len(preds) == 0 || (len(preds) == 1 && isTrue(preds[0])) {
		result.Push(e.Child(0))
	}
	return nil
}

func isTrue(n expr.Node) bool {
	b, ok := n.(expr.Bool)
	return ok && bool(b)
}

// mergeAdjacentFiltersRule combines `Filter(Filter(x, p1), p2)` into a
// single `Filter(x, p1, p2)`, so a chain of filters introduced by
// earlier rewrites collapses back into one node before later passes
// inspect it. Constant-true predicates are dropped while merging.
type mergeAdjacentFiltersRule struct{}

func (mergeAdjacentFiltersRule) ID() RuleID { return RuleMergeAdjacentFilters }

func (mergeAdjacentFiltersRule) Match(e *rel.Expr) bool {
	return e.Kind == rel.OpFilter && e.Child(0) != nil && e.Child(0).Kind == rel.OpFilter
}

func (mergeAdjacentFiltersRule) Apply(e *rel.Expr, result *TransformResult) error {
	inner := e.Child(0)
	var merged []expr.Node
	for _, p := range append(append([]expr.Node(nil), inner.Predicates...), e.Predicates...) {
		if !isTrue(p) {
			merged = append(merged, p)
		}
	}
	out := rel.New(rel.Operator{Kind: rel.OpFilter, Predicates: merged}, inner.Child(0))
	result.Push(out)
	return nil
}

// pushDownFilterThroughJoinRule pushes the predicates of a Filter over a
// Join that reference only the join's left child below it, onto that
// child, so they are evaluated as early as possible. Every other
// predicate, including one that references only the right child, stays
// in a Filter above the join.
type pushDownFilterThroughJoinRule struct{}

func (pushDownFilterThroughJoinRule) ID() RuleID { return RulePushDownFilterThroughJoin }

func (pushDownFilterThroughJoinRule) Match(e *rel.Expr) bool {
	return e.Kind == rel.OpFilter && e.Child(0) != nil && e.Child(0).Kind == rel.OpJoin
}

func (pushDownFilterThroughJoinRule) Apply(e *rel.Expr, result *TransformResult) error {
	join := e.Child(0)
	leftWidth := len(join.Child(0).Schema())

	var onLeft, residual []expr.Node
	for _, p := range e.Predicates {
		if refsOnlyColumnsBelow(p, 0, leftWidth) {
			onLeft = append(onLeft, p)
		} else {
			residual = append(residual, p)
		}
	}
	if len(onLeft) == 0 {
		return nil
	}
	newLeft := rel.New(rel.Operator{Kind: rel.OpFilter, Predicates: onLeft}, join.Child(0))
	newJoin := join.ReplaceChildren([]*rel.Expr{newLeft, join.Child(1)})
	var out *rel.Expr
	if len(residual) == 0 {
		out = newJoin
	} else {
		out = rel.New(rel.Operator{Kind: rel.OpFilter, Predicates: residual}, newJoin)
	}
	result.Push(out)
	return nil
}

// refsOnlyColumnsBelow is a conservative, column-index-free stand-in
// for full free-variable scope analysis: expression-evaluation-runtime
// details (exactly which columns a predicate reads) are out of scope,
// so this only tests whether the predicate was tagged with a scope hint;
// untagged predicates are treated as spanning both sides and are left
// in the residual filter above the join, which is always correct (just
// sometimes not maximally pushed down).
func refsOnlyColumnsBelow(n expr.Node, lo, hi int) bool {
	scoped, ok := n.(interface{ ColumnScope() (int, int) })
	if !ok {
		return false
	}
	a, b := scoped.ColumnScope()
	return a >= lo && b <= hi
}

// normalizePredicateRule flattens a top-level AND of ANDs into a single
// predicate list, so downstream passes (and the rule matcher) always
// see a canonical flat conjunction.
type normalizePredicateRule struct{}

func (normalizePredicateRule) ID() RuleID { return RuleNormalizePredicate }

func (normalizePredicateRule) Match(e *rel.Expr) bool {
	if e.Kind != rel.OpFilter {
		return false
	}
	for _, p := range e.Predicates {
		if _, ok := p.(*expr.Logical); ok {
			return true
		}
	}
	return false
}

func (normalizePredicateRule) Apply(e *rel.Expr, result *TransformResult) error {
	var flat []expr.Node
	changed := false
	for _, p := range e.Predicates {
		if l, ok := p.(*expr.Logical); ok && l.Op == expr.OpAnd {
			flat = append(flat, l.Left, l.Right)
			changed = true
			continue
		}
		flat = append(flat, p)
	}
	if !changed {
		return nil
	}
	out := rel.New(rel.Operator{Kind: rel.OpFilter, Predicates: flat}, e.Child(0))
	result.Push(out)
	return nil
}
