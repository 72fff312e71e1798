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

// eliminateEvalScalarRule drops an EvalScalar node whose expressions
// are all bare column references already present, in order, in the
// child's schema - it computes nothing, so it is pure overhead.
type eliminateEvalScalarRule struct{}

func (eliminateEvalScalarRule) ID() RuleID { return RuleEliminateEvalScalar }

func (eliminateEvalScalarRule) Match(e *rel.Expr) bool { return e.Kind == rel.OpEvalScalar }

func (eliminateEvalScalarRule) Apply(e *rel.Expr, result *TransformResult) error {
	child := e.Child(0)
	if child == nil {
		return nil
	}
	childSchema := child.Schema()
	if len(e.Exprs) != len(childSchema) {
		return nil
	}
	for i, x := range e.Exprs {
		ref, ok := x.(expr.Ident)
		if !ok || string(ref) != childSchema[i].Name {
			return nil
		}
	}
	result.Push(child)
	return nil
}

// mergeAdjacentProjectsRule combines `Project(Project(x, es1), es2)`
// into a single Project by substituting es1 into es2, the usual
// projection-fusion rewrite.
type mergeAdjacentProjectsRule struct{}

func (mergeAdjacentProjectsRule) ID() RuleID { return RuleMergeAdjacentProjects }

func (mergeAdjacentProjectsRule) Match(e *rel.Expr) bool {
	return e.Kind == rel.OpProject && e.Child(0) != nil && e.Child(0).Kind == rel.OpProject
}

func (mergeAdjacentProjectsRule) Apply(e *rel.Expr, result *TransformResult) error {
	inner := e.Child(0)
	innerSchema := inner.Schema()

	subst := make(map[string]expr.Node, len(innerSchema))
	for i, col := range innerSchema {
		if i < len(inner.Exprs) {
			subst[col.Name] = inner.Exprs[i]
		}
	}

	fused := make([]expr.Node, len(e.Exprs))
	for i, x := range e.Exprs {
		fused[i] = expr.Rewrite(substituteRewriter{subst}, x)
	}

	out := rel.New(rel.Operator{Kind: rel.OpProject, Exprs: fused}, inner.Child(0))
	result.Push(out)
	return nil
}

// substituteRewriter replaces bare identifier references by name with
// the expression they were bound to in an inner projection.
type substituteRewriter struct {
	by map[string]expr.Node
}

func (s substituteRewriter) Rewrite(n expr.Node) expr.Node {
	id, ok := n.(expr.Ident)
	if !ok {
		return n
	}
	if repl, ok := s.by[string(id)]; ok {
		return repl
	}
	return n
}

func (s substituteRewriter) Walk(n expr.Node) expr.Rewriter { return s }

// pushDownFilterThroughProjectRule is really a Filter rewrite but is
// grouped with the project rules because it reasons about a Project
// child's expression substitutions the same way mergeAdjacentProjects
// does: `Filter(Project(x, es), p)` becomes `Project(Filter(x, p'), es)`
// where p' has the project's expressions substituted back in. It does
// so only when every project expression is a bare identifier: a single
// computed (non-passthrough) column blocks the rewrite, whether or not
// p references it.
type pushDownFilterThroughProjectRule struct{}

func (pushDownFilterThroughProjectRule) ID() RuleID { return RulePushDownFilterThroughProject }

func (pushDownFilterThroughProjectRule) Match(e *rel.Expr) bool {
	return e.Kind == rel.OpFilter && e.Child(0) != nil && e.Child(0).Kind == rel.OpProject
}

func (pushDownFilterThroughProjectRule) Apply(e *rel.Expr, result *TransformResult) error {
	proj := e.Child(0)
	schema := proj.Schema()

	subst := make(map[string]expr.Node, len(schema))
	for i, col := range schema {
		if i < len(proj.Exprs) {
			if _, isPath := proj.Exprs[i].(expr.Ident); !isPath {
				// computed column: pushing a predicate that references
				// it below the project would change its meaning, so
				// bail out of the whole rewrite rather than push part
				// of the predicate.
				return nil
			}
			subst[col.Name] = proj.Exprs[i]
		}
	}

	newPreds := make([]expr.Node, len(e.Predicates))
	for i, p := range e.Predicates {
		newPreds[i] = expr.Rewrite(substituteRewriter{subst}, p)
	}

	newFilter := rel.New(rel.Operator{Kind: rel.OpFilter, Predicates: newPreds}, proj.Child(0))
	out := rel.New(rel.Operator{Kind: rel.OpProject, Exprs: proj.Exprs}, newFilter)
	result.Push(out)
	return nil
}
