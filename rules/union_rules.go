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

// eliminateEmptyUnionAllChildRule drops a UnionAll child that is
// statically known to produce no rows - a Filter whose sole predicate
// is the constant `false`, the shape constant folding leaves behind
// once it has proven a UNION ALL branch can never match. A UnionAll
// left with exactly one surviving child collapses to that child; one
// left with none collapses to an always-false Filter over its first
// original child's schema.
type eliminateEmptyUnionAllChildRule struct{}

func (eliminateEmptyUnionAllChildRule) ID() RuleID { return RuleEliminateEmptyUnionAllChild }

func (eliminateEmptyUnionAllChildRule) Match(e *rel.Expr) bool { return e.Kind == rel.OpUnionAll }

func (eliminateEmptyUnionAllChildRule) Apply(e *rel.Expr, result *TransformResult) error {
	kept := make([]*rel.Expr, 0, len(e.Children))
	for _, c := range e.Children {
		if !isProvablyEmpty(c) {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(e.Children) {
		return nil
	}
	switch len(kept) {
	case 0:
		empty := rel.New(rel.Operator{Kind: rel.OpFilter, Predicates: []expr.Node{expr.Bool(false)}}, e.Child(0))
		result.Push(empty)
	case 1:
		result.Push(kept[0])
	default:
		result.Push(rel.New(rel.Operator{Kind: rel.OpUnionAll}, kept...))
	}
	return nil
}

func isProvablyEmpty(c *rel.Expr) bool {
	if c.Kind != rel.OpFilter || len(c.Predicates) != 1 {
		return false
	}
	b, ok := c.Predicates[0].(expr.Bool)
	return ok && !bool(b)
}
