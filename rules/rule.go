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

// Package rules implements the rewrite-rule engine: a Rule matches a
// shape of rel.Expr and produces zero or more replacement expressions.
// Two fixed, ordered rule lists are exposed: DefaultRewrites (applied
// before join reordering) and Residual (applied after join reordering,
// still before cost-based search).
//
// This package began as a textual pattern-matching DSL (a parser for
// lines like `(foo "x") -> y`); that shape does not fit a rule engine
// whose rules are fixed at compile time rather than loaded from a rule
// file (matching how the original source this spec was distilled from
// defines its rules directly in code), so the DSL parser is gone and
// only the "a rule has an identity and a rewrite" idea survives, now
// matching rel.Expr shapes directly instead of parsing them from text.
package rules

import "github.com/vantage-db/qengine/rel"

// RuleID identifies one rule. Rules are looked up by RuleID from
// callers outside the fixed rule lists - the MERGE INTO planner in
// particular asks for CommuteJoin by ID.
type RuleID int

const (
	RuleEliminateEvalScalar RuleID = iota
	RulePushDownFilterThroughJoin
	RulePushDownFilterThroughProject
	RuleNormalizePredicate
	RuleConstantFold
	RuleEliminateFilter
	RuleMergeAdjacentFilters
	RuleMergeAdjacentProjects
	RuleCommuteJoin
	RuleEliminateEmptyUnionAllChild
)

func (id RuleID) String() string {
	names := [...]string{
		"EliminateEvalScalar",
		"PushDownFilterThroughJoin",
		"PushDownFilterThroughProject",
		"NormalizePredicate",
		"ConstantFold",
		"EliminateFilter",
		"MergeAdjacentFilters",
		"MergeAdjacentProjects",
		"CommuteJoin",
		"EliminateEmptyUnionAllChild",
	}
	if int(id) < len(names) {
		return names[id]
	}
	return "Unknown"
}

// TransformResult accumulates the zero-or-more replacement expressions
// a Rule produces for one input.
type TransformResult struct {
	results []*rel.Expr
}

// NewTransformResult returns an empty TransformResult.
func NewTransformResult() *TransformResult { return &TransformResult{} }

// Push records a candidate replacement expression.
func (t *TransformResult) Push(e *rel.Expr) { t.results = append(t.results, e) }

// Results returns every replacement produced so far.
func (t *TransformResult) Results() []*rel.Expr { return t.results }

// Rule matches a pattern over rel.Expr shapes and, when it matches,
// produces alternative expressions via Apply. A Rule must be
// idempotent: applying it to one of its own outputs must either not
// match at all, or produce an expression equal (by rel.Equal) to its
// input.
type Rule interface {
	ID() RuleID

	// Match reports whether e's top-level shape is one this rule knows
	// how to rewrite, without necessarily checking every precondition
	// (Apply may still decline by producing zero results).
	Match(e *rel.Expr) bool

	// Apply attempts the rewrite, pushing zero or more replacements
	// onto result. An error aborts optimization of the whole SExpr (see
	// ): there is no partial-rule fallback.
	Apply(e *rel.Expr, result *TransformResult) error
}

// Factory looks up a Rule by its RuleID. It exists so that callers
// outside the rule lists (the MERGE INTO planner, in particular) can
// invoke a single named rule without depending on the
// DefaultRewrites/Residual ordering.
func Factory(id RuleID) Rule {
	for _, r := range allRules {
		if r.ID() == id {
			return r
		}
	}
	return nil
}
