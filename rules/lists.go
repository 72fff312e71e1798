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

// allRules lists every Rule this package knows how to construct, keyed
// by RuleID through Factory. It includes rules that never appear in
// DefaultRewrites/Residual (CommuteJoin) because those are still
// reachable by direct RuleID lookup.
var allRules = []Rule{
	eliminateEvalScalarRule{},
	pushDownFilterThroughJoinRule{},
	pushDownFilterThroughProjectRule{},
	normalizePredicateRule{},
	constantFoldRule{},
	eliminateFilterRule{},
	mergeAdjacentFiltersRule{},
	mergeAdjacentProjectsRule{},
	commuteJoinRule{},
	eliminateEmptyUnionAllChildRule{},
}

// DefaultRewrites is the fixed, ordered rule list applied top-down,
// pre-order, to a fixpoint before join reordering and cost-based
// search begin. Order matters: normalization and
// constant folding run first so that later structural rules
// (push-down, merge, eliminate) see canonical shapes.
var DefaultRewrites = []RuleID{
	RuleNormalizePredicate,
	RuleConstantFold,
	RuleEliminateFilter,
	RuleMergeAdjacentFilters,
	RuleMergeAdjacentProjects,
	RuleEliminateEvalScalar,
	RulePushDownFilterThroughProject,
	RulePushDownFilterThroughJoin,
	RuleEliminateEmptyUnionAllChild,
}

// Residual is the fixed, ordered rule list applied once more after
// join reordering and before cost-based search, cleaning up filters
// and EvalScalars the earlier passes left behind. No rule list runs
// after cost-based search.
var Residual = []RuleID{
	RuleEliminateFilter,
	RuleMergeAdjacentFilters,
	RuleEliminateEvalScalar,
}
