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

// Package distributed inserts Exchange nodes into an already-costed
// plan and carries the MERGE INTO source-side rewrite that scatters a
// single-node plan across worker nodes. Grounded in
// planner/optimizer/optimizer.rs, which calls
// optimize_distributed_query/contains_local_table_scan and runs the
// CommuteJoin + MergeSourceOptimizer sequence for MERGE INTO; the
// matching distributed.rs/util.rs files were not retrieved into this
// pack, so the Exchange-insertion policy below is derived directly
// from what those passes are known to do rather than transliterated
// from their source.
package distributed

import (
	"github.com/vantage-db/qengine/expr"
	"github.com/vantage-db/qengine/rel"
	"github.com/vantage-db/qengine/rules"
)

// ContainsLocalTableScan reports whether any Scan reachable from e
// targets a local-only table (one this engine cannot read from a
// remote worker, such as a system/virtual table). localTables holds
// the set of table names considered local-only; a nil or empty set
// means no table is local-only for this check.
func ContainsLocalTableScan(e *rel.Expr, localTables map[string]bool) bool {
	if e == nil {
		return false
	}
	if e.Kind == rel.OpScan && localTables[e.Table] {
		return true
	}
	for _, c := range e.Children {
		if ContainsLocalTableScan(c, localTables) {
			return true
		}
	}
	return false
}

// OptimizeDistributedQuery rewrites an already-costed physical SExpr
// to insert Exchange nodes so it can run across multiple workers, per
// : a Hash-partition Exchange above each HashJoin's build
// side keyed on its join keys, and a Hash-partition Exchange above
// each Aggregate's input keyed on its grouping columns. It is the
// caller's responsibility to gate this behind
// settings.Settings.EnableDistributedOptimization &&
// !ContainsLocalTableScan, matching optimize_query's guard.
func OptimizeDistributedQuery(e *rel.Expr) *rel.Expr {
	return rewriteExchanges(e)
}

func rewriteExchanges(e *rel.Expr) *rel.Expr {
	if e == nil {
		return nil
	}
	children := make([]*rel.Expr, len(e.Children))
	changed := false
	for i, c := range e.Children {
		nc := rewriteExchanges(c)
		children[i] = nc
		if nc != c {
			changed = true
		}
	}

	switch e.Kind {
	case rel.OpJoin:
		if len(children) == 2 && needsJoinExchange(e) {
			buildIdx := 1
			children[buildIdx] = exchangeHash(children[buildIdx], e.RightKeys)
			changed = true
		}
	case rel.OpAggregate:
		if len(children) == 1 && len(e.GroupBy) > 0 {
			children[0] = exchangeHash(children[0], e.GroupBy)
			changed = true
		}
	}

	if !changed {
		return e
	}
	return rel.New(e.Operator, children...)
}

// needsJoinExchange reports whether a hash join's build side should be
// repartitioned before a distributed probe; only equi-joins have keys
// to hash-partition on.
func needsJoinExchange(e *rel.Expr) bool {
	return len(e.RightKeys) > 0 && len(e.RightKeys) == len(e.LeftKeys)
}

func exchangeHash(child *rel.Expr, keys []expr.Node) *rel.Expr {
	return rel.New(rel.Operator{
		Kind:          rel.OpExchange,
		ExchangeKind:  rel.ExchangeHash,
		PartitionKeys: keys,
	}, child)
}

// CommuteForCardinality applies the CommuteJoin rule to the top-level
// join of a MERGE INTO plan so the smaller side ends up in the
// conventional build position, returning the (possibly) reordered
// SExpr and the change_join_order flag recorded by the caller.
//
// changeJoinOrder preserves the original's observed (and// §9, suspicious-looking) comparison: it is set when the rewritten
// join's left child is *still* the old left child, not when it
// differs. See DESIGN.md's Open Questions for why this is kept as-is
// rather than "corrected."
func CommuteForCardinality(joinExpr *rel.Expr) (rewritten *rel.Expr, changeJoinOrder bool, ok bool) {
	rule := rules.Factory(rules.RuleCommuteJoin)
	if rule == nil || !rule.Match(joinExpr) {
		return joinExpr, false, false
	}
	result := rules.NewTransformResult()
	if err := rule.Apply(joinExpr, result); err != nil {
		return joinExpr, false, false
	}
	results := result.Results()
	if len(results) != 1 {
		return joinExpr, false, false
	}
	oldLeft := joinExpr.Child(0)
	newLeft := results[0].Child(0)
	changeJoinOrder = rel.Equal(oldLeft, newLeft)
	return results[0], changeJoinOrder, true
}
