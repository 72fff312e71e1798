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

// Package runtimefilter inserts RuntimeFilterSource/RuntimeFilter node
// pairs into an already-costed physical plan in single-node mode. A
// RuntimeFilterSource sits above a qualifying HashJoin's build side and
// publishes a compact membership summary of the build keys; a matching
// RuntimeFilter consumer sits above the corresponding probe-side Scan
// and discards rows that cannot possibly match, pruning work before it
// ever reaches the join.
//
// The originating try_add_runtime_filter_nodes source file was not
// retrieved into this pack, so the insertion policy below (equi-join,
// build side is a bare Scan-rooted subtree, probe side has a Scan to
// attach the consumer to) is derived directly from what a
// RuntimeFilterSource/RuntimeFilter pairing and its build-side tee
// need to work.
package runtimefilter

import (
	"github.com/vantage-db/qengine/expr"
	"github.com/vantage-db/qengine/physicalplan"
)

// TryAddRuntimeFilterNodes walks p looking for HashJoin nodes whose
// build side is cheap to summarize (a bare TableScan, possibly wrapped
// in Filter/Project) and whose probe side has a TableScan reachable
// without crossing another join, and wires a RuntimeFilterSource over
// the build side paired with a RuntimeFilter consumer over that probe
// scan. It returns the rewritten tree; p is never mutated in place.
func TryAddRuntimeFilterNodes(p *physicalplan.Plan, seq *physicalplan.PlanID) *physicalplan.Plan {
	if p == nil {
		return nil
	}
	children := make([]*physicalplan.Plan, len(p.Children))
	changed := false
	for i, c := range p.Children {
		nc := TryAddRuntimeFilterNodes(c, seq)
		children[i] = nc
		if nc != c {
			changed = true
		}
	}

	out := p
	if changed {
		cp := *p
		cp.Children = children
		out = &cp
	}

	if out.Kind != physicalplan.HashJoin || len(out.RightKeys) == 0 {
		return out
	}
	buildIdx := out.BuildSide
	probeIdx := 1 - buildIdx
	if buildIdx != 0 && buildIdx != 1 || len(out.Children) != 2 {
		return out
	}
	buildSide := out.Children[buildIdx]
	if !qualifiesForSummary(buildSide) {
		return out
	}
	probeScan := findProbeScan(out.Children[probeIdx])
	if probeScan == nil {
		return out
	}

	keys := out.RightKeys
	if buildIdx == 0 {
		keys = out.LeftKeys
	}
	filterID := int(*seq)

	cp := *out
	cp.Children = append([]*physicalplan.Plan(nil), out.Children...)
	cp.Children[buildIdx] = physicalplan.New(seq, physicalplan.RuntimeFilterSource, buildSide)
	cp.Children[buildIdx].RuntimeFilterKeys = keys
	cp.Children[buildIdx].RuntimeFilterID = filterID

	cp.Children[probeIdx] = attachConsumer(out.Children[probeIdx], probeScan, filterID, keys, seq)
	return &cp
}

// qualifiesForSummary reports whether a build-side subtree is cheap
// enough to justify a runtime filter: a TableScan, optionally under a
// Filter and/or Project, so the summary reflects a single base table
// rather than an arbitrarily expensive join result.
func qualifiesForSummary(p *physicalplan.Plan) bool {
	switch p.Kind {
	case physicalplan.TableScan:
		return true
	case physicalplan.Filter, physicalplan.Project, physicalplan.EvalScalar:
		return len(p.Children) == 1 && qualifiesForSummary(p.Children[0])
	default:
		return false
	}
}

// findProbeScan locates the TableScan this build side's runtime
// filter should prune, declining (returning nil) if the probe subtree
// crosses another join first (a filter pushed below another join could
// discard rows a sibling join still needs).
func findProbeScan(p *physicalplan.Plan) *physicalplan.Plan {
	switch p.Kind {
	case physicalplan.TableScan:
		return p
	case physicalplan.Filter, physicalplan.Project, physicalplan.EvalScalar:
		if len(p.Children) == 1 {
			return findProbeScan(p.Children[0])
		}
	}
	return nil
}

// attachConsumer rebuilds the probe subtree with a RuntimeFilter
// consumer spliced directly above the located scan node.
func attachConsumer(root, scan *physicalplan.Plan, filterID int, keys []expr.Node, seq *physicalplan.PlanID) *physicalplan.Plan {
	if root == scan {
		rf := physicalplan.New(seq, physicalplan.RuntimeFilter, scan)
		rf.RuntimeFilterKeys = keys
		rf.RuntimeFilterID = filterID
		return rf
	}
	cp := *root
	cp.Children = append([]*physicalplan.Plan(nil), root.Children...)
	for i, c := range cp.Children {
		if containsNode(c, scan) {
			cp.Children[i] = attachConsumer(c, scan, filterID, keys, seq)
			break
		}
	}
	return &cp
}

// containsNode reports whether target is reachable from root by
// following only the single-child chain attachConsumer itself walks
// (TableScan/Filter/Project/EvalScalar), matching findProbeScan's
// traversal so the two stay in lockstep.
func containsNode(root, target *physicalplan.Plan) bool {
	if root == target {
		return true
	}
	switch root.Kind {
	case physicalplan.Filter, physicalplan.Project, physicalplan.EvalScalar:
		if len(root.Children) == 1 {
			return containsNode(root.Children[0], target)
		}
	}
	return false
}
