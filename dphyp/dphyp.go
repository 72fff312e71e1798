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

// Package dphyp implements the DPhyp (dynamic programming over
// hypergraphs) join-reorder algorithm: given a subtree whose leaves
// are base relations (scans, or opaque non-join subtrees) joined by
// inner joins, it enumerates connected, complementary subset pairs
// bottom-up and returns the cheapest bushy join tree it found under a
// simple cardinality-based cost model.
//
// Relation membership is represented as a bitset over relation
// indices; the algorithm handles at most 64 relations per
// reorder-eligible subtree (a uint64 bitset), matching the classic
// DPhyp presentation and every production implementation of it.
package dphyp

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/vantage-db/qengine/expr"
	"github.com/vantage-db/qengine/rel"
)

// RelationSet is a bitset over relation indices 0..63.
type RelationSet uint64

func singleton(i int) RelationSet { return RelationSet(1) << uint(i) }

func (s RelationSet) has(i int) bool { return s&singleton(i) != 0 }

func (s RelationSet) isSubsetOf(t RelationSet) bool { return s&t == s }

func (s RelationSet) overlaps(t RelationSet) bool { return s&t != 0 }

func (s RelationSet) union(t RelationSet) RelationSet { return s | t }

// lowestBit returns the subset of s consisting only of its
// lowest-numbered member, used to iterate subsets of a relation set in
// the standard DPhyp enumeration order.
func (s RelationSet) lowestBit() RelationSet { return s & (-s) }

// edge is a hyperedge: a predicate connecting the relations in left to
// the relations in right (an equi-join edge connects exactly the
// relations referenced on each side of the condition).
type edge struct {
	left, right RelationSet
	pred        expr.Node
	leftKeys    []expr.Node
	rightKeys   []expr.Node
}

// hypergraph is the DPhyp working state built from a flattened join
// subtree: one leaf per base relation, one edge per join condition.
type hypergraph struct {
	leaves []*rel.Expr
	edges  []edge
	// bestPlan[set] is the cheapest plan found so far for exactly this
	// relation set; bestCost[set] is its estimated cost.
	bestPlan map[RelationSet]*rel.Expr
	bestCost map[RelationSet]float64
	bestRows map[RelationSet]float64
}

// Reorder attempts to find a cheaper join order for root. It returns
// the possibly-rewritten tree and whether a reorder actually happened;
// Cascades uses the optimized flag to skip redundant join-reorder
// exploration.
func Reorder(root *rel.Expr) (*rel.Expr, bool) {
	leaves, edges, ok := flatten(root)
	if !ok || len(leaves) < 2 || len(leaves) > 64 {
		// Not a pure inner-join subtree, or too small to reorder, or
		// over the bitset width this implementation supports: leave
		// the tree untouched rather than reorder only part of it.
		return root, false
	}

	h := &hypergraph{
		leaves:   leaves,
		edges:    edges,
		bestPlan: make(map[RelationSet]*rel.Expr, 1<<len(leaves)),
		bestCost: make(map[RelationSet]float64, 1<<len(leaves)),
		bestRows: make(map[RelationSet]float64, 1<<len(leaves)),
	}
	for i, leaf := range leaves {
		set := singleton(i)
		h.bestPlan[set] = leaf
		h.bestRows[set] = estimateRows(leaf)
		h.bestCost[set] = 0
	}

	all := RelationSet(0)
	for i := range leaves {
		all = all.union(singleton(i))
	}

	// Standard DPhyp driver: process relations from the highest index
	// down, at each step emitting every connected subset reachable via
	// EmitCsg/EmitCsgCmp starting from the singleton {i} restricted to
	// relations with index >= i (the "exclusion set" trick that avoids
	// enumerating the same pair of subsets twice).
	for i := len(leaves) - 1; i >= 0; i-- {
		h.emitCsg(singleton(i), exclusionSet(i, len(leaves)))
	}

	best, ok := h.bestPlan[all]
	if !ok {
		return root, false
	}
	if rel.Equal(best, root) {
		return root, false
	}
	return best, true
}

// exclusionSet returns the bitset of relations that must not be added
// to a csg rooted at relation i: every relation with a lower index,
// which will instead get its own turn as the root in a later (smaller
// i) iteration of the outer driver loop.
func exclusionSet(i, n int) RelationSet {
	var s RelationSet
	for j := 0; j <= i; j++ {
		s = s.union(singleton(j))
	}
	return s
}

// emitCsg enumerates every complement csg-cmp-pair for the connected
// subgraph csg, then grows csg by one neighboring relation at a time
// (DPhyp's EmitCsg).
func (h *hypergraph) emitCsg(csg, excluded RelationSet) {
	neighbors := h.neighbors(csg, excluded)
	h.emitCsgCmp(csg, excluded, neighbors)

	subsets := nonEmptySubsets(neighbors)
	slices.SortFunc(subsets, func(a, b RelationSet) bool { return a < b })
	for _, s := range subsets {
		h.emitCsg(csg.union(s), excluded.union(neighbors))
	}
}

// emitCsgCmp enumerates every connected complement of csg and, for
// each one connected to csg by at least one edge, costs the join of
// the two and records it if it beats any existing plan for their
// union.
func (h *hypergraph) emitCsgCmp(csg, excluded, neighbors RelationSet) {
	for _, n := range sortedMembers(neighbors) {
		cmp := singleton(n)
		if h.connected(csg, cmp) {
			h.tryJoin(csg, cmp)
		}
		cmpExcluded := excluded.union(neighborsAtOrBelow(neighbors, n))
		cmpNeighbors := h.neighbors(cmp, cmpExcluded)
		h.emitCsgCmp2(csg, cmp, cmpExcluded, cmpNeighbors)

		subsets := nonEmptySubsets(cmpNeighbors)
		for _, s := range subsets {
			h.emitCmpGrow(csg, cmp.union(s), cmpExcluded.union(cmpNeighbors))
		}
	}
}

// emitCsgCmp2 is the bridge from growing a candidate complement back
// into trying it as a join partner, kept as a separate step so
// emitCsgCmp's recursive growth (emitCmpGrow) and its initial
// single-relation case share one "connected, then try" check.
func (h *hypergraph) emitCsgCmp2(csg, cmp, excluded, neighbors RelationSet) {
	if h.connected(csg, cmp) {
		h.tryJoin(csg, cmp)
	}
}

// emitCmpGrow grows a candidate complement cmp by one more neighbor at
// a time, mirroring emitCsg's growth but on the complement side.
func (h *hypergraph) emitCmpGrow(csg, cmp, excluded RelationSet) {
	if h.connected(csg, cmp) {
		h.tryJoin(csg, cmp)
	}
	neighbors := h.neighbors(cmp, excluded)
	subsets := nonEmptySubsets(neighbors)
	for _, s := range subsets {
		h.emitCmpGrow(csg, cmp.union(s), excluded.union(neighbors))
	}
}

// connected reports whether any edge has one endpoint entirely inside
// a and the other entirely inside b.
func (h *hypergraph) connected(a, b RelationSet) bool {
	for _, e := range h.edges {
		if e.left.isSubsetOf(a) && e.right.isSubsetOf(b) {
			return true
		}
		if e.left.isSubsetOf(b) && e.right.isSubsetOf(a) {
			return true
		}
	}
	return false
}

// neighbors returns every relation not in excluded that is connected
// to set by some edge with its other endpoint inside set.
func (h *hypergraph) neighbors(set, excluded RelationSet) RelationSet {
	var out RelationSet
	for _, e := range h.edges {
		if e.left.isSubsetOf(set) && !e.right.overlaps(set) {
			out = out.union(e.right &^ excluded)
		}
		if e.right.isSubsetOf(set) && !e.left.overlaps(set) {
			out = out.union(e.left &^ excluded)
		}
	}
	return out &^ excluded
}

// tryJoin costs the join of the best known plans for a and b and
// records it (in both orientations of build/probe choice are left to
// Cascades; this only fixes relational membership, not physical
// implementation) if it is the cheapest plan seen so far for a|b.
func (h *hypergraph) tryJoin(a, b RelationSet) {
	union := a.union(b)
	left, leftOK := h.bestPlan[a]
	right, rightOK := h.bestPlan[b]
	if !leftOK || !rightOK {
		return
	}

	leftKeys, rightKeys, nonEqui := h.joinCondition(a, b)
	rows := estimateJoinRows(h.bestRows[a], h.bestRows[b], leftKeys)
	cost := h.bestCost[a] + h.bestCost[b] + rows

	if prior, ok := h.bestCost[union]; ok && prior <= cost {
		return
	}

	joined := rel.New(rel.Operator{
		Kind:        rel.OpJoin,
		JoinType:    rel.InnerJoin,
		LeftKeys:    leftKeys,
		RightKeys:   rightKeys,
		NonEquiPred: nonEqui,
	}, left, right)

	h.bestPlan[union] = joined
	h.bestCost[union] = cost
	h.bestRows[union] = rows
}

// joinCondition collects every edge that connects a and b into
// equi-join key pairs (edges with matching key arity feeding
// leftKeys/rightKeys) and a residual AND of anything else.
func (h *hypergraph) joinCondition(a, b RelationSet) (leftKeys, rightKeys []expr.Node, nonEqui expr.Node) {
	for _, e := range h.edges {
		var onA, onB bool
		switch {
		case e.left.isSubsetOf(a) && e.right.isSubsetOf(b):
			onA, onB = true, true
		case e.left.isSubsetOf(b) && e.right.isSubsetOf(a):
			onA, onB = true, true
			e.leftKeys, e.rightKeys = e.rightKeys, e.leftKeys
		default:
			continue
		}
		if !onA || !onB {
			continue
		}
		if len(e.leftKeys) > 0 {
			leftKeys = append(leftKeys, e.leftKeys...)
			rightKeys = append(rightKeys, e.rightKeys...)
		} else if e.pred != nil {
			if nonEqui == nil {
				nonEqui = e.pred
			} else {
				nonEqui = expr.And(nonEqui, e.pred)
			}
		}
	}
	return leftKeys, rightKeys, nonEqui
}

// estimateRows is the base-relation cardinality estimate. Real
// per-table row counts come from catalog statistics, which are out of
// scope; every leaf is assumed equally sized so that
// join order is driven entirely by selectivity of the join keys
// themselves, which is the part this package is responsible for.
func estimateRows(e *rel.Expr) float64 {
	return 1000
}

// estimateJoinRows applies the standard independence-assumption
// cardinality model: |A join B| = |A| * |B| / max(distinct(key), 1),
// simplified here (since per-column distinct-value statistics are out
// of scope) to one fixed selectivity applied once when the join has at
// least one equi-join key, however many keys it has.
func estimateJoinRows(leftRows, rightRows float64, keys []expr.Node) float64 {
	product := leftRows * rightRows
	if len(keys) == 0 {
		return product
	}
	const assumedSelectivity = 0.1
	rows := product * assumedSelectivity
	if rows < 1 {
		rows = 1
	}
	return rows
}

func sortedMembers(s RelationSet) []int {
	var out []int
	for i := 0; i < 64; i++ {
		if s.has(i) {
			out = append(out, i)
		}
	}
	return out
}

// neighborsAtOrBelow restricts neighbors to members with index <= n,
// used to build the exclusion set DPhyp requires when growing a
// complement subset one relation at a time.
func neighborsAtOrBelow(neighbors RelationSet, n int) RelationSet {
	var out RelationSet
	for i := 0; i <= n; i++ {
		if neighbors.has(i) {
			out = out.union(singleton(i))
		}
	}
	return out
}

// nonEmptySubsets enumerates every non-empty subset of s, which for
// the small relation counts DPhyp targets (tens, not thousands) is
// cheap to do by direct bit manipulation rather than recursion.
func nonEmptySubsets(s RelationSet) []RelationSet {
	if s == 0 {
		return nil
	}
	var out []RelationSet
	for sub := s; sub != 0; sub = (sub - 1) & s {
		out = append(out, sub)
	}
	return out
}

// flatten walks root collecting base relations (any node that is not
// an InnerJoin/CrossJoin) as leaves and every join's condition as an
// edge. It returns ok=false if the subtree mixes in an outer/semi/anti
// join anywhere in the reorderable region, since those constrain
// associativity in ways DPhyp (in this simplified form) does not
// reason about.
func flatten(root *rel.Expr) (leaves []*rel.Expr, edges []edge, ok bool) {
	relIndex := make(map[*rel.Expr]int)
	var walk func(e *rel.Expr) RelationSet
	ok = true
	walk = func(e *rel.Expr) RelationSet {
		if e.Kind != rel.OpJoin || (e.JoinType != rel.InnerJoin && e.JoinType != rel.CrossJoin) {
			idx := len(leaves)
			leaves = append(leaves, e)
			relIndex[e] = idx
			return singleton(idx)
		}
		leftSet := walk(e.Child(0))
		rightSet := walk(e.Child(1))
		if len(e.LeftKeys) != len(e.RightKeys) {
			ok = false
		}
		for i := range e.LeftKeys {
			edges = append(edges, edge{
				left:      leftSet,
				right:     rightSet,
				leftKeys:  []expr.Node{e.LeftKeys[i]},
				rightKeys: []expr.Node{e.RightKeys[i]},
			})
		}
		if e.NonEquiPred != nil {
			edges = append(edges, edge{left: leftSet, right: rightSet, pred: e.NonEquiPred})
		}
		return leftSet.union(rightSet)
	}
	walk(root)
	if len(leaves) > 64 {
		ok = false
	}
	return leaves, edges, ok
}

// keysEqual compares two key lists as multisets (key order within a
// join condition is not semantically meaningful), used by tests to
// check that tryJoin picked the expected equi-join keys regardless of
// which edge order flatten happened to walk them in.
func keysEqual(a, b []expr.Node) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, x := range a {
		counts[expr.ToString(x)]++
	}
	for _, y := range b {
		counts[expr.ToString(y)]--
	}
	for _, v := range maps.Values(counts) {
		if v != 0 {
			return false
		}
	}
	return true
}
