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

// Package memo implements the Cascades-style search structure: a Memo
// collects a forest of logically equivalent relational expressions,
// grouped by GroupId, and tracks the cheapest physical member of each
// group under whatever physical property its parent demands.
//
// The grouping and per-group bookkeeping is grounded in the
// ExprGroup/Memo shape of aperturerobotics-go-mysql-server's sql/memo
// package (a fork of dolthub-go-mysql-server without its own go.mod,
// used here only as a reference for the Memo/ExprGroup split since
// dolthub's own sql/memo sources were not retrievable); the GroupId
// interning keyed by (operator kind, child GroupIds) and the
// CostContext-per-property map generalize that shape so a group
// remembers its best plan per required property, not just a single
// best pointer.
package memo

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/vantage-db/qengine/rel"
)

// GroupId identifies one equivalence class of relational expressions.
type GroupId uint32

// MExpr is one member of a Group. Its children are GroupIds rather than
// nested expressions or pointers to other MExprs: the Memo is the only
// owner of the expression forest, which is what lets transformation
// rules append new members without ever destructively removing old
// ones.
type MExpr struct {
	rel.Operator
	Children []GroupId

	// Physical is true once an implementation rule has produced this
	// member from a logical sibling; logical and physical members are
	// stored in the same group so that cost comparisons can see both.
	Physical bool
}

// Group is the set of expressions the Memo has proven are logically
// equivalent: same rows (possibly reordered), same output schema.
type Group struct {
	ID      GroupId
	Members []*MExpr
	Schema  rel.Schema

	// LogicalProps are cardinality/ordering facts derived once from the
	// first logical member and reused by every subsequent member.
	LogicalProps LogicalProperties

	best map[PropertyKey]*CostContext
}

// LogicalProperties are the schema-independent facts a Group carries
// regardless of which member is chosen.
type LogicalProperties struct {
	RowCount    float64
	OutputCols  int
}

// CostContext records, for a single required physical property, the
// cheapest MExpr found so far and the total cost of choosing it
// (including the cost of satisfying that property in its children).
type CostContext struct {
	Best      *MExpr
	Cost      float64
	ChildProp []PhysicalProperty // the property each child was costed under
}

// PropertyKey is a hashable key for indexing Group.best; it is derived
// from a PhysicalProperty via Key().
type PropertyKey uint64

// Memo owns every Group ever created during one optimize() call. Groups
// are addressed by integer GroupId rather than by pointer so that
// MExpr.Children never needs a back-reference into a cyclic structure.
type Memo struct {
	groups []*Group
	root   GroupId

	// dedup maps a structural hash of (operator kind, fields, child
	// group ids) to the GroupId that already holds an equal member, so
	// that re-inserting the same logical shape reuses the Group instead
	// of creating a new one.
	dedup map[uint64]GroupId
}

// New creates an empty Memo.
func New() *Memo {
	return &Memo{dedup: make(map[uint64]GroupId)}
}

// Group returns the Group for id. It panics if id is out of range,
// which would indicate an internal bug (a dangling GroupId), not a
// user-facing error.
func (m *Memo) Group(id GroupId) *Group {
	return m.groups[id-1]
}

// Root returns the GroupId of the expression tree's root group.
func (m *Memo) Root() GroupId { return m.root }

// SetRoot records id as the root group; called once after Insert.
func (m *Memo) SetRoot(id GroupId) { m.root = id }

// NumGroups returns the number of groups currently in the Memo, mostly
// useful for EXPLAIN MEMO and tests.
func (m *Memo) NumGroups() int { return len(m.groups) }

// newGroup allocates a fresh, empty Group and returns its id.
func (m *Memo) newGroup(schema rel.Schema) GroupId {
	g := &Group{best: make(map[PropertyKey]*CostContext)}
	m.groups = append(m.groups, g)
	g.ID = GroupId(len(m.groups))
	g.Schema = schema
	return g.ID
}

// Insert recursively interns e (and its children) into the Memo,
// returning the GroupId of the top-level expression. If an
// expression-equal member already exists somewhere in the Memo, its
// Group is reused instead of creating a new one; this is the Memo's
// only form of deduplication (members are never removed once added).
func (m *Memo) Insert(e *rel.Expr) GroupId {
	children := make([]GroupId, len(e.Children))
	for i, c := range e.Children {
		children[i] = m.Insert(c)
	}
	return m.insertInto(e.Operator, children, e.Schema())
}

func (m *Memo) insertInto(op rel.Operator, children []GroupId, schema rel.Schema) GroupId {
	h := structuralHash(op, children)
	if gid, ok := m.dedup[h]; ok {
		if g := m.findEqualMember(gid, op, children); g != nil {
			return gid
		}
	}
	gid := m.newGroup(schema)
	m.AppendMember(gid, op, children)
	m.dedup[h] = gid
	return gid
}

// findEqualMember returns group gid if it already has a member whose
// operator and children are structurally equal to (op, children), or
// nil if the hash bucket's occupant is merely a hash collision.
func (m *Memo) findEqualMember(gid GroupId, op rel.Operator, children []GroupId) *Group {
	g := m.Group(gid)
	for _, mx := range g.Members {
		if opEqual(mx.Operator, op) && groupIdsEqual(mx.Children, children) {
			return g
		}
	}
	return nil
}

// AppendMember adds a new alternative expression to an existing group.
// This is how transformation rules contribute logically-equivalent
// rewrites and how implementation rules contribute physical
// alternatives: members are only ever appended, never replaced or
// removed.
func (m *Memo) AppendMember(gid GroupId, op rel.Operator, children []GroupId) *MExpr {
	g := m.Group(gid)
	mx := &MExpr{Operator: op, Children: children}
	g.Members = append(g.Members, mx)
	return mx
}

// BestCost returns the CostContext recorded for required physical
// property p in group gid, or nil if the group has not been costed
// under p yet.
func (m *Memo) BestCost(gid GroupId, p PhysicalProperty) *CostContext {
	return m.Group(gid).best[p.Key()]
}

// UpdateBestCost records cc as the best plan for group gid under
// property p if no plan is recorded yet, or if cc is strictly cheaper
// than the existing one. Ties keep the earlier-recorded plan for
// implementation stability.
func (m *Memo) UpdateBestCost(gid GroupId, p PhysicalProperty, cc *CostContext) bool {
	g := m.Group(gid)
	key := p.Key()
	cur, ok := g.best[key]
	if !ok || cc.Cost < cur.Cost {
		g.best[key] = cc
		return true
	}
	return false
}

func structuralHash(op rel.Operator, children []GroupId) uint64 {
	h := xxhash.New()
	fmt.Fprintf(h, "%d|", op.Kind)
	writeOpFingerprint(h, op)
	for _, c := range children {
		fmt.Fprintf(h, "|%d", c)
	}
	return h.Sum64()
}

func groupIdsEqual(a, b []GroupId) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
