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

// Package rel implements the relational-algebra expression tree (SExpr)
// that is produced by binding and consumed by the optimizer. An Expr is
// immutable once constructed; rewrites always allocate a replacement
// node rather than mutating the receiver in place.
package rel

import (
	"fmt"
	"strings"

	"github.com/vantage-db/qengine/expr"
)

// JoinType enumerates the supported join kinds. The physical hash-join
// state (see package hashjoin) keys its probe behavior off this type.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftOuterJoin
	RightOuterJoin
	FullOuterJoin
	LeftSemiJoin
	RightSemiJoin
	LeftAntiJoin
	RightAntiJoin
	LeftMarkJoin
	RightMarkJoin
	CrossJoin
)

func (j JoinType) String() string {
	switch j {
	case InnerJoin:
		return "Inner"
	case LeftOuterJoin:
		return "LeftOuter"
	case RightOuterJoin:
		return "RightOuter"
	case FullOuterJoin:
		return "FullOuter"
	case LeftSemiJoin:
		return "LeftSemi"
	case RightSemiJoin:
		return "RightSemi"
	case LeftAntiJoin:
		return "LeftAnti"
	case RightAntiJoin:
		return "RightAnti"
	case LeftMarkJoin:
		return "LeftMark"
	case RightMarkJoin:
		return "RightMark"
	case CrossJoin:
		return "Cross"
	default:
		return "Unknown"
	}
}

// Op identifies the variant of a RelOperator. The set is intentionally
// open (see spec): new operators can be added without changing the Expr
// shape, since children live in a plain slice rather than named fields.
type Op int

const (
	OpScan Op = iota
	OpFilter
	OpProject
	OpEvalScalar
	OpJoin
	OpAggregate
	OpWindow
	OpSort
	OpLimit
	OpUnionAll
	OpExchange
	OpDummyTableScan
	OpMergeInto
	OpCopyInto
)

func (o Op) String() string {
	names := [...]string{
		"Scan", "Filter", "Project", "EvalScalar", "Join", "Aggregate",
		"Window", "Sort", "Limit", "UnionAll", "Exchange", "DummyTableScan",
		"MergeInto", "CopyInto",
	}
	if int(o) < len(names) {
		return names[o]
	}
	return "Unknown"
}

// Column is a typed reference to a column produced somewhere in the
// tree. Index is stable for the lifetime of one optimize() call and is
// what join keys, group-by keys and sort keys refer to.
type Column struct {
	Index int
	Name  string
	Type  string // logical type name; evaluated by the out-of-scope expression runtime
}

// Schema is the ordered output column list of a RelOperator.
type Schema []Column

func (s Schema) String() string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

// Operator carries the operator-specific, typed fields of one RelOperator
// variant. Exactly one field group is meaningful depending on Kind.
type Operator struct {
	Kind Op

	// Scan / DummyTableScan
	Table     string
	TableCols Schema

	// Filter / EvalScalar predicates, Join non-equi filter
	Predicates []expr.Node

	// Project / EvalScalar output expressions
	Exprs []expr.Node

	// Join
	JoinType   JoinType
	LeftKeys   []expr.Node
	RightKeys  []expr.Node
	NonEquiPred expr.Node
	// The hash-join build side is not recorded on the logical Join;
	// physicalplan.Plan.BuildSide carries it on the physical HashJoin.

	// Aggregate
	GroupBy    []expr.Node
	Aggregates []expr.Node

	// Window
	PartitionBy []expr.Node
	OrderBy     []SortKey

	// Sort
	SortKeys []SortKey

	// Limit
	LimitCount  int64
	LimitOffset int64

	// UnionAll: Pairs maps each output column to one input column index
	// per child, used to align differing input schemas.
	Pairs [][]int

	// Exchange
	ExchangeKind ExchangeKind
	PartitionKeys []expr.Node

	// MergeInto
	MergeClauses []MergeClause

	out Schema
}

// SortKey is one column of an ORDER BY / PARTITION BY list.
type SortKey struct {
	Expr      expr.Node
	Desc      bool
	NullsLast bool
}

// ExchangeKind distinguishes how an Exchange redistributes rows.
type ExchangeKind int

const (
	ExchangeHash ExchangeKind = iota
	ExchangeBroadcast
	ExchangeMerge
	ExchangeRandom
)

// MergeClauseKind distinguishes the three MERGE INTO clause families.
type MergeClauseKind int

const (
	MergeMatchedUpdate MergeClauseKind = iota
	MergeMatchedDelete
	MergeNotMatchedInsert
)

// MergeClause is one `WHEN [NOT] MATCHED [AND ...] THEN ...` clause.
type MergeClause struct {
	Kind         MergeClauseKind
	Predicate    expr.Node // nil means "no extra AND predicate" (always true)
	UpdateLists  []UpdateItem
	InsertValues []expr.Node
}

// UpdateItem is one `SET col = expr` assignment, keyed by the column's
// index in the target table's schema.
type UpdateItem struct {
	FieldIndex int
	Value      expr.Node
}

// Expr is one node of the relational expression tree. It is immutable:
// Children and Operator are set at construction time and never mutated;
// a rewrite always produces a new *Expr pointing at (possibly reused)
// children, which gives cheap structural sharing without requiring
// value semantics for the whole tree.
type Expr struct {
	Operator
	Children []*Expr
}

// New constructs an Expr with the given operator and children. The
// caller retains ownership of op.out until Schema() first computes it.
func New(op Operator, children ...*Expr) *Expr {
	return &Expr{Operator: op, Children: children}
}

// Child returns the i'th child, or nil if out of range.
func (e *Expr) Child(i int) *Expr {
	if i < 0 || i >= len(e.Children) {
		return nil
	}
	return e.Children[i]
}

// ReplaceChildren returns a shallow copy of e with Children replaced;
// the Operator fields (and hence any predicates/keys) are shared as-is.
func (e *Expr) ReplaceChildren(children []*Expr) *Expr {
	cp := *e
	cp.Children = children
	return &cp
}

// Clone performs a cheap, shallow clone of e: the Operator struct is
// copied by value (its slice fields continue to alias the original's
// backing arrays, which is safe because Expr is treated as immutable).
func (e *Expr) Clone() *Expr {
	cp := *e
	cp.Children = append([]*Expr(nil), e.Children...)
	return &cp
}

// Schema returns the output schema of e. TableScan/DummyTableScan
// report TableCols; Project/EvalScalar/Aggregate/Window report their
// own derived output; Join reports the left schema followed by the
// right one (left only for LeftSemi, LeftAnti and LeftMark); every
// other operator, UnionAll included, passes through its first child's
// schema without checking the other children.
func (e *Expr) Schema() Schema {
	if e.out != nil {
		return e.out
	}
	var s Schema
	switch e.Kind {
	case OpScan, OpDummyTableScan:
		s = e.TableCols
	case OpProject, OpEvalScalar, OpAggregate, OpWindow:
		s = make(Schema, len(e.Exprs))
		for i := range e.Exprs {
			s[i] = Column{Index: i, Name: fmt.Sprintf("col%d", i)}
		}
	case OpJoin:
		left := e.Child(0).Schema()
		right := e.Child(1).Schema()
		s = make(Schema, 0, len(left)+len(right))
		s = append(s, left...)
		if e.JoinType != LeftSemiJoin && e.JoinType != LeftAntiJoin &&
			e.JoinType != LeftMarkJoin {
			s = append(s, right...)
		}
	default:
		if len(e.Children) > 0 {
			s = e.Child(0).Schema()
		}
	}
	e.out = s
	return s
}

// Walk visits e and every descendant in pre-order.
func Walk(e *Expr, fn func(*Expr) bool) {
	if e == nil {
		return
	}
	if !fn(e) {
		return
	}
	for _, c := range e.Children {
		Walk(c, fn)
	}
}

// Rewrite applies fn bottom-up: children are rewritten first, then fn is
// given the (possibly already-rewritten) node. fn may return its
// argument unchanged.
func Rewrite(e *Expr, fn func(*Expr) *Expr) *Expr {
	if e == nil {
		return nil
	}
	if len(e.Children) == 0 {
		return fn(e)
	}
	children := make([]*Expr, len(e.Children))
	changed := false
	for i, c := range e.Children {
		nc := Rewrite(c, fn)
		children[i] = nc
		if nc != c {
			changed = true
		}
	}
	if changed {
		e = e.ReplaceChildren(children)
	}
	return fn(e)
}

func (e *Expr) String() string {
	var b strings.Builder
	e.write(&b, 0)
	return b.String()
}

func (e *Expr) write(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(e.Kind.String())
	if e.Table != "" {
		fmt.Fprintf(b, "(%s)", e.Table)
	}
	if e.Kind == OpJoin {
		fmt.Fprintf(b, "(%s)", e.JoinType)
	}
	b.WriteByte('\n')
	for _, c := range e.Children {
		c.write(b, depth+1)
	}
}
