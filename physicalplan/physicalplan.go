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

// Package physicalplan is a closed variant set: what the Cascades
// search (plus the distributed-rewrite and runtime-filter passes)
// hands to the pipeline builder. Every node carries a stable PlanID,
// assigned once at construction, since the pipeline builder's
// profiling wrapper and the exchange manager both address fragments by
// plan ID rather than by tree position.
//
// Grounded in rel.Operator's flat-struct-with-Kind-tag shape,
// generalized with the handful of fields the logical operator set
// doesn't need: Kind-specific build/probe side markers, the
// RuntimeFilterSource/Exchange wiring, and Delete's partial/final
// split, matching how the rel package already represents the logical
// tree.
package physicalplan

import (
	"github.com/vantage-db/qengine/expr"
	"github.com/vantage-db/qengine/rel"
)

// Kind enumerates every physical plan node this builder can produce.
// It is intentionally closed: adding an operator means adding a case
// here and in pipelinebuilder, not subclassing.
type Kind int

const (
	TableScan Kind = iota
	Filter
	Project
	EvalScalar
	AggregatePartial
	AggregateFinal
	AggregateExpand
	Window
	Sort
	Limit
	RowFetch
	HashJoin
	RangeJoin
	UnionAll
	Exchange
	ExchangeSource
	ExchangeSink
	ProjectSet
	RuntimeFilterSource
	RuntimeFilter
	DistributedInsertSelect
	DistributedCopyIntoTable
	DeletePartial
	DeleteFinal
)

func (k Kind) String() string {
	names := [...]string{
		"TableScan", "Filter", "Project", "EvalScalar", "AggregatePartial",
		"AggregateFinal", "AggregateExpand", "Window", "Sort", "Limit",
		"RowFetch", "HashJoin", "RangeJoin", "UnionAll", "Exchange",
		"ExchangeSource", "ExchangeSink", "ProjectSet", "RuntimeFilterSource",
		"RuntimeFilter",
		"DistributedInsertSelect", "DistributedCopyIntoTable", "DeletePartial",
		"DeleteFinal",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// PlanID stably identifies one physical plan node across the life of a
// query, used by the profiling wrapper and the exchange manager to
// address a fragment without relying on tree position.
type PlanID uint32

// Plan is one physical plan node. Only the fields relevant to Kind are
// populated; this mirrors rel.Operator's approach of one flat struct
// tagged by Kind rather than one Go type per variant, which is what
// lets the pipeline builder dispatch with a single type switch on Kind
// instead of needing a type assertion per variant.
type Plan struct {
	ID   PlanID
	Kind Kind

	Children []*Plan

	// TableScan
	Table         string
	Columns       rel.Schema
	NeedsRowID    bool
	ScanProject   []expr.Node // non-nil and non-identity => add a Project

	// Filter
	Predicates []expr.Node

	// Project / EvalScalar / ProjectSet
	Exprs []expr.Node

	// AggregatePartial / AggregateFinal
	GroupBy              []expr.Node
	Aggregates           []expr.Node
	HashMethod           HashMethodKind
	SpillThresholdBytes  int64
	FromExchangeSource   bool

	// AggregateExpand (GROUPING SETS)
	GroupingSets [][]int

	// Window
	PartitionBy []expr.Node
	OrderBy     []rel.SortKey
	Frame       WindowFrame

	// Sort
	SortKeys []rel.SortKey
	Limit    int64

	// Limit
	LimitCount  int64
	LimitOffset int64

	// HashJoin / RangeJoin
	JoinType     rel.JoinType
	LeftKeys     []expr.Node
	RightKeys    []expr.Node
	NonEquiPred  expr.Node
	BuildSide    int // index into Children of the build side

	// MergeIntoTargetTable is non-empty when this HashJoin's build side
	// is a MERGE INTO target table, set by the MERGE
	// INTO planning pass rather than derived from TargetTable (which
	// names a DistributedInsertSelect/CopyIntoTable node's destination,
	// a different plan shape entirely).
	MergeIntoTargetTable string

	// UnionAll: Pairs[i] maps output column i to [leftColumnIndex,
	// rightColumnIndex] in the respective input schemas.
	Pairs [][]int

	// Exchange / ExchangeSource / ExchangeSink
	ExchangeKind  rel.ExchangeKind
	PartitionKeys []expr.Node
	FragmentID    PlanID

	// RuntimeFilterSource
	RuntimeFilterKeys []expr.Node
	RuntimeFilterID   int

	// DistributedInsertSelect / DistributedCopyIntoTable
	TargetTable string
	CastSchema  bool

	// DeletePartial / DeleteFinal
	DeleteTable string
}

// WindowFrame describes a window function's frame clause. Kind
// distinguishes ROWS from RANGE; for RANGE frames with exactly one
// numeric ORDER BY key, BoundType names that key's type so bound
// arithmetic matches it Window description;
// otherwise (CURRENT ROW / UNBOUNDED-only RANGE frames) BoundType is
// the placeholder numeric type PlaceholderBoundType.
type WindowFrame struct {
	Kind      FrameKind
	BoundType string
}

// FrameKind distinguishes a window frame's unit.
type FrameKind int

const (
	FrameRows FrameKind = iota
	FrameRange
)

// PlaceholderBoundType is the bound representation used for RANGE
// frames that only reference CURRENT ROW / UNBOUNDED (no concrete
// numeric ORDER BY key to size the bound arithmetic after).
const PlaceholderBoundType = "int64"

// HashMethodKind is the closed set of hash methods AggregatePartial's
// grouping can use, chosen by sampling the input schema and group
// columns; closed note that
// HashMethodKind should be a Go enum rather than an open trait object.
type HashMethodKind int

const (
	HashMethodSingleString HashMethodKind = iota
	HashMethodKeysU8
	HashMethodKeysU16
	HashMethodKeysU32
	HashMethodKeysU64
	HashMethodSerialized
)

// New constructs a Plan, tagging it with the next PlanID from seq.
func New(seq *PlanID, kind Kind, children ...*Plan) *Plan {
	id := *seq
	*seq++
	return &Plan{ID: id, Kind: kind, Children: children}
}
