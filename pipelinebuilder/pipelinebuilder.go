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

// Package pipelinebuilder translates a costed physicalplan.Plan tree
// into an executable pipeline.Pipeline. It walks the
// tree bottom-up, building each node's input pipeline(s) first and
// then attaching that node's processor, a build-tree-then-attach style
// for constructing a goroutine/channel graph from a static plan.
package pipelinebuilder

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/vantage-db/qengine/hashjoin"
	"github.com/vantage-db/qengine/physicalplan"
	"github.com/vantage-db/qengine/pipeline"
	"github.com/vantage-db/qengine/qerrors"
	"github.com/vantage-db/qengine/settings"
)

// Collaborators groups the out-of-scope runtime services a built
// pipeline calls into: table scanning, expression evaluation, sorting,
// aggregation, and exchange transport are all external concerns
// that pipelinebuilder only wires, never implements.
type Collaborators struct {
	Scanner      Scanner
	Hasher       hashjoin.KeyHasher
	Materializer hashjoin.Materializer
	Evaluator    Evaluator
	Exchange     ExchangeManager
}

// Scanner produces the Source for one TableScan plan node.
type Scanner interface {
	Open(ctx context.Context, p *physicalplan.Plan, lane, width int) (pipeline.Source, error)
}

// Evaluator applies a Filter/Project/EvalScalar/Sort/Limit/Window
// node's expressions to a block, the expression-runtime boundary
// places outside this module's scope.
type Evaluator interface {
	NewFilter(p *physicalplan.Plan) (pipeline.Processor, error)
	NewProject(p *physicalplan.Plan) (pipeline.Processor, error)
	NewAggregate(p *physicalplan.Plan) (pipeline.Processor, error)
	NewWindow(p *physicalplan.Plan) (pipeline.Processor, error)
	NewSort(p *physicalplan.Plan) (pipeline.Processor, error)
	NewLimit(p *physicalplan.Plan) (pipeline.Processor, error)
	NewUnionAll(p *physicalplan.Plan) (pipeline.Processor, error)
}

// ExchangeManager wires an ExchangeSource/ExchangeSink node to the
// distributed transport layer, out of scope here.
type ExchangeManager interface {
	NewSource(p *physicalplan.Plan, lane, width int) (pipeline.Source, error)
	NewSink(p *physicalplan.Plan) (pipeline.Sink, error)
}

// Builder holds the settings and collaborators shared across one
// query's pipeline construction.
type Builder struct {
	Settings settings.Settings
	Collab   Collaborators
	Log      logrus.FieldLogger

	exchangeDepth int // save/restore scope for nested Exchange fragments
}

// New constructs a Builder, defaulting Log to logrus.StandardLogger()
// the way cascades.Optimize defaults its own logger argument.
func New(s settings.Settings, collab Collaborators, log logrus.FieldLogger) *Builder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Builder{Settings: s, Collab: collab, Log: log}
}

// Build translates p into a pulling Pipeline of the given lane width.
// The caller attaches the final Sink once it knows where the result
// rows are headed.
func (b *Builder) Build(ctx context.Context, p *physicalplan.Plan, width int) (*pipeline.Pipeline, error) {
	switch p.Kind {
	case physicalplan.TableScan:
		return b.buildScan(ctx, p, width)
	case physicalplan.Filter:
		return b.buildUnaryEval(ctx, p, width, b.Collab.Evaluator.NewFilter)
	case physicalplan.Project, physicalplan.EvalScalar, physicalplan.ProjectSet:
		return b.buildUnaryEval(ctx, p, width, b.Collab.Evaluator.NewProject)
	case physicalplan.RowFetch:
		// Fetching the remaining columns for a surviving row pointer is,
		// from this builder's perspective, just another column
		// projection; the actual storage fetch is the Evaluator's
		// out-of-scope collaborator's job.
		return b.buildUnaryEval(ctx, p, width, b.Collab.Evaluator.NewProject)
	case physicalplan.AggregatePartial, physicalplan.AggregateFinal, physicalplan.AggregateExpand:
		return b.buildAggregate(ctx, p, width)
	case physicalplan.Window:
		return b.buildUnaryEval(ctx, p, width, b.Collab.Evaluator.NewWindow)
	case physicalplan.Sort:
		return b.buildSort(ctx, p)
	case physicalplan.Limit:
		return b.buildLimit(ctx, p)
	case physicalplan.HashJoin:
		return b.buildHashJoin(ctx, p, width)
	case physicalplan.RangeJoin:
		return b.buildRangeJoin(ctx, p)
	case physicalplan.UnionAll:
		return b.buildUnionAll(ctx, p, width)
	case physicalplan.Exchange:
		return nil, qerrors.New(qerrors.Internal, "pipelinebuilder: bare Exchange reached the pipeline builder")
	case physicalplan.ExchangeSink:
		return b.buildExchangeSink(ctx, p, width)
	case physicalplan.ExchangeSource:
		return b.buildExchangeSource(ctx, p, width)
	case physicalplan.RuntimeFilterSource:
		return b.buildRuntimeFilterSource(ctx, p, width)
	case physicalplan.RuntimeFilter:
		return b.buildUnaryEval(ctx, p, width, b.Collab.Evaluator.NewFilter)
	case physicalplan.DistributedInsertSelect, physicalplan.DistributedCopyIntoTable:
		return b.buildOneChild(ctx, p, width)
	case physicalplan.DeletePartial, physicalplan.DeleteFinal:
		return b.buildOneChild(ctx, p, width)
	default:
		return nil, qerrors.Newf(qerrors.Internal, "pipelinebuilder: unhandled plan kind %s", p.Kind)
	}
}

func (b *Builder) buildScan(ctx context.Context, p *physicalplan.Plan, width int) (*pipeline.Pipeline, error) {
	pl := pipeline.New(width)
	sources := make([]pipeline.Source, width)
	for i := range sources {
		src, err := b.Collab.Scanner.Open(ctx, p, i, width)
		if err != nil {
			return nil, err
		}
		sources[i] = src
	}
	if err := pl.AddSource(ctx, sources); err != nil {
		return nil, err
	}
	if len(p.ScanProject) > 0 {
		proj, err := b.Collab.Evaluator.NewProject(p)
		if err != nil {
			return nil, err
		}
		if err := pl.AddTransform(ctx, singleton(proj)); err != nil {
			return nil, err
		}
	}
	return pl, nil
}

// buildOneChild builds the one child a purely pass-through physical
// node has, without attaching any processor of its own:
// DistributedInsertSelect/DistributedCopyIntoTable/Delete's actual
// row-sink behavior belongs to the out-of-scope storage engine, which
// attaches its own Sink once Build returns.
func (b *Builder) buildOneChild(ctx context.Context, p *physicalplan.Plan, width int) (*pipeline.Pipeline, error) {
	if len(p.Children) != 1 {
		return nil, qerrors.Newf(qerrors.Internal, "pipelinebuilder: %s wants exactly one child, got %d", p.Kind, len(p.Children))
	}
	return b.Build(ctx, p.Children[0], width)
}

func (b *Builder) buildUnaryEval(ctx context.Context, p *physicalplan.Plan, width int, newProc func(*physicalplan.Plan) (pipeline.Processor, error)) (*pipeline.Pipeline, error) {
	if len(p.Children) != 1 {
		return nil, qerrors.Newf(qerrors.Internal, "pipelinebuilder: %s wants exactly one child, got %d", p.Kind, len(p.Children))
	}
	pl, err := b.Build(ctx, p.Children[0], width)
	if err != nil {
		return nil, err
	}
	proc, err := newProc(p)
	if err != nil {
		return nil, err
	}
	// Filter with no residual predicates left to evaluate is a planner
	// defect: a Filter node should have been pruned by the optimizer,
	// not handed to the builder. Fail fast on this internal invariant
	// rather than silently passing rows through unfiltered.
	if p.Kind == physicalplan.Filter && len(p.Predicates) == 0 {
		return nil, qerrors.New(qerrors.Internal, "pipelinebuilder: Filter node has no predicates")
	}
	if err := pl.AddTransform(ctx, singleton(proc)); err != nil {
		return nil, err
	}
	return pl, nil
}

// singleton adapts a single already-built Processor into the
// per-lane factory AddTransform wants. The Evaluator-produced
// processors this builder installs (Filter, Project, Window, ...) are
// pure per-block transforms with no per-lane mutable state, so sharing
// one instance across lanes is safe; a processor that does need
// per-lane state (the hash-join build/probe sinks, for instance) gets
// its own dedicated wiring instead of going through singleton.
func singleton(p pipeline.Processor) func() pipeline.Processor {
	return func() pipeline.Processor { return p }
}
