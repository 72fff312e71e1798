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

package pipelinebuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vantage-db/qengine/block"
	"github.com/vantage-db/qengine/expr"
	"github.com/vantage-db/qengine/hashjoin"
	"github.com/vantage-db/qengine/physicalplan"
	"github.com/vantage-db/qengine/pipeline"
	"github.com/vantage-db/qengine/rel"
	"github.com/vantage-db/qengine/settings"
)

type fakeScanner struct{ rows int }

func (s *fakeScanner) Open(ctx context.Context, p *physicalplan.Plan, lane, width int) (pipeline.Source, error) {
	rows := s.rows
	return pipeline.SourceFunc(func(ctx context.Context, out chan<- pipeline.Item) error {
		out <- pipeline.Item{Block: &block.Block{NumRows: rows}}
		return nil
	}), nil
}

type fakeEvaluator struct{}

func passthroughProc() pipeline.Processor {
	return pipeline.ProcessorFunc(func(ctx context.Context, in <-chan pipeline.Item, out chan<- pipeline.Item) error {
		for item := range in {
			out <- item
		}
		return nil
	})
}

func (fakeEvaluator) NewFilter(p *physicalplan.Plan) (pipeline.Processor, error)    { return passthroughProc(), nil }
func (fakeEvaluator) NewProject(p *physicalplan.Plan) (pipeline.Processor, error)   { return passthroughProc(), nil }
func (fakeEvaluator) NewAggregate(p *physicalplan.Plan) (pipeline.Processor, error) { return passthroughProc(), nil }
func (fakeEvaluator) NewWindow(p *physicalplan.Plan) (pipeline.Processor, error)    { return passthroughProc(), nil }
func (fakeEvaluator) NewSort(p *physicalplan.Plan) (pipeline.Processor, error)      { return passthroughProc(), nil }
func (fakeEvaluator) NewLimit(p *physicalplan.Plan) (pipeline.Processor, error)     { return passthroughProc(), nil }
func (fakeEvaluator) NewUnionAll(p *physicalplan.Plan) (pipeline.Processor, error)  { return passthroughProc(), nil }

type fakeHasher struct{}

func (fakeHasher) HashKeys(b *block.Block, keys []interface{}) ([]uint64, error) {
	out := make([]uint64, b.NumRows)
	for i := range out {
		out[i] = 1
	}
	return out, nil
}

type fakeMaterializer struct{}

func (fakeMaterializer) Materialize(probe *block.Block, matches [][]block.RowPtr, state *hashjoin.State) (*block.Block, error) {
	return &block.Block{NumRows: probe.NumRows}, nil
}

func newTestBuilder() *Builder {
	return New(settings.Default(), Collaborators{
		Scanner:      &fakeScanner{rows: 3},
		Hasher:       fakeHasher{},
		Materializer: fakeMaterializer{},
		Evaluator:    fakeEvaluator{},
	}, nil)
}

func TestBuildScanThenFilterProducesRows(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder()

	var seq physicalplan.PlanID
	scanP := physicalplan.New(&seq, physicalplan.TableScan)
	scanP.Table = "t"
	filterP := physicalplan.New(&seq, physicalplan.Filter, scanP)
	filterP.Predicates = []expr.Node{expr.Bool(true)}

	pl, err := b.Build(ctx, filterP, 1)
	require.NoError(t, err)
	item := <-pl.Lanes()[0]
	require.NoError(t, item.Err)
	require.Equal(t, 3, item.Block.NumRows)
}

func TestBuildFilterWithNoPredicatesFails(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder()

	var seq physicalplan.PlanID
	scanP := physicalplan.New(&seq, physicalplan.TableScan)
	filterP := physicalplan.New(&seq, physicalplan.Filter, scanP)

	_, err := b.Build(ctx, filterP, 1)
	require.Error(t, err)
}

func TestBuildHashJoinProducesJoinedBlocks(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder()

	var seq physicalplan.PlanID
	build := physicalplan.New(&seq, physicalplan.TableScan)
	probe := physicalplan.New(&seq, physicalplan.TableScan)
	join := physicalplan.New(&seq, physicalplan.HashJoin, probe, build)
	join.BuildSide = 1
	join.JoinType = rel.InnerJoin
	key := expr.Ident("id")
	join.LeftKeys = []expr.Node{key}
	join.RightKeys = []expr.Node{key}

	pl, err := b.Build(ctx, join, 1)
	require.NoError(t, err)
	item := <-pl.Lanes()[0]
	require.NoError(t, item.Err)
	require.Equal(t, 3, item.Block.NumRows)
}

func TestBuildLimitResizesToOneLane(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder()

	var seq physicalplan.PlanID
	scanP := physicalplan.New(&seq, physicalplan.TableScan)
	limitP := physicalplan.New(&seq, physicalplan.Limit, scanP)
	limitP.LimitCount = 10

	pl, err := b.Build(ctx, limitP, 2)
	require.NoError(t, err)
	require.Equal(t, 1, pl.Width())
}

func TestBuildWindowProducesRowsPerLane(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder()

	var seq physicalplan.PlanID
	scanP := physicalplan.New(&seq, physicalplan.TableScan)
	windowP := physicalplan.New(&seq, physicalplan.Window, scanP)
	windowP.Frame = physicalplan.WindowFrame{Kind: physicalplan.FrameRows}

	pl, err := b.Build(ctx, windowP, 1)
	require.NoError(t, err)
	item := <-pl.Lanes()[0]
	require.NoError(t, item.Err)
	require.Equal(t, 3, item.Block.NumRows)
}

func TestBuildUnionAllMergesBothChildren(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder()

	var seq physicalplan.PlanID
	left := physicalplan.New(&seq, physicalplan.TableScan)
	right := physicalplan.New(&seq, physicalplan.TableScan)
	union := physicalplan.New(&seq, physicalplan.UnionAll, left, right)

	pl, err := b.Build(ctx, union, 1)
	require.NoError(t, err)

	var total int
	for item := range pl.Lanes()[0] {
		require.NoError(t, item.Err)
		total += item.Block.NumRows
	}
	require.Equal(t, 6, total)
}

func TestBuildHashJoinLeftMarkResizesProbeToOneLane(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder()

	var seq physicalplan.PlanID
	build := physicalplan.New(&seq, physicalplan.TableScan)
	probe := physicalplan.New(&seq, physicalplan.TableScan)
	join := physicalplan.New(&seq, physicalplan.HashJoin, probe, build)
	join.BuildSide = 1
	join.JoinType = rel.LeftMarkJoin
	key := expr.Ident("id")
	join.LeftKeys = []expr.Node{key}
	join.RightKeys = []expr.Node{key}

	pl, err := b.Build(ctx, join, 2)
	require.NoError(t, err)
	require.Equal(t, 1, pl.Width())
}
