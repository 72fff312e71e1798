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

package hashjoin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vantage-db/qengine/block"
	"github.com/vantage-db/qengine/pipeline"
	"github.com/vantage-db/qengine/rel"
)

// constHasher gives row i of every block the fixed hash hashes[i] (0 for
// rows past the end of hashes), so build and probe sides can be made to
// collide or miss deliberately in tests.
type constHasher struct{ hashes []uint64 }

func (h *constHasher) HashKeys(b *block.Block, keys []interface{}) ([]uint64, error) {
	out := make([]uint64, b.NumRows)
	for i := range out {
		if i < len(h.hashes) {
			out[i] = h.hashes[i]
		}
	}
	return out, nil
}

// passthroughMaterializer records the matches it was given and emits
// one output row per probe row, echoing NumRows through unchanged.
type passthroughMaterializer struct {
	lastMatches [][]block.RowPtr
}

func (m *passthroughMaterializer) Materialize(probe *block.Block, matches [][]block.RowPtr, state *State) (*block.Block, error) {
	m.lastMatches = matches
	return &block.Block{NumRows: probe.NumRows}, nil
}

func TestBuildSinkAdmitsAllBlocksThenFinishesBuild(t *testing.T) {
	s := New(rel.InnerJoin, nil, nil)
	sink := &BuildSink{State: s, Hasher: &constHasher{hashes: []uint64{1, 2}}}

	in := make(chan pipeline.Item, 2)
	in <- pipeline.Item{Block: &block.Block{NumRows: 2}}
	close(in)

	require.NoError(t, sink.Consume(context.Background(), in))
	require.True(t, s.BuildDone())
	require.Equal(t, 2, s.BuildRows())
}

func TestBuildSinkPropagatesUpstreamError(t *testing.T) {
	s := New(rel.InnerJoin, nil, nil)
	sink := &BuildSink{State: s, Hasher: &constHasher{}}

	in := make(chan pipeline.Item, 1)
	in <- pipeline.Item{Err: ErrEmptyBuildKeys}
	close(in)

	err := sink.Consume(context.Background(), in)
	require.ErrorIs(t, err, ErrEmptyBuildKeys)
}

func TestProbeTransformEmitsJoinedBlockForMatches(t *testing.T) {
	s := New(rel.InnerJoin, nil, nil)
	s.AdmitBuildChunk(&block.Block{NumRows: 1}, []uint64{42})
	s.FinishBuild(false)

	mat := &passthroughMaterializer{}
	probe := &ProbeTransform{State: s, Hasher: &constHasher{hashes: []uint64{42, 7}}, Materializer: mat}

	in := make(chan pipeline.Item, 1)
	in <- pipeline.Item{Block: &block.Block{NumRows: 2}}
	close(in)
	out := make(chan pipeline.Item, 1)

	require.NoError(t, probe.Process(context.Background(), in, out))
	item := <-out
	require.Equal(t, 2, item.Block.NumRows)
	require.Len(t, mat.lastMatches[0], 1)
	require.Len(t, mat.lastMatches[1], 0)
}

func TestProbeTransformTracksMergeIntoMatchesAndConflicts(t *testing.T) {
	s := New(rel.InnerJoin, nil, nil)
	s.AdmitBuildChunk(&block.Block{NumRows: 1}, []uint64{42})
	s.FinishBuild(true)

	mat := &passthroughMaterializer{}
	probe := &ProbeTransform{State: s, Hasher: &constHasher{hashes: []uint64{42}}, Materializer: mat}

	in := make(chan pipeline.Item, 1)
	in <- pipeline.Item{Block: &block.Block{NumRows: 1}}
	close(in)
	out := make(chan pipeline.Item, 4)

	require.NoError(t, probe.Process(context.Background(), in, out))

	in2 := make(chan pipeline.Item, 1)
	in2 <- pipeline.Item{Block: &block.Block{NumRows: 1}}
	close(in2)
	out2 := make(chan pipeline.Item, 4)
	err := probe.Process(context.Background(), in2, out2)
	require.Error(t, err)
}

func TestProbeTransformGeneratesScanTasksOnceAllWorkersDone(t *testing.T) {
	s := New(rel.InnerJoin, nil, nil)
	// Mirrors BuildSink.Consume: tracking is enabled before any chunk is
	// admitted so each chunk's block-offset range actually gets recorded,
	// and FinishBuild(true) grows the matched array to the final build
	// row count without losing those offsets.
	s.EnableMergeIntoTracking()
	meta := block.BlockMetaIndex{SegmentIdx: 0, BlockIdx: 0}
	s.AdmitBuildChunk(&block.Block{NumRows: 2, Meta: meta}, []uint64{1, 2})
	s.FinishBuild(true)
	s.SetProbeWorkers(1)

	mat := &passthroughMaterializer{}
	probe := &ProbeTransform{State: s, Hasher: &constHasher{hashes: []uint64{1}}, Materializer: mat}

	in := make(chan pipeline.Item, 1)
	in <- pipeline.Item{Block: &block.Block{NumRows: 1}}
	close(in)
	out := make(chan pipeline.Item, 4)

	require.NoError(t, probe.Process(context.Background(), in, out))
	close(out)

	var items []pipeline.Item
	for item := range out {
		items = append(items, item)
	}
	require.Len(t, items, 2)
}

func TestMarkJoinCompactorPassesBlocksThrough(t *testing.T) {
	c := &MarkJoinCompactor{MarkColumnIndex: 0}
	in := make(chan pipeline.Item, 1)
	in <- pipeline.Item{Block: &block.Block{NumRows: 3}}
	close(in)
	out := make(chan pipeline.Item, 1)

	require.NoError(t, c.Process(context.Background(), in, out))
	item := <-out
	require.Equal(t, 3, item.Block.NumRows)
}

func TestNeedRuntimeFilterTeeReflectsRuntimeFilterKeys(t *testing.T) {
	s := New(rel.InnerJoin, nil, nil)
	require.False(t, s.NeedRuntimeFilterTee())
}
