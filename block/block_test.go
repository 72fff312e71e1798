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

package block

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTakeSelectsRowsInOrder(t *testing.T) {
	b := &Block{
		Columns: []Column{{Name: "a", Values: []interface{}{10, 20, 30, 40}}},
		NumRows: 4,
	}
	out := b.Take([]uint32{3, 0})
	require.Equal(t, 2, out.NumRows)
	require.Equal(t, []interface{}{40, 10}, out.Columns[0].Values)
}

func TestPopColumnsAndAddColumnRoundTrip(t *testing.T) {
	b := &Block{
		Columns: []Column{{Name: "a"}, {Name: "filter", Values: []interface{}{true}}},
		NumRows: 1,
	}
	stripped := b.PopColumns(1)
	require.Len(t, stripped.Columns, 1)
	restored := stripped.AddColumn(Column{Name: "filter", Values: []interface{}{false}})
	require.Len(t, restored.Columns, 2)
	require.Equal(t, false, restored.Columns[1].Values[0])
}

func TestEmptyWithMetaCarriesNoRows(t *testing.T) {
	meta := BlockMetaIndex{SegmentIdx: 1, BlockIdx: 2}
	b := EmptyWithMeta(meta)
	require.True(t, b.Empty())
	require.Equal(t, meta, b.Meta)
}

func TestBlockInfoIndexGatherPartialAndWholeBlocks(t *testing.T) {
	var idx BlockInfoIndex
	idx.InsertBlockOffsets(Interval{Start: 0, End: 3}, ComputeRowIDPrefix(5, 1))
	idx.InsertBlockOffsets(Interval{Start: 4, End: 7}, ComputeRowIDPrefix(5, 2))

	matched := []uint8{1, 1, 1, 1, 0, 1, 0, 0}
	partial := idx.GatherAllPartialBlockOffsets(matched)
	require.Len(t, partial, 1)
	require.Equal(t, ComputeRowIDPrefix(5, 2), partial[0].Prefix)

	whole := idx.GatherMatchedAllBlocks(matched)
	require.Equal(t, []uint64{ComputeRowIDPrefix(5, 1)}, whole)
}

func TestChunkOffsetsSplitsAcrossChunkBoundary(t *testing.T) {
	partial := []PartialMatch{{Intervals: []Interval{{Start: 8, End: 12}}, Prefix: 99}}
	tasks := ChunkOffsets(partial, []uint32{10, 20})
	require.Len(t, tasks, 2)
	require.Equal(t, 0, tasks[0].ChunkIndex)
	require.Equal(t, Interval{Start: 8, End: 9}, tasks[0].Intervals[0])
	require.Equal(t, 1, tasks[1].ChunkIndex)
	require.Equal(t, Interval{Start: 0, End: 2}, tasks[1].Intervals[0])
}

func TestComputeRowIDPrefixRoundTrips(t *testing.T) {
	p := ComputeRowIDPrefix(42, 7)
	seg, blk := SplitPrefix(p)
	require.Equal(t, uint64(42), seg)
	require.Equal(t, uint64(7), blk)
}
