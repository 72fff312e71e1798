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

package mergeinto

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vantage-db/qengine/block"
	"github.com/vantage-db/qengine/qerrors"
)

func allValid(int) bool { return true }

func TestCheckAndSetMatchedMarksRows(t *testing.T) {
	tr := NewTracker(10)
	err := tr.CheckAndSetMatched([]block.RowPtr{{ChunkIndex: 0, RowIndex: 3}}, 1, allValid)
	require.NoError(t, err)
	require.Equal(t, uint32(1), tr.matched[3].Load())
}

func TestCheckAndSetMatchedDetectsConflict(t *testing.T) {
	tr := NewTracker(10)
	ptrs := []block.RowPtr{{ChunkIndex: 0, RowIndex: 5}}
	require.NoError(t, tr.CheckAndSetMatched(ptrs, 1, allValid))
	err := tr.CheckAndSetMatched(ptrs, 1, allValid)
	require.Error(t, err)
	require.True(t, qerrors.IsUnresolvableConflict(err))
}

func TestCheckAndSetMatchedSkipsInvalidRows(t *testing.T) {
	tr := NewTracker(10)
	ptrs := []block.RowPtr{{ChunkIndex: 0, RowIndex: 2}}
	err := tr.CheckAndSetMatched(ptrs, 1, func(int) bool { return false })
	require.NoError(t, err)
	require.Equal(t, uint32(0), tr.matched[2].Load())
}

func TestGlobalOffsetAccountsForChunkBoundary(t *testing.T) {
	tr := NewTracker(20)
	tr.AddChunkOffset(10) // chunk 0 has 10 rows
	got := tr.globalOffset(block.RowPtr{ChunkIndex: 1, RowIndex: 2})
	require.Equal(t, 12, got)
}

func TestGenerateFinalScanTasksClassifiesBlocks(t *testing.T) {
	tr := NewTracker(10)
	tr.AddChunkOffset(10)
	tr.RecordBlockOffsets(block.Interval{Start: 0, End: 4}, block.ComputeRowIDPrefix(1, 1))
	tr.RecordBlockOffsets(block.Interval{Start: 5, End: 9}, block.ComputeRowIDPrefix(1, 2))

	// fully match the first block, partially match the second.
	for i := 0; i <= 4; i++ {
		require.NoError(t, tr.CheckAndSetMatched([]block.RowPtr{{RowIndex: uint32(i)}}, 1, allValid))
	}
	require.NoError(t, tr.CheckAndSetMatched([]block.RowPtr{{RowIndex: 5}}, 1, allValid))

	tasks := tr.GenerateFinalScanTasks()
	require.NotEmpty(t, tasks)

	var sawWholeDelete, sawPartial bool
	for _, task := range tasks {
		if len(task.Intervals) == 0 {
			sawWholeDelete = true
			seg, blk := block.SplitPrefix(task.Prefix)
			require.Equal(t, uint64(1), seg)
			require.Equal(t, uint64(1), blk)
		} else {
			sawPartial = true
		}
	}
	require.True(t, sawWholeDelete)
	require.True(t, sawPartial)
}
