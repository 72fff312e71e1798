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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vantage-db/qengine/block"
	"github.com/vantage-db/qengine/rel"
)

func TestAdmitBuildChunkIndexesRowsByHash(t *testing.T) {
	s := New(rel.InnerJoin, nil, nil)
	b := &block.Block{NumRows: 2}
	idx := s.AdmitBuildChunk(b, []uint64{7, 7})
	require.Equal(t, 0, idx)
	require.Len(t, s.Lookup(7), 2)
	require.Equal(t, 2, s.BuildRows())
}

func TestFinishBuildAllocatesTrackerWhenRequested(t *testing.T) {
	s := New(rel.InnerJoin, nil, nil)
	s.AdmitBuildChunk(&block.Block{NumRows: 3}, []uint64{1, 2, 3})
	s.FinishBuild(true)
	require.True(t, s.BuildDone())
	require.NotNil(t, s.Tracker)
}

func TestFinishBuildSkipsTrackerOtherwise(t *testing.T) {
	s := New(rel.InnerJoin, nil, nil)
	s.FinishBuild(false)
	require.Nil(t, s.Tracker)
}

func TestProbeWorkerDoneDetectsLastWorker(t *testing.T) {
	s := New(rel.InnerJoin, nil, nil)
	s.SetProbeWorkers(2)
	require.False(t, s.ProbeWorkerDone())
	require.True(t, s.ProbeWorkerDone())
}

func TestAdmitBuildChunkRecordsBlockInfoForTrackedJoins(t *testing.T) {
	s := New(rel.InnerJoin, nil, nil)
	s.EnableMergeIntoTracking()
	meta := block.BlockMetaIndex{SegmentIdx: 1, BlockIdx: 2}
	s.AdmitBuildChunk(&block.Block{NumRows: 4, Meta: meta}, []uint64{1, 2, 3, 4})
	require.Equal(t, 4, s.BuildRows())
}
