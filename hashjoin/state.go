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

// Package hashjoin implements the shared build/probe state one
// HashJoin physical node's pipeline stages drive: one State per
// HashJoin physical node, built concurrently from every build-side
// lane, probed concurrently from every probe-side lane, with an
// optional runtime-filter tee on the build side and a matched-row
// tracker when the build side is a MERGE INTO target table.
//
// Shared counters (buildRows, probeWorkers) use atomics rather than a
// mutex since the access pattern is a monotonic counter or idempotent
// merge, not a multi-field invariant that needs a single critical
// section. Package mergeinto supplies the MERGE INTO-specific overlay
// and package block the row/offset addressing.
package hashjoin

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vantage-db/qengine/block"
	"github.com/vantage-db/qengine/expr"
	"github.com/vantage-db/qengine/mergeinto"
	"github.com/vantage-db/qengine/rel"
)

// State is the state one HashJoin physical node's build and probe
// sides share. It is created once per join and referenced by every
// build-lane and probe-lane goroutine.
type State struct {
	JoinType  rel.JoinType
	BuildKeys []expr.Node
	ProbeKeys []expr.Node

	mu     sync.Mutex
	chunks []*block.Block // admitted build blocks, in admission order
	table  map[uint64][]block.RowPtr

	buildDone   atomic.Bool
	buildRows   atomic.Uint32
	probeWorkers atomic.Int32
	buildBarrier chan struct{}

	// Tracker is non-nil only when the build side is a MERGE INTO
	// target table; other joins leave it nil and every Tracker-touching
	// call below becomes a no-op.
	Tracker *mergeinto.Tracker

	// RuntimeFilterKeys is non-empty when this build side also feeds a
	// RuntimeFilterSource (NeedRuntimeFilterTee reports this);
	// pipelinebuilder copies the plan's keys here but does not tee the
	// build pipeline's output.
	RuntimeFilterKeys []expr.Node
}

// New creates the shared state for one HashJoin. The matched-row
// Tracker itself is allocated later, by EnableMergeIntoTracking, only
// when the build side turns out to be a MERGE INTO target table.
func New(joinType rel.JoinType, buildKeys, probeKeys []expr.Node) *State {
	return &State{
		JoinType:     joinType,
		BuildKeys:    buildKeys,
		ProbeKeys:    probeKeys,
		table:        make(map[uint64][]block.RowPtr),
		buildBarrier: make(chan struct{}),
	}
}

// EnableMergeIntoTracking allocates the matched-row Tracker. BuildSink
// calls this before admitting its first chunk (so AdmitBuildChunk can
// record block offsets as chunks stream in); the Tracker's matched
// array itself is sized later by growBuildTracker once the build
// side's total row count is known at the build barrier. Calling this more
// than once is a no-op, so a caller that forgot an earlier call can
// still invoke it again without losing already-recorded offsets.
func (s *State) EnableMergeIntoTracking() {
	if s.Tracker == nil {
		s.Tracker = mergeinto.NewTracker(int(s.buildRows.Load()))
	}
}

// growBuildTracker sizes the Tracker's matched array to the build
// side's final row count, called from FinishBuild once every build
// chunk has been admitted.
func (s *State) growBuildTracker() {
	if s.Tracker != nil {
		s.Tracker.Grow(int(s.buildRows.Load()))
	}
}

// keyHash combines a build or probe row's key column values into a
// single bucket key. Key value hashing is an expression-evaluation
// concern; State only needs a stable, already-hashed
// uint64 per row from its caller, so this takes the precomputed hash
// rather than evaluating expr.Node itself.
func keyHash(h uint64) uint64 { return h }

// AdmitBuildChunk appends one build-side block to the shared chunk
// list and indexes its rows by key hash, returning the chunk index it
// was admitted at. keyHashes[i] is the precomputed join-key hash for
// row i of chunk (see keyHash's doc comment on why hashing itself is
// out of scope here).
func (s *State) AdmitBuildChunk(chunk *block.Block, keyHashes []uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunkIdx := len(s.chunks)
	s.chunks = append(s.chunks, chunk)
	for row, h := range keyHashes {
		ptr := block.RowPtr{ChunkIndex: uint32(chunkIdx), RowIndex: uint32(row)}
		s.table[keyHash(h)] = append(s.table[keyHash(h)], ptr)
	}
	s.buildRows.Add(uint32(chunk.NumRows))

	if s.Tracker != nil {
		s.Tracker.AddChunkOffset(s.buildRows.Load())
		if meta, ok := chunk.Meta.(block.BlockMetaIndex); ok {
			start := s.buildRows.Load() - uint32(chunk.NumRows)
			end := s.buildRows.Load() - 1
			prefix := block.ComputeRowIDPrefix(uint64(meta.SegmentIdx), uint64(meta.BlockIdx))
			s.Tracker.RecordBlockOffsets(block.Interval{Start: start, End: end}, prefix)
		}
	}
	return chunkIdx
}

// FinishBuild marks the build side complete, called once all build
// lanes' sinks have drained their input (the build barrier every probe
// lane waits on via WaitBuildDone). It allocates the matched-row Tracker's storage
// if MERGE INTO tracking was requested and BuildSink did not already
// enable it up front, then grows it to the now-final build row count.
func (s *State) FinishBuild(mergeIntoTracking bool) {
	if mergeIntoTracking {
		s.EnableMergeIntoTracking()
		s.growBuildTracker()
	}
	s.buildDone.Store(true)
	close(s.buildBarrier)
}

// BuildDone reports whether FinishBuild has run.
func (s *State) BuildDone() bool { return s.buildDone.Load() }

// WaitBuildDone blocks until every build lane has drained and
// FinishBuild has run, or ctx is done. The probe side must not call
// Lookup before this returns, since until then the build-side table is
// still being written concurrently.
func (s *State) WaitBuildDone(ctx context.Context) error {
	select {
	case <-s.buildBarrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lookup returns every build RowPtr whose precomputed key hash matches
// h, for one probe row.
func (s *State) Lookup(h uint64) []block.RowPtr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table[keyHash(h)]
}

// Chunk returns the build chunk at the given index, valid only after
// FinishBuild (no further chunks are admitted afterward, so this is a
// safe unsynchronized read once BuildDone is true).
func (s *State) Chunk(i int) *block.Block { return s.chunks[i] }

// BuildRows returns the total number of build-side rows admitted.
func (s *State) BuildRows() int { return int(s.buildRows.Load()) }

// SetProbeWorkers records how many probe lanes will call
// ProbeWorkerDone exactly once each, used to detect the last probe
// worker for MERGE INTO's final-scan-task generation.
func (s *State) SetProbeWorkers(n int) { s.probeWorkers.Store(int32(n)) }

// ProbeWorkerDone decrements the live probe-worker count and reports
// whether this call was the last one, mirroring
// probe_merge_into_partial_modified_done's fetch_sub(1) == 1 check.
func (s *State) ProbeWorkerDone() bool {
	remaining := s.probeWorkers.Add(-1)
	return mergeinto.ProbeWorkersDone(remaining)
}
