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

// Package mergeinto implements the MERGE INTO matched-row tracker and
// update-by-expr mutator.
//
// The tracker is grounded in original_source's
// merge_into_hash_join_optimization.rs: that file builds its matched
// array as a Vec<u8> transmuted to a raw *mut AtomicU8 pointer so every
// probe thread can race to CAS its own byte without a lock. Go has no
// legal way to reinterpret a []uint8 as a slice of atomic types, so
// Tracker stores []atomic.Uint32 (one slot per row, values held to 0/1)
// instead of reinterpreting a byte slice; the concurrency shape
// (lock-free, SeqCst compare-and-swap, one slot per build row) is kept
// exactly, only the storage representation changes to something the Go
// memory model actually permits.
package mergeinto

import (
	"sync/atomic"

	"github.com/vantage-db/qengine/block"
	"github.com/vantage-db/qengine/qerrors"
)

// Tracker is the per-query matched-row overlay: one atomic slot per
// build row, a BlockInfoIndex recording
// which flattened-row interval belongs to which tagged block, and the
// per-chunk cumulative row offsets needed to translate a RowPtr into a
// flattened row index.
type Tracker struct {
	index        block.BlockInfoIndex
	chunkOffsets []uint32
	matched      []atomic.Uint32
}

// NewTracker allocates a Tracker sized for buildNumRows rows. hashjoin
// calls it when tracking is enabled, before build chunks are admitted,
// and Grow resizes the matched array once the final build row count is
// known.
func NewTracker(buildNumRows int) *Tracker {
	return &Tracker{matched: make([]atomic.Uint32, buildNumRows)}
}

// Grow extends matched to buildNumRows slots if it is currently
// smaller, leaving existing slots untouched. BuildSink enables tracking
// before the build side's total row count is known (so
// RecordBlockOffsets/AddChunkOffset can run as each chunk streams in);
// Grow lets FinishBuild size the matched array for real once every
// build chunk has been admitted, without discarding the offsets already
// recorded.
func (t *Tracker) Grow(buildNumRows int) {
	if buildNumRows <= len(t.matched) {
		return
	}
	grown := make([]atomic.Uint32, buildNumRows)
	copy(grown, t.matched)
	t.matched = grown
}

// RecordBlockOffsets records one tagged build block's flattened
// row-offset interval, called while the block is being admitted to the
// build side (before the barrier, so no concurrent readers exist yet).
func (t *Tracker) RecordBlockOffsets(interval block.Interval, prefix uint64) {
	t.index.InsertBlockOffsets(interval, prefix)
}

// AddChunkOffset appends the cumulative row count through the
// just-admitted build chunk.
func (t *Tracker) AddChunkOffset(buildNumRows uint32) {
	t.chunkOffsets = append(t.chunkOffsets, buildNumRows)
}

// globalOffset converts a RowPtr into the flattened row index used to
// index into matched, mirroring check_and_set_matched's offset
// computation: chunk 0 rows are numbered directly by row index, every
// later chunk's rows are offset by the previous chunk's cumulative
// count.
func (t *Tracker) globalOffset(ptr block.RowPtr) int {
	if ptr.ChunkIndex == 0 {
		return int(ptr.RowIndex)
	}
	return int(t.chunkOffsets[ptr.ChunkIndex-1]) + int(ptr.RowIndex)
}

// CheckAndSetMatched marks every valid row in buildIndexes[:matchedIdx]
// as matched, compare-and-swapping each row's slot from 0 to 1 under
// sequential consistency. It returns qerrors.UnresolvableConflict the
// instant any row is found already matched (a second source row
// matching the same target row), matching the fail-fast behavior of
// check_and_set_matched.
func (t *Tracker) CheckAndSetMatched(buildIndexes []block.RowPtr, matchedIdx int, valid func(i int) bool) error {
	for i, ptr := range buildIndexes[:matchedIdx] {
		if !valid(i) {
			continue
		}
		offset := t.globalOffset(ptr)
		slot := &t.matched[offset]
		for {
			old := slot.Load()
			if old > 0 {
				return qerrors.New(qerrors.UnresolvableConflict,
					"multi rows from source match one and the same row in the target_table multi times in probe phase")
			}
			if slot.CompareAndSwap(old, old+1) {
				break
			}
		}
	}
	return nil
}

// matchedBytes snapshots the atomic slot array into the plain []uint8
// BlockInfoIndex's gather functions operate on. Called only after the
// build barrier's matched-array mutation has quiesced (all probe
// workers done), so a plain read is safe.
func (t *Tracker) matchedBytes() []uint8 {
	out := make([]uint8, len(t.matched))
	for i := range t.matched {
		if t.matched[i].Load() > 0 {
			out[i] = 1
		}
	}
	return out
}

// GenerateFinalScanTasks builds the final scan task list once the last
// probe worker has finished: partially-matched blocks'
// unmatched intervals split by chunk boundary, followed by one
// whole-block-delete task (empty Intervals) per fully-matched block.
func (t *Tracker) GenerateFinalScanTasks() []block.ScanTask {
	matched := t.matchedBytes()
	partial := t.index.GatherAllPartialBlockOffsets(matched)
	tasks := block.ChunkOffsets(partial, t.chunkOffsets)
	for _, prefix := range t.index.GatherMatchedAllBlocks(matched) {
		tasks = append(tasks, block.ScanTask{Prefix: prefix})
	}
	return tasks
}

// ProbeWorkersDone reports whether decrementing the live probe-worker
// count to remainingAfterDecrement means this call was the last worker, mirroring
// probe_merge_into_partial_modified_done's fetch_sub(1) == 1 check.
func ProbeWorkersDone(remainingAfterDecrement int32) bool {
	return remainingAfterDecrement == 0
}
