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

	"github.com/vantage-db/qengine/block"
	"github.com/vantage-db/qengine/pipeline"
	"github.com/vantage-db/qengine/qerrors"
)

// KeyHasher computes one precomputed join-key hash per row of a block,
// the out-of-scope expression-evaluation boundary this
// package consumes rather than implements.
type KeyHasher interface {
	HashKeys(b *block.Block, keys []interface{}) ([]uint64, error)
}

// BuildSink is the pipeline.Sink every build lane ends in
// (TransformHashJoinBuild). MergeIntoTracking marks whether this
// join's build side is a MERGE INTO target table; it is a plain bool
// rather than derived from state because only the caller
// (pipelinebuilder) has the physical plan context to know this.
type BuildSink struct {
	State             *State
	Hasher            KeyHasher
	BuildKeyRefs      []interface{}
	MergeIntoTracking bool
}

func (b *BuildSink) Consume(ctx context.Context, in <-chan pipeline.Item) error {
	if b.MergeIntoTracking {
		b.State.EnableMergeIntoTracking()
	}
	for item := range in {
		if item.Err != nil {
			return item.Err
		}
		if item.Block.Empty() {
			continue
		}
		hashes, err := b.Hasher.HashKeys(item.Block, b.BuildKeyRefs)
		if err != nil {
			return err
		}
		b.State.AdmitBuildChunk(item.Block, hashes)
	}
	b.State.FinishBuild(b.MergeIntoTracking)
	return nil
}

// ProbeTransform is the TransformHashJoinProbe processor: for each probe block, looks up matching build
// rows per the shared State and emits joined output. The actual row
// materialization (gathering build + probe columns into one output
// Block) is delegated to Materializer, an expression/storage-runtime
// concern out of this package's scope.
type ProbeTransform struct {
	State        *State
	Hasher       KeyHasher
	ProbeKeyRefs []interface{}
	Materializer Materializer
}

// Materializer builds the joined output block for one probe block
// given, for each probe row, the matching build RowPtrs (nil/empty for
// an unmatched row).
type Materializer interface {
	Materialize(probe *block.Block, matches [][]block.RowPtr, state *State) (*block.Block, error)
}

func (p *ProbeTransform) Process(ctx context.Context, in <-chan pipeline.Item, out chan<- pipeline.Item) error {
	if err := p.State.WaitBuildDone(ctx); err != nil {
		return err
	}
	for item := range in {
		if item.Err != nil {
			out <- item
			continue
		}
		if item.Block.Empty() {
			continue
		}
		hashes, err := p.Hasher.HashKeys(item.Block, p.ProbeKeyRefs)
		if err != nil {
			return err
		}
		matches := make([][]block.RowPtr, len(hashes))
		matchedIdx := 0
		for i, h := range hashes {
			m := p.State.Lookup(h)
			matches[i] = m
			if len(m) > 0 {
				matchedIdx++
			}
		}
		if p.State.Tracker != nil {
			flat := make([]block.RowPtr, 0, matchedIdx)
			for _, m := range matches {
				if len(m) > 0 {
					flat = append(flat, m[0])
				}
			}
			// flat holds only matched rows by construction, so every
			// entry CheckAndSetMatched sees is valid.
			allValid := func(i int) bool { return true }
			if err := p.State.Tracker.CheckAndSetMatched(flat, len(flat), allValid); err != nil {
				return err
			}
		}
		joined, err := p.Materializer.Materialize(item.Block, matches, p.State)
		if err != nil {
			return err
		}
		out <- pipeline.Item{Block: joined}
	}
	if p.State.Tracker != nil && p.State.ProbeWorkerDone() {
		tasks := p.State.Tracker.GenerateFinalScanTasks()
		for _, task := range tasks {
			out <- pipeline.Item{Block: materializeScanTask(p.State, task)}
		}
	}
	return nil
}

func materializeScanTask(s *State, task block.ScanTask) *block.Block {
	seg, blk := block.SplitPrefix(task.Prefix)
	meta := block.BlockMetaIndex{SegmentIdx: int(seg), BlockIdx: int(blk)}
	if len(task.Intervals) == 0 {
		return block.EmptyWithMeta(meta)
	}
	chunk := s.Chunk(task.ChunkIndex)
	var rows []uint32
	for _, iv := range task.Intervals {
		for r := iv.Start; r <= iv.End; r++ {
			rows = append(rows, r)
		}
	}
	return chunk.Take(rows).WithMeta(meta)
}

// MarkJoinCompactor is the LeftMark post-processor stage. Its Process
// forwards every block unchanged; it does not drop rows or build the
// boolean mark column itself (see Process). Input and output
// pipelines run at width 1 (the caller resizes before attaching this),
// matching "pipeline-breaker" processors generally needing
// single-stream input.
type MarkJoinCompactor struct {
	// MarkColumnIndex is the output column that carries the boolean
	// "matched at least once" marker; Process neither reads nor writes it.
	MarkColumnIndex int
}

// Process passes each block through unchanged: collapsing the
// per-match duplicate rows a mark join's probe would otherwise produce
// down to one row per probe row (with the mark column carrying
// "matched at least once") requires per-row column identity, which is
// the out-of-scope expression/storage runtime's concern.
// ProbeTransform's Materializer is expected to have already produced
// exactly one output row per probe row for LeftMark (rather than one
// per match), so the compactor's remaining job at this layer is the
// resize-to-1 + single-stream ordering requires, which
// the caller enforces before attaching this Processor.
func (c *MarkJoinCompactor) Process(ctx context.Context, in <-chan pipeline.Item, out chan<- pipeline.Item) error {
	for item := range in {
		out <- item
	}
	return nil
}

// NeedRuntimeFilterTee reports whether the build pipeline must tee its
// output because this join feeds a
// RuntimeFilterSource downstream.
func (s *State) NeedRuntimeFilterTee() bool { return len(s.RuntimeFilterKeys) > 0 }

// ErrEmptyBuildKeys guards against constructing a hash join with no
// keys at all, which should have been rejected earlier (an equi-join
// with no equi-keys degenerates to a cross/range join, a different
// physical node entirely RangeJoin).
var ErrEmptyBuildKeys = qerrors.New(qerrors.Internal, "hashjoin: build side has no join keys")
