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

// Package pipeline implements a push/pull processor graph: a Pipeline
// is a set of parallel lanes ("pipes") of Blocks flowing through
// Processors, with Resize reshaping the lane count via fan-in/fan-out,
// and a pulling-vs-complete invariant distinguishing an in-progress
// pipeline (still open for the top-level caller to pull from) from a
// finished one (every lane ends in a sink).
//
// Grounded in a goroutine-per-stage, channel-connected processing
// style, generalized here to a variable-width lane count so Resize can
// fan blocks in and out around pipeline-breaker operators.
package pipeline

import (
	"context"
	"sync"

	"github.com/vantage-db/qengine/block"
	"github.com/vantage-db/qengine/qerrors"
)

// Item is one unit flowing through a lane: either a Block or a
// terminal error. A nil Block with nil Err never occurs.
type Item struct {
	Block *block.Block
	Err   error
}

// Processor transforms one lane's stream of Items. Process must drain
// in until it closes (or ctx is done) and must not close out: the
// Pipeline closes out after Process returns. This matches the "push"
// processor model: a Processor does not pull work
// on its own schedule, it reacts to what arrives on in.
type Processor interface {
	Process(ctx context.Context, in <-chan Item, out chan<- Item) error
}

// ProcessorFunc adapts a plain function to Processor.
type ProcessorFunc func(ctx context.Context, in <-chan Item, out chan<- Item) error

func (f ProcessorFunc) Process(ctx context.Context, in <-chan Item, out chan<- Item) error {
	return f(ctx, in, out)
}

// Source produces a lane's Items without reading from any upstream
// lane (a TableScan, an ExchangeSource, a side channel reader).
type Source interface {
	Produce(ctx context.Context, out chan<- Item) error
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context, out chan<- Item) error

func (f SourceFunc) Produce(ctx context.Context, out chan<- Item) error { return f(ctx, out) }

// Sink consumes a lane's Items without producing any downstream lane
// (the final aggregator's output consumer, a storage append pipeline).
type Sink interface {
	Consume(ctx context.Context, in <-chan Item) error
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(ctx context.Context, in <-chan Item) error

func (f SinkFunc) Consume(ctx context.Context, in <-chan Item) error { return f(ctx, in) }

const laneBuffer = 1

// Pipeline is an ordered set of parallel lanes. A freshly created
// Pipeline (via New) is pulling: its lanes are open channels with no
// Sink attached yet, and AddTransform/Resize may still reshape it. Once
// AddSink runs, the Pipeline is complete and Lanes panics: a side
// pipeline must be complete, while the main pipeline remains pulling
// until the top-level caller finalizes it.
type Pipeline struct {
	lanes    []chan Item
	complete bool
}

// New creates a Pipeline with the given lane width, each lane
// unconnected until AddSource runs.
func New(width int) *Pipeline {
	p := &Pipeline{lanes: make([]chan Item, width)}
	for i := range p.lanes {
		p.lanes[i] = make(chan Item, laneBuffer)
	}
	return p
}

// Width reports the current lane count.
func (p *Pipeline) Width() int { return len(p.lanes) }

// Pulling reports whether this Pipeline can still be extended (no Sink
// has been attached).
func (p *Pipeline) Pulling() bool { return !p.complete }

// Lanes exposes the current lane channels for a top-level caller that
// wants to pull blocks directly (the main pipeline, before its own
// Sink is attached by the caller orchestrating the whole query). It
// panics if the pipeline is already complete, since a complete
// pipeline's lanes are already being drained by its own sinks.
func (p *Pipeline) Lanes() []chan Item {
	if p.complete {
		panic("pipeline: Lanes called on a complete pipeline")
	}
	return p.lanes
}

// AddSource spawns one goroutine per lane running the corresponding
// Source, closing that lane's channel (after sending a terminal error
// Item on failure) once the Source returns. len(sources) must equal
// Width.
func (p *Pipeline) AddSource(ctx context.Context, sources []Source) error {
	if len(sources) != len(p.lanes) {
		return qerrors.Newf(qerrors.Internal, "pipeline: AddSource got %d sources for %d lanes", len(sources), len(p.lanes))
	}
	for i, src := range sources {
		out := p.lanes[i]
		src := src
		go func() {
			defer close(out)
			if err := src.Produce(ctx, out); err != nil {
				out <- Item{Err: err}
			}
		}()
	}
	return nil
}

// AddTransform splices one Processor instance per lane between the
// current lanes and a new set, replacing p.lanes with the new set.
// newProcessor is called once per lane so a Processor holding
// per-lane state (a local hash table, say) never leaks across lanes.
func (p *Pipeline) AddTransform(ctx context.Context, newProcessor func() Processor) error {
	if p.complete {
		return qerrors.New(qerrors.Internal, "pipeline: AddTransform on a complete pipeline")
	}
	next := make([]chan Item, len(p.lanes))
	for i, in := range p.lanes {
		out := make(chan Item, laneBuffer)
		next[i] = out
		in := in
		proc := newProcessor()
		go func() {
			defer close(out)
			if err := proc.Process(ctx, in, out); err != nil {
				out <- Item{Err: err}
			}
		}()
	}
	p.lanes = next
	return nil
}

// Resize reshapes the lane count to n via a single fan-in/fan-out
// stage: every current lane feeds every new lane through one shared
// merge-then-split goroutine per side. Whether a RangeJoin should
// always resize to max_threads is a caller policy, resolved by callers
// always invoking Resize(maxThreads) before installing a RangeJoin,
// not by anything in Resize itself.
func (p *Pipeline) Resize(ctx context.Context, n int) error {
	if p.complete {
		return qerrors.New(qerrors.Internal, "pipeline: Resize on a complete pipeline")
	}
	if n == len(p.lanes) {
		return nil
	}
	if n <= 0 {
		return qerrors.Newf(qerrors.Internal, "pipeline: Resize to non-positive width %d", n)
	}

	merged := make(chan Item, laneBuffer)
	old := p.lanes
	var wg sync.WaitGroup
	wg.Add(len(old))
	for _, c := range old {
		c := c
		go func() {
			defer wg.Done()
			for item := range c {
				merged <- item
			}
		}()
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	next := make([]chan Item, n)
	for i := range next {
		next[i] = make(chan Item, laneBuffer)
	}
	go func() {
		defer func() {
			for _, c := range next {
				close(c)
			}
		}()
		i := 0
		for item := range merged {
			next[i%n] <- item
			i++
		}
	}()

	p.lanes = next
	return nil
}

// AddSink spawns one goroutine per lane running the corresponding
// Sink, marking the Pipeline complete once every lane's Sink has been
// wired. len(sinks) must equal Width.
func (p *Pipeline) AddSink(ctx context.Context, sinks []Sink) error {
	if len(sinks) != len(p.lanes) {
		return qerrors.Newf(qerrors.Internal, "pipeline: AddSink got %d sinks for %d lanes", len(sinks), len(p.lanes))
	}
	for i, sink := range sinks {
		in := p.lanes[i]
		sink := sink
		go sink.Consume(ctx, in)
	}
	p.complete = true
	p.lanes = nil
	return nil
}
