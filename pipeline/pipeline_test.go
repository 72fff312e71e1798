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

package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vantage-db/qengine/block"
)

func blockOf(rows int) *block.Block { return &block.Block{NumRows: rows} }

func TestNewPipelineIsPullingUntilSinkAttached(t *testing.T) {
	p := New(2)
	require.True(t, p.Pulling())
	require.Equal(t, 2, p.Width())
}

func TestAddSourceFeedsEveryLane(t *testing.T) {
	ctx := context.Background()
	p := New(2)
	err := p.AddSource(ctx, []Source{
		SourceFunc(func(ctx context.Context, out chan<- Item) error {
			out <- Item{Block: blockOf(1)}
			return nil
		}),
		SourceFunc(func(ctx context.Context, out chan<- Item) error {
			out <- Item{Block: blockOf(2)}
			return nil
		}),
	})
	require.NoError(t, err)

	lanes := p.Lanes()
	item0 := <-lanes[0]
	item1 := <-lanes[1]
	require.Equal(t, 1, item0.Block.NumRows)
	require.Equal(t, 2, item1.Block.NumRows)
}

func TestAddSinkMarksPipelineComplete(t *testing.T) {
	ctx := context.Background()
	p := New(1)
	require.NoError(t, p.AddSource(ctx, []Source{
		SourceFunc(func(ctx context.Context, out chan<- Item) error { return nil }),
	}))

	var sunk int32
	require.NoError(t, p.AddSink(ctx, []Sink{
		SinkFunc(func(ctx context.Context, in <-chan Item) error {
			for range in {
				atomic.AddInt32(&sunk, 1)
			}
			return nil
		}),
	}))
	require.False(t, p.Pulling())
	require.Panics(t, func() { p.Lanes() })
}

func TestResizeFansInThenOut(t *testing.T) {
	ctx := context.Background()
	p := New(3)
	require.NoError(t, p.AddSource(ctx, []Source{
		SourceFunc(func(ctx context.Context, out chan<- Item) error { out <- Item{Block: blockOf(1)}; return nil }),
		SourceFunc(func(ctx context.Context, out chan<- Item) error { out <- Item{Block: blockOf(1)}; return nil }),
		SourceFunc(func(ctx context.Context, out chan<- Item) error { out <- Item{Block: blockOf(1)}; return nil }),
	}))
	require.NoError(t, p.Resize(ctx, 1))
	require.Equal(t, 1, p.Width())

	total := 0
	deadline := time.After(time.Second)
	lane := p.Lanes()[0]
	for total < 3 {
		select {
		case item, ok := <-lane:
			if !ok {
				t.Fatalf("lane closed early, got %d of 3 items", total)
			}
			require.NoError(t, item.Err)
			total++
		case <-deadline:
			t.Fatal("timed out waiting for fanned-in items")
		}
	}
}

func TestAddTransformAppliesPerLaneProcessor(t *testing.T) {
	ctx := context.Background()
	p := New(1)
	require.NoError(t, p.AddSource(ctx, []Source{
		SourceFunc(func(ctx context.Context, out chan<- Item) error { out <- Item{Block: blockOf(5)}; return nil }),
	}))
	require.NoError(t, p.AddTransform(ctx, func() Processor {
		return ProcessorFunc(func(ctx context.Context, in <-chan Item, out chan<- Item) error {
			for item := range in {
				item.Block.NumRows *= 2
				out <- item
			}
			return nil
		})
	}))
	item := <-p.Lanes()[0]
	require.Equal(t, 10, item.Block.NumRows)
}
