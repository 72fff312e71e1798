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

// Package spill writes partial-aggregate blocks to an io.Writer and
// reads them back in order, compressing each spilled chunk with s2 for
// a cheap, low-latency round trip. It does not itself compare any state
// size with settings.SpillingBytesThresholdPerProc; deciding when to
// spill is up to the caller.
//
// Writer and Reader call s2.Encode/s2.Decode directly; there is no
// compression interface in between, and s2 is the only codec.
package spill

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/klauspost/compress/s2"

	"github.com/vantage-db/qengine/block"
	"github.com/vantage-db/qengine/qerrors"
)

// gobColumn is block.Column's wire shape: block.Column itself isn't
// gob-friendly (its Values are opaque interface{} cells owned by the
// out-of-scope expression runtime), so the encoder just round-trips
// whatever concrete values the caller already produced.
type gobColumn struct {
	Name   string
	Values []interface{}
}

func init() {
	// Every concrete type a partial aggregate's group keys or
	// accumulator state actually hold in today's test/usage surface.
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register("")
	gob.Register(true)
}

// Writer appends spilled blocks to an underlying io.Writer, each as a
// length-prefixed s2-compressed gob record.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteBlock spills one block, returning the number of compressed
// bytes written (so the caller can track its own spilled-bytes budget
// separately from SpillThresholdBytes, which bounds in-memory state).
func (w *Writer) WriteBlock(b *block.Block) (int, error) {
	raw, err := encodeBlock(b)
	if err != nil {
		return 0, err
	}
	compressed := s2.Encode(nil, raw)

	var header [8]byte
	putUint64(header[:], uint64(len(compressed)))
	if _, err := w.w.Write(header[:]); err != nil {
		return 0, err
	}
	if _, err := w.w.Write(compressed); err != nil {
		return 0, err
	}
	return len(compressed), nil
}

// Reader reads back blocks a Writer produced, in the order they were
// spilled.
type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// ReadBlock reads the next spilled block, returning io.EOF once the
// underlying stream is exhausted.
func (r *Reader) ReadBlock() (*block.Block, error) {
	var header [8]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		return nil, err
	}
	n := getUint64(header[:])
	compressed := make([]byte, n)
	if _, err := io.ReadFull(r.r, compressed); err != nil {
		return nil, qerrors.Newf(qerrors.Internal, "spill: truncated record: %v", err)
	}
	raw, err := s2.Decode(nil, compressed)
	if err != nil {
		return nil, qerrors.Newf(qerrors.Internal, "spill: s2 decode failed: %v", err)
	}
	return decodeBlock(raw)
}

func encodeBlock(b *block.Block) ([]byte, error) {
	cols := make([]gobColumn, len(b.Columns))
	for i, c := range b.Columns {
		cols[i] = gobColumn{Name: c.Name, Values: c.Values}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(struct {
		Columns []gobColumn
		NumRows int
	}{cols, b.NumRows}); err != nil {
		return nil, qerrors.Newf(qerrors.Internal, "spill: encode failed: %v", err)
	}
	return buf.Bytes(), nil
}

func decodeBlock(raw []byte) (*block.Block, error) {
	var payload struct {
		Columns []gobColumn
		NumRows int
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&payload); err != nil {
		return nil, qerrors.Newf(qerrors.Internal, "spill: decode failed: %v", err)
	}
	cols := make([]block.Column, len(payload.Columns))
	for i, c := range payload.Columns {
		cols[i] = block.Column{Name: c.Name, Values: c.Values}
	}
	return &block.Block{Columns: cols, NumRows: payload.NumRows}, nil
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
