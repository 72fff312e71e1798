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

package spill

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vantage-db/qengine/block"
)

func TestWriteBlockThenReadBlockRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	b := &block.Block{
		NumRows: 2,
		Columns: []block.Column{
			{Name: "k", Values: []interface{}{"a", "b"}},
			{Name: "sum", Values: []interface{}{int64(1), int64(2)}},
		},
	}
	n, err := w.WriteBlock(b)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	r := NewReader(&buf)
	got, err := r.ReadBlock()
	require.NoError(t, err)
	require.Equal(t, 2, got.NumRows)
	require.Equal(t, "k", got.Columns[0].Name)
	require.Equal(t, []interface{}{"a", "b"}, got.Columns[0].Values)
	require.Equal(t, []interface{}{int64(1), int64(2)}, got.Columns[1].Values)
}

func TestReadBlockReturnsEOFWhenExhausted(t *testing.T) {
	var buf bytes.Buffer
	r := NewReader(&buf)
	_, err := r.ReadBlock()
	require.ErrorIs(t, err, io.EOF)
}

func TestMultipleBlocksReadBackInOrder(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	_, err := w.WriteBlock(&block.Block{NumRows: 1, Columns: []block.Column{{Name: "a", Values: []interface{}{int64(1)}}}})
	require.NoError(t, err)
	_, err = w.WriteBlock(&block.Block{NumRows: 1, Columns: []block.Column{{Name: "a", Values: []interface{}{int64(2)}}}})
	require.NoError(t, err)

	r := NewReader(&buf)
	first, err := r.ReadBlock()
	require.NoError(t, err)
	require.Equal(t, int64(1), first.Columns[0].Values[0])

	second, err := r.ReadBlock()
	require.NoError(t, err)
	require.Equal(t, int64(2), second.Columns[0].Values[0])

	_, err = r.ReadBlock()
	require.ErrorIs(t, err, io.EOF)
}
