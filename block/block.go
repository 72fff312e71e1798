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

// Package block defines the columnar data-block shape that flows
// through the pipeline. Column storage and expression evaluation over a
// Block are out of scope; Block here only carries what the
// optimizer/pipeline-builder core needs to reason about: row count,
// opaque per-block metadata, and named columns as opaque values for
// the bookkeeping operations (take, pop, add) the hash join and MERGE
// INTO tracker need directly.
//
// A row count plus a slice of column vectors addressed by index,
// generalized to also carry an opaque Meta slot so a block can be
// traced back to a BlockMetaIndex (segment/block position) for the
// MERGE INTO matched-row tracker.
package block

// Column is one named column's values, stored as opaque values since
// the concrete column encoding belongs to the out-of-scope storage and
// expression-evaluation layers.
type Column struct {
	Name   string
	Values []interface{}
}

// Meta is the interface a Block's opaque per-block metadata
// implements. BlockMetaIndex (see meta.go) is the concrete
// implementation the MERGE INTO matched-row tracker relies on.
type Meta interface {
	isBlockMeta()
}

// Block is one push/pull unit of columnar data flowing through a
// Pipeline.
type Block struct {
	Columns []Column
	NumRows int
	Meta    Meta
}

// Empty reports whether b carries no rows.
func (b *Block) Empty() bool { return b == nil || b.NumRows == 0 }

// EmptyWithMeta returns a zero-row Block carrying only meta, used for
// the MERGE INTO "whole block matched, delete wholesale" case.
func EmptyWithMeta(meta Meta) *Block {
	return &Block{Meta: meta}
}

// WithMeta returns a shallow copy of b with meta attached, used when a
// partial-scan task tags its output rows with the originating block's
// BlockMetaIndex.
func (b *Block) WithMeta(meta Meta) *Block {
	cp := *b
	cp.Meta = meta
	return &cp
}

// Take returns a new Block containing only the rows at the given
// (0-based, within this block) row indexes, in order, mirroring
// DataBlock::take in original_source's
// merge_into_hash_join_optimization.rs.
func (b *Block) Take(rows []uint32) *Block {
	out := &Block{
		Columns: make([]Column, len(b.Columns)),
		NumRows: len(rows),
	}
	for i, c := range b.Columns {
		vals := make([]interface{}, len(rows))
		for j, r := range rows {
			vals[j] = c.Values[r]
		}
		out.Columns[i] = Column{Name: c.Name, Values: vals}
	}
	return out
}

// PopColumns returns a new Block with the last n columns removed,
// mirroring DataBlock::pop_columns, used by the update-by-expr mutator
// to strip the rolling filter column before re-deriving it.
func (b *Block) PopColumns(n int) *Block {
	keep := len(b.Columns) - n
	if keep < 0 {
		keep = 0
	}
	out := &Block{NumRows: b.NumRows, Meta: b.Meta}
	out.Columns = append(out.Columns, b.Columns[:keep]...)
	return out
}

// AddColumn returns a new Block with col appended, mirroring
// DataBlock::add_column.
func (b *Block) AddColumn(col Column) *Block {
	out := &Block{NumRows: b.NumRows, Meta: b.Meta}
	out.Columns = append(out.Columns, b.Columns...)
	out.Columns = append(out.Columns, col)
	return out
}

// Column looks up a column by name, returning (nil, false) if absent.
func (b *Block) Column(name string) (*Column, bool) {
	for i := range b.Columns {
		if b.Columns[i].Name == name {
			return &b.Columns[i], true
		}
	}
	return nil, false
}
