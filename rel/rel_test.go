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

package rel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func scan(table string, cols ...string) *Expr {
	schema := make(Schema, len(cols))
	for i, c := range cols {
		schema[i] = Column{Index: i, Name: c}
	}
	return New(Operator{Kind: OpScan, Table: table, TableCols: schema})
}

func TestSchemaPassthrough(t *testing.T) {
	s := scan("t", "a", "b")
	f := New(Operator{Kind: OpFilter}, s)
	require.Equal(t, s.Schema(), f.Schema())
}

func TestJoinSchemaSemiDropsRight(t *testing.T) {
	l := scan("t", "a")
	r := scan("u", "b")
	j := New(Operator{Kind: OpJoin, JoinType: LeftSemiJoin}, l, r)
	require.Len(t, j.Schema(), 1)

	inner := New(Operator{Kind: OpJoin, JoinType: InnerJoin}, l, r)
	require.Len(t, inner.Schema(), 2)
}

func TestEqualStructural(t *testing.T) {
	a := New(Operator{Kind: OpFilter}, scan("t", "a"))
	b := New(Operator{Kind: OpFilter}, scan("t", "a"))
	require.True(t, Equal(a, b))

	c := New(Operator{Kind: OpFilter}, scan("t", "b"))
	require.False(t, Equal(a, c))
}

func TestRewriteStructuralSharing(t *testing.T) {
	s := scan("t", "a")
	f := New(Operator{Kind: OpFilter}, s)
	out := Rewrite(f, func(e *Expr) *Expr { return e })
	require.True(t, Equal(f, out))
}

func TestReplaceChildrenSharesOperator(t *testing.T) {
	s1 := scan("t", "a")
	s2 := scan("u", "b")
	j := New(Operator{Kind: OpJoin, JoinType: InnerJoin}, s1, s1)
	j2 := j.ReplaceChildren([]*Expr{s1, s2})
	require.Equal(t, j.JoinType, j2.JoinType)
	require.Same(t, s2, j2.Child(1))
}
