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

package dphyp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vantage-db/qengine/expr"
	"github.com/vantage-db/qengine/rel"
)

func scan(table string, cols ...string) *rel.Expr {
	schema := make(rel.Schema, len(cols))
	for i, c := range cols {
		schema[i] = rel.Column{Index: i, Name: c, Type: "any"}
	}
	return rel.New(rel.Operator{Kind: rel.OpScan, Table: table, TableCols: schema})
}

func innerJoin(left, right *rel.Expr, leftKey, rightKey expr.Node) *rel.Expr {
	return rel.New(rel.Operator{
		Kind:      rel.OpJoin,
		JoinType:  rel.InnerJoin,
		LeftKeys:  []expr.Node{leftKey},
		RightKeys: []expr.Node{rightKey},
	}, left, right)
}

func TestReorderLeavesTwoRelationJoinUntouched(t *testing.T) {
	a := scan("a", "x")
	b := scan("b", "y")
	join := innerJoin(a, b, expr.Ident("x"), expr.Ident("y"))

	out, optimized := Reorder(join)
	require.False(t, optimized)
	require.True(t, rel.Equal(out, join))
}

func TestReorderFindsConnectedThreeWayJoin(t *testing.T) {
	a := scan("a", "x")
	b := scan("b", "y")
	c := scan("c", "z")

	// a join b is disconnected from c except through b: a.x=b.y, b.y=c.z
	ab := innerJoin(a, b, expr.Ident("x"), expr.Ident("y"))
	tree := innerJoin(ab, c, expr.Ident("y"), expr.Ident("z"))

	out, _ := Reorder(tree)
	require.Equal(t, rel.OpJoin, out.Kind)
	require.Equal(t, 3, countLeaves(out))
}

func TestReorderPreservesRelationalOutputLeafSet(t *testing.T) {
	a := scan("a", "x")
	b := scan("b", "y")
	c := scan("c", "z")
	d := scan("d", "w")

	ab := innerJoin(a, b, expr.Ident("x"), expr.Ident("y"))
	cd := innerJoin(c, d, expr.Ident("z"), expr.Ident("w"))
	tree := innerJoin(ab, cd, expr.Ident("y"), expr.Ident("z"))

	out, _ := Reorder(tree)
	require.Equal(t, 4, countLeaves(out))
	require.ElementsMatch(t, []string{"a", "b", "c", "d"}, leafTables(out))
}

func TestReorderDeclinesNonJoinRoot(t *testing.T) {
	a := scan("a", "x")
	out, optimized := Reorder(a)
	require.False(t, optimized)
	require.Same(t, a, out)
}

func TestKeysEqualIsOrderIndependent(t *testing.T) {
	a := []expr.Node{expr.Ident("x"), expr.Ident("y")}
	b := []expr.Node{expr.Ident("y"), expr.Ident("x")}
	require.True(t, keysEqual(a, b))
	require.False(t, keysEqual(a, []expr.Node{expr.Ident("x")}))
}

func countLeaves(e *rel.Expr) int {
	if e.Kind != rel.OpJoin {
		return 1
	}
	return countLeaves(e.Child(0)) + countLeaves(e.Child(1))
}

func leafTables(e *rel.Expr) []string {
	if e.Kind != rel.OpJoin {
		return []string{e.Table}
	}
	return append(leafTables(e.Child(0)), leafTables(e.Child(1))...)
}
