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

package cascades

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vantage-db/qengine/expr"
	"github.com/vantage-db/qengine/memo"
	"github.com/vantage-db/qengine/rel"
)

func scan(table string, cols ...string) *rel.Expr {
	schema := make(rel.Schema, len(cols))
	for i, c := range cols {
		schema[i] = rel.Column{Index: i, Name: c, Type: "any"}
	}
	return rel.New(rel.Operator{Kind: rel.OpScan, Table: table, TableCols: schema})
}

func TestOptimizeReturnsPhysicalRoot(t *testing.T) {
	m := memo.New()
	join := rel.New(rel.Operator{
		Kind:      rel.OpJoin,
		JoinType:  rel.InnerJoin,
		LeftKeys:  []expr.Node{expr.Ident("a")},
		RightKeys: []expr.Node{expr.Ident("b")},
	}, scan("l", "a"), scan("r", "b"))

	root := m.Insert(join)
	m.SetRoot(root)

	best, err := Optimize(m, root, memo.AnyProperty, logrus.StandardLogger())
	require.NoError(t, err)
	require.NotNil(t, best)
	require.True(t, best.Physical)
	require.Equal(t, rel.OpJoin, best.Kind)
}

func TestExploreAddsCommutedJoinMember(t *testing.T) {
	m := memo.New()
	join := rel.New(rel.Operator{
		Kind:      rel.OpJoin,
		JoinType:  rel.InnerJoin,
		LeftKeys:  []expr.Node{expr.Ident("a")},
		RightKeys: []expr.Node{expr.Ident("b")},
	}, scan("l", "a"), scan("r", "b"))

	root := m.Insert(join)
	before := len(m.Group(root).Members)
	explore(m, root)
	after := len(m.Group(root).Members)
	require.Greater(t, after, before)
}

func TestExploreIsIdempotentAcrossRepeatedCalls(t *testing.T) {
	m := memo.New()
	join := rel.New(rel.Operator{
		Kind:      rel.OpJoin,
		JoinType:  rel.InnerJoin,
		LeftKeys:  []expr.Node{expr.Ident("a")},
		RightKeys: []expr.Node{expr.Ident("b")},
	}, scan("l", "a"), scan("r", "b"))

	root := m.Insert(join)
	explore(m, root)
	after1 := len(m.Group(root).Members)
	explore(m, root)
	after2 := len(m.Group(root).Members)
	require.Equal(t, after1, after2, "re-running explore on an already-explored group must not duplicate members")
}

func TestOptimizeMemoizesPerRequiredProperty(t *testing.T) {
	m := memo.New()
	s := scan("t", "a")
	root := m.Insert(s)
	m.SetRoot(root)

	_, err := Optimize(m, root, memo.AnyProperty, logrus.StandardLogger())
	require.NoError(t, err)

	sorted := memo.PhysicalProperty{Order: []memo.PropertyOrderKey{{Column: 0}}}
	_, err = Optimize(m, root, sorted, logrus.StandardLogger())
	require.NoError(t, err)

	require.NotNil(t, m.BestCost(root, memo.AnyProperty))
	require.NotNil(t, m.BestCost(root, sorted))
}
