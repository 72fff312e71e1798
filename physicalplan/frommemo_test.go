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

package physicalplan

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vantage-db/qengine/cascades"
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

func TestFromMemoBuildsPlanTreeFromCostedMemo(t *testing.T) {
	m := memo.New()
	join := rel.New(rel.Operator{
		Kind:      rel.OpJoin,
		JoinType:  rel.InnerJoin,
		LeftKeys:  []expr.Node{expr.Ident("a")},
		RightKeys: []expr.Node{expr.Ident("b")},
	}, scan("l", "a"), scan("r", "b"))

	root := m.Insert(join)
	m.SetRoot(root)

	_, err := cascades.Optimize(m, root, memo.AnyProperty, logrus.StandardLogger())
	require.NoError(t, err)

	var seq PlanID
	plan, err := FromMemo(m, root, memo.AnyProperty, &seq)
	require.NoError(t, err)
	require.Equal(t, HashJoin, plan.Kind)
	require.Len(t, plan.Children, 2)
	require.Equal(t, TableScan, plan.Children[0].Kind)
	require.Equal(t, TableScan, plan.Children[1].Kind)
	require.Equal(t, 1, plan.BuildSide)

	// every node got a distinct PlanID
	seen := map[PlanID]bool{}
	var walk func(*Plan)
	walk = func(p *Plan) {
		require.False(t, seen[p.ID])
		seen[p.ID] = true
		for _, c := range p.Children {
			walk(c)
		}
	}
	walk(plan)
	require.Len(t, seen, 3)
}
