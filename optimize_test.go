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

package qengine

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vantage-db/qengine/expr"
	"github.com/vantage-db/qengine/physicalplan"
	"github.com/vantage-db/qengine/rel"
	"github.com/vantage-db/qengine/settings"
)

func scan(table string, cols ...string) *rel.Expr {
	schema := make(rel.Schema, len(cols))
	for i, c := range cols {
		schema[i] = rel.Column{Index: i, Name: c, Type: "any"}
	}
	return rel.New(rel.Operator{Kind: rel.OpScan, Table: table, TableCols: schema})
}

func TestOptimizeProducesHashJoinPlan(t *testing.T) {
	join := rel.New(rel.Operator{
		Kind:      rel.OpJoin,
		JoinType:  rel.InnerJoin,
		LeftKeys:  []expr.Node{expr.Ident("a")},
		RightKeys: []expr.Node{expr.Ident("b")},
	}, scan("l", "a"), scan("r", "b"))

	res, err := Optimize(join, settings.Default(), logrus.StandardLogger())
	require.NoError(t, err)
	require.NotNil(t, res.Plan)
	require.Equal(t, physicalplan.HashJoin, res.Plan.Kind)
	require.Len(t, res.Plan.Children, 2)
	require.NotNil(t, res.Memo)
}

func TestOptimizeWithRuntimeFilterInsertsFilterNodes(t *testing.T) {
	join := rel.New(rel.Operator{
		Kind:      rel.OpJoin,
		JoinType:  rel.InnerJoin,
		LeftKeys:  []expr.Node{expr.Ident("a")},
		RightKeys: []expr.Node{expr.Ident("b")},
	}, scan("l", "a"), scan("r", "b"))

	s := settings.Default()
	s.RuntimeFilter = true
	s.EnableDistributedOptimization = false

	res, err := Optimize(join, s, logrus.StandardLogger())
	require.NoError(t, err)
	require.Equal(t, physicalplan.HashJoin, res.Plan.Kind)
	require.Equal(t, physicalplan.RuntimeFilterSource, res.Plan.Children[res.Plan.BuildSide].Kind)
	require.Equal(t, physicalplan.RuntimeFilter, res.Plan.Children[1-res.Plan.BuildSide].Kind)
}

func TestOptimizeWithoutJoinReorderSkipsDphyp(t *testing.T) {
	join := rel.New(rel.Operator{
		Kind:      rel.OpJoin,
		JoinType:  rel.InnerJoin,
		LeftKeys:  []expr.Node{expr.Ident("a")},
		RightKeys: []expr.Node{expr.Ident("b")},
	}, scan("l", "a"), scan("r", "b"))

	s := settings.Default()
	s.DisableJoinReorder = true

	res, err := Optimize(join, s, nil)
	require.NoError(t, err)
	require.Equal(t, physicalplan.HashJoin, res.Plan.Kind)
}
