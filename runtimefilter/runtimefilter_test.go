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

package runtimefilter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vantage-db/qengine/expr"
	"github.com/vantage-db/qengine/physicalplan"
)

func scan(seq *physicalplan.PlanID, table string) *physicalplan.Plan {
	p := physicalplan.New(seq, physicalplan.TableScan)
	p.Table = table
	return p
}

func TestTryAddRuntimeFilterNodesWiresSourceAndConsumer(t *testing.T) {
	var seq physicalplan.PlanID
	build := scan(&seq, "small")
	probe := scan(&seq, "big")

	join := physicalplan.New(&seq, physicalplan.HashJoin, probe, build)
	join.BuildSide = 1
	key := expr.Ident("id")
	join.LeftKeys = []expr.Node{key}
	join.RightKeys = []expr.Node{key}

	out := TryAddRuntimeFilterNodes(join, &seq)
	require.Equal(t, physicalplan.HashJoin, out.Kind)
	require.Equal(t, physicalplan.RuntimeFilterSource, out.Children[1].Kind)
	require.Equal(t, physicalplan.RuntimeFilter, out.Children[0].Kind)
	require.Equal(t, out.Children[1].RuntimeFilterID, out.Children[0].RuntimeFilterID)
	require.Equal(t, physicalplan.TableScan, out.Children[0].Children[0].Kind)
}

func TestTryAddRuntimeFilterNodesSkipsNonEquiJoin(t *testing.T) {
	var seq physicalplan.PlanID
	build := scan(&seq, "small")
	probe := scan(&seq, "big")
	join := physicalplan.New(&seq, physicalplan.HashJoin, probe, build)
	join.BuildSide = 1

	out := TryAddRuntimeFilterNodes(join, &seq)
	require.Equal(t, physicalplan.TableScan, out.Children[0].Kind)
	require.Equal(t, physicalplan.TableScan, out.Children[1].Kind)
}

func TestTryAddRuntimeFilterNodesSkipsWhenBuildSideIsJoin(t *testing.T) {
	var seq physicalplan.PlanID
	inner := physicalplan.New(&seq, physicalplan.HashJoin, scan(&seq, "a"), scan(&seq, "b"))
	inner.BuildSide = 1
	probe := scan(&seq, "big")

	key := expr.Ident("id")
	outer := physicalplan.New(&seq, physicalplan.HashJoin, probe, inner)
	outer.BuildSide = 1
	outer.LeftKeys = []expr.Node{key}
	outer.RightKeys = []expr.Node{key}

	out := TryAddRuntimeFilterNodes(outer, &seq)
	require.Equal(t, physicalplan.HashJoin, out.Children[1].Kind)
}
