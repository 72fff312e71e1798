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

package memo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vantage-db/qengine/rel"
)

func scan(table string) *rel.Expr {
	return rel.New(rel.Operator{Kind: rel.OpScan, Table: table})
}

func TestInsertDedupsEqualExpressions(t *testing.T) {
	m := New()
	g1 := m.Insert(scan("t"))
	g2 := m.Insert(scan("t"))
	require.Equal(t, g1, g2, "structurally equal scans should share a group")

	g3 := m.Insert(scan("u"))
	require.NotEqual(t, g1, g3)
}

func TestAppendMemberNeverRemovesPriorMembers(t *testing.T) {
	m := New()
	gid := m.Insert(scan("t"))
	before := len(m.Group(gid).Members)
	m.AppendMember(gid, rel.Operator{Kind: rel.OpScan, Table: "t"}, nil)
	require.Equal(t, before+1, len(m.Group(gid).Members))
}

func TestBestCostTieKeepsEarlierPlan(t *testing.T) {
	m := New()
	gid := m.Insert(scan("t"))
	first := &MExpr{Operator: rel.Operator{Kind: rel.OpScan, Table: "t"}}
	second := &MExpr{Operator: rel.Operator{Kind: rel.OpScan, Table: "t"}}

	changed := m.UpdateBestCost(gid, AnyProperty, &CostContext{Best: first, Cost: 10})
	require.True(t, changed)
	changed = m.UpdateBestCost(gid, AnyProperty, &CostContext{Best: second, Cost: 10})
	require.False(t, changed, "equal cost must not displace the earlier plan")
	require.Same(t, first, m.BestCost(gid, AnyProperty).Best)

	cheaper := &MExpr{Operator: rel.Operator{Kind: rel.OpScan, Table: "t"}}
	changed = m.UpdateBestCost(gid, AnyProperty, &CostContext{Best: cheaper, Cost: 9})
	require.True(t, changed)
	require.Same(t, cheaper, m.BestCost(gid, AnyProperty).Best)
}

func TestDistinctPropertiesCostedIndependently(t *testing.T) {
	m := New()
	gid := m.Insert(scan("t"))
	sorted := PhysicalProperty{Order: []PropertyOrderKey{{Column: 0}}}

	m.UpdateBestCost(gid, AnyProperty, &CostContext{Cost: 5})
	m.UpdateBestCost(gid, sorted, &CostContext{Cost: 50})

	require.Equal(t, 5.0, m.BestCost(gid, AnyProperty).Cost)
	require.Equal(t, 50.0, m.BestCost(gid, sorted).Cost)
}
