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
	"github.com/vantage-db/qengine/memo"
	"github.com/vantage-db/qengine/rel"
	"github.com/vantage-db/qengine/rules"
)

// explore applies transformation (logical to logical) rules to every
// existing logical member of gid and appends any new result as a new
// member of the same group step 2's first bullet.
// DPhyp has already reordered joins and the heuristic pass has already
// applied DefaultRewrites, so the only transformation rule explored
// here is CommuteJoin: it gives the cost-based implementation phase
// (see implement.go) both build-side orientations of every InnerJoin
// to choose between, which is the one decision this optimizer actually
// searches rather than fixing heuristically.
func explore(m *memo.Memo, gid memo.GroupId) {
	g := m.Group(gid)
	rule := rules.Factory(rules.RuleCommuteJoin)

	// Snapshot the member list before appending: new members produced
	// below must not themselves be re-commuted in this same pass (that
	// would just regenerate the original member and loop).
	members := append([]*memo.MExpr(nil), g.Members...)
	for _, mx := range members {
		if mx.Physical || mx.Kind != rel.OpJoin {
			continue
		}
		e := rel.New(mx.Operator, groupPlaceholder(mx.Children[0]), groupPlaceholder(mx.Children[1]))
		if !rule.Match(e) {
			continue
		}
		result := rules.NewTransformResult()
		if err := rule.Apply(e, result); err != nil {
			continue
		}
		for _, out := range result.Results() {
			commuted := memo.MExpr{Operator: out.Operator, Children: []memo.GroupId{mx.Children[1], mx.Children[0]}}
			if !hasEqualMember(g, commuted.Operator, commuted.Children) {
				m.AppendMember(gid, commuted.Operator, commuted.Children)
			}
		}
	}
}

// groupPlaceholder stands in for a child group during rule matching:
// CommuteJoin only inspects the parent Join's own fields (JoinType)
// and swaps children wholesale, so the placeholder's own shape is
// never examined - only its identity (to detect which slot it came
// from) matters, and that is recovered from mx.Children directly
// rather than from the placeholder.
func groupPlaceholder(gid memo.GroupId) *rel.Expr {
	return rel.New(rel.Operator{Kind: rel.OpDummyTableScan})
}

// hasEqualMember reports whether g already has a member structurally
// equal to (op, children), used to keep explore idempotent across
// repeated calls to optimizeGroup for the same group from different
// parents/required properties.
func hasEqualMember(g *memo.Group, op rel.Operator, children []memo.GroupId) bool {
	for _, mx := range g.Members {
		if mx.Kind != op.Kind || len(mx.Children) != len(children) {
			continue
		}
		same := true
		for i := range children {
			if mx.Children[i] != children[i] {
				same = false
				break
			}
		}
		if same && opFieldsRoughlyEqual(mx.Operator, op) {
			return true
		}
	}
	return false
}

// opFieldsRoughlyEqual compares the fields relevant to a Join operator
// (the only Kind explore produces new members for); it does not need
// to be a full rel.Equal since only the JoinType/LeftKeys/RightKeys
// that CommuteJoin touches can differ between candidates here.
func opFieldsRoughlyEqual(a, b rel.Operator) bool {
	if a.JoinType != b.JoinType || len(a.LeftKeys) != len(b.LeftKeys) {
		return false
	}
	return true
}
