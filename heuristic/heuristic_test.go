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

package heuristic

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vantage-db/qengine/expr"
	"github.com/vantage-db/qengine/rel"
	"github.com/vantage-db/qengine/rules"
)

func scan(table string, cols ...string) *rel.Expr {
	schema := make(rel.Schema, len(cols))
	for i, c := range cols {
		schema[i] = rel.Column{Index: i, Name: c, Type: "any"}
	}
	return rel.New(rel.Operator{Kind: rel.OpScan, Table: table, TableCols: schema})
}

func TestRunEliminatesTrivialFilterAndMergesAdjacentFilters(t *testing.T) {
	s := scan("t", "a")
	inner := rel.New(rel.Operator{Kind: rel.OpFilter, Predicates: []expr.Node{expr.Bool(true)}}, s)
	outer := rel.New(rel.Operator{Kind: rel.OpFilter, Predicates: []expr.Node{expr.Ident("a")}}, inner)

	out, err := Run(outer, rules.DefaultRewrites, logrus.StandardLogger())
	require.NoError(t, err)
	require.Equal(t, rel.OpFilter, out.Kind)
	require.Same(t, s, out.Child(0))
	require.Len(t, out.Predicates, 1)
}

func TestRunIsIdempotent(t *testing.T) {
	s := scan("t", "a", "b")
	f := rel.New(rel.Operator{Kind: rel.OpFilter, Predicates: []expr.Node{expr.Ident("a")}}, s)

	once, err := Run(f, rules.DefaultRewrites, logrus.StandardLogger())
	require.NoError(t, err)
	twice, err := Run(once, rules.DefaultRewrites, logrus.StandardLogger())
	require.NoError(t, err)
	require.True(t, rel.Equal(once, twice))
}

func TestRunSkipsUnknownRuleID(t *testing.T) {
	s := scan("t", "a")
	out, err := Run(s, []rules.RuleID{rules.RuleID(9999)}, logrus.StandardLogger())
	require.NoError(t, err)
	require.Same(t, s, out)
}
