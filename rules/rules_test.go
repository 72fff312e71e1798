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

package rules

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

func TestFactoryLooksUpByID(t *testing.T) {
	r := Factory(RuleCommuteJoin)
	require.NotNil(t, r)
	require.Equal(t, RuleCommuteJoin, r.ID())
}

func TestEliminateFilterDropsTrivialTrue(t *testing.T) {
	s := scan("t", "a")
	f := rel.New(rel.Operator{Kind: rel.OpFilter, Predicates: []expr.Node{expr.Bool(true)}}, s)

	rule := Factory(RuleEliminateFilter)
	require.True(t, rule.Match(f))

	result := NewTransformResult()
	require.NoError(t, rule.Apply(f, result))
	require.Len(t, result.Results(), 1)
	require.Same(t, s, result.Results()[0])
}

func TestEliminateFilterKeepsNonTrivialPredicate(t *testing.T) {
	s := scan("t", "a")
	f := rel.New(rel.Operator{Kind: rel.OpFilter, Predicates: []expr.Node{expr.Ident("a")}}, s)

	rule := Factory(RuleEliminateFilter)
	result := NewTransformResult()
	require.NoError(t, rule.Apply(f, result))
	require.Empty(t, result.Results())
}

func TestMergeAdjacentFiltersCombinesPredicates(t *testing.T) {
	s := scan("t", "a", "b")
	inner := rel.New(rel.Operator{Kind: rel.OpFilter, Predicates: []expr.Node{expr.Ident("a")}}, s)
	outer := rel.New(rel.Operator{Kind: rel.OpFilter, Predicates: []expr.Node{expr.Ident("b")}}, inner)

	rule := Factory(RuleMergeAdjacentFilters)
	require.True(t, rule.Match(outer))

	result := NewTransformResult()
	require.NoError(t, rule.Apply(outer, result))
	require.Len(t, result.Results(), 1)
	merged := result.Results()[0]
	require.Len(t, merged.Predicates, 2)
	require.Same(t, s, merged.Child(0))
}

func TestCommuteJoinSwapsChildrenAndKeys(t *testing.T) {
	left := scan("l", "a")
	right := scan("r", "b")
	join := rel.New(rel.Operator{
		Kind:      rel.OpJoin,
		JoinType:  rel.InnerJoin,
		LeftKeys:  []expr.Node{expr.Ident("a")},
		RightKeys: []expr.Node{expr.Ident("b")},
	}, left, right)

	rule := Factory(RuleCommuteJoin)
	result := NewTransformResult()
	require.NoError(t, rule.Apply(join, result))
	require.Len(t, result.Results(), 1)

	out := result.Results()[0]
	require.Same(t, right, out.Child(0))
	require.Same(t, left, out.Child(1))
	require.Equal(t, []expr.Node{expr.Ident("b")}, out.LeftKeys)
	require.Equal(t, []expr.Node{expr.Ident("a")}, out.RightKeys)
}

func TestCommuteJoinDoesNotMatchSemiJoin(t *testing.T) {
	left := scan("l", "a")
	right := scan("r", "b")
	join := rel.New(rel.Operator{Kind: rel.OpJoin, JoinType: rel.LeftSemiJoin}, left, right)

	rule := Factory(RuleCommuteJoin)
	require.False(t, rule.Match(join))
}

func TestEliminateEvalScalarDropsIdentityProjection(t *testing.T) {
	s := scan("t", "a", "b")
	eval := rel.New(rel.Operator{
		Kind:  rel.OpEvalScalar,
		Exprs: []expr.Node{expr.Ident("a"), expr.Ident("b")},
	}, s)

	rule := Factory(RuleEliminateEvalScalar)
	result := NewTransformResult()
	require.NoError(t, rule.Apply(eval, result))
	require.Len(t, result.Results(), 1)
	require.Same(t, s, result.Results()[0])
}

func TestEliminateEvalScalarKeepsComputedColumn(t *testing.T) {
	s := scan("t", "a")
	eval := rel.New(rel.Operator{
		Kind:  rel.OpEvalScalar,
		Exprs: []expr.Node{expr.And(expr.Ident("a"), expr.Bool(true))},
	}, s)

	rule := Factory(RuleEliminateEvalScalar)
	result := NewTransformResult()
	require.NoError(t, rule.Apply(eval, result))
	require.Empty(t, result.Results())
}

func TestNormalizePredicateFlattensAnd(t *testing.T) {
	s := scan("t", "a", "b")
	f := rel.New(rel.Operator{
		Kind:       rel.OpFilter,
		Predicates: []expr.Node{expr.And(expr.Ident("a"), expr.Ident("b"))},
	}, s)

	rule := Factory(RuleNormalizePredicate)
	require.True(t, rule.Match(f))

	result := NewTransformResult()
	require.NoError(t, rule.Apply(f, result))
	require.Len(t, result.Results(), 1)
	require.Len(t, result.Results()[0].Predicates, 2)
}

func TestEliminateEmptyUnionAllChildCollapsesToSurvivor(t *testing.T) {
	keep := scan("t", "a")
	dropped := rel.New(rel.Operator{Kind: rel.OpFilter, Predicates: []expr.Node{expr.Bool(false)}}, scan("u", "a"))
	union := rel.New(rel.Operator{Kind: rel.OpUnionAll}, keep, dropped)

	rule := Factory(RuleEliminateEmptyUnionAllChild)
	result := NewTransformResult()
	require.NoError(t, rule.Apply(union, result))
	require.Len(t, result.Results(), 1)
	require.Same(t, keep, result.Results()[0])
}

func TestDefaultRewritesAndResidualAreFactoryResolvable(t *testing.T) {
	for _, id := range DefaultRewrites {
		require.NotNil(t, Factory(id), "DefaultRewrites id %v must resolve", id)
	}
	for _, id := range Residual {
		require.NotNil(t, Factory(id), "Residual id %v must resolve", id)
	}
}
