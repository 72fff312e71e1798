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

import "github.com/vantage-db/qengine/rel"

// commuteJoinRule swaps the two children of an InnerJoin (and its
// equi-join keys along with them). It is only ever applied by explicit
// RuleID lookup via Factory, not from DefaultRewrites/Residual: Cascades'
// explore step uses it to offer both build-side orientations of every
// InnerJoin, and distributed.CommuteForCardinality applies it to the
// top-level join of a MERGE INTO plan.
type commuteJoinRule struct{}

func (commuteJoinRule) ID() RuleID { return RuleCommuteJoin }

func (commuteJoinRule) Match(e *rel.Expr) bool {
	return e.Kind == rel.OpJoin && e.JoinType == rel.InnerJoin
}

func (commuteJoinRule) Apply(e *rel.Expr, result *TransformResult) error {
	op := e.Operator
	op.LeftKeys, op.RightKeys = e.RightKeys, e.LeftKeys
	out := rel.New(op, e.Child(1), e.Child(0))
	result.Push(out)
	return nil
}
