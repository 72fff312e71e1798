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
	"github.com/pkg/errors"

	"github.com/vantage-db/qengine/memo"
	"github.com/vantage-db/qengine/qerrors"
	"github.com/vantage-db/qengine/rel"
)

// FromMemo walks the winning physical MExpr tree rooted at root (under
// required) and materializes it as a Plan tree, assigning each node
// the next PlanID from seq. It is the bridge between Cascades's
// Memo/GroupId search structure and the pipeline builder's recursive
// PhysicalPlan consumer.
func FromMemo(m *memo.Memo, root memo.GroupId, required memo.PhysicalProperty, seq *PlanID) (*Plan, error) {
	cc := m.BestCost(root, required)
	if cc == nil {
		return nil, qerrors.New(qerrors.Internal, "physicalplan: group has no costed plan; Cascades must run first")
	}
	return fromMExpr(m, cc, seq)
}

func fromMExpr(m *memo.Memo, cc *memo.CostContext, seq *PlanID) (*Plan, error) {
	mx := cc.Best
	if !mx.Physical {
		return nil, qerrors.New(qerrors.Internal, "physicalplan: winning MExpr is not physical")
	}

	children := make([]*Plan, len(mx.Children))
	for i, childGid := range mx.Children {
		childRequired := memo.AnyProperty
		if i < len(cc.ChildProp) {
			childRequired = cc.ChildProp[i]
		}
		childCC := m.BestCost(childGid, childRequired)
		if childCC == nil {
			return nil, qerrors.Newf(qerrors.Internal, "physicalplan: child group %d has no costed plan", childGid)
		}
		child, err := fromMExpr(m, childCC, seq)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}

	kind, err := kindOf(mx.Kind)
	if err != nil {
		return nil, err
	}

	p := New(seq, kind, children...)
	fillFields(p, mx)
	return p, nil
}

func kindOf(op rel.Op) (Kind, error) {
	switch op {
	case rel.OpScan:
		return TableScan, nil
	case rel.OpFilter:
		return Filter, nil
	case rel.OpProject:
		return Project, nil
	case rel.OpEvalScalar:
		return EvalScalar, nil
	case rel.OpJoin:
		return HashJoin, nil
	case rel.OpAggregate:
		return AggregateFinal, nil
	case rel.OpWindow:
		return Window, nil
	case rel.OpSort:
		return Sort, nil
	case rel.OpLimit:
		return Limit, nil
	case rel.OpUnionAll:
		return UnionAll, nil
	case rel.OpExchange:
		return Exchange, nil
	default:
		return 0, errors.Errorf("physicalplan: operator kind %v has no physical counterpart", op)
	}
}

// fillFields copies the logical operator's fields onto the physical
// node. AggregateFinal/Partial's split, HashJoin's build-side choice,
// and Window's frame classification are pipeline-builder concerns that
// operate on these raw fields (see pipelinebuilder), so FromMemo itself
// only needs to carry the data across, not interpret it.
func fillFields(p *Plan, mx *memo.MExpr) {
	p.Table = mx.Table
	p.Columns = mx.TableCols
	p.Predicates = mx.Predicates
	p.Exprs = mx.Exprs
	p.JoinType = mx.JoinType
	p.LeftKeys = mx.LeftKeys
	p.RightKeys = mx.RightKeys
	p.NonEquiPred = mx.NonEquiPred
	p.GroupBy = mx.GroupBy
	p.Aggregates = mx.Aggregates
	p.PartitionBy = mx.PartitionBy
	p.OrderBy = mx.OrderBy
	p.SortKeys = mx.SortKeys
	p.LimitCount = mx.LimitCount
	p.LimitOffset = mx.LimitOffset
	p.ExchangeKind = mx.ExchangeKind
	p.PartitionKeys = mx.PartitionKeys
	p.Pairs = mx.Pairs

	if mx.Kind == rel.OpJoin {
		// Right child is the build side by convention (see
		// cascades.buildSide): CommuteJoin is the mechanism that lets
		// the cheaper orientation win the cost comparison, so by the
		// time a Join MExpr is physical its right child is already the
		// intended build side.
		p.BuildSide = 1
	}
}
