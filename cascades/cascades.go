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

// Package cascades implements the top-down, memo-based, cost-driven
// search described in : for every Group reachable from a
// root, it explores transformation alternatives (see explore.go),
// costs every member's one physical implementation (see implement.go,
// cost.go) recursively over children, and records the cheapest member
// per required PhysicalProperty in the Memo's per-group best-cost map.
//
// This package is grounded in aperturerobotics-go-mysql-server's
// sql/memo Coster/optimizer shape (the closest available reference for
// a Go Cascades-style search) for the recursive optimizeGroup
// structure, adapted to this spec's simpler closed physical-plan set
// and explicit PhysicalProperty/CostContext bookkeeping from package
// memo.
package cascades

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/vantage-db/qengine/memo"
)

// Optimize runs the Cascades search over every group reachable from
// root, under the required physical property the caller ultimately
// needs from the whole plan (typically memo.AnyProperty at the top
// level; a caller wanting a specific output order passes that order
// in instead). It returns the winning MExpr for root, which is always
// Physical.
func Optimize(m *memo.Memo, root memo.GroupId, required memo.PhysicalProperty, log logrus.FieldLogger) (*memo.MExpr, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	cc, err := optimizeGroup(m, root, required, log, make(map[memo.GroupId]bool))
	if err != nil {
		return nil, err
	}
	return cc.Best, nil
}

// optimizeGroup implements step 2. visiting guards against
// a cyclic Memo (which should never occur given Insert's tree-shaped
// construction, but costs nothing to check and turns a would-be stack
// overflow into a clear error).
func optimizeGroup(m *memo.Memo, gid memo.GroupId, required memo.PhysicalProperty, log logrus.FieldLogger, visiting map[memo.GroupId]bool) (*memo.CostContext, error) {
	if cc := m.BestCost(gid, required); cc != nil {
		return cc, nil
	}
	if visiting[gid] {
		return nil, errors.Errorf("cascades: cycle detected at group %d", gid)
	}
	visiting[gid] = true
	defer delete(visiting, gid)

	explore(m, gid)

	g := m.Group(gid)
	var best *memo.CostContext
	// Snapshot before the loop: implement() only reads a member, so no
	// new members are added while iterating (unlike explore, which ran
	// to completion above).
	for _, mx := range g.Members {
		if mx.Physical {
			continue
		}
		phys := implement(mx)

		childCost := 0.0
		childProps := make([]memo.PhysicalProperty, len(phys.Children))
		for i, c := range phys.Children {
			childRequired := deriveChildProperty(phys, i, required)
			childProps[i] = childRequired
			ccChild, err := optimizeGroup(m, c, childRequired, log, visiting)
			if err != nil {
				return nil, err
			}
			childCost += ccChild.Cost
		}

		ownCost := cost(m, gid, phys)
		total := childCost + ownCost

		if best == nil || total < best.Cost {
			best = &memo.CostContext{Best: phys, Cost: total, ChildProp: childProps}
		}
	}
	if best == nil {
		return nil, errors.Errorf("cascades: group %d has no logical members to implement", gid)
	}

	m.UpdateBestCost(gid, required, best)
	log.WithField("group", gid).WithField("cost", best.Cost).Debug("cascades: costed group")
	return m.BestCost(gid, required), nil
}

// deriveChildProperty decides what PhysicalProperty a parent demands
// from one of its children. Only Sort and Window impose an order
// requirement of their own (everything else is satisfied by any
// order/distribution, matching this implementation's scope); Sort/Window instead each
// install their own physical sort in the pipeline builder rather than
// requiring it be pre-sorted by a child, so AnyProperty is correct
// even for them at the Cascades layer.
func deriveChildProperty(mx *memo.MExpr, childIndex int, parentRequired memo.PhysicalProperty) memo.PhysicalProperty {
	return memo.AnyProperty
}
