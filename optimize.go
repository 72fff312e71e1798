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

// Package qengine orchestrates the full optimize flow end to end:
// heuristic rewrites, optional DPhyp join reordering, a residual
// heuristic pass, Cascades cost-based search over a Memo, and the
// distributed rewrite or runtime-filter insertion, producing the
// physical plan the pipeline builder consumes.
//
// Grounded in original_source's optimizer.rs (optimize/optimize_query),
// adapted to this package's own rule/search machinery: where
// optimizer.rs calls into a single monolithic HeuristicOptimizer and a
// separately-invoked Cascades pass, this file wires standalone
// packages (heuristic, dphyp, cascades, memo, physicalplan,
// distributed) together explicitly.
package qengine

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vantage-db/qengine/cascades"
	"github.com/vantage-db/qengine/distributed"
	"github.com/vantage-db/qengine/dphyp"
	"github.com/vantage-db/qengine/heuristic"
	"github.com/vantage-db/qengine/memo"
	"github.com/vantage-db/qengine/physicalplan"
	"github.com/vantage-db/qengine/qerrors"
	"github.com/vantage-db/qengine/rel"
	"github.com/vantage-db/qengine/rules"
	"github.com/vantage-db/qengine/runtimefilter"
	"github.com/vantage-db/qengine/settings"
)

// Result is what Optimize hands back: the physical plan tree ready for
// pipelinebuilder, plus the Memo it was extracted from, kept around so
// an EXPLAIN MEMO caller can inspect every group the search considered.
type Result struct {
	Plan *physicalplan.Plan
	Memo *memo.Memo

	// QueryID identifies this optimization run for logging and for
	// correlating a RuntimeFilterSource with the RuntimeFilter
	// consumers and Exchange fragments a distributed plan scatters
	// across worker nodes, none of which share process
	// memory to correlate by pointer identity alone.
	QueryID uuid.UUID
}

// Optimize runs the full pipeline over a bound relational expression:
// heuristic DefaultRewrites, an optional DPhyp join reorder, the
// Residual heuristic pass, Cascades search, lowering to a physical
// plan, and then either the distributed rewrite or, when that is off,
// runtime-filter insertion (each settings-gated). The Residual pass
// runs once, before Cascades; no rule list is applied after cost
// search.
func Optimize(e *rel.Expr, s settings.Settings, log logrus.FieldLogger) (*Result, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	e, err := heuristic.Run(e, rules.DefaultRewrites, log)
	if err != nil {
		return nil, err
	}

	e, err = maybeReorderJoins(e, s, log)
	if err != nil {
		return nil, err
	}

	e, err = heuristic.Run(e, rules.Residual, log)
	if err != nil {
		return nil, err
	}

	m := memo.New()
	root := m.Insert(e)
	m.SetRoot(root)

	if _, err := cascades.Optimize(m, root, memo.AnyProperty, log); err != nil {
		return nil, err
	}

	var seq physicalplan.PlanID
	plan, err := physicalplan.FromMemo(m, root, memo.AnyProperty, &seq)
	if err != nil {
		return nil, qerrors.Newf(qerrors.Internal, "optimize: lowering best plan failed: %v", err)
	}

	if s.EnableDistributedOptimization {
		logical := distributed.OptimizeDistributedQuery(e)
		m = memo.New()
		root = m.Insert(logical)
		m.SetRoot(root)
		if _, err := cascades.Optimize(m, root, memo.AnyProperty, log); err != nil {
			return nil, err
		}
		plan, err = physicalplan.FromMemo(m, root, memo.AnyProperty, &seq)
		if err != nil {
			return nil, qerrors.Newf(qerrors.Internal, "optimize: lowering distributed plan failed: %v", err)
		}
	} else if s.RuntimeFilter {
		plan = runtimefilter.TryAddRuntimeFilterNodes(plan, &seq)
	}

	return &Result{Plan: plan, Memo: m, QueryID: uuid.New()}, nil
}

// maybeReorderJoins runs DPhyp when settings allow it,
// falling back to the heuristic tree's existing join shape otherwise
// (settings.JoinReorderEnabled folds both EnableDphyp and
// DisableJoinReorder into one check).
func maybeReorderJoins(e *rel.Expr, s settings.Settings, log logrus.FieldLogger) (*rel.Expr, error) {
	if !s.JoinReorderEnabled() {
		return e, nil
	}
	reordered, ok := dphyp.Reorder(e)
	if !ok {
		log.Debug("dphyp: root is not a reorderable join tree, leaving join order unchanged")
		return e, nil
	}
	return reordered, nil
}
