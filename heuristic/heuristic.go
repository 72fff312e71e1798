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

// Package heuristic applies the fixed, ordered rule lists from package
// rules to a rel.Expr tree, top-down and pre-order, to a fixpoint, in
// place of a hand-written list of named-pass Go functions: rules are
// matched and applied programmatically from a data-driven list of
// rules.RuleID values rather than being one-off transforms.
package heuristic

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/vantage-db/qengine/rel"
	"github.com/vantage-db/qengine/rules"
)

// maxIterations bounds the fixpoint loop so a pair of rules that
// happen to rewrite each other back and forth (a bug, since rules must
// be individually idempotent) cannot hang the optimizer; it is set
// generously above any rule list depth this package expects to need.
const maxIterations = 100

// Run applies ruleIDs to e, top-down pre-order, repeating until no
// rule produces a change or maxIterations is reached. It returns the
// rewritten tree, or the first error any rule returns: there is no
// partial-rule fallback, so an erroring rule aborts optimization of
// the whole expression rather than being skipped.
func Run(e *rel.Expr, ruleIDs []rules.RuleID, log logrus.FieldLogger) (*rel.Expr, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	set := make([]rules.Rule, 0, len(ruleIDs))
	for _, id := range ruleIDs {
		r := rules.Factory(id)
		if r == nil {
			log.WithField("rule", id).Warn("heuristic: unknown rule id, skipping")
			continue
		}
		set = append(set, r)
	}

	for i := 0; i < maxIterations; i++ {
		next, changed, err := applyOnce(e, set)
		if err != nil {
			return nil, errors.Wrap(err, "heuristic: rule application failed")
		}
		if !changed {
			return e, nil
		}
		e = next
	}
	log.WithField("limit", maxIterations).Warn("heuristic: rule application did not converge, giving up")
	return e, nil
}

// applyOnce walks e top-down, pre-order, applying the first matching
// rule at each node (in list order) and taking its first result as the
// replacement, then recursing into the (possibly new) node's children.
func applyOnce(e *rel.Expr, set []rules.Rule) (*rel.Expr, bool, error) {
	if e == nil {
		return nil, false, nil
	}
	changed := false

	for _, r := range set {
		if !r.Match(e) {
			continue
		}
		result := rules.NewTransformResult()
		if err := r.Apply(e, result); err != nil {
			return nil, false, errors.Wrapf(err, "rule %s", r.ID())
		}
		if outs := result.Results(); len(outs) > 0 {
			e = outs[0]
			changed = true
			break
		}
	}

	children := make([]*rel.Expr, len(e.Children))
	childChanged := false
	for i, c := range e.Children {
		nc, cc, err := applyOnce(c, set)
		if err != nil {
			return nil, false, err
		}
		children[i] = nc
		if cc {
			childChanged = true
		}
	}
	if childChanged {
		e = e.ReplaceChildren(children)
		changed = true
	}
	return e, changed, nil
}
