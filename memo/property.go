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
	"github.com/mitchellh/hashstructure/v2"

	"github.com/vantage-db/qengine/sorting"
)

// PhysicalProperty is what a parent MExpr demands of a child's chosen
// physical plan: an ordering and a data distribution. Cascades costs a
// group once per distinct PhysicalProperty it is asked to satisfy.
type PhysicalProperty struct {
	Order        []PropertyOrderKey
	Distribution Distribution
}

// PropertyOrderKey is one column of a required sort order.
type PropertyOrderKey struct {
	Column    int
	Direction sorting.Direction
	Nulls     sorting.NullsOrder
}

// Distribution describes how rows of a group must be partitioned
// across execution nodes; it is what the distributed rewrite (see
// package distributed) uses to decide where an Exchange is required.
type Distribution struct {
	Kind DistributionKind
	Keys []int
}

type DistributionKind int

const (
	DistAny DistributionKind = iota
	DistSingle
	DistHash
	DistBroadcast
)

// Key hashes p into a PropertyKey suitable for use as a Group.best map
// key. hashstructure is used (rather than a hand-written Equal/hash
// pair per struct) so that adding fields to PhysicalProperty later
// does not require updating equality logic by hand everywhere it is
// compared.
func (p PhysicalProperty) Key() PropertyKey {
	h, err := hashstructure.Hash(p, hashstructure.FormatV2, nil)
	if err != nil {
		// PhysicalProperty contains no unhashable fields (no funcs,
		// chans, or maps), so this can only happen due to a
		// programming error introducing one.
		panic(err)
	}
	return PropertyKey(h)
}

// AnyProperty is the property that imposes no requirement at all: any
// ordering, any distribution. It is the property the optimizer costs
// the root group under when the caller has no specific requirement.
var AnyProperty = PhysicalProperty{Distribution: Distribution{Kind: DistAny}}
