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

// Package settings holds the session-scoped knobs that steer the
// optimizer and pipeline builder. Decoded from TOML with
// BurntSushi/toml, matching how session configuration is laid out on
// disk as *.toml files elsewhere in this codebase.
package settings

import (
	"bytes"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Settings holds the session-scoped knobs. Every field
// has a zero value that is a safe, conservative default (reorder,
// runtime filter, and distribution all off), so a zero-value Settings
// is usable on its own; Default below layers on the values an actual
// session would start with.
type Settings struct {
	MaxThreads    int `toml:"max_threads"`
	MaxBlockSize  int `toml:"max_block_size"`

	EnableDphyp        bool `toml:"enable_dphyp"`
	DisableJoinReorder bool `toml:"disable_join_reorder"`
	RuntimeFilter      bool `toml:"runtime_filter"`

	EnableDistributedCopy       bool `toml:"enable_distributed_copy"`
	EnableDistributedMergeInto  bool `toml:"enable_distributed_merge_into"`
	EnableDistributedOptimization bool `toml:"enable_distributed_optimization"`

	EfficientlyMemoryGroupBy      bool  `toml:"efficiently_memory_group_by"`
	SpillingBytesThresholdPerProc int64 `toml:"spilling_bytes_threshold_per_proc"`
}

// Default returns the Settings this module uses when a caller has not
// loaded an explicit configuration, matching the conservative defaults
// a fresh session would have before any SET statement runs.
func Default() Settings {
	return Settings{
		MaxThreads:                    8,
		MaxBlockSize:                  65536,
		EnableDphyp:                   true,
		DisableJoinReorder:            false,
		RuntimeFilter:                 true,
		EnableDistributedCopy:         false,
		EnableDistributedMergeInto:    false,
		EnableDistributedOptimization: false,
		EfficientlyMemoryGroupBy:      false,
		SpillingBytesThresholdPerProc: 1 << 30,
	}
}

// Load decodes TOML settings from data on top of Default(), so a
// partially-specified file only overrides the fields it mentions.
func Load(data []byte) (Settings, error) {
	s := Default()
	if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return Settings{}, errors.Wrap(err, "settings: decode toml")
	}
	return s, nil
}

// JoinReorderEnabled reports whether DPhyp join reordering should run
// at all, combining the two related settings into the one predicate
// callers actually need.
func (s Settings) JoinReorderEnabled() bool {
	return s.EnableDphyp && !s.DisableJoinReorder
}
