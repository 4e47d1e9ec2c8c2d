// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds the recognized core options from SPEC_FULL.md §6,
// following the teacher's flat-struct-plus-json-tags-plus-package-Default
// shape (vms/platformvm/config.Config).
package config

import (
	"encoding/json"
	"time"
)

// Default is the configuration used when no bytes are supplied to
// GetConfig, matching the teacher's package-level Default value.
var Default = Config{
	MaxBlockSize:                   3 * 1024 * 1024,
	BlockConstructionTimeout:       3 * time.Second,
	EarlyBlockThreshold:            5 * time.Second,
	MaxBakingDelay:                 10 * time.Second,
	InsertionsBeforeTransactionPurge: 1000,
	TransactionsKeepAliveTime:      5 * time.Minute,
	TransactionsPurgingDelay:       3 * time.Minute,
	AccountsCacheSize:              10_000,
	ModulesCacheSize:               1_000,
	DownloadBlocksTimeout:          5 * time.Minute,
}

// Config contains all of the user-configurable parameters of the
// consensus core, per SPEC_FULL.md §6.
type Config struct {
	// MaxBlockSize is the upper bound on serialized block length, in bytes.
	MaxBlockSize int `json:"max-block-size"`

	// BlockConstructionTimeout is the baker's baking budget.
	BlockConstructionTimeout time.Duration `json:"block-construction-timeout"`

	// EarlyBlockThreshold rejects blocks whose slot-time exceeds
	// now + threshold.
	EarlyBlockThreshold time.Duration `json:"early-block-threshold"`

	// MaxBakingDelay clamps baker time skew.
	MaxBakingDelay time.Duration `json:"max-baking-delay"`

	// InsertionsBeforeTransactionPurge is the transaction-table purge
	// cadence, counted in admitted transactions.
	InsertionsBeforeTransactionPurge int `json:"insertions-before-transaction-purge"`

	// TransactionsKeepAliveTime is the admission-side horizon for
	// untouched transactions.
	TransactionsKeepAliveTime time.Duration `json:"transactions-keep-alive-time"`

	// TransactionsPurgingDelay is the period of the purge task.
	TransactionsPurgingDelay time.Duration `json:"transactions-purging-delay"`

	// AccountsCacheSize / ModulesCacheSize bound the block-state LRUs.
	AccountsCacheSize int `json:"accounts-cache-size"`
	ModulesCacheSize  int `json:"modules-cache-size"`

	// DownloadBlocksTimeout is the per-chunk timeout for out-of-band
	// catch-up.
	DownloadBlocksTimeout time.Duration `json:"download-blocks-timeout"`
}

// GetConfig returns a Config from the provided JSON-encoded bytes. If a
// field is absent from the bytes, its Default value is kept. Empty bytes
// return the default config outright.
func GetConfig(b []byte) (*Config, error) {
	cfg := Default
	if len(b) == 0 {
		return &cfg, nil
	}
	return &cfg, json.Unmarshal(b, &cfg)
}
