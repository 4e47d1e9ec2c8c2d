// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pipeline implements the receive/execute pipeline described in
// SPEC_FULL.md §4.F: validate, optionally queue as pending, execute, make
// live. It is the coordinator's only entry point for network-supplied
// blocks, transactions, and finalization messages.
package pipeline

import "github.com/luxfi/concord/wire"

// UpdateResult is a receive/execute outcome expressed as the shared
// reception result code, per §6.
type UpdateResult = wire.ResultCode
