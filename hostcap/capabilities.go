// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hostcap defines the small capability record the host passes to
// the consensus core at construction, per SPEC_FULL.md §9: broadcast,
// regenesis notification, logging, and block-arrival notification. This
// mirrors the teacher's dbft.Config-as-callback-bag idiom.
package hostcap

import (
	"context"

	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/concord/wire"
	"github.com/luxfi/log"
)

// BlockEventKind classifies a NotifyBlock callback.
type BlockEventKind int

const (
	BlockArrived BlockEventKind = iota
	BlockFinalized
	BlockDead
	PendingBlockPromoted
)

// BlockEvent is delivered to the host's NotifyBlock capability. Callback
// ordering is fixed by §9: it fires inside the same critical section as
// the state change it describes, so observers never see a state without
// its announcement.
type BlockEvent struct {
	Kind  BlockEventKind
	Block idhash.Hash
}

// Capabilities is the core's outbound contract. Every field is required;
// node.New rejects a nil field.
type Capabilities struct {
	// Broadcast relays a wire message to the network, used for rebroadcast
	// decisions driven by wire.ResultCode.Forward().
	Broadcast func(ctx context.Context, msg wire.Envelope) error

	// Regenesis notifies the host that a new era's genesis has been
	// produced, per §4.H step 5.
	Regenesis func(ctx context.Context, newGenesisHash idhash.Hash) error

	// Log is the structured logger threaded through every package.
	Log log.Logger

	// NotifyBlock reports block-lifecycle events for host-side bookkeeping
	// (RPC subscriptions, baker wake-ups).
	NotifyBlock func(ctx context.Context, event BlockEvent)
}
