package blockstate

import (
	"time"

	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/ids"
)

// Account is the entity-level account record from §3.
type Account struct {
	Address          ids.ShortID
	Balance          uint64
	Stake            uint64
	CredentialIDs    [][]byte
	ReleaseSchedule  []ReleaseEntry
}

// ReleaseEntry is one entry of an account's scheduled release.
type ReleaseEntry struct {
	Timestamp time.Time
	Amount    uint64
}

// Instance is a smart-contract instance.
type Instance struct {
	Address       ids.ShortID
	Module        idhash.Hash
	InitParams    []byte
	MutableState  []byte
	Balance       uint64
}

// Module is a deployed smart-contract module.
type Module struct {
	Ref         idhash.Hash
	Artifact    []byte
	Metadata    []byte
	Entrypoints []string
}

// Baker is a staking participant eligible to create blocks.
type Baker struct {
	ID              ids.NodeID
	StakedAmount    uint64
	SigningKey      []byte
	VRFKey          []byte
	AggregationKey  []byte
	Commission      uint32 // basis points
	CooldownUntil   Epoch
}

// Delegator shares in a baker's (or the passive pool's) rewards.
type Delegator struct {
	Account       ids.ShortID
	Target        ids.NodeID // zero value means the passive pool
	StakedAmount  uint64
	CooldownUntil Epoch
}

// RewardAccounts tracks the pools rewards are paid from/into.
type RewardAccounts struct {
	Baking          uint64
	Finalization    uint64
	GAS             uint64
	TotalEncrypted  uint64
	TotalGTU        uint64
	ExtraBalance    uint64
}

// Epoch is a seed-state epoch counter.
type Epoch uint64

// SeedState is the leadership-election beacon, per §3/§4.F.
type SeedState struct {
	Epoch                    Epoch
	LeadershipElectionNonce  idhash.Hash
	UpdatedNonce             idhash.Hash
}

// ChainParameters holds the tunable protocol parameters in effect for a
// given block state.
type ChainParameters struct {
	ElectionDifficulty float64
	ExchangeRate       float64
	CooldownEpochs     Epoch
	SlotDuration       time.Duration
	EpochLength        Epoch
	MaxBlockEnergy     uint64
	RewardParameters   RewardParameters
}

// RewardParameters controls how baking/finalization rewards are split.
type RewardParameters struct {
	BakingRewardFraction       float64
	FinalizationRewardFraction float64
	GASRewardFraction          float64
}

// IdentityProvider and AnonymityRevoker are opaque, keyed identity
// artifacts referenced by CredentialDeployment transactions.
type IdentityProvider struct {
	ID        uint32
	PublicKey []byte
}

type AnonymityRevoker struct {
	ID        uint32
	PublicKey []byte
}

// UpdateKeyCollection authorizes chain-update signers per update type.
type UpdateKeyCollection struct {
	Keys      [][]byte
	Threshold uint16
}

// UpdateQueueEntry is a pending chain-parameter change awaiting its
// effective time.
type UpdateQueueEntry struct {
	SequenceNumber uint64
	EffectiveTime  time.Time
	Payload        []byte
}
