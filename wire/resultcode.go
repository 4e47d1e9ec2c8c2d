// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire implements the versioned wire protocol described in
// SPEC_FULL.md §6: message framing (type byte + genesis index + body) and
// the fixed reception result-code enumeration every core operation
// returns.
package wire

// ResultCode is the fixed integer enumeration every reception operation
// returns. The numeric values and the Forward semantics are part of the
// wire contract and must never be renumbered.
type ResultCode uint8

const (
	Success ResultCode = iota
	SerializationFail
	Invalid
	PendingBlock
	PendingFinalization
	Async
	Duplicate
	Stale
	IncorrectFinalizationSession
	Unverifiable
	ContinueCatchUp
	EarlyBlock
	MissingImportFile
	ConsensusShutDown
	ExpiryTooLate
	VerificationFailed
	NonexistingSenderAccount
	DuplicateNonce
	NonceTooLarge
	TooLowEnergy
	InvalidGenesisIndex
	DuplicateAccountRegistrationID
	CredentialDeploymentInvalidSignatures
	CredentialDeploymentInvalidIP
	CredentialDeploymentInvalidAR
	CredentialDeploymentExpired
	ChainUpdateInvalidEffectiveTime
	ChainUpdateSequenceNumberTooOld
	ChainUpdateInvalidSignatures
	EnergyExceeded
	InsufficientFunds
)

var names = [...]string{
	"Success", "SerializationFail", "Invalid", "PendingBlock",
	"PendingFinalization", "Async", "Duplicate", "Stale",
	"IncorrectFinalizationSession", "Unverifiable", "ContinueCatchUp",
	"EarlyBlock", "MissingImportFile", "ConsensusShutDown", "ExpiryTooLate",
	"VerificationFailed", "NonexistingSenderAccount", "DuplicateNonce",
	"NonceTooLarge", "TooLowEnergy", "InvalidGenesisIndex",
	"DuplicateAccountRegistrationID", "CredentialDeploymentInvalidSignatures",
	"CredentialDeploymentInvalidIP", "CredentialDeploymentInvalidAR",
	"CredentialDeploymentExpired", "ChainUpdateInvalidEffectiveTime",
	"ChainUpdateSequenceNumberTooOld", "ChainUpdateInvalidSignatures",
	"EnergyExceeded", "InsufficientFunds",
}

func (r ResultCode) String() string {
	if int(r) < len(names) {
		return names[r]
	}
	return "Unknown"
}

// forwardable holds the codes that should be relayed to peers, per
// SPEC_FULL.md §6's "forward?" column. Everything else is a local drop.
var forwardable = map[ResultCode]bool{
	Success:              true,
	PendingBlock:         true,
	PendingFinalization:  true,
	Async:                true,
	ContinueCatchUp:      true,
}

// Forward reports whether a message that produced this result code should
// be relayed onward to other peers.
func (r ResultCode) Forward() bool {
	return forwardable[r]
}
