package wire

import (
	"errors"

	"github.com/luxfi/utils/wrappers"
)

// Version is the current wire protocol version. The receiver rejects any
// body it cannot parse under this version by returning SerializationFail.
const Version = 1

// MessageType is the 1-byte discriminant carried by every message.
type MessageType byte

const (
	TypeBlock MessageType = iota
	TypeFinalizationMessage
	TypeFinalizationRecord
	TypeCatchUpStatus
)

var (
	ErrUnknownMessageType = errors.New("wire: unknown message type")
	ErrTruncated          = errors.New("wire: truncated message")
)

// Envelope is the parsed frame: a 1-byte type, a 4-byte genesis index, and
// the versioned body, exactly as SPEC_FULL.md §6 describes.
type Envelope struct {
	Type         MessageType
	GenesisIndex uint32
	Body         []byte
}

// Encode packs an Envelope into its wire form.
func Encode(e Envelope) []byte {
	p := &wrappers.Packer{Bytes: make([]byte, 0, 5+len(e.Body)), MaxSize: 1 << 30}
	p.PackByte(byte(e.Type))
	p.PackInt(e.GenesisIndex)
	p.PackFixedBytes(e.Body)
	return p.Bytes
}

// Decode parses a raw message into an Envelope. It never itself validates
// the genesis index against the running era; that is the caller's job
// (returning InvalidGenesisIndex), since Decode has no notion of "current
// era".
func Decode(raw []byte) (Envelope, error) {
	if len(raw) < 5 {
		return Envelope{}, ErrTruncated
	}
	p := &wrappers.Packer{Bytes: raw, MaxSize: len(raw)}
	typ := MessageType(p.UnpackByte())
	genesisIndex := p.UnpackInt()
	body := p.UnpackFixedBytes(len(raw) - 5)
	if p.Errored() {
		return Envelope{}, p.Err
	}
	if typ > TypeCatchUpStatus {
		return Envelope{}, ErrUnknownMessageType
	}
	return Envelope{Type: typ, GenesisIndex: genesisIndex, Body: body}, nil
}
