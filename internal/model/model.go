package model

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Address is a 32-byte account address. It identifies the account owning the
// module that declared an event's type.
type Address [32]byte

// PackageID is a 32-byte on-chain package identifier. It shares the address
// representation but is a distinct key space.
type PackageID [32]byte

// AddressFromHex parses a hex string (with or without a 0x prefix) into an
// Address. Short strings are left-padded with zeros, matching how on-chain
// addresses are usually abbreviated.
func AddressFromHex(s string) (Address, error) {
	var a Address
	b, err := bytesFromHex(s)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	copy(a[32-len(b):], b)
	return a, nil
}

// PackageIDFromHex parses a hex string into a PackageID.
func PackageIDFromHex(s string) (PackageID, error) {
	var p PackageID
	b, err := bytesFromHex(s)
	if err != nil {
		return p, fmt.Errorf("invalid package id %q: %w", s, err)
	}
	copy(p[32-len(b):], b)
	return p, nil
}

func bytesFromHex(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) == 0 || len(s) > 64 {
		return nil, fmt.Errorf("hex length %d out of range", len(s))
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

// String renders the address as 0x-prefixed lowercase hex. This is the
// canonical form used for report output and sort tie-breaks.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := AddressFromHex(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// String renders the package id as 0x-prefixed lowercase hex.
func (p PackageID) String() string {
	return "0x" + hex.EncodeToString(p[:])
}

func (p PackageID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PackageID) UnmarshalText(text []byte) error {
	parsed, err := PackageIDFromHex(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Event is a single typed event emitted during transaction execution.
type Event struct {
	TxDigest          string
	EventSeq          uint64
	Sender            Address
	PackageID         PackageID
	TransactionModule string
	Type              *StructTag
}

// EmittingAddress returns the account that owns the module declaring the
// event's type. Histogram buckets are keyed by this address.
func (e *Event) EmittingAddress() Address {
	return e.Type.Address
}

// eventWire is the JSON form of an Event. The type tag travels as its
// canonical string so the interface round-trips losslessly.
type eventWire struct {
	TxDigest          string    `json:"tx_digest"`
	EventSeq          uint64    `json:"event_seq"`
	Sender            Address   `json:"sender"`
	PackageID         PackageID `json:"package_id"`
	TransactionModule string    `json:"transaction_module"`
	Type              string    `json:"type"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventWire{
		TxDigest:          e.TxDigest,
		EventSeq:          e.EventSeq,
		Sender:            e.Sender,
		PackageID:         e.PackageID,
		TransactionModule: e.TransactionModule,
		Type:              e.Type.Canonical(),
	})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	tag, err := ParseTypeTag(w.Type)
	if err != nil {
		return fmt.Errorf("event type tag: %w", err)
	}
	st, ok := tag.(*StructTag)
	if !ok {
		return fmt.Errorf("event type %q is not a struct tag", w.Type)
	}
	e.TxDigest = w.TxDigest
	e.EventSeq = w.EventSeq
	e.Sender = w.Sender
	e.PackageID = w.PackageID
	e.TransactionModule = w.TransactionModule
	e.Type = st
	return nil
}

// CheckpointSummary is the per-checkpoint metadata delivered alongside each
// event batch.
type CheckpointSummary struct {
	SequenceNumber           uint64 `json:"sequence_number"`
	Epoch                    uint64 `json:"epoch"`
	NetworkTotalTransactions uint64 `json:"network_total_transactions"`
	TimestampMs              uint64 `json:"timestamp_ms"`
}

// EventBatch is the unit crossing the source-to-consumer channel: one
// checkpoint's summary and its extracted events, in emission order.
type EventBatch struct {
	Summary CheckpointSummary `json:"summary"`
	Events  []Event           `json:"events"`
}
