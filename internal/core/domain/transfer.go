package domain

import (
	"math/big"
)

// AssetKind selects the transfer log an asset lives in.
type AssetKind string

const (
	AssetFungible    AssetKind = "fungible"
	AssetNonFungible AssetKind = "non_fungible"
)

// Standard returns the token standard label shown to clients.
func (k AssetKind) Standard() string {
	if k == AssetNonFungible {
		return "ERC721"
	}
	return "ERC20"
}

// Position is the total order key of the event log: block ascending, then index within the block.
type Position struct {
	Block uint64
	Index uint32
}

// Compare returns -1, 0 or +1.
func (p Position) Compare(o Position) int {
	switch {
	case p.Block < o.Block:
		return -1
	case p.Block > o.Block:
		return 1
	case p.Index < o.Index:
		return -1
	case p.Index > o.Index:
		return 1
	}
	return 0
}

// Less reports whether p sorts before o.
func (p Position) Less(o Position) bool {
	return p.Compare(o) < 0
}

// SeqRange is the half-open block range (From, To]. A nil From means "from genesis".
type SeqRange struct {
	From *uint64
	To   uint64
}

// Contains reports whether block lies inside the range.
func (r SeqRange) Contains(block uint64) bool {
	if block > r.To {
		return false
	}
	return r.From == nil || block > *r.From
}

// EventKey uniquely identifies a transfer event.
type EventKey struct {
	TxHash   string
	LogIndex uint32
}

// TransferEvent is an immutable transfer log entry. Value holds the amount for fungible
// assets and the token id for non-fungible ones.
type TransferEvent struct {
	Kind        AssetKind
	Asset       Address
	From        Address
	To          Address
	Value       *big.Int
	BlockNumber uint64
	LogIndex    uint32
	TxHash      string
}

// Key returns the event identity.
func (e TransferEvent) Key() EventKey {
	return EventKey{TxHash: e.TxHash, LogIndex: e.LogIndex}
}

// Position returns the event's place in the log.
func (e TransferEvent) Position() Position {
	return Position{Block: e.BlockNumber, Index: e.LogIndex}
}

// ID breaks ties between events at the same position.
func (e TransferEvent) ID() string {
	return e.TxHash
}

// Touches reports whether holder is the sender or the recipient.
func (e TransferEvent) Touches(holder Address) bool {
	return e.From == holder || e.To == holder
}
