package storage

import (
	"context"
	"errors"
	"math/big"

	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/core/page"
	"github.com/vietddude/explorer/internal/filter"
)

// ErrSessionClosed is returned when a session is used after Close.
var ErrSessionClosed = errors.New("session closed")

// Stream names an append-only log whose high-water mark can be read.
type Stream string

const (
	StreamBlocks          Stream = "blocks"
	StreamTransactions    Stream = "transactions"
	StreamERC20Transfers  Stream = "erc20_transfers"
	StreamERC721Transfers Stream = "erc721_transfers"
)

// Streams lists every stream, blocks first.
var Streams = []Stream{StreamBlocks, StreamTransactions, StreamERC20Transfers, StreamERC721Transfers}

// TransferStream returns the stream backing an asset kind.
func TransferStream(kind domain.AssetKind) Stream {
	if kind == domain.AssetNonFungible {
		return StreamERC721Transfers
	}
	return StreamERC20Transfers
}

// EventStore hands out read sessions. Implementations must be safe for concurrent use.
type EventStore interface {
	// Acquire borrows a connection for one logical call. The session must be closed on
	// every exit path.
	Acquire(ctx context.Context) (Session, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// TransferQuery selects transfer events of one kind. Nil fields are unconstrained.
type TransferQuery struct {
	Kind domain.AssetKind

	// Asset restricts events to one contract.
	Asset *domain.Address

	// Holder keeps events where the holder is sender or recipient.
	Holder *domain.Address

	// TokenID keeps non-fungible events of one token.
	TokenID *big.Int

	// Range restricts events to a block range.
	Range *domain.SeqRange
}

// TransferIterator streams events in ascending (block, log index) order.
//
//	for it.Next() { ev := it.Event() }
//	if err := it.Err(); err != nil { ... }
type TransferIterator interface {
	Next() bool
	Event() domain.TransferEvent
	Err() error
	Close() error
}

// Session is a read handle on a consistent prefix of the log.
type Session interface {
	// QueryTransfers streams matching transfers in log order. The iterator is finite and a
	// new call restarts from the beginning.
	QueryTransfers(ctx context.Context, q TransferQuery) (TransferIterator, error)

	// HighWaterMark returns the highest block number in the stream. ok is false when the
	// stream is empty.
	HighWaterMark(ctx context.Context, stream Stream) (seq uint64, ok bool, err error)

	// AssetInfo returns the catalog row, or nil if the asset is not catalogued.
	AssetInfo(ctx context.Context, kind domain.AssetKind, asset domain.Address) (*domain.TokenInfo, error)

	// AssetInfos returns the catalog rows of several assets keyed by address. Uncatalogued
	// assets are absent.
	AssetInfos(ctx context.Context, kind domain.AssetKind, assets []domain.Address) (map[domain.Address]domain.TokenInfo, error)

	// HasTransfers reports whether the asset has any recorded transfer.
	HasTransfers(ctx context.Context, kind domain.AssetKind, asset domain.Address) (bool, error)

	// ScanBlocks returns blocks inside r in no particular order.
	ScanBlocks(ctx context.Context, r domain.SeqRange) ([]domain.Block, error)

	// ScanTransactions returns transactions inside r in no particular order.
	ScanTransactions(ctx context.Context, r domain.SeqRange) ([]domain.Transaction, error)

	// ScanTransfers returns transfers of one asset inside r in no particular order.
	ScanTransfers(ctx context.Context, kind domain.AssetKind, asset domain.Address, r domain.SeqRange) ([]domain.TransferEvent, error)

	// EstimateTransactions sums the per-block transaction counts inside r.
	EstimateTransactions(ctx context.Context, r domain.SeqRange) (int64, error)

	// ListTransfers returns one page of transfers matching f, newest first, with the exact
	// number of matches.
	ListTransfers(ctx context.Context, kind domain.AssetKind, f filter.TransferFilter, req page.Request) ([]domain.TransferEvent, int64, error)

	// ListTransactions returns one page of the transactions sent or received by holder,
	// newest first, with the exact number of matches.
	ListTransactions(ctx context.Context, holder domain.Address, req page.Request) ([]domain.Transaction, int64, error)

	// CatalogSize returns the number of catalogued assets of kind.
	CatalogSize(ctx context.Context, kind domain.AssetKind) (int64, error)

	// Close releases the session. Calling it more than once is a no-op.
	Close() error
}

// Drain reads every event from it and closes it.
func Drain(it TransferIterator) ([]domain.TransferEvent, error) {
	defer it.Close()

	var out []domain.TransferEvent
	for it.Next() {
		out = append(out, it.Event())
	}
	return out, it.Err()
}
