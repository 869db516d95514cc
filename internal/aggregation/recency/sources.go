package recency

import (
	"context"

	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/infra/storage"
)

// DefaultEstimateWindow is the number of recent blocks whose transaction counts are summed
// for the transaction total.
const DefaultEstimateWindow = 10000

// BlockSource selects the latest blocks. The estimated total is the head block number.
type BlockSource struct{}

func (BlockSource) Name() string           { return "blocks" }
func (BlockSource) Stream() storage.Stream { return storage.StreamBlocks }

func (BlockSource) Scan(ctx context.Context, sess storage.Session, r domain.SeqRange) ([]domain.Block, error) {
	return sess.ScanBlocks(ctx, r)
}

func (BlockSource) Estimate(ctx context.Context, sess storage.Session, head uint64, scanned int) (int64, error) {
	return int64(head), nil
}

// TransactionSource selects the latest transactions. The estimated total sums the recorded
// per-block transaction counts over the last EstimateWindow blocks.
type TransactionSource struct {
	EstimateWindow uint64
}

func (TransactionSource) Name() string           { return "transactions" }
func (TransactionSource) Stream() storage.Stream { return storage.StreamTransactions }

func (TransactionSource) Scan(ctx context.Context, sess storage.Session, r domain.SeqRange) ([]domain.Transaction, error) {
	return sess.ScanTransactions(ctx, r)
}

func (s TransactionSource) Estimate(ctx context.Context, sess storage.Session, head uint64, scanned int) (int64, error) {
	w := s.EstimateWindow
	if w == 0 {
		w = DefaultEstimateWindow
	}
	return sess.EstimateTransactions(ctx, window(head, w))
}

// TransferSource selects the latest transfers of one asset. The estimated total is the
// number of transfers in the scanned window.
type TransferSource struct {
	Kind  domain.AssetKind
	Asset domain.Address
}

func (s TransferSource) Name() string {
	if s.Kind == domain.AssetNonFungible {
		return "erc721_transfers"
	}
	return "erc20_transfers"
}

func (s TransferSource) Stream() storage.Stream { return storage.TransferStream(s.Kind) }

func (s TransferSource) Scan(ctx context.Context, sess storage.Session, r domain.SeqRange) ([]domain.TransferEvent, error) {
	return sess.ScanTransfers(ctx, s.Kind, s.Asset, r)
}

func (TransferSource) Estimate(ctx context.Context, sess storage.Session, head uint64, scanned int) (int64, error) {
	return int64(scanned), nil
}
