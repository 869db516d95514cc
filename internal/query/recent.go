package query

import (
	"context"

	"github.com/vietddude/explorer/internal/aggregation/recency"
	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/core/page"
)

// LatestBlocks returns the n newest blocks. The total is the head block number.
func (s *Service) LatestBlocks(ctx context.Context, n int) (page.Envelope[domain.Block], error) {
	return run(ctx, s, "latest_blocks", func(ctx context.Context) (page.Envelope[domain.Block], error) {
		return s.blocks.Latest(ctx, recency.BlockSource{}, n)
	})
}

// LatestTransactions returns the n newest transactions. The total sums the per-block counts
// of the most recent blocks.
func (s *Service) LatestTransactions(ctx context.Context, n int) (page.Envelope[domain.Transaction], error) {
	return run(ctx, s, "latest_transactions", func(ctx context.Context) (page.Envelope[domain.Transaction], error) {
		return s.txs.Latest(ctx, recency.TransactionSource{EstimateWindow: s.cfg.EstimateWindow}, n)
	})
}
