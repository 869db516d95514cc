package query

import (
	"context"

	"github.com/vietddude/explorer/internal/aggregation/recency"
	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/core/page"
	"github.com/vietddude/explorer/internal/filter"
	"github.com/vietddude/explorer/internal/infra/storage"
)

// TokenTransfer is a transfer with the catalog row of its asset, if any.
type TokenTransfer struct {
	domain.TransferEvent
	Token *domain.TokenInfo
}

// Stats summarizes the indexed chain. TotalTransactions is estimated over the recent window.
type Stats struct {
	LatestBlock       uint64
	TotalTransactions int64
	ERC20Tokens       int64
	ERC721Tokens      int64
	Estimated         bool
}

// AddressTransactions returns one page of the transactions an address sent or received,
// newest first, with an exact total. An address with no transactions is NotFound.
func (s *Service) AddressTransactions(ctx context.Context, holder string, pageNum, limit int) (page.Envelope[domain.Transaction], error) {
	return run(ctx, s, "address_transactions", func(ctx context.Context) (page.Envelope[domain.Transaction], error) {
		var empty page.Envelope[domain.Transaction]

		who, err := domain.ParseAddress("address", holder)
		if err != nil {
			return empty, err
		}
		req, err := page.New(pageNum, limit)
		if err != nil {
			return empty, err
		}

		sess, err := s.store.Acquire(ctx)
		if err != nil {
			return empty, domain.WrapDependency("acquire session", err)
		}
		defer sess.Close()

		txs, total, err := sess.ListTransactions(ctx, who, req)
		if err != nil {
			return empty, domain.WrapDependency("list transactions", err)
		}
		if total == 0 {
			return empty, &domain.NotFoundError{Resource: "address", Key: string(who)}
		}
		return page.Build(req, txs, total, false), nil
	})
}

// AddressTransfers returns one page of the transfers of one asset kind an address sent or
// received, newest first, with an exact total. r.Holder is required; r.Asset narrows to one
// contract. An address with no transfers of the kind is NotFound. Narrowing options that
// match nothing give an empty page.
func (s *Service) AddressTransfers(ctx context.Context, kind domain.AssetKind, r TransferListRequest) (page.Envelope[TokenTransfer], error) {
	op := "address_" + string(storage.TransferStream(kind))
	return run(ctx, s, op, func(ctx context.Context) (page.Envelope[TokenTransfer], error) {
		var empty page.Envelope[TokenTransfer]

		who, err := domain.ParseAddress("address", r.Holder)
		if err != nil {
			return empty, err
		}
		base := filter.TransferFilter{Holder: &who}
		if r.Asset != "" {
			addr, err := domain.ParseAddress("asset", r.Asset)
			if err != nil {
				return empty, err
			}
			base.Asset = &addr
		}
		if base.Direction, err = filter.ParseDirection(r.Direction); err != nil {
			return empty, err
		}
		f, err := filter.Parse(base, r.Filter)
		if err != nil {
			return empty, err
		}
		req, err := page.New(r.Page, r.Limit)
		if err != nil {
			return empty, err
		}

		sess, err := s.store.Acquire(ctx)
		if err != nil {
			return empty, domain.WrapDependency("acquire session", err)
		}
		events, total, err := sess.ListTransfers(ctx, kind, f, req)
		if err == nil && total == 0 {
			_, total, err = sess.ListTransfers(ctx, kind, filter.TransferFilter{Holder: &who}, page.Request{Page: 1, Limit: 1})
			if err == nil && total == 0 {
				err = &domain.NotFoundError{Resource: "address", Key: string(who)}
			}
			total = 0
		}
		sess.Close()
		if err != nil {
			return empty, domain.WrapDependency("list transfers", err)
		}

		infos, err := s.assetInfos(ctx, kind, distinctAssets(events))
		if err != nil {
			return empty, err
		}
		out := make([]TokenTransfer, len(events))
		for i, e := range events {
			out[i] = TokenTransfer{TransferEvent: e}
			if info, ok := infos[e.Asset]; ok {
				out[i].Token = &info
			}
		}
		return page.Build(req, out, total, false), nil
	})
}

// Stats returns the head block, an estimated transaction total and the catalog sizes.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return run(ctx, s, "stats", func(ctx context.Context) (Stats, error) {
		return cached(ctx, s, "stats", storage.StreamBlocks, "", func(ctx context.Context) (Stats, error) {
			sess, err := s.store.Acquire(ctx)
			if err != nil {
				return Stats{}, domain.WrapDependency("acquire session", err)
			}
			defer sess.Close()

			out := Stats{Estimated: true}
			head, ok, err := s.heads.HighWaterMark(ctx, sess, storage.StreamBlocks)
			if err != nil {
				return Stats{}, domain.WrapDependency("read high-water mark", err)
			}
			if ok {
				out.LatestBlock = head
				src := recency.TransactionSource{EstimateWindow: s.cfg.EstimateWindow}
				if out.TotalTransactions, err = src.Estimate(ctx, sess, head, 0); err != nil {
					return Stats{}, domain.WrapDependency("estimate transactions", err)
				}
			}
			if out.ERC20Tokens, err = sess.CatalogSize(ctx, domain.AssetFungible); err != nil {
				return Stats{}, domain.WrapDependency("count tokens", err)
			}
			if out.ERC721Tokens, err = sess.CatalogSize(ctx, domain.AssetNonFungible); err != nil {
				return Stats{}, domain.WrapDependency("count tokens", err)
			}
			return out, nil
		})
	})
}

func distinctAssets(events []domain.TransferEvent) []domain.Address {
	seen := make(map[domain.Address]struct{}, len(events))
	var out []domain.Address
	for _, e := range events {
		if _, ok := seen[e.Asset]; ok {
			continue
		}
		seen[e.Asset] = struct{}{}
		out = append(out, e.Asset)
	}
	return out
}
