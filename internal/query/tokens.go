package query

import (
	"context"
	"fmt"
	"math/big"

	"github.com/vietddude/explorer/internal/aggregation/balance"
	"github.com/vietddude/explorer/internal/aggregation/ownership"
	"github.com/vietddude/explorer/internal/aggregation/recency"
	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/core/page"
	"github.com/vietddude/explorer/internal/filter"
	"github.com/vietddude/explorer/internal/infra/storage"
)

// TokenDetail is the catalog row of an asset plus its derived holder count.
type TokenDetail struct {
	domain.TokenInfo
	HolderCount int64
}

// TokenBalance is a holder's balance in one asset with the asset's catalog row, if any.
type TokenBalance struct {
	Asset   domain.Address
	Balance *big.Int
	Token   *domain.TokenInfo
}

// TransferListRequest selects a page of one asset's transfers.
type TransferListRequest struct {
	Asset     string
	Holder    string
	Direction string
	Filter    string // AIP-160 expression
	Page      int
	Limit     int
}

func run[T any](ctx context.Context, s *Service, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, done := s.begin(ctx, op)
	v, err := fn(ctx)
	done(err)
	return v, err
}

// TokenHolders returns one page of holders of a fungible asset.
func (s *Service) TokenHolders(ctx context.Context, asset string, pageNum, limit int) (page.Envelope[domain.HolderBalance], error) {
	return run(ctx, s, "token_holders", func(ctx context.Context) (page.Envelope[domain.HolderBalance], error) {
		addr, err := domain.ParseAddress("address", asset)
		if err != nil {
			return page.Envelope[domain.HolderBalance]{}, err
		}
		req, err := page.New(pageNum, limit)
		if err != nil {
			return page.Envelope[domain.HolderBalance]{}, err
		}
		params := fmt.Sprintf("%s:%d:%d", addr, req.Page, req.Limit)
		return cached(ctx, s, "token_holders", storage.StreamERC20Transfers, params,
			func(ctx context.Context) (page.Envelope[domain.HolderBalance], error) {
				return s.balances.ComputeBalances(ctx, string(addr), req.Page, req.Limit)
			})
	})
}

// TokenBalance returns one holder's balance of a fungible asset.
func (s *Service) TokenBalance(ctx context.Context, asset, holder string) (balance.BalanceResult, error) {
	return run(ctx, s, "token_balance", func(ctx context.Context) (balance.BalanceResult, error) {
		addr, err := domain.ParseAddress("address", asset)
		if err != nil {
			return balance.BalanceResult{}, err
		}
		who, err := domain.ParseAddress("holder", holder)
		if err != nil {
			return balance.BalanceResult{}, err
		}
		return cached(ctx, s, "token_balance", storage.StreamERC20Transfers, string(addr)+":"+string(who),
			func(ctx context.Context) (balance.BalanceResult, error) {
				return s.balances.ComputeBalance(ctx, string(addr), string(who))
			})
	})
}

// HolderTokenBalances returns one page of the fungible assets a holder has a positive
// balance in, with catalog rows attached.
func (s *Service) HolderTokenBalances(ctx context.Context, holder string, pageNum, limit int) (page.Envelope[TokenBalance], error) {
	return run(ctx, s, "holder_token_balances", func(ctx context.Context) (page.Envelope[TokenBalance], error) {
		var empty page.Envelope[TokenBalance]

		who, err := domain.ParseAddress("address", holder)
		if err != nil {
			return empty, err
		}
		req, err := page.New(pageNum, limit)
		if err != nil {
			return empty, err
		}

		params := fmt.Sprintf("%s:%d:%d", who, req.Page, req.Limit)
		env, err := cached(ctx, s, "holder_token_balances", storage.StreamERC20Transfers, params,
			func(ctx context.Context) (page.Envelope[domain.AssetBalance], error) {
				return s.balances.ComputeHolderBalances(ctx, string(who), req.Page, req.Limit)
			})
		if err != nil {
			return empty, err
		}

		assets := make([]domain.Address, len(env.Data))
		for i, b := range env.Data {
			assets[i] = b.Asset
		}
		infos, err := s.assetInfos(ctx, domain.AssetFungible, assets)
		if err != nil {
			return empty, err
		}

		return page.Map(env, func(b domain.AssetBalance) TokenBalance {
			tb := TokenBalance{Asset: b.Asset, Balance: b.Balance}
			if info, ok := infos[b.Asset]; ok {
				tb.Token = &info
			}
			return tb
		}), nil
	})
}

// TokenDetail returns an asset's catalog row and holder count. Assets missing from the
// catalog but present in the transfer log get a bare row.
func (s *Service) TokenDetail(ctx context.Context, asset string) (TokenDetail, error) {
	return run(ctx, s, "token_detail", func(ctx context.Context) (TokenDetail, error) {
		addr, err := domain.ParseAddress("address", asset)
		if err != nil {
			return TokenDetail{}, err
		}

		info, err := s.resolveAsset(ctx, addr)
		if err != nil {
			return TokenDetail{}, err
		}

		var count int64
		if info.Kind == domain.AssetNonFungible {
			count, err = s.ownership.HolderCount(ctx, string(addr))
		} else {
			count, err = s.balances.HolderCount(ctx, string(addr))
		}
		if err != nil {
			return TokenDetail{}, err
		}
		return TokenDetail{TokenInfo: info, HolderCount: count}, nil
	})
}

// TokenTransfers returns one page of an asset's transfers, newest first, with an exact total.
func (s *Service) TokenTransfers(ctx context.Context, r TransferListRequest) (page.Envelope[domain.TransferEvent], error) {
	return run(ctx, s, "token_transfers", func(ctx context.Context) (page.Envelope[domain.TransferEvent], error) {
		var empty page.Envelope[domain.TransferEvent]

		addr, err := domain.ParseAddress("address", r.Asset)
		if err != nil {
			return empty, err
		}
		base := filter.TransferFilter{Asset: &addr}
		if r.Holder != "" {
			who, err := domain.ParseAddress("holder", r.Holder)
			if err != nil {
				return empty, err
			}
			base.Holder = &who
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

		info, err := s.resolveAsset(ctx, addr)
		if err != nil {
			return empty, err
		}

		sess, err := s.store.Acquire(ctx)
		if err != nil {
			return empty, domain.WrapDependency("acquire session", err)
		}
		defer sess.Close()

		events, total, err := sess.ListTransfers(ctx, info.Kind, f, req)
		if err != nil {
			return empty, domain.WrapDependency("list transfers", err)
		}
		return page.Build(req, events, total, false), nil
	})
}

// LatestTokenTransfers returns the n newest transfers of an asset. The total is estimated
// from the scanned window.
func (s *Service) LatestTokenTransfers(ctx context.Context, asset string, n int) (page.Envelope[domain.TransferEvent], error) {
	return run(ctx, s, "latest_token_transfers", func(ctx context.Context) (page.Envelope[domain.TransferEvent], error) {
		addr, err := domain.ParseAddress("address", asset)
		if err != nil {
			return page.Envelope[domain.TransferEvent]{}, err
		}
		if _, err := page.New(1, n); err != nil {
			return page.Envelope[domain.TransferEvent]{}, err
		}
		info, err := s.resolveAsset(ctx, addr)
		if err != nil {
			return page.Envelope[domain.TransferEvent]{}, err
		}
		return s.transfers.Latest(ctx, recency.TransferSource{Kind: info.Kind, Asset: addr}, n)
	})
}

// HolderNFTs returns one page of the tokens a holder owns, optionally within one collection.
func (s *Service) HolderNFTs(ctx context.Context, holder string, asset *string, pageNum, limit int) (page.Envelope[domain.TokenOwner], error) {
	return run(ctx, s, "holder_nfts", func(ctx context.Context) (page.Envelope[domain.TokenOwner], error) {
		who, err := domain.ParseAddress("address", holder)
		if err != nil {
			return page.Envelope[domain.TokenOwner]{}, err
		}
		scope := "*"
		if asset != nil {
			addr, err := domain.ParseAddress("asset", *asset)
			if err != nil {
				return page.Envelope[domain.TokenOwner]{}, err
			}
			scope = string(addr)
		}
		req, err := page.New(pageNum, limit)
		if err != nil {
			return page.Envelope[domain.TokenOwner]{}, err
		}

		params := fmt.Sprintf("%s:%s:%d:%d", who, scope, req.Page, req.Limit)
		return cached(ctx, s, "holder_nfts", storage.StreamERC721Transfers, params,
			func(ctx context.Context) (page.Envelope[domain.TokenOwner], error) {
				return s.ownership.ComputeHoldings(ctx, string(who), asset, req.Page, req.Limit)
			})
	})
}

// CollectionOwners returns one page of (tokenId, owner) for a collection.
func (s *Service) CollectionOwners(ctx context.Context, asset string, pageNum, limit int) (page.Envelope[domain.TokenOwner], error) {
	return run(ctx, s, "collection_owners", func(ctx context.Context) (page.Envelope[domain.TokenOwner], error) {
		addr, err := domain.ParseAddress("address", asset)
		if err != nil {
			return page.Envelope[domain.TokenOwner]{}, err
		}
		req, err := page.New(pageNum, limit)
		if err != nil {
			return page.Envelope[domain.TokenOwner]{}, err
		}

		params := fmt.Sprintf("%s:%d:%d", addr, req.Page, req.Limit)
		return cached(ctx, s, "collection_owners", storage.StreamERC721Transfers, params,
			func(ctx context.Context) (page.Envelope[domain.TokenOwner], error) {
				return s.ownership.ComputeOwners(ctx, string(addr), req.Page, req.Limit)
			})
	})
}

// TokenOwner returns the owner of one token.
func (s *Service) TokenOwner(ctx context.Context, asset, tokenID string) (ownership.OwnerResult, error) {
	return run(ctx, s, "token_owner", func(ctx context.Context) (ownership.OwnerResult, error) {
		return s.ownership.OwnerOf(ctx, asset, tokenID)
	})
}

// resolveAsset finds the catalog row of addr, checking fungible then non-fungible. An asset
// missing from both catalogs but present in a transfer log gets a bare row of that kind.
func (s *Service) resolveAsset(ctx context.Context, addr domain.Address) (domain.TokenInfo, error) {
	sess, err := s.store.Acquire(ctx)
	if err != nil {
		return domain.TokenInfo{}, domain.WrapDependency("acquire session", err)
	}
	defer sess.Close()

	kinds := []domain.AssetKind{domain.AssetFungible, domain.AssetNonFungible}
	for _, kind := range kinds {
		info, err := sess.AssetInfo(ctx, kind, addr)
		if err != nil {
			return domain.TokenInfo{}, domain.WrapDependency("load asset", err)
		}
		if info != nil {
			return *info, nil
		}
	}
	for _, kind := range kinds {
		ok, err := sess.HasTransfers(ctx, kind, addr)
		if err != nil {
			return domain.TokenInfo{}, domain.WrapDependency("load asset", err)
		}
		if ok {
			return domain.TokenInfo{Address: addr, Kind: kind}, nil
		}
	}
	return domain.TokenInfo{}, &domain.NotFoundError{Resource: "token", Key: string(addr)}
}

func (s *Service) assetInfos(ctx context.Context, kind domain.AssetKind, assets []domain.Address) (map[domain.Address]domain.TokenInfo, error) {
	if len(assets) == 0 {
		return nil, nil
	}
	sess, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, domain.WrapDependency("acquire session", err)
	}
	defer sess.Close()

	infos, err := sess.AssetInfos(ctx, kind, assets)
	if err != nil {
		return nil, domain.WrapDependency("load assets", err)
	}
	return infos, nil
}

// Token returns the catalog row of an asset, or a bare row when only the transfer log
// knows it.
func (s *Service) Token(ctx context.Context, asset string) (domain.TokenInfo, error) {
	return run(ctx, s, "token", func(ctx context.Context) (domain.TokenInfo, error) {
		addr, err := domain.ParseAddress("address", asset)
		if err != nil {
			return domain.TokenInfo{}, err
		}
		return s.resolveAsset(ctx, addr)
	})
}
