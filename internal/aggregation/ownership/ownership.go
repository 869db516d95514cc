// Package ownership derives current owners of non-fungible tokens from transfer history.
//
// For every (asset, tokenId) the aggregator counts, per holder, transfers received minus
// transfers sent. The owner is the single holder at net count 1. Histories where a holder
// reaches a count above 1, or where more than one holder is positive, are anomalies: the
// owner is clamped to the positive holder who received the token most recently and an
// IntegrityWarning is returned alongside the result.
package ownership

import (
	"context"
	"log/slog"
	"math/big"
	"sort"

	"github.com/vietddude/explorer/internal/aggregation"
	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/core/page"
	"github.com/vietddude/explorer/internal/infra/storage"
	"github.com/vietddude/explorer/internal/metrics"
)

// OwnerResult is the owner of one token.
type OwnerResult struct {
	domain.TokenOwner
	Warnings []domain.IntegrityWarning
}

// Aggregator computes ownership. It holds no per-call state and is safe for concurrent use.
type Aggregator struct {
	store  storage.EventStore
	logger *slog.Logger
}

// New creates an ownership aggregator over store.
func New(store storage.EventStore, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{store: store, logger: logger.With("component", "ownership")}
}

// ComputeOwners returns one page of (tokenId, owner) for every token of asset that has an
// owner, ordered by tokenId ascending. The total is exact.
func (a *Aggregator) ComputeOwners(ctx context.Context, asset string, pageNum, limit int) (page.Envelope[domain.TokenOwner], error) {
	var empty page.Envelope[domain.TokenOwner]

	addr, err := domain.ParseAddress("address", asset)
	if err != nil {
		return empty, err
	}
	req, err := page.New(pageNum, limit)
	if err != nil {
		return empty, err
	}

	sess, err := a.store.Acquire(ctx)
	if err != nil {
		return empty, domain.WrapDependency("acquire session", err)
	}
	defer sess.Close()

	if err := requireAsset(ctx, sess, addr); err != nil {
		return empty, err
	}

	b, err := a.replay(ctx, sess, storage.TransferQuery{Kind: domain.AssetNonFungible, Asset: &addr})
	if err != nil {
		return empty, err
	}

	owners, warnings := b.owners()
	aggregation.ReportWarnings(ctx, a.logger, "compute_owners", warnings)

	env := page.Slice(req, owners)
	env.Warnings = warnings
	return env, nil
}

// ComputeHoldings returns one page of tokens owned by holder, optionally restricted to one
// asset, ordered by asset then tokenId ascending. The total is exact. A holder with no
// matching transfers is NotFound.
//
// The holder's own transfers select the candidate tokens, those where the holder's net count
// is positive. Each candidate is then resolved over its full history, the same way
// ComputeOwners resolves it, and kept only if it resolves to the holder.
func (a *Aggregator) ComputeHoldings(ctx context.Context, holder string, asset *string, pageNum, limit int) (page.Envelope[domain.TokenOwner], error) {
	var empty page.Envelope[domain.TokenOwner]

	who, err := domain.ParseAddress("address", holder)
	if err != nil {
		return empty, err
	}
	if who.IsZero() {
		return empty, &domain.NotFoundError{Resource: "holder", Key: string(who)}
	}
	q := storage.TransferQuery{Kind: domain.AssetNonFungible, Holder: &who}
	if asset != nil {
		addr, err := domain.ParseAddress("asset", *asset)
		if err != nil {
			return empty, err
		}
		q.Asset = &addr
	}
	req, err := page.New(pageNum, limit)
	if err != nil {
		return empty, err
	}

	sess, err := a.store.Acquire(ctx)
	if err != nil {
		return empty, domain.WrapDependency("acquire session", err)
	}
	defer sess.Close()

	b, err := a.replay(ctx, sess, q)
	if err != nil {
		return empty, err
	}
	if len(b.tokens) == 0 {
		return empty, &domain.NotFoundError{Resource: "holder", Key: string(who)}
	}

	var (
		held     []domain.TokenOwner
		warnings []domain.IntegrityWarning
	)
	for _, st := range b.sorted() {
		if st.net[who] < 1 {
			continue
		}
		owner, ws, ok, err := a.resolveToken(ctx, sess, st.asset, st.id)
		if err != nil {
			return empty, err
		}
		warnings = append(warnings, ws...)
		if ok && owner == who {
			held = append(held, domain.TokenOwner{Asset: st.asset, TokenID: new(big.Int).Set(st.id), Owner: who})
		}
	}
	aggregation.ReportWarnings(ctx, a.logger, "compute_holdings", warnings)

	env := page.Slice(req, held)
	env.Warnings = warnings
	return env, nil
}

// resolveToken replays the full history of one token and resolves its owner.
func (a *Aggregator) resolveToken(ctx context.Context, sess storage.Session, asset domain.Address, id *big.Int) (domain.Address, []domain.IntegrityWarning, bool, error) {
	full, err := a.replay(ctx, sess, storage.TransferQuery{Kind: domain.AssetNonFungible, Asset: &asset, TokenID: id})
	if err != nil {
		return "", nil, false, err
	}
	owner, ws, ok := full.tokens[tokenKey{asset: asset, id: id.String()}].resolve()
	return owner, ws, ok, nil
}

// OwnerOf returns the current owner of one token. A token with no history, or one that was
// burned, is NotFound.
func (a *Aggregator) OwnerOf(ctx context.Context, asset, tokenID string) (OwnerResult, error) {
	addr, err := domain.ParseAddress("address", asset)
	if err != nil {
		return OwnerResult{}, err
	}
	id, err := domain.ParseTokenID("tokenId", tokenID)
	if err != nil {
		return OwnerResult{}, err
	}

	sess, err := a.store.Acquire(ctx)
	if err != nil {
		return OwnerResult{}, domain.WrapDependency("acquire session", err)
	}
	defer sess.Close()

	b, err := a.replay(ctx, sess, storage.TransferQuery{Kind: domain.AssetNonFungible, Asset: &addr, TokenID: id})
	if err != nil {
		return OwnerResult{}, err
	}

	st, ok := b.tokens[tokenKey{asset: addr, id: id.String()}]
	if !ok {
		return OwnerResult{}, &domain.NotFoundError{Resource: "token", Key: string(addr) + "/" + id.String()}
	}
	owner, warnings, ok := st.resolve()
	aggregation.ReportWarnings(ctx, a.logger, "owner_of", warnings)
	if !ok {
		return OwnerResult{}, &domain.NotFoundError{Resource: "token", Key: string(addr) + "/" + id.String()}
	}
	return OwnerResult{
		TokenOwner: domain.TokenOwner{Asset: addr, TokenID: id, Owner: owner},
		Warnings:   warnings,
	}, nil
}

// HolderCount returns the number of distinct owners of the collection.
func (a *Aggregator) HolderCount(ctx context.Context, asset string) (int64, error) {
	addr, err := domain.ParseAddress("address", asset)
	if err != nil {
		return 0, err
	}

	sess, err := a.store.Acquire(ctx)
	if err != nil {
		return 0, domain.WrapDependency("acquire session", err)
	}
	defer sess.Close()

	if err := requireAsset(ctx, sess, addr); err != nil {
		return 0, err
	}

	b, err := a.replay(ctx, sess, storage.TransferQuery{Kind: domain.AssetNonFungible, Asset: &addr})
	if err != nil {
		return 0, err
	}
	owners, warnings := b.owners()
	aggregation.ReportWarnings(ctx, a.logger, "holder_count", warnings)

	distinct := make(map[domain.Address]struct{}, len(owners))
	for _, o := range owners {
		distinct[o.Owner] = struct{}{}
	}
	return int64(len(distinct)), nil
}

func requireAsset(ctx context.Context, sess storage.Session, asset domain.Address) error {
	info, err := sess.AssetInfo(ctx, domain.AssetNonFungible, asset)
	if err != nil {
		return domain.WrapDependency("load asset", err)
	}
	if info != nil {
		return nil
	}
	ok, err := sess.HasTransfers(ctx, domain.AssetNonFungible, asset)
	if err != nil {
		return domain.WrapDependency("load asset", err)
	}
	if !ok {
		return &domain.NotFoundError{Resource: "collection", Key: string(asset)}
	}
	return nil
}

func (a *Aggregator) replay(ctx context.Context, sess storage.Session, q storage.TransferQuery) (*book, error) {
	it, err := sess.QueryTransfers(ctx, q)
	if err != nil {
		return nil, domain.WrapDependency("query transfers", err)
	}
	defer it.Close()

	b := newBook()
	for it.Next() {
		b.apply(it.Event())
	}
	if err := it.Err(); err != nil {
		return nil, domain.WrapDependency("read transfers", err)
	}
	if b.duplicates > 0 {
		metrics.DuplicateEventsTotal.Add(float64(b.duplicates))
	}
	return b, nil
}

func sortOwners(out []domain.TokenOwner) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Asset != out[j].Asset {
			return out[i].Asset < out[j].Asset
		}
		return out[i].TokenID.Cmp(out[j].TokenID) < 0
	})
}
