// Package balance derives fungible token balances from transfer history.
//
// A balance is sum(amount where to=holder) - sum(amount where from=holder) over every
// distinct event in the session's snapshot. Legs touching the zero address are mint and
// burn legs and never produce a holder entry. Balances are recomputed on every call.
package balance

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

// BalanceResult is the balance of one holder for one asset.
type BalanceResult struct {
	Asset    domain.Address
	Holder   domain.Address
	Balance  *big.Int
	Warnings []domain.IntegrityWarning
}

// Aggregator computes balances. It holds no per-call state and is safe for concurrent use.
type Aggregator struct {
	store  storage.EventStore
	logger *slog.Logger
}

// New creates a balance aggregator over store.
func New(store storage.EventStore, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{store: store, logger: logger.With("component", "balance")}
}

// ComputeBalances returns one page of holders with a positive balance, ordered by balance
// descending then holder ascending. The total is exact.
func (a *Aggregator) ComputeBalances(ctx context.Context, asset string, pageNum, limit int) (page.Envelope[domain.HolderBalance], error) {
	var empty page.Envelope[domain.HolderBalance]

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

	l, err := a.replay(ctx, sess, storage.TransferQuery{Kind: domain.AssetFungible, Asset: &addr})
	if err != nil {
		return empty, err
	}

	holders, warnings := l.positive(addr)
	aggregation.ReportWarnings(ctx, a.logger, "compute_balances", warnings)

	env := page.Slice(req, holders)
	env.Warnings = warnings
	return env, nil
}

// ComputeBalance returns the balance of one holder. Only events where the holder is sender
// or recipient are read. A holder that never appears in the asset's history is NotFound.
func (a *Aggregator) ComputeBalance(ctx context.Context, asset, holder string) (BalanceResult, error) {
	addr, err := domain.ParseAddress("address", asset)
	if err != nil {
		return BalanceResult{}, err
	}
	who, err := domain.ParseAddress("holder", holder)
	if err != nil {
		return BalanceResult{}, err
	}
	if who.IsZero() {
		return BalanceResult{}, &domain.NotFoundError{Resource: "holder", Key: string(who)}
	}

	sess, err := a.store.Acquire(ctx)
	if err != nil {
		return BalanceResult{}, domain.WrapDependency("acquire session", err)
	}
	defer sess.Close()

	if err := requireAsset(ctx, sess, addr); err != nil {
		return BalanceResult{}, err
	}

	l, err := a.replay(ctx, sess, storage.TransferQuery{Kind: domain.AssetFungible, Asset: &addr, Holder: &who})
	if err != nil {
		return BalanceResult{}, err
	}
	if l.events == 0 {
		return BalanceResult{}, &domain.NotFoundError{Resource: "holder", Key: string(who)}
	}

	res := BalanceResult{Asset: addr, Holder: who, Balance: new(big.Int)}
	if d, ok := l.deltas[who]; ok {
		res.Balance.Set(d)
	}
	if res.Balance.Sign() < 0 {
		res.Warnings = append(res.Warnings, negativeWarning(addr, who, res.Balance))
		res.Balance.SetInt64(0)
	}
	aggregation.ReportWarnings(ctx, a.logger, "compute_balance", res.Warnings)
	return res, nil
}

// ComputeHolderBalances returns one page of every fungible asset the holder has a positive
// balance in, ordered by balance descending then asset ascending. The total is exact. A
// holder with no fungible transfers is NotFound; one whose balances all net to zero gets an
// empty page.
func (a *Aggregator) ComputeHolderBalances(ctx context.Context, holder string, pageNum, limit int) (page.Envelope[domain.AssetBalance], error) {
	var empty page.Envelope[domain.AssetBalance]

	who, err := domain.ParseAddress("address", holder)
	if err != nil {
		return empty, err
	}
	if who.IsZero() {
		return empty, &domain.NotFoundError{Resource: "holder", Key: string(who)}
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

	it, err := sess.QueryTransfers(ctx, storage.TransferQuery{Kind: domain.AssetFungible, Holder: &who})
	if err != nil {
		return empty, domain.WrapDependency("query transfers", err)
	}
	defer it.Close()

	perAsset := make(map[domain.Address]*ledger)
	for it.Next() {
		ev := it.Event()
		l, ok := perAsset[ev.Asset]
		if !ok {
			l = newLedger()
			perAsset[ev.Asset] = l
		}
		l.apply(ev)
	}
	if err := it.Err(); err != nil {
		return empty, domain.WrapDependency("read transfers", err)
	}
	if len(perAsset) == 0 {
		return empty, &domain.NotFoundError{Resource: "holder", Key: string(who)}
	}

	var (
		out      []domain.AssetBalance
		warnings []domain.IntegrityWarning
	)
	for asset, l := range perAsset {
		metrics.DuplicateEventsTotal.Add(float64(l.duplicates))
		d, ok := l.deltas[who]
		if !ok {
			continue
		}
		switch d.Sign() {
		case 1:
			out = append(out, domain.AssetBalance{Asset: asset, Balance: new(big.Int).Set(d)})
		case -1:
			warnings = append(warnings, negativeWarning(asset, who, d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Balance.Cmp(out[j].Balance); c != 0 {
			return c > 0
		}
		return out[i].Asset < out[j].Asset
	})
	sortWarnings(warnings)
	aggregation.ReportWarnings(ctx, a.logger, "compute_holder_balances", warnings)

	env := page.Slice(req, out)
	env.Warnings = warnings
	return env, nil
}

// HolderCount returns the number of holders with a positive balance.
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

	l, err := a.replay(ctx, sess, storage.TransferQuery{Kind: domain.AssetFungible, Asset: &addr})
	if err != nil {
		return 0, err
	}
	holders, warnings := l.positive(addr)
	aggregation.ReportWarnings(ctx, a.logger, "holder_count", warnings)
	return int64(len(holders)), nil
}

// requireAsset fails with NotFound when the asset is neither catalogued nor has any transfer.
func requireAsset(ctx context.Context, sess storage.Session, asset domain.Address) error {
	info, err := sess.AssetInfo(ctx, domain.AssetFungible, asset)
	if err != nil {
		return domain.WrapDependency("load asset", err)
	}
	if info != nil {
		return nil
	}
	ok, err := sess.HasTransfers(ctx, domain.AssetFungible, asset)
	if err != nil {
		return domain.WrapDependency("load asset", err)
	}
	if !ok {
		return &domain.NotFoundError{Resource: "asset", Key: string(asset)}
	}
	return nil
}

func (a *Aggregator) replay(ctx context.Context, sess storage.Session, q storage.TransferQuery) (*ledger, error) {
	it, err := sess.QueryTransfers(ctx, q)
	if err != nil {
		return nil, domain.WrapDependency("query transfers", err)
	}
	defer it.Close()

	l := newLedger()
	for it.Next() {
		l.apply(it.Event())
	}
	if err := it.Err(); err != nil {
		return nil, domain.WrapDependency("read transfers", err)
	}
	if l.duplicates > 0 {
		metrics.DuplicateEventsTotal.Add(float64(l.duplicates))
		a.logger.DebugContext(ctx, "Skipped duplicate transfer events", "count", l.duplicates)
	}
	return l, nil
}

func negativeWarning(asset, holder domain.Address, balance *big.Int) domain.IntegrityWarning {
	return domain.IntegrityWarning{
		Kind:    domain.WarningNegativeBalance,
		Asset:   asset,
		Subject: string(holder),
		Detail:  "derived balance " + balance.String() + " clamped to 0",
	}
}

func sortWarnings(ws []domain.IntegrityWarning) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].Asset != ws[j].Asset {
			return ws[i].Asset < ws[j].Asset
		}
		return ws[i].Subject < ws[j].Subject
	})
}
