package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/core/page"
	"github.com/vietddude/explorer/internal/filter"
	"github.com/vietddude/explorer/internal/infra/storage"
)

type tokenKey struct {
	kind    domain.AssetKind
	address domain.Address
}

// MemoryStorage is an append-only event store held in process memory. It backs tests and
// the database-less development mode.
type MemoryStorage struct {
	mu       sync.RWMutex
	erc20    []domain.TransferEvent
	erc721   []domain.TransferEvent
	blocks   []domain.Block
	txs      []domain.Transaction
	tokens   map[tokenKey]domain.TokenInfo
	open     atomic.Int64
	acquired atomic.Int64

	failMu      sync.RWMutex
	acquireErr  error
	queryErr    error
	iterErr     error
	iterErrFrom int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tokens: make(map[tokenKey]domain.TokenInfo),
	}
}

// -----------------------------------------------------------------------------
// Writes
// -----------------------------------------------------------------------------

// AddTransfers appends events. Duplicates are kept, as a replaying ingester would.
func (s *MemoryStorage) AddTransfers(events ...domain.TransferEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if e.Kind == domain.AssetNonFungible {
			s.erc721 = append(s.erc721, e)
		} else {
			s.erc20 = append(s.erc20, e)
		}
	}
}

func (s *MemoryStorage) AddBlocks(blocks ...domain.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = append(s.blocks, blocks...)
}

func (s *MemoryStorage) AddTransactions(txs ...domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, txs...)
}

func (s *MemoryStorage) AddToken(info domain.TokenInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenKey{kind: info.Kind, address: info.Address}] = info
}

// -----------------------------------------------------------------------------
// Failure injection and accounting
// -----------------------------------------------------------------------------

// FailAcquire makes Acquire return err. Pass nil to clear.
func (s *MemoryStorage) FailAcquire(err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.acquireErr = err
}

// FailQueries makes every session read return err. Pass nil to clear.
func (s *MemoryStorage) FailQueries(err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.queryErr = err
}

// FailIterators makes transfer iterators stop with err after yielding n events.
func (s *MemoryStorage) FailIterators(n int, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.iterErrFrom = n
	s.iterErr = err
}

// OpenSessions returns the number of sessions not yet closed.
func (s *MemoryStorage) OpenSessions() int64 {
	return s.open.Load()
}

// Acquired returns the number of successful Acquire calls.
func (s *MemoryStorage) Acquired() int64 {
	return s.acquired.Load()
}

// -----------------------------------------------------------------------------
// EventStore
// -----------------------------------------------------------------------------

func (s *MemoryStorage) Ping(ctx context.Context) error {
	s.failMu.RLock()
	defer s.failMu.RUnlock()
	return s.acquireErr
}

// Acquire pins the current length of every log. The session sees that prefix only.
func (s *MemoryStorage) Acquire(ctx context.Context) (storage.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.failMu.RLock()
	err := s.acquireErr
	s.failMu.RUnlock()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	sess := &session{
		store:  s,
		erc20:  s.erc20[:len(s.erc20):len(s.erc20)],
		erc721: s.erc721[:len(s.erc721):len(s.erc721)],
		blocks: s.blocks[:len(s.blocks):len(s.blocks)],
		txs:    s.txs[:len(s.txs):len(s.txs)],
	}
	s.mu.RUnlock()

	s.open.Add(1)
	s.acquired.Add(1)
	return sess, nil
}

// -----------------------------------------------------------------------------
// Session
// -----------------------------------------------------------------------------

type session struct {
	store  *MemoryStorage
	erc20  []domain.TransferEvent
	erc721 []domain.TransferEvent
	blocks []domain.Block
	txs    []domain.Transaction
	closed atomic.Bool
}

func (s *session) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.store.open.Add(-1)
	}
	return nil
}

func (s *session) check(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.store.failMu.RLock()
	defer s.store.failMu.RUnlock()
	return s.store.queryErr
}

func (s *session) transfers(kind domain.AssetKind) []domain.TransferEvent {
	if kind == domain.AssetNonFungible {
		return s.erc721
	}
	return s.erc20
}

func (s *session) QueryTransfers(ctx context.Context, q storage.TransferQuery) (storage.TransferIterator, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var out []domain.TransferEvent
	for _, e := range s.transfers(q.Kind) {
		if q.Asset != nil && e.Asset != *q.Asset {
			continue
		}
		if q.Holder != nil && !e.Touches(*q.Holder) {
			continue
		}
		if q.TokenID != nil && (e.Value == nil || e.Value.Cmp(q.TokenID) != 0) {
			continue
		}
		if q.Range != nil && !q.Range.Contains(e.BlockNumber) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Position().Compare(out[j].Position()); c != 0 {
			return c < 0
		}
		return out[i].TxHash < out[j].TxHash
	})

	s.store.failMu.RLock()
	it := &sliceIterator{ctx: ctx, events: out, pos: -1, failAt: -1}
	if s.store.iterErr != nil {
		it.failAt = s.store.iterErrFrom
		it.failErr = s.store.iterErr
	}
	s.store.failMu.RUnlock()
	return it, nil
}

func (s *session) HighWaterMark(ctx context.Context, stream storage.Stream) (uint64, bool, error) {
	if err := s.check(ctx); err != nil {
		return 0, false, err
	}

	var (
		top uint64
		ok  bool
	)
	see := func(n uint64) {
		if !ok || n > top {
			top, ok = n, true
		}
	}
	switch stream {
	case storage.StreamBlocks:
		for _, b := range s.blocks {
			see(b.Number)
		}
	case storage.StreamTransactions:
		for _, tx := range s.txs {
			see(tx.BlockNumber)
		}
	case storage.StreamERC20Transfers:
		for _, e := range s.erc20 {
			see(e.BlockNumber)
		}
	case storage.StreamERC721Transfers:
		for _, e := range s.erc721 {
			see(e.BlockNumber)
		}
	}
	return top, ok, nil
}

func (s *session) AssetInfo(ctx context.Context, kind domain.AssetKind, asset domain.Address) (*domain.TokenInfo, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	info, ok := s.store.tokens[tokenKey{kind: kind, address: asset}]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

func (s *session) AssetInfos(ctx context.Context, kind domain.AssetKind, assets []domain.Address) (map[domain.Address]domain.TokenInfo, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	out := make(map[domain.Address]domain.TokenInfo, len(assets))
	for _, a := range assets {
		if info, ok := s.store.tokens[tokenKey{kind: kind, address: a}]; ok {
			out[a] = info
		}
	}
	return out, nil
}

func (s *session) HasTransfers(ctx context.Context, kind domain.AssetKind, asset domain.Address) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}
	for _, e := range s.transfers(kind) {
		if e.Asset == asset {
			return true, nil
		}
	}
	return false, nil
}

func (s *session) ScanBlocks(ctx context.Context, r domain.SeqRange) ([]domain.Block, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var out []domain.Block
	for _, b := range s.blocks {
		if r.Contains(b.Number) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *session) ScanTransactions(ctx context.Context, r domain.SeqRange) ([]domain.Transaction, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var out []domain.Transaction
	for _, tx := range s.txs {
		if r.Contains(tx.BlockNumber) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *session) ScanTransfers(ctx context.Context, kind domain.AssetKind, asset domain.Address, r domain.SeqRange) ([]domain.TransferEvent, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var out []domain.TransferEvent
	for _, e := range s.transfers(kind) {
		if e.Asset == asset && r.Contains(e.BlockNumber) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *session) EstimateTransactions(ctx context.Context, r domain.SeqRange) (int64, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	var total int64
	for _, b := range s.blocks {
		if r.Contains(b.Number) {
			total += int64(b.TransactionCount)
		}
	}
	return total, nil
}

func (s *session) ListTransfers(ctx context.Context, kind domain.AssetKind, f filter.TransferFilter, req page.Request) ([]domain.TransferEvent, int64, error) {
	if err := s.check(ctx); err != nil {
		return nil, 0, err
	}

	var matched []domain.TransferEvent
	for _, e := range s.transfers(kind) {
		if f.Match(e) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if c := a.Position().Compare(b.Position()); c != 0 {
			return c > 0
		}
		return a.TxHash < b.TxHash
	})

	env := page.Slice(req, matched)
	return env.Data, env.Total, nil
}

func (s *session) ListTransactions(ctx context.Context, holder domain.Address, req page.Request) ([]domain.Transaction, int64, error) {
	if err := s.check(ctx); err != nil {
		return nil, 0, err
	}

	var matched []domain.Transaction
	for _, tx := range s.txs {
		if tx.From == holder || (tx.To != nil && *tx.To == holder) {
			matched = append(matched, tx)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if c := a.Position().Compare(b.Position()); c != 0 {
			return c > 0
		}
		return a.Hash < b.Hash
	})

	env := page.Slice(req, matched)
	return env.Data, env.Total, nil
}

func (s *session) CatalogSize(ctx context.Context, kind domain.AssetKind) (int64, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	var n int64
	for k := range s.store.tokens {
		if k.kind == kind {
			n++
		}
	}
	return n, nil
}

// -----------------------------------------------------------------------------
// Iterator
// -----------------------------------------------------------------------------

type sliceIterator struct {
	ctx     context.Context
	events  []domain.TransferEvent
	pos     int
	failAt  int
	failErr error
	err     error
}

func (it *sliceIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.err = err
		return false
	}
	next := it.pos + 1
	if it.failAt >= 0 && next >= it.failAt {
		it.err = it.failErr
		return false
	}
	if next >= len(it.events) {
		return false
	}
	it.pos = next
	return true
}

func (it *sliceIterator) Event() domain.TransferEvent {
	e := it.events[it.pos]
	if e.Value != nil {
		e.Value = new(big.Int).Set(e.Value)
	}
	return e
}

func (it *sliceIterator) Err() error {
	return it.err
}

func (it *sliceIterator) Close() error {
	it.pos = len(it.events)
	return nil
}
