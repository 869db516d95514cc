// Package query is the read facade used by the HTTP API and the CLI. It composes the
// aggregators and recency selectors, applies the per-call deadline, records metrics and
// optionally serves results from a cache keyed by the stream high-water mark.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/explorer/internal/aggregation/balance"
	"github.com/vietddude/explorer/internal/aggregation/ownership"
	"github.com/vietddude/explorer/internal/aggregation/recency"
	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/infra/storage"
	"github.com/vietddude/explorer/internal/metrics"
	"github.com/vietddude/explorer/internal/throttle"
)

// Cache stores JSON-encodable results. The Redis client satisfies it.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Config holds the service settings.
type Config struct {
	Timeout        time.Duration
	CacheTTL       time.Duration
	HeadTTL        time.Duration
	EstimateWindow uint64
	Blocks         recency.Config
	Transactions   recency.Config
	Transfers      recency.Config
}

// Service answers explorer queries. It is safe for concurrent use.
type Service struct {
	store  storage.EventStore
	heads  *throttle.HeadCache
	cache  Cache
	cfg    Config
	logger *slog.Logger

	balances  *balance.Aggregator
	ownership *ownership.Aggregator
	blocks    *recency.Selector[domain.Block]
	txs       *recency.Selector[domain.Transaction]
	transfers *recency.Selector[domain.TransferEvent]
}

// NewService creates the service. cache may be nil, in which case every read recomputes.
func NewService(store storage.EventStore, cache Cache, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	heads := throttle.NewHeadCache(cfg.HeadTTL)

	return &Service{
		store:     store,
		heads:     heads,
		cache:     cache,
		cfg:       cfg,
		logger:    logger.With("component", "query"),
		balances:  balance.New(store, logger),
		ownership: ownership.New(store, logger),
		blocks:    recency.NewSelector[domain.Block](store, heads, cfg.Blocks, logger),
		txs:       recency.NewSelector[domain.Transaction](store, heads, cfg.Transactions, logger),
		transfers: recency.NewSelector[domain.TransferEvent](store, heads, cfg.Transfers, logger),
	}
}

// Heads returns the high-water mark of every stream. Empty streams are absent.
func (s *Service) Heads(ctx context.Context) (map[storage.Stream]uint64, error) {
	ctx, done := s.begin(ctx, "heads")
	out, err := s.readHeads(ctx)
	done(err)
	return out, err
}

func (s *Service) readHeads(ctx context.Context) (map[storage.Stream]uint64, error) {
	sess, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, domain.WrapDependency("acquire session", err)
	}
	defer sess.Close()

	out := make(map[storage.Stream]uint64)
	for _, stream := range storage.Streams {
		seq, ok, err := s.heads.HighWaterMark(ctx, sess, stream)
		if err != nil {
			return nil, domain.WrapDependency("read high-water mark", err)
		}
		if ok {
			out[stream] = seq
		}
	}
	return out, nil
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// begin applies the call deadline and returns a completion func that records latency and
// the error class.
func (s *Service) begin(ctx context.Context, op string) (context.Context, func(error)) {
	start := time.Now()
	cancel := context.CancelFunc(func() {})
	if s.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return ctx, func(err error) {
		cancel()
		metrics.QueryLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.QueryErrorsTotal.WithLabelValues(op, errorClass(err)).Inc()
			if errors.Is(err, domain.ErrDependency) {
				s.logger.ErrorContext(ctx, "Query failed", "op", op, "error", err)
			}
		}
	}
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrDependency):
		return "dependency"
	default:
		return "internal"
	}
}

// cached serves fn from the cache under (op, params, high-water mark of stream). Without a
// cache, or when the stream is empty, fn runs directly. Cache failures fall back to fn.
func cached[T any](ctx context.Context, s *Service, op string, stream storage.Stream, params string, fn func(context.Context) (T, error)) (T, error) {
	if s.cache == nil {
		return fn(ctx)
	}

	head, ok, err := s.head(ctx, stream)
	if err != nil {
		var zero T
		return zero, err
	}
	if !ok {
		return fn(ctx)
	}

	key := fmt.Sprintf("%s:%s:%d", op, params, head)
	var v T
	found, err := s.cache.Get(ctx, key, &v)
	switch {
	case err != nil:
		metrics.CacheRequestsTotal.WithLabelValues("error").Inc()
		s.logger.WarnContext(ctx, "Cache read failed", "key", key, "error", err)
	case found:
		metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return v, nil
	default:
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
	}

	v, err = fn(ctx)
	if err != nil {
		return v, err
	}
	if err := s.cache.Set(ctx, key, v, s.cfg.CacheTTL); err != nil {
		s.logger.WarnContext(ctx, "Cache write failed", "key", key, "error", err)
	}
	return v, nil
}

func (s *Service) head(ctx context.Context, stream storage.Stream) (uint64, bool, error) {
	sess, err := s.store.Acquire(ctx)
	if err != nil {
		return 0, false, domain.WrapDependency("acquire session", err)
	}
	defer sess.Close()

	seq, ok, err := s.heads.HighWaterMark(ctx, sess, stream)
	if err != nil {
		return 0, false, domain.WrapDependency("read high-water mark", err)
	}
	return seq, ok, nil
}
