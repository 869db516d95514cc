// Package recency selects the newest N items of an append-only stream without ordering the
// whole stream.
//
// The selector reads the stream's high-water mark H and scans only the block range
// (H-W, H]. W starts at ceil(N/density)+margin, where density is the minimum number of
// qualifying items per block the ingestion pipeline guarantees. If the window holds fewer
// than N items it is doubled until it reaches MaxWindow; past that one full-range scan is
// run. Only the scanned window is sorted. Because every item above H-W is in the window and
// the window is ordered by (block desc, index desc, id asc), the result does not depend on
// the initial W.
package recency

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/core/page"
	"github.com/vietddude/explorer/internal/infra/storage"
	"github.com/vietddude/explorer/internal/metrics"
	"github.com/vietddude/explorer/internal/throttle"
)

const DefaultMaxWindow = 1 << 20

// Positioned is an item with a place in the log. ID orders items sharing a position.
type Positioned interface {
	Position() domain.Position
	ID() string
}

// Source adapts one stream to the selector.
type Source[T Positioned] interface {
	// Name labels metrics and logs.
	Name() string

	// Stream is the log whose high-water mark bounds the scan.
	Stream() storage.Stream

	// Scan returns every item inside r, in any order.
	Scan(ctx context.Context, sess storage.Session, r domain.SeqRange) ([]T, error)

	// Estimate returns an approximate total for the stream. head is the high-water mark and
	// scanned the number of items in the last window. It must not aggregate the full stream.
	Estimate(ctx context.Context, sess storage.Session, head uint64, scanned int) (int64, error)
}

// Config sizes the scan window.
type Config struct {
	// Density is the guaranteed minimum number of items per block.
	Density float64 `yaml:"density"`

	// Margin is added to the computed window.
	Margin uint64 `yaml:"margin"`

	// MaxWindow bounds widening. Beyond it a full-range scan is run.
	MaxWindow uint64 `yaml:"max_window"`

	// InitialWindow overrides the computed starting window when non-zero.
	InitialWindow uint64 `yaml:"initial_window"`
}

// InitialFor returns the starting window for n items.
func (c Config) InitialFor(n int) uint64 {
	if c.InitialWindow > 0 {
		return c.InitialWindow
	}
	density := c.Density
	if density <= 0 {
		density = 1
	}
	w := uint64(math.Ceil(float64(n)/density)) + c.Margin
	if w == 0 {
		w = 1
	}
	return w
}

func (c Config) maxWindow() uint64 {
	if c.MaxWindow == 0 {
		return DefaultMaxWindow
	}
	return c.MaxWindow
}

// Selector runs bounded newest-first scans.
type Selector[T Positioned] struct {
	store  storage.EventStore
	heads  *throttle.HeadCache
	cfg    Config
	logger *slog.Logger
}

// NewSelector creates a selector. heads may be nil, in which case every call reads the
// high-water mark directly.
func NewSelector[T Positioned](store storage.EventStore, heads *throttle.HeadCache, cfg Config, logger *slog.Logger) *Selector[T] {
	if heads == nil {
		heads = throttle.NewHeadCache(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector[T]{store: store, heads: heads, cfg: cfg, logger: logger.With("component", "recency")}
}

// Latest returns the n newest items of src ordered by (block desc, index desc, id asc). The total
// in the envelope is an estimate from Source.Estimate and Estimated is always true.
func (s *Selector[T]) Latest(ctx context.Context, src Source[T], n int) (page.Envelope[T], error) {
	var empty page.Envelope[T]

	req, err := page.New(1, n)
	if err != nil {
		return empty, err
	}

	sess, err := s.store.Acquire(ctx)
	if err != nil {
		return empty, domain.WrapDependency("acquire session", err)
	}
	defer sess.Close()

	head, ok, err := s.heads.HighWaterMark(ctx, sess, src.Stream())
	if err != nil {
		return empty, domain.WrapDependency("read high-water mark", err)
	}
	if !ok {
		return page.Build[T](req, nil, 0, true), nil
	}

	items, err := s.scan(ctx, sess, src, head, n)
	if err != nil {
		return empty, err
	}

	total, err := src.Estimate(ctx, sess, head, len(items))
	if err != nil {
		return empty, domain.WrapDependency("estimate "+src.Name(), err)
	}

	sort.Slice(items, func(i, j int) bool {
		if c := items[i].Position().Compare(items[j].Position()); c != 0 {
			return c > 0
		}
		return items[i].ID() < items[j].ID()
	})
	if len(items) > n {
		items = items[:n]
	}
	if total < int64(len(items)) {
		total = int64(len(items))
	}
	return page.Build(req, items, total, true), nil
}

func (s *Selector[T]) scan(ctx context.Context, sess storage.Session, src Source[T], head uint64, n int) ([]T, error) {
	w := s.cfg.InitialFor(n)
	maxW := s.cfg.maxWindow()

	for {
		r := window(head, w)
		items, err := src.Scan(ctx, sess, r)
		if err != nil {
			return nil, domain.WrapDependency("scan "+src.Name(), err)
		}
		if len(items) >= n || r.From == nil {
			return items, nil
		}

		next := w * 2
		if next > maxW || next < w {
			metrics.FallbackScansTotal.WithLabelValues(src.Name()).Inc()
			s.logger.WarnContext(ctx, "Recency window exceeded maximum, scanning full range",
				"source", src.Name(),
				"window", w,
				"max_window", maxW,
				"found", len(items),
				"want", n,
			)
			items, err = src.Scan(ctx, sess, domain.SeqRange{To: head})
			if err != nil {
				return nil, domain.WrapDependency("scan "+src.Name(), err)
			}
			return items, nil
		}

		metrics.WindowWideningsTotal.WithLabelValues(src.Name()).Inc()
		s.logger.DebugContext(ctx, "Widening recency window", "source", src.Name(), "from", w, "to", next)
		w = next
	}
}

// window returns (head-w, head]. A window reaching past genesis has a nil lower bound.
func window(head, w uint64) domain.SeqRange {
	if w > head {
		return domain.SeqRange{To: head}
	}
	from := head - w
	return domain.SeqRange{From: &from, To: head}
}
