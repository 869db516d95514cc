package throttle

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/vietddude/explorer/internal/infra/storage"
	"github.com/vietddude/explorer/internal/metrics"
)

// HeadReader reads the high-water mark of a stream. storage.Session satisfies it.
type HeadReader interface {
	HighWaterMark(ctx context.Context, stream storage.Stream) (uint64, bool, error)
}

type head struct {
	seq      uint64
	ok       bool
	cachedAt time.Time
}

// HeadCache caches per-stream high-water marks to avoid a MAX() query on every read.
// Values may lag the store by at most ttl. A lagging mark still names a prefix of the
// log, so results computed against it are consistent, only older.
type HeadCache struct {
	ttl   time.Duration
	heads *xsync.Map[storage.Stream, head]
}

// NewHeadCache creates a new head cache with the given TTL. A zero TTL disables caching.
func NewHeadCache(ttl time.Duration) *HeadCache {
	return &HeadCache{
		ttl:   ttl,
		heads: xsync.NewMap[storage.Stream, head](),
	}
}

// HighWaterMark returns the cached mark if within TTL, otherwise reads it through r.
func (c *HeadCache) HighWaterMark(ctx context.Context, r HeadReader, stream storage.Stream) (uint64, bool, error) {
	if c.ttl > 0 {
		if h, ok := c.heads.Load(stream); ok && time.Since(h.cachedAt) < c.ttl {
			return h.seq, h.ok, nil
		}
	}

	seq, ok, err := r.HighWaterMark(ctx, stream)
	if err != nil {
		return 0, false, err
	}
	if ok {
		metrics.StreamHighWaterMark.WithLabelValues(string(stream)).Set(float64(seq))
	}

	c.heads.Store(stream, head{seq: seq, ok: ok, cachedAt: time.Now()})
	return seq, ok, nil
}

// Invalidate clears one stream, forcing the next call to read fresh data.
func (c *HeadCache) Invalidate(stream storage.Stream) {
	c.heads.Delete(stream)
}

// Bound binds the cache to a reader so it can be passed where a HeadReader is expected.
func (c *HeadCache) Bound(r HeadReader) HeadReader {
	return boundCache{cache: c, reader: r}
}

type boundCache struct {
	cache  *HeadCache
	reader HeadReader
}

func (b boundCache) HighWaterMark(ctx context.Context, stream storage.Stream) (uint64, bool, error) {
	return b.cache.HighWaterMark(ctx, b.reader, stream)
}
