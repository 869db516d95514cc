package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/explorer/internal/infra/storage"
)

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HeadSource reports the high-water mark of every non-empty stream.
type HeadSource interface {
	Heads(ctx context.Context) (map[storage.Stream]uint64, error)
}

// Thresholds on how far a stream may trail the blocks stream.
const (
	DegradedLag = 10
	CriticalLag = 100
)

var derivedStreams = []storage.Stream{
	storage.StreamTransactions,
	storage.StreamERC20Transfers,
	storage.StreamERC721Transfers,
}

// Monitor aggregates health status from the store, the optional cache and the stream heads.
type Monitor struct {
	store      Pinger
	cache      Pinger
	heads      HeadSource
	interval   time.Duration
	lastCheck  time.Time
	lastReport map[string]ComponentHealth
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. cache may be nil.
func NewMonitor(store Pinger, cache Pinger, heads HeadSource) *Monitor {
	return &Monitor{
		store:      store,
		cache:      cache,
		heads:      heads,
		interval:   10 * time.Second,
		lastReport: make(map[string]ComponentHealth),
	}
}

// CheckHealth checks every component. Results are reused for a short interval.
func (m *Monitor) CheckHealth(ctx context.Context) map[string]ComponentHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < m.interval && len(m.lastReport) > 0 {
		return m.lastReport
	}

	report := make(map[string]ComponentHealth)

	store := ComponentHealth{Name: "store", Status: StatusHealthy}
	if err := m.store.Ping(ctx); err != nil {
		store.Status = StatusCritical
		store.Error = err.Error()
	}
	report[store.Name] = store

	if m.cache != nil {
		cache := ComponentHealth{Name: "cache", Status: StatusHealthy}
		if err := m.cache.Ping(ctx); err != nil {
			cache.Status = StatusDegraded
			cache.Error = err.Error()
		}
		report[cache.Name] = cache
	}

	if store.Status != StatusCritical {
		for name, c := range m.streams(ctx) {
			report[name] = c
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}

// streams reports each stream's head and how far it trails the blocks stream.
func (m *Monitor) streams(ctx context.Context) map[string]ComponentHealth {
	out := make(map[string]ComponentHealth)

	heads, err := m.heads.Heads(ctx)
	if err != nil {
		out["streams"] = ComponentHealth{Name: "streams", Status: StatusDegraded, Error: err.Error()}
		return out
	}

	tip, hasTip := heads[storage.StreamBlocks]
	if hasTip {
		out[string(storage.StreamBlocks)] = ComponentHealth{Name: string(storage.StreamBlocks), Status: StatusHealthy, Head: &tip}
	}

	for _, stream := range derivedStreams {
		c := ComponentHealth{Name: string(stream), Status: StatusHealthy}
		head, ok := heads[stream]
		if ok {
			c.Head = &head
		}
		if ok && hasTip && tip > head {
			c.Lag = tip - head
		}

		if c.Lag > CriticalLag {
			c.Status = StatusCritical
		} else if c.Lag > DegradedLag {
			c.Status = StatusDegraded
		}
		out[c.Name] = c
	}
	return out
}
