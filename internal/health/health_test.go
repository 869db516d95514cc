package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vietddude/explorer/internal/infra/storage"
)

// =============================================================================
// Mocks
// =============================================================================

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error { return s.err }

type stubHeads struct {
	heads map[storage.Stream]uint64
	err   error
}

func (s *stubHeads) Heads(ctx context.Context) (map[storage.Stream]uint64, error) {
	return s.heads, s.err
}

func heads(blocks, txs uint64) *stubHeads {
	return &stubHeads{heads: map[storage.Stream]uint64{
		storage.StreamBlocks:          blocks,
		storage.StreamTransactions:    txs,
		storage.StreamERC20Transfers:  blocks,
		storage.StreamERC721Transfers: blocks,
	}}
}

// =============================================================================
// Tests
// =============================================================================

func TestMonitor_Healthy(t *testing.T) {
	monitor := NewMonitor(&stubPinger{}, nil, heads(1000, 995))

	report := monitor.CheckHealth(context.Background())
	if status := Worst(report); status != StatusHealthy {
		t.Errorf("expected healthy, got %s", status)
	}
	if report["transactions"].Lag != 5 {
		t.Errorf("expected lag 5, got %d", report["transactions"].Lag)
	}
	if _, ok := report["cache"]; ok {
		t.Error("expected no cache component")
	}
}

func TestMonitor_Degraded(t *testing.T) {
	monitor := NewMonitor(&stubPinger{}, nil, heads(1000, 950))

	if status := Worst(monitor.CheckHealth(context.Background())); status != StatusDegraded {
		t.Errorf("expected degraded, got %s", status)
	}
}

func TestMonitor_CacheDown(t *testing.T) {
	monitor := NewMonitor(&stubPinger{}, &stubPinger{err: errors.New("refused")}, heads(10, 10))

	report := monitor.CheckHealth(context.Background())
	if report["cache"].Status != StatusDegraded {
		t.Errorf("expected degraded cache, got %s", report["cache"].Status)
	}
}

func TestMonitor_Critical(t *testing.T) {
	monitor := NewMonitor(&stubPinger{}, nil, heads(1000, 800))

	if status := Worst(monitor.CheckHealth(context.Background())); status != StatusCritical {
		t.Errorf("expected critical, got %s", status)
	}
}

func TestHandler_StoreDown(t *testing.T) {
	monitor := NewMonitor(&stubPinger{err: errors.New("connection refused")}, nil, heads(1, 1))
	h := NewHandler(monitor)

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestMonitor_ReusesRecentReport(t *testing.T) {
	store := &stubPinger{}
	monitor := NewMonitor(store, nil, heads(5, 5))

	first := monitor.CheckHealth(context.Background())
	store.err = errors.New("down")
	second := monitor.CheckHealth(context.Background())

	if first["store"].Status != second["store"].Status {
		t.Error("expected cached report within interval")
	}
}
