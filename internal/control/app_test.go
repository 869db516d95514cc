package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vietddude/explorer/internal/core/config"
	"github.com/vietddude/explorer/internal/infra/storage/memory"
)

func TestNewApp_MemoryStore(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Enabled = false

	app, err := NewApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer app.Close()

	if _, ok := app.Store().(*memory.MemoryStorage); !ok {
		t.Fatalf("expected memory store, got %T", app.Store())
	}

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /health, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/blocks/latest", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /api/blocks/latest, got %d", rec.Code)
	}
}

func TestNewApp_UnreachableCacheIsSkipped(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Enabled = true
	cfg.Redis.URL = "not a url"

	app, err := NewApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer app.Close()

	if app.redis != nil {
		t.Error("expected cache to be disabled")
	}
}
