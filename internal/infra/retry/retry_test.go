package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err    error
		expect ErrorAction
	}{
		{&pgconn.PgError{Code: "28P01"}, ActionFatal},
		{&pgconn.PgError{Code: "3D000"}, ActionFatal},
		{&pgconn.PgError{Code: "42P01"}, ActionFatal},
		{&pgconn.PgError{Code: "57P03"}, ActionRetry},
		{&pq.Error{Code: "28000"}, ActionFatal},
		{&pq.Error{Code: "08006"}, ActionRetry},
		{errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), ActionRetry},
		{errors.New("password authentication failed for user"), ActionFatal},
		{context.Canceled, ActionFatal},
		{errors.New("timeout"), ActionRetry},
	}

	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.expect {
			t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	cfg := Config{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffMultiple: 2}

	calls := 0
	err := Do(context.Background(), cfg, nil, "connect", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_StopsOnFatal(t *testing.T) {
	cfg := Config{MaxAttempts: 5, InitialDelay: time.Millisecond}
	fatal := &pgconn.PgError{Code: "28P01"}

	calls := 0
	err := Do(context.Background(), cfg, nil, "connect", func(ctx context.Context) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_GivesUp(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Millisecond}

	calls := 0
	err := Do(context.Background(), cfg, nil, "connect", func(ctx context.Context) error {
		calls++
		return errors.New("timeout")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestBackoff_Capped(t *testing.T) {
	cfg := Config{InitialDelay: time.Second, MaxDelay: 4 * time.Second, BackoffMultiple: 2}
	if d := Backoff(cfg, 1); d != time.Second {
		t.Errorf("attempt 1: expected 1s, got %v", d)
	}
	if d := Backoff(cfg, 10); d != 4*time.Second {
		t.Errorf("attempt 10: expected cap 4s, got %v", d)
	}
}
