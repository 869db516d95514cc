package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/infra/storage"
)

// Store implements storage.EventStore over a PostgreSQL pool.
type Store struct {
	db *DB
}

// NewStore creates a new PostgreSQL event store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Health(ctx)
}

// Acquire borrows one connection from the pool for the lifetime of the session.
func (s *Store) Acquire(ctx context.Context) (storage.Session, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &session{conn: conn}, nil
}

type session struct {
	conn   *sqlx.Conn
	closed atomic.Bool
}

func (s *session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.conn.Close()
}

func (s *session) check() error {
	if s.closed.Load() {
		return storage.ErrSessionClosed
	}
	return nil
}

// args collects positional parameters and hands out their $n placeholders.
type args struct {
	values []any
}

func (a *args) add(v any) string {
	a.values = append(a.values, v)
	return fmt.Sprintf("$%d", len(a.values))
}

// where joins conditions with AND. No conditions yields "TRUE".
func where(conds []string) string {
	if len(conds) == 0 {
		return "TRUE"
	}
	return strings.Join(conds, " AND ")
}

// rangeConds renders (From, To] on col.
func rangeConds(col string, r domain.SeqRange, a *args) []string {
	conds := []string{col + " <= " + a.add(int64(r.To))}
	if r.From != nil {
		conds = append(conds, col+" > "+a.add(int64(*r.From)))
	}
	return conds
}
