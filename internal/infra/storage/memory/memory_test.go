package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/core/page"
	"github.com/vietddude/explorer/internal/filter"
	"github.com/vietddude/explorer/internal/infra/storage"
)

const (
	token = domain.Address("0x00000000000000000000000000000000000000aa")
	alice = domain.Address("0x0000000000000000000000000000000000000001")
	bob   = domain.Address("0x0000000000000000000000000000000000000002")
)

func transfer(block uint64, idx uint32, from, to domain.Address, v int64) domain.TransferEvent {
	return domain.TransferEvent{
		Kind: domain.AssetFungible, Asset: token, From: from, To: to,
		Value: big.NewInt(v), BlockNumber: block, LogIndex: idx,
		TxHash: "0xtx" + big.NewInt(int64(block)).String(),
	}
}

func TestQueryTransfers_Ordered(t *testing.T) {
	s := NewMemoryStorage()
	s.AddTransfers(
		transfer(3, 0, alice, bob, 1),
		transfer(1, 2, domain.ZeroAddress, alice, 10),
		transfer(1, 1, domain.ZeroAddress, bob, 5),
	)

	sess, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer sess.Close()

	asset := token
	it, err := sess.QueryTransfers(context.Background(), storage.TransferQuery{Kind: domain.AssetFungible, Asset: &asset})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	events, err := storage.Drain(it)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if !events[i-1].Position().Less(events[i].Position()) {
			t.Errorf("events out of order at %d", i)
		}
	}
}

func TestQueryTransfers_HolderScope(t *testing.T) {
	s := NewMemoryStorage()
	s.AddTransfers(
		transfer(1, 0, domain.ZeroAddress, alice, 10),
		transfer(2, 0, domain.ZeroAddress, bob, 10),
	)

	sess, _ := s.Acquire(context.Background())
	defer sess.Close()

	holder := alice
	it, _ := sess.QueryTransfers(context.Background(), storage.TransferQuery{Kind: domain.AssetFungible, Holder: &holder})
	events, _ := storage.Drain(it)
	if len(events) != 1 || events[0].To != alice {
		t.Fatalf("expected only alice's transfer, got %+v", events)
	}
}

func TestSession_SnapshotPrefix(t *testing.T) {
	s := NewMemoryStorage()
	s.AddTransfers(transfer(1, 0, domain.ZeroAddress, alice, 10))

	sess, _ := s.Acquire(context.Background())
	defer sess.Close()

	s.AddTransfers(transfer(2, 0, domain.ZeroAddress, alice, 10))

	hwm, ok, err := sess.HighWaterMark(context.Background(), storage.StreamERC20Transfers)
	if err != nil || !ok {
		t.Fatalf("unexpected: ok=%v err=%v", ok, err)
	}
	if hwm != 1 {
		t.Errorf("session must not see later appends, got hwm %d", hwm)
	}
}

func TestSession_CloseAccounting(t *testing.T) {
	s := NewMemoryStorage()
	sess, _ := s.Acquire(context.Background())
	if s.OpenSessions() != 1 {
		t.Fatalf("expected 1 open session, got %d", s.OpenSessions())
	}
	sess.Close()
	sess.Close()
	if s.OpenSessions() != 0 {
		t.Fatalf("expected 0 open sessions, got %d", s.OpenSessions())
	}

	if _, _, err := sess.HighWaterMark(context.Background(), storage.StreamBlocks); !errors.Is(err, storage.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestFailureInjection(t *testing.T) {
	s := NewMemoryStorage()
	s.AddTransfers(
		transfer(1, 0, domain.ZeroAddress, alice, 10),
		transfer(2, 0, domain.ZeroAddress, alice, 10),
	)
	boom := errors.New("boom")

	s.FailAcquire(boom)
	if _, err := s.Acquire(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected acquire failure, got %v", err)
	}
	s.FailAcquire(nil)

	s.FailIterators(1, boom)
	sess, _ := s.Acquire(context.Background())
	defer sess.Close()
	it, err := sess.QueryTransfers(context.Background(), storage.TransferQuery{Kind: domain.AssetFungible})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	events, err := storage.Drain(it)
	if !errors.Is(err, boom) {
		t.Fatalf("expected iterator failure, got %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event before failure, got %d", len(events))
	}
}

func TestListTransfers_NewestFirst(t *testing.T) {
	s := NewMemoryStorage()
	for b := uint64(1); b <= 5; b++ {
		s.AddTransfers(transfer(b, 0, domain.ZeroAddress, alice, 1))
	}

	sess, _ := s.Acquire(context.Background())
	defer sess.Close()

	req, _ := page.New(1, 2)
	from := uint64(2)
	rows, total, err := sess.ListTransfers(context.Background(), domain.AssetFungible, filter.TransferFilter{FromBlock: &from}, req)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 4 {
		t.Errorf("expected total 4, got %d", total)
	}
	if len(rows) != 2 || rows[0].BlockNumber != 5 || rows[1].BlockNumber != 4 {
		t.Errorf("unexpected page: %+v", rows)
	}
}

func TestEstimateTransactions(t *testing.T) {
	s := NewMemoryStorage()
	s.AddBlocks(
		domain.Block{Number: 1, TransactionCount: 3},
		domain.Block{Number: 2, TransactionCount: 4},
		domain.Block{Number: 3, TransactionCount: 5},
	)
	sess, _ := s.Acquire(context.Background())
	defer sess.Close()

	from := uint64(1)
	n, err := sess.EstimateTransactions(context.Background(), domain.SeqRange{From: &from, To: 3})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if n != 9 {
		t.Errorf("expected 9, got %d", n)
	}
}
