package postgres

import (
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vietddude/explorer/internal/core/domain"
)

func TestToBigInt(t *testing.T) {
	d := decimal.RequireFromString("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	v, err := toBigInt("value", d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.String() != d.String() {
		t.Errorf("expected %s, got %s", d.String(), v.String())
	}

	if _, err := toBigInt("value", decimal.RequireFromString("1.5")); err == nil {
		t.Error("expected error for fractional value")
	}
}

func TestToBigIntPtr_Null(t *testing.T) {
	v, err := toBigIntPtr("total_supply", decimal.NullDecimal{})
	if err != nil || v != nil {
		t.Errorf("expected nil, nil; got %v, %v", v, err)
	}
}

func TestRangeConds(t *testing.T) {
	var a args
	conds := rangeConds("block_number", domain.SeqRange{To: 10}, &a)
	if got := where(conds); got != "block_number <= $1" {
		t.Errorf("unexpected clause %q", got)
	}

	from := uint64(4)
	conds = rangeConds("number", domain.SeqRange{From: &from, To: 10}, &a)
	if got := where(conds); got != "number <= $2 AND number > $3" {
		t.Errorf("unexpected clause %q", got)
	}
	if len(a.values) != 3 || a.values[2] != int64(4) {
		t.Errorf("unexpected args %v", a.values)
	}
}

func TestOrderings(t *testing.T) {
	if got := logOrder.SQL(); got != "ORDER BY block_number ASC, log_index ASC, transaction_hash ASC" {
		t.Errorf("unexpected log order %q", got)
	}
	if got := newestFirst.SQL(); got != "ORDER BY block_number DESC, log_index DESC, transaction_hash ASC" {
		t.Errorf("unexpected listing order %q", got)
	}
	if got := txNewestFirst.SQL(); got != "ORDER BY t.block_number DESC, t.transaction_index DESC, t.hash ASC" {
		t.Errorf("unexpected transaction order %q", got)
	}
}

func TestTransferRowToDomain(t *testing.T) {
	row := transferRow{
		TxHash:       "0xabc",
		LogIndex:     3,
		BlockNumber:  12,
		TokenAddress: "0x00000000000000000000000000000000000000aa",
		FromAddress:  "0x0000000000000000000000000000000000000000",
		ToAddress:    "0x0000000000000000000000000000000000000001",
		Value:        decimal.NewFromInt(42),
	}
	e, err := row.toDomain(domain.AssetNonFungible)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Kind != domain.AssetNonFungible || e.Value.Int64() != 42 || e.Position() != (domain.Position{Block: 12, Index: 3}) {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestTxRowToDomain(t *testing.T) {
	row := txRow{
		Hash:        "0x01",
		BlockNumber: 5,
		FromAddress: "0x0000000000000000000000000000000000000001",
		Value:       decimal.Zero,
		Status:      sql.NullInt16{Int16: 0, Valid: true},
		Input:       "0xa9059cbb000000",
	}
	tx := row.toDomain()
	if tx.Status != domain.TxStatusFailed {
		t.Errorf("expected failed status, got %s", tx.Status)
	}
	if tx.To != nil {
		t.Error("expected contract creation to have no recipient")
	}
	if tx.MethodID == nil || *tx.MethodID != "0xa9059cbb" {
		t.Errorf("unexpected method id %v", tx.MethodID)
	}

	row.Status = sql.NullInt16{}
	row.Input = "0x"
	tx = row.toDomain()
	if tx.Status != domain.TxStatusUnknown || tx.MethodID != nil {
		t.Errorf("unexpected %+v", tx)
	}
}

func TestTokenRowToDomain(t *testing.T) {
	row := tokenRow{
		Address:  "0x00000000000000000000000000000000000000aa",
		Symbol:   sql.NullString{String: "USDC", Valid: true},
		Decimals: sql.NullInt16{Int16: 6, Valid: true},
	}
	info, err := row.toDomain(domain.AssetFungible)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Name != nil || info.Symbol == nil || *info.Symbol != "USDC" || info.Decimals == nil || *info.Decimals != 6 {
		t.Errorf("unexpected info %+v", info)
	}
	if info.TotalSupply != nil {
		t.Error("expected nil supply")
	}
}
