package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/core/page"
)

const txColumns = `t.hash, t.block_number, t.transaction_index, t.from_address, t.to_address, t.value,
			t.gas, t.gas_used, t.gas_price, t.nonce, t.status, t.input, b.timestamp`

// txNewestFirst orders a holder's transactions. hash is unique.
var txNewestFirst = page.MustOrdering([]string{"t.hash"},
	page.Desc("t.block_number"),
	page.Desc("t.transaction_index"),
	page.Asc("t.hash"),
)

type txRow struct {
	Hash             string              `db:"hash"`
	BlockNumber      int64               `db:"block_number"`
	TransactionIndex int64               `db:"transaction_index"`
	FromAddress      string              `db:"from_address"`
	ToAddress        sql.NullString      `db:"to_address"`
	Value            decimal.Decimal     `db:"value"`
	Gas              int64               `db:"gas"`
	GasUsed          sql.NullInt64       `db:"gas_used"`
	GasPrice         decimal.NullDecimal `db:"gas_price"`
	Nonce            int64               `db:"nonce"`
	Status           sql.NullInt16       `db:"status"`
	Input            string              `db:"input"`
	Timestamp        sql.NullInt64       `db:"timestamp"`
}

func (t *txRow) toDomain() domain.Transaction {
	tx := domain.Transaction{
		Hash:             t.Hash,
		BlockNumber:      uint64(t.BlockNumber),
		TransactionIndex: uint32(t.TransactionIndex),
		From:             domain.Address(t.FromAddress),
		Value:            t.Value.String(),
		Gas:              uint64(t.Gas),
		GasPrice:         toStringPtr(t.GasPrice),
		Nonce:            uint64(t.Nonce),
		Status:           txStatus(t.Status),
		Timestamp:        uint64(t.Timestamp.Int64),
	}
	if t.ToAddress.Valid {
		to := domain.Address(t.ToAddress.String)
		tx.To = &to
	}
	if t.GasUsed.Valid {
		used := uint64(t.GasUsed.Int64)
		tx.GasUsed = &used
	}
	// 0x plus the 4-byte selector
	if len(t.Input) >= 10 {
		method := t.Input[:10]
		tx.MethodID = &method
	}
	return tx
}

func txStatus(s sql.NullInt16) domain.TxStatus {
	switch {
	case !s.Valid:
		return domain.TxStatusUnknown
	case s.Int16 == 1:
		return domain.TxStatusSuccess
	default:
		return domain.TxStatusFailed
	}
}

// ScanTransactions returns the transactions of the blocks inside r, with the block timestamp.
func (s *session) ScanTransactions(ctx context.Context, r domain.SeqRange) ([]domain.Transaction, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var a args
	query := `
		SELECT ` + txColumns + `
		FROM transactions t
		LEFT JOIN blocks b ON b.number = t.block_number
		WHERE ` + where(rangeConds("t.block_number", r, &a))

	var rows []txRow
	if err := s.conn.SelectContext(ctx, &rows, query, a.values...); err != nil {
		return nil, fmt.Errorf("failed to scan transactions: %w", err)
	}

	out := make([]domain.Transaction, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// ListTransactions returns one page of the holder's transactions, newest first, with the
// exact count.
func (s *session) ListTransactions(ctx context.Context, holder domain.Address, req page.Request) ([]domain.Transaction, int64, error) {
	if err := s.check(); err != nil {
		return nil, 0, err
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions WHERE from_address = $1 OR to_address = $1`
	if err := s.conn.GetContext(ctx, &total, countQuery, string(holder)); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	query := `
		SELECT ` + txColumns + `
		FROM transactions t
		LEFT JOIN blocks b ON b.number = t.block_number
		WHERE t.from_address = $1 OR t.to_address = $1
		` + txNewestFirst.SQL() + `
		LIMIT $2 OFFSET $3`

	var rows []txRow
	if err := s.conn.SelectContext(ctx, &rows, query, string(holder), req.Limit, req.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	out := make([]domain.Transaction, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, total, nil
}
