package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/core/page"
	"github.com/vietddude/explorer/internal/filter"
	"github.com/vietddude/explorer/internal/infra/storage"
)

var (
	transferUnique = []string{"transaction_hash", "log_index"}

	// logOrder is the replay order used by the aggregators.
	logOrder = page.MustOrdering(transferUnique,
		page.Asc("block_number"),
		page.Asc("log_index"),
		page.Asc("transaction_hash"),
	)

	// newestFirst orders listings. On chain log_index is unique per block, but rows are keyed
	// by (transaction_hash, log_index), so transaction_hash closes the chain.
	newestFirst = page.MustOrdering(transferUnique,
		page.Desc("block_number"),
		page.Desc("log_index"),
		page.Asc("transaction_hash"),
	)
)

// transferTable returns the table and the column holding the value for kind. Both are
// constants; nothing from the caller reaches the SQL text.
func transferTable(kind domain.AssetKind) (table, valueCol string) {
	if kind == domain.AssetNonFungible {
		return "erc721_transfers", "token_id"
	}
	return "erc20_transfers", "value"
}

func transferSelect(kind domain.AssetKind) string {
	table, valueCol := transferTable(kind)
	return fmt.Sprintf(`
		SELECT transaction_hash, log_index, block_number, token_address, from_address, to_address,
			%s AS value
		FROM %s`, valueCol, table)
}

type transferRow struct {
	TxHash       string          `db:"transaction_hash"`
	LogIndex     int64           `db:"log_index"`
	BlockNumber  int64           `db:"block_number"`
	TokenAddress string          `db:"token_address"`
	FromAddress  string          `db:"from_address"`
	ToAddress    string          `db:"to_address"`
	Value        decimal.Decimal `db:"value"`
}

func (r *transferRow) toDomain(kind domain.AssetKind) (domain.TransferEvent, error) {
	value, err := toBigInt("value", r.Value)
	if err != nil {
		return domain.TransferEvent{}, fmt.Errorf("transfer %s/%d: %w", r.TxHash, r.LogIndex, err)
	}
	return domain.TransferEvent{
		Kind:        kind,
		Asset:       domain.Address(r.TokenAddress),
		From:        domain.Address(r.FromAddress),
		To:          domain.Address(r.ToAddress),
		Value:       value,
		BlockNumber: uint64(r.BlockNumber),
		LogIndex:    uint32(r.LogIndex),
		TxHash:      r.TxHash,
	}, nil
}

// QueryTransfers streams matching transfers in log order.
func (s *session) QueryTransfers(ctx context.Context, q storage.TransferQuery) (storage.TransferIterator, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var (
		a     args
		conds []string
	)
	_, valueCol := transferTable(q.Kind)
	if q.Asset != nil {
		conds = append(conds, "token_address = "+a.add(string(*q.Asset)))
	}
	if q.Holder != nil {
		ph := a.add(string(*q.Holder))
		conds = append(conds, "(from_address = "+ph+" OR to_address = "+ph+")")
	}
	if q.TokenID != nil {
		conds = append(conds, valueCol+" = "+a.add(numeric(q.TokenID)))
	}
	if q.Range != nil {
		conds = append(conds, rangeConds("block_number", *q.Range, &a)...)
	}

	query := transferSelect(q.Kind) + " WHERE " + where(conds) + " " + logOrder.SQL()
	rows, err := s.conn.QueryxContext(ctx, query, a.values...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	return &rowIterator{kind: q.Kind, rows: rows}, nil
}

// HasTransfers reports whether the asset appears in the transfer log.
func (s *session) HasTransfers(ctx context.Context, kind domain.AssetKind, asset domain.Address) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	table, _ := transferTable(kind)
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE token_address = $1)`, table)

	var exists bool
	if err := s.conn.GetContext(ctx, &exists, query, string(asset)); err != nil {
		return false, fmt.Errorf("failed to check transfers: %w", err)
	}
	return exists, nil
}

// ScanTransfers returns the transfers of one asset inside r.
func (s *session) ScanTransfers(ctx context.Context, kind domain.AssetKind, asset domain.Address, r domain.SeqRange) ([]domain.TransferEvent, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var a args
	conds := append([]string{"token_address = " + a.add(string(asset))}, rangeConds("block_number", r, &a)...)
	query := transferSelect(kind) + " WHERE " + where(conds)

	var rows []transferRow
	if err := s.conn.SelectContext(ctx, &rows, query, a.values...); err != nil {
		return nil, fmt.Errorf("failed to scan transfers: %w", err)
	}
	return transfersToDomain(kind, rows)
}

// ListTransfers returns one page of transfers matching f, newest first.
func (s *session) ListTransfers(ctx context.Context, kind domain.AssetKind, f filter.TransferFilter, req page.Request) ([]domain.TransferEvent, int64, error) {
	if err := s.check(); err != nil {
		return nil, 0, err
	}

	table, _ := transferTable(kind)
	clause, values := f.Compile(1)

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, table, clause)
	if err := s.conn.GetContext(ctx, &total, countQuery, values...); err != nil {
		return nil, 0, fmt.Errorf("failed to count transfers: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	query := fmt.Sprintf(`%s WHERE %s %s LIMIT $%d OFFSET $%d`,
		transferSelect(kind), clause, newestFirst.SQL(), len(values)+1, len(values)+2)
	values = append(values, req.Limit, req.Offset())

	var rows []transferRow
	if err := s.conn.SelectContext(ctx, &rows, query, values...); err != nil {
		return nil, 0, fmt.Errorf("failed to list transfers: %w", err)
	}
	events, err := transfersToDomain(kind, rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func transfersToDomain(kind domain.AssetKind, rows []transferRow) ([]domain.TransferEvent, error) {
	out := make([]domain.TransferEvent, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toDomain(kind)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// rowIterator streams transfer rows from an open cursor.
type rowIterator struct {
	kind domain.AssetKind
	rows *sqlx.Rows
	cur  domain.TransferEvent
	err  error
}

func (it *rowIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil && err != sql.ErrNoRows {
			it.err = fmt.Errorf("failed to read transfers: %w", err)
		}
		return false
	}

	var row transferRow
	if err := it.rows.StructScan(&row); err != nil {
		it.err = fmt.Errorf("failed to scan transfer: %w", err)
		return false
	}
	e, err := row.toDomain(it.kind)
	if err != nil {
		it.err = err
		return false
	}
	it.cur = e
	return true
}

func (it *rowIterator) Event() domain.TransferEvent {
	return it.cur
}

func (it *rowIterator) Err() error {
	return it.err
}

func (it *rowIterator) Close() error {
	return it.rows.Close()
}
