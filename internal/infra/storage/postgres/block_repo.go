package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/infra/storage"
)

// streamSources maps a stream to the table and column its high-water mark is read from.
var streamSources = map[storage.Stream]struct{ table, column string }{
	storage.StreamBlocks:          {"blocks", "number"},
	storage.StreamTransactions:    {"transactions", "block_number"},
	storage.StreamERC20Transfers:  {"erc20_transfers", "block_number"},
	storage.StreamERC721Transfers: {"erc721_transfers", "block_number"},
}

// HighWaterMark returns the highest block number recorded in the stream.
func (s *session) HighWaterMark(ctx context.Context, stream storage.Stream) (uint64, bool, error) {
	if err := s.check(); err != nil {
		return 0, false, err
	}
	src, ok := streamSources[stream]
	if !ok {
		return 0, false, fmt.Errorf("unknown stream %q", stream)
	}

	var top sql.NullInt64
	query := fmt.Sprintf(`SELECT MAX(%s) FROM %s`, src.column, src.table)
	if err := s.conn.GetContext(ctx, &top, query); err != nil {
		return 0, false, fmt.Errorf("failed to read high-water mark: %w", err)
	}
	if !top.Valid {
		return 0, false, nil
	}
	return uint64(top.Int64), true, nil
}

type blockRow struct {
	Number           int64               `db:"number"`
	Hash             string              `db:"hash"`
	ParentHash       string              `db:"parent_hash"`
	Timestamp        int64               `db:"timestamp"`
	Miner            string              `db:"miner"`
	GasLimit         int64               `db:"gas_limit"`
	GasUsed          int64               `db:"gas_used"`
	BaseFeePerGas    decimal.NullDecimal `db:"base_fee_per_gas"`
	TransactionCount int                 `db:"transaction_count"`
	Size             sql.NullInt64       `db:"size"`
}

func (b *blockRow) toDomain() domain.Block {
	block := domain.Block{
		Number:           uint64(b.Number),
		Hash:             b.Hash,
		ParentHash:       b.ParentHash,
		Timestamp:        uint64(b.Timestamp),
		Miner:            b.Miner,
		GasLimit:         uint64(b.GasLimit),
		GasUsed:          uint64(b.GasUsed),
		BaseFeePerGas:    toStringPtr(b.BaseFeePerGas),
		TransactionCount: b.TransactionCount,
	}
	if b.Size.Valid {
		size := uint64(b.Size.Int64)
		block.Size = &size
	}
	return block
}

// ScanBlocks returns the blocks inside r.
func (s *session) ScanBlocks(ctx context.Context, r domain.SeqRange) ([]domain.Block, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var a args
	query := `
		SELECT number, hash, parent_hash, timestamp, miner, gas_limit, gas_used,
			base_fee_per_gas, transaction_count, size
		FROM blocks
		WHERE ` + where(rangeConds("number", r, &a))

	var rows []blockRow
	if err := s.conn.SelectContext(ctx, &rows, query, a.values...); err != nil {
		return nil, fmt.Errorf("failed to scan blocks: %w", err)
	}

	out := make([]domain.Block, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// EstimateTransactions sums the recorded transaction counts of the blocks inside r.
func (s *session) EstimateTransactions(ctx context.Context, r domain.SeqRange) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	var a args
	query := `SELECT COALESCE(SUM(transaction_count), 0) FROM blocks WHERE ` + where(rangeConds("number", r, &a))

	var total int64
	if err := s.conn.GetContext(ctx, &total, query, a.values...); err != nil {
		return 0, fmt.Errorf("failed to estimate transactions: %w", err)
	}
	return total, nil
}
