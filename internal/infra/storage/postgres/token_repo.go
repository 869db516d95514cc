package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/vietddude/explorer/internal/core/domain"
)

func tokenSelect(kind domain.AssetKind) string {
	if kind == domain.AssetNonFungible {
		return `SELECT address, name, symbol, NULL::SMALLINT AS decimals, total_supply FROM erc721_tokens`
	}
	return `SELECT address, name, symbol, decimals, total_supply FROM erc20_tokens`
}

type tokenRow struct {
	Address     string              `db:"address"`
	Name        sql.NullString      `db:"name"`
	Symbol      sql.NullString      `db:"symbol"`
	Decimals    sql.NullInt16       `db:"decimals"`
	TotalSupply decimal.NullDecimal `db:"total_supply"`
}

func (t *tokenRow) toDomain(kind domain.AssetKind) (domain.TokenInfo, error) {
	supply, err := toBigIntPtr("total_supply", t.TotalSupply)
	if err != nil {
		return domain.TokenInfo{}, fmt.Errorf("token %s: %w", t.Address, err)
	}

	info := domain.TokenInfo{
		Address:     domain.Address(t.Address),
		Kind:        kind,
		TotalSupply: supply,
	}
	if t.Name.Valid {
		info.Name = &t.Name.String
	}
	if t.Symbol.Valid {
		info.Symbol = &t.Symbol.String
	}
	if t.Decimals.Valid && t.Decimals.Int16 >= 0 && t.Decimals.Int16 <= 255 {
		d := uint8(t.Decimals.Int16)
		info.Decimals = &d
	}
	return info, nil
}

// AssetInfo loads one catalog row, or nil when the asset is not catalogued.
func (s *session) AssetInfo(ctx context.Context, kind domain.AssetKind, asset domain.Address) (*domain.TokenInfo, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var row tokenRow
	err := s.conn.GetContext(ctx, &row, tokenSelect(kind)+` WHERE address = $1`, string(asset))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	info, err := row.toDomain(kind)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// AssetInfos loads the catalog rows of several assets. Uncatalogued assets are absent from
// the result.
func (s *session) AssetInfos(ctx context.Context, kind domain.AssetKind, assets []domain.Address) (map[domain.Address]domain.TokenInfo, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	out := make(map[domain.Address]domain.TokenInfo, len(assets))
	if len(assets) == 0 {
		return out, nil
	}

	keys := make([]string, len(assets))
	for i, a := range assets {
		keys[i] = string(a)
	}

	var rows []tokenRow
	err := s.conn.SelectContext(ctx, &rows, tokenSelect(kind)+` WHERE address = ANY($1)`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}
	for i := range rows {
		info, err := rows[i].toDomain(kind)
		if err != nil {
			return nil, err
		}
		out[info.Address] = info
	}
	return out, nil
}

// CatalogSize counts the catalogued assets of kind.
func (s *session) CatalogSize(ctx context.Context, kind domain.AssetKind) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	table := "erc20_tokens"
	if kind == domain.AssetNonFungible {
		table = "erc721_tokens"
	}
	var n int64
	if err := s.conn.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+table); err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return n, nil
}
