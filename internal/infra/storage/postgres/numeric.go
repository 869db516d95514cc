package postgres

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// toBigInt converts a NUMERIC column to an integer. Fractional values are rejected rather
// than truncated.
func toBigInt(column string, d decimal.Decimal) (*big.Int, error) {
	if !d.Equal(d.Truncate(0)) {
		return nil, fmt.Errorf("non-integral %s value %s", column, d.String())
	}
	return d.BigInt(), nil
}

func toBigIntPtr(column string, d decimal.NullDecimal) (*big.Int, error) {
	if !d.Valid {
		return nil, nil
	}
	return toBigInt(column, d.Decimal)
}

func toStringPtr(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func numeric(v *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(v, 0)
}
