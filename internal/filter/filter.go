// Package filter provides the typed transfer filter used by listing queries and its
// AIP-160 expression front end.
package filter

import (
	"fmt"
	"strings"

	"github.com/vietddude/explorer/internal/core/domain"
)

// Direction restricts a holder filter to one leg of the transfer.
type Direction string

const (
	DirectionAny Direction = ""
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// ParseDirection accepts "", "any", "in" and "out".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return DirectionAny, nil
	case "in":
		return DirectionIn, nil
	case "out":
		return DirectionOut, nil
	}
	return "", &domain.ValidationError{Field: "direction", Reason: "must be one of any, in, out"}
}

// TransferFilter narrows a transfer listing. Zero fields are unconstrained.
// Block bounds are inclusive.
type TransferFilter struct {
	Asset     *domain.Address
	Holder    *domain.Address
	Direction Direction
	From      *domain.Address
	To        *domain.Address
	FromBlock *uint64
	ToBlock   *uint64
	TxHash    *string
}

// Empty reports whether the filter matches every transfer.
func (f TransferFilter) Empty() bool {
	return f.Asset == nil && f.Holder == nil && f.From == nil && f.To == nil &&
		f.FromBlock == nil && f.ToBlock == nil && f.TxHash == nil
}

// Compile renders the filter as a SQL boolean expression with $n placeholders numbered from
// startArg. Column names are fixed; caller input only ever travels in args. An empty filter
// compiles to "TRUE".
func (f TransferFilter) Compile(startArg int) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", startArg+len(args)-1)
	}

	if f.Asset != nil {
		conds = append(conds, "token_address = "+next(string(*f.Asset)))
	}
	if f.Holder != nil {
		ph := next(string(*f.Holder))
		switch f.Direction {
		case DirectionIn:
			conds = append(conds, "to_address = "+ph)
		case DirectionOut:
			conds = append(conds, "from_address = "+ph)
		default:
			conds = append(conds, "(from_address = "+ph+" OR to_address = "+ph+")")
		}
	}
	if f.From != nil {
		conds = append(conds, "from_address = "+next(string(*f.From)))
	}
	if f.To != nil {
		conds = append(conds, "to_address = "+next(string(*f.To)))
	}
	if f.FromBlock != nil {
		conds = append(conds, "block_number >= "+next(int64(*f.FromBlock)))
	}
	if f.ToBlock != nil {
		conds = append(conds, "block_number <= "+next(int64(*f.ToBlock)))
	}
	if f.TxHash != nil {
		conds = append(conds, "transaction_hash = "+next(*f.TxHash))
	}

	if len(conds) == 0 {
		return "TRUE", nil
	}
	return strings.Join(conds, " AND "), args
}

// Match evaluates the filter against a single event. It agrees with Compile.
func (f TransferFilter) Match(e domain.TransferEvent) bool {
	if f.Asset != nil && e.Asset != *f.Asset {
		return false
	}
	if f.Holder != nil {
		switch f.Direction {
		case DirectionIn:
			if e.To != *f.Holder {
				return false
			}
		case DirectionOut:
			if e.From != *f.Holder {
				return false
			}
		default:
			if !e.Touches(*f.Holder) {
				return false
			}
		}
	}
	if f.From != nil && e.From != *f.From {
		return false
	}
	if f.To != nil && e.To != *f.To {
		return false
	}
	if f.FromBlock != nil && e.BlockNumber < *f.FromBlock {
		return false
	}
	if f.ToBlock != nil && e.BlockNumber > *f.ToBlock {
		return false
	}
	if f.TxHash != nil && e.TxHash != *f.TxHash {
		return false
	}
	return true
}
