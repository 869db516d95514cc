package domain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Address is a lowercase, 0x-prefixed 20-byte hex account or contract address.
type Address string

// ZeroAddress is the mint/burn sentinel. It never appears as a holder or owner.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates s and returns its canonical lowercase form.
func ParseAddress(field, s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", &ValidationError{Field: field, Reason: "address must be 0x-prefixed"}
	}
	if !common.IsHexAddress(s) {
		return "", &ValidationError{Field: field, Reason: "malformed address"}
	}
	return Address(strings.ToLower(common.HexToAddress(s).Hex())), nil
}

// IsZero reports whether a is the mint/burn sentinel.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) String() string {
	return string(a)
}

// ParseTokenID parses a decimal token id. Token ids are arbitrary precision and non-negative.
func ParseTokenID(field, s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &ValidationError{Field: field, Reason: "token id is required"}
	}
	id, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, &ValidationError{Field: field, Reason: "token id must be a decimal integer"}
	}
	if id.Sign() < 0 {
		return nil, &ValidationError{Field: field, Reason: "token id must not be negative"}
	}
	return id, nil
}

// ParseTxHash validates a 32-byte transaction hash and lowercases it.
func ParseTxHash(field, s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2+2*common.HashLength || !strings.HasPrefix(s, "0x") {
		return "", &ValidationError{Field: field, Reason: "malformed transaction hash"}
	}
	if common.HexToHash(s).Hex() != s {
		return "", &ValidationError{Field: field, Reason: "malformed transaction hash"}
	}
	return s, nil
}
