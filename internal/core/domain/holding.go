package domain

import "math/big"

// TokenInfo is a catalog row. Fields the catalog may lack are pointers; display defaults
// are applied by the HTTP formatter, not here.
type TokenInfo struct {
	Address     Address
	Kind        AssetKind
	Name        *string
	Symbol      *string
	Decimals    *uint8
	TotalSupply *big.Int
}

// HolderBalance is a derived fungible balance of one holder.
type HolderBalance struct {
	Holder  Address
	Balance *big.Int
}

// AssetBalance is a derived fungible balance of one asset for a fixed holder.
type AssetBalance struct {
	Asset   Address
	Balance *big.Int
}

// TokenOwner is the derived current owner of a non-fungible token.
type TokenOwner struct {
	Asset   Address
	TokenID *big.Int
	Owner   Address
}
