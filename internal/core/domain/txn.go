package domain

// TxStatus is the execution outcome recorded in the receipt.
type TxStatus string

const (
	TxStatusSuccess TxStatus = "success"
	TxStatusFailed  TxStatus = "failed"
	TxStatusUnknown TxStatus = "unknown"
)

// Transaction represents a stored transaction. Optional receipt fields are pointers.
type Transaction struct {
	Hash             string
	BlockNumber      uint64
	TransactionIndex uint32
	From             Address
	To               *Address
	Value            string
	Gas              uint64
	GasUsed          *uint64
	GasPrice         *string
	Nonce            uint64
	Status           TxStatus
	Timestamp        uint64
	MethodID         *string
}

// Position places the transaction in the recency order.
func (t Transaction) Position() Position {
	return Position{Block: t.BlockNumber, Index: t.TransactionIndex}
}

func (t Transaction) ID() string {
	return t.Hash
}
