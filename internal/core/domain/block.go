package domain

// Block is a finalized block header as stored by the ingestion pipeline.
type Block struct {
	Number           uint64
	Hash             string
	ParentHash       string
	Timestamp        uint64
	Miner            string
	GasLimit         uint64
	GasUsed          uint64
	BaseFeePerGas    *string
	TransactionCount int
	Size             *uint64
}

// Position places the block in the recency order. One block per height.
func (b Block) Position() Position {
	return Position{Block: b.Number}
}

func (b Block) ID() string {
	return b.Hash
}
