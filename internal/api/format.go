package api

import (
	"strconv"

	"github.com/vietddude/explorer/internal/aggregation/balance"
	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/core/page"
	"github.com/vietddude/explorer/internal/query"
)

// Display defaults for catalog fields the indexer could not read.
const (
	defaultTokenName = "Unknown Token"
	defaultNFTName   = "Unknown NFT"
	defaultSymbol    = "???"
	defaultDecimals  = 18
)

type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
	Estimated  bool  `json:"estimated"`
}

type pagedResponse[T any] struct {
	Data       []T                       `json:"data"`
	Pagination pagination                `json:"pagination"`
	Token      *tokenDTO                 `json:"token,omitempty"`
	Warnings   []domain.IntegrityWarning `json:"warnings,omitempty"`
}

type latestResponse[T any] struct {
	Data      []T   `json:"data"`
	Count     int64 `json:"count"`
	Estimated bool  `json:"estimated"`
}

func paged[T, U any](env page.Envelope[T], fn func(T) U) pagedResponse[U] {
	out := page.Map(env, fn)
	return pagedResponse[U]{
		Data: out.Data,
		Pagination: pagination{
			Page:       out.Page,
			Limit:      out.Limit,
			Total:      out.Total,
			TotalPages: out.TotalPages,
			Estimated:  out.Estimated,
		},
		Warnings: out.Warnings,
	}
}

func latest[T, U any](env page.Envelope[T], fn func(T) U) latestResponse[U] {
	out := page.Map(env, fn)
	return latestResponse[U]{Data: out.Data, Count: out.Total, Estimated: out.Estimated}
}

type tokenDTO struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    *int   `json:"decimals,omitempty"`
	TotalSupply string `json:"totalSupply"`
	TokenType   string `json:"tokenType"`
	HolderCount *int64 `json:"holderCount,omitempty"`
}

func formatToken(info domain.TokenInfo) tokenDTO {
	dto := tokenDTO{
		Address:     string(info.Address),
		Name:        defaultTokenName,
		Symbol:      defaultSymbol,
		TotalSupply: "0",
		TokenType:   info.Kind.Standard(),
	}
	if info.Kind == domain.AssetNonFungible {
		dto.Name = defaultNFTName
	} else {
		d := defaultDecimals
		if info.Decimals != nil {
			d = int(*info.Decimals)
		}
		dto.Decimals = &d
	}
	if info.Name != nil && *info.Name != "" {
		dto.Name = *info.Name
	}
	if info.Symbol != nil && *info.Symbol != "" {
		dto.Symbol = *info.Symbol
	}
	if info.TotalSupply != nil {
		dto.TotalSupply = info.TotalSupply.String()
	}
	return dto
}

func formatTokenDetail(d query.TokenDetail) tokenDTO {
	dto := formatToken(d.TokenInfo)
	count := d.HolderCount
	dto.HolderCount = &count
	return dto
}

type holderDTO struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

func formatHolder(b domain.HolderBalance) holderDTO {
	return holderDTO{Address: string(b.Holder), Balance: b.Balance.String()}
}

type balanceDTO struct {
	TokenAddress  string                    `json:"tokenAddress"`
	HolderAddress string                    `json:"holderAddress"`
	Balance       string                    `json:"balance"`
	Token         *tokenDTO                 `json:"token,omitempty"`
	Warnings      []domain.IntegrityWarning `json:"warnings,omitempty"`
}

func formatBalance(r balance.BalanceResult) balanceDTO {
	return balanceDTO{
		TokenAddress:  string(r.Asset),
		HolderAddress: string(r.Holder),
		Balance:       r.Balance.String(),
		Warnings:      r.Warnings,
	}
}

func formatTokenBalance(holder domain.Address) func(query.TokenBalance) balanceDTO {
	return func(b query.TokenBalance) balanceDTO {
		info := domain.TokenInfo{Address: b.Asset, Kind: domain.AssetFungible}
		if b.Token != nil {
			info = *b.Token
		}
		token := formatToken(info)
		return balanceDTO{
			TokenAddress:  string(b.Asset),
			HolderAddress: string(holder),
			Balance:       b.Balance.String(),
			Token:         &token,
		}
	}
}

type nftDTO struct {
	CollectionAddress string `json:"collectionAddress"`
	TokenID           string `json:"tokenId"`
	Owner             string `json:"owner"`
}

func formatNFT(o domain.TokenOwner) nftDTO {
	return nftDTO{
		CollectionAddress: string(o.Asset),
		TokenID:           o.TokenID.String(),
		Owner:             string(o.Owner),
	}
}

type transferDTO struct {
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value,omitempty"`
	TokenID         string `json:"tokenId,omitempty"`
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber"`
	LogIndex        uint32 `json:"logIndex"`
}

func formatTransfer(e domain.TransferEvent) transferDTO {
	dto := transferDTO{
		From:            string(e.From),
		To:              string(e.To),
		TransactionHash: e.TxHash,
		BlockNumber:     strconv.FormatUint(e.BlockNumber, 10),
		LogIndex:        e.LogIndex,
	}
	if e.Kind == domain.AssetNonFungible {
		dto.TokenID = e.Value.String()
	} else {
		dto.Value = e.Value.String()
	}
	return dto
}

type blockDTO struct {
	Number           string  `json:"number"`
	Hash             string  `json:"hash"`
	ParentHash       string  `json:"parentHash"`
	Timestamp        string  `json:"timestamp"`
	Miner            string  `json:"miner"`
	GasLimit         string  `json:"gasLimit"`
	GasUsed          string  `json:"gasUsed"`
	BaseFeePerGas    *string `json:"baseFeePerGas"`
	TransactionCount int     `json:"transactionCount"`
	Size             *uint64 `json:"size"`
}

func formatBlock(b domain.Block) blockDTO {
	return blockDTO{
		Number:           strconv.FormatUint(b.Number, 10),
		Hash:             b.Hash,
		ParentHash:       b.ParentHash,
		Timestamp:        strconv.FormatUint(b.Timestamp, 10),
		Miner:            b.Miner,
		GasLimit:         strconv.FormatUint(b.GasLimit, 10),
		GasUsed:          strconv.FormatUint(b.GasUsed, 10),
		BaseFeePerGas:    b.BaseFeePerGas,
		TransactionCount: b.TransactionCount,
		Size:             b.Size,
	}
}

type transactionDTO struct {
	Hash             string  `json:"hash"`
	BlockNumber      string  `json:"blockNumber"`
	TransactionIndex uint32  `json:"transactionIndex"`
	From             string  `json:"from"`
	To               *string `json:"to"`
	Value            string  `json:"value"`
	Gas              string  `json:"gas"`
	GasUsed          *string `json:"gasUsed"`
	GasPrice         *string `json:"gasPrice"`
	Nonce            uint64  `json:"nonce"`
	Status           string  `json:"status"`
	Timestamp        string  `json:"timestamp"`
	MethodID         *string `json:"methodId"`
}

func formatTransaction(t domain.Transaction) transactionDTO {
	dto := transactionDTO{
		Hash:             t.Hash,
		BlockNumber:      strconv.FormatUint(t.BlockNumber, 10),
		TransactionIndex: t.TransactionIndex,
		From:             string(t.From),
		Value:            t.Value,
		Gas:              strconv.FormatUint(t.Gas, 10),
		GasPrice:         t.GasPrice,
		Nonce:            t.Nonce,
		Status:           string(t.Status),
		Timestamp:        strconv.FormatUint(t.Timestamp, 10),
		MethodID:         t.MethodID,
	}
	if t.To != nil {
		to := string(*t.To)
		dto.To = &to
	}
	if t.GasUsed != nil {
		used := strconv.FormatUint(*t.GasUsed, 10)
		dto.GasUsed = &used
	}
	return dto
}

type addressTransferDTO struct {
	transferDTO
	Token tokenDTO `json:"token"`
}

func formatAddressTransfer(t query.TokenTransfer) addressTransferDTO {
	info := domain.TokenInfo{Address: t.Asset, Kind: t.Kind}
	if t.Token != nil {
		info = *t.Token
	}
	return addressTransferDTO{transferDTO: formatTransfer(t.TransferEvent), Token: formatToken(info)}
}

type statsDTO struct {
	LatestBlock       string `json:"latestBlock"`
	TotalTransactions int64  `json:"totalTransactions"`
	TotalERC20Tokens  int64  `json:"totalErc20Tokens"`
	TotalERC721Tokens int64  `json:"totalErc721Tokens"`
	Estimated         bool   `json:"estimated"`
}

func formatStats(s query.Stats) statsDTO {
	return statsDTO{
		LatestBlock:       strconv.FormatUint(s.LatestBlock, 10),
		TotalTransactions: s.TotalTransactions,
		TotalERC20Tokens:  s.ERC20Tokens,
		TotalERC721Tokens: s.ERC721Tokens,
		Estimated:         s.Estimated,
	}
}
