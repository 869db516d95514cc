package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/infra/storage/memory"
)

func tx(hash string, block uint64, idx uint32, from, to domain.Address) domain.Transaction {
	return domain.Transaction{Hash: hash, BlockNumber: block, TransactionIndex: idx, From: from, To: &to, Status: domain.TxStatusSuccess}
}

func TestAddressTransactions(t *testing.T) {
	store := seeded()
	store.AddTransactions(
		tx("0x01", 1, 0, alice, bob),
		tx("0x02", 2, 0, bob, carol),
		tx("0x03", 2, 1, carol, alice),
	)
	svc := NewService(store, nil, Config{}, nil)
	ctx := context.Background()

	env, err := svc.AddressTransactions(ctx, string(alice), 1, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), env.Total)
	require.Equal(t, int64(2), env.TotalPages)
	require.False(t, env.Estimated)
	require.Equal(t, "0x03", env.Data[0].Hash)

	env, err = svc.AddressTransactions(ctx, string(alice), 2, 1)
	require.NoError(t, err)
	require.Equal(t, "0x01", env.Data[0].Hash)

	// Past the last page: empty data, exact total.
	env, err = svc.AddressTransactions(ctx, string(alice), 5, 1)
	require.NoError(t, err)
	require.Empty(t, env.Data)
	require.Equal(t, int64(2), env.Total)

	_, err = svc.AddressTransactions(ctx, "0x00000000000000000000000000000000000000dd", 1, 10)
	require.True(t, errors.Is(err, domain.ErrNotFound))
	require.Zero(t, store.OpenSessions())
}

func TestAddressTransactions_ValidationBeforeStoreAccess(t *testing.T) {
	store := seeded()
	svc := NewService(store, nil, Config{}, nil)
	ctx := context.Background()

	_, err := svc.AddressTransactions(ctx, "alice", 1, 10)
	require.True(t, errors.Is(err, domain.ErrValidation))
	_, err = svc.AddressTransactions(ctx, string(alice), 0, 10)
	require.True(t, errors.Is(err, domain.ErrValidation))
	_, err = svc.AddressTransfers(ctx, domain.AssetFungible, TransferListRequest{Holder: string(bob), Direction: "up", Page: 1, Limit: 10})
	require.True(t, errors.Is(err, domain.ErrValidation))
	_, err = svc.AddressTransfers(ctx, domain.AssetFungible, TransferListRequest{Holder: string(bob), Asset: "x", Page: 1, Limit: 10})
	require.True(t, errors.Is(err, domain.ErrValidation))

	require.Zero(t, store.Acquired())
}

func TestAddressTransfers(t *testing.T) {
	store := seeded()
	svc := NewService(store, nil, Config{}, nil)
	ctx := context.Background()

	env, err := svc.AddressTransfers(ctx, domain.AssetFungible, TransferListRequest{Holder: string(bob), Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), env.Total)
	require.Equal(t, uint64(3), env.Data[0].BlockNumber)
	require.NotNil(t, env.Data[0].Token)
	require.Equal(t, "Token X", *env.Data[0].Token.Name)

	env, err = svc.AddressTransfers(ctx, domain.AssetFungible, TransferListRequest{Holder: string(bob), Direction: "in", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, env.Data, 1)
	require.Equal(t, bob, env.Data[0].To)

	// Narrowing that matches nothing is an empty page, not a missing address.
	env, err = svc.AddressTransfers(ctx, domain.AssetFungible, TransferListRequest{Holder: string(bob), Filter: "block >= 10", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Empty(t, env.Data)
	require.Zero(t, env.Total)

	env, err = svc.AddressTransfers(ctx, domain.AssetNonFungible, TransferListRequest{Holder: string(alice), Asset: string(nftY), Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, env.Data, 1)
	require.Nil(t, env.Data[0].Token)

	_, err = svc.AddressTransfers(ctx, domain.AssetNonFungible, TransferListRequest{Holder: string(carol), Page: 1, Limit: 10})
	require.True(t, errors.Is(err, domain.ErrNotFound))
	require.Zero(t, store.OpenSessions())
}

func TestStats(t *testing.T) {
	store := seeded()
	for n := uint64(1); n <= 5; n++ {
		store.AddBlocks(domain.Block{Number: n, TransactionCount: 2})
	}
	store.AddToken(domain.TokenInfo{Address: nftY, Kind: domain.AssetNonFungible})
	cache := newMapCache()
	svc := NewService(store, cache, Config{EstimateWindow: 3}, nil)
	ctx := context.Background()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{LatestBlock: 5, TotalTransactions: 6, ERC20Tokens: 1, ERC721Tokens: 1, Estimated: true}, stats)

	again, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, stats, again)
	require.Equal(t, 1, cache.hits)

	empty, err := NewService(memory.NewMemoryStorage(), nil, Config{}, nil).Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{Estimated: true}, empty)
}
