package recency

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/infra/storage/memory"
)

func blocks(store *memory.MemoryStorage, from, to uint64) {
	for n := from; n <= to; n++ {
		store.AddBlocks(domain.Block{Number: n, Hash: fmt.Sprintf("0x%064x", n), TransactionCount: 2})
	}
}

func numbers(bs []domain.Block) []uint64 {
	out := make([]uint64, len(bs))
	for i, b := range bs {
		out[i] = b.Number
	}
	return out
}

func TestLatest_WindowIndependence(t *testing.T) {
	store := memory.NewMemoryStorage()
	blocks(store, 1, 3)
	ctx := context.Background()

	narrow := NewSelector[domain.Block](store, nil, Config{InitialWindow: 1}, nil)
	wide := NewSelector[domain.Block](store, nil, Config{InitialWindow: 100}, nil)

	a, err := narrow.Latest(ctx, BlockSource{}, 3)
	require.NoError(t, err)
	b, err := wide.Latest(ctx, BlockSource{}, 3)
	require.NoError(t, err)

	require.Equal(t, []uint64{3, 2, 1}, numbers(a.Data))
	require.Equal(t, a.Data, b.Data)
	require.True(t, a.Estimated)
	require.Zero(t, store.OpenSessions())
}

func TestLatest_WindowIndependenceAcrossSizes(t *testing.T) {
	store := memory.NewMemoryStorage()
	blocks(store, 0, 250)
	ctx := context.Background()

	want, err := NewSelector[domain.Block](store, nil, Config{InitialWindow: 1000}, nil).Latest(ctx, BlockSource{}, 25)
	require.NoError(t, err)

	for _, w := range []uint64{1, 2, 3, 7, 24, 25, 26, 250, 251} {
		got, err := NewSelector[domain.Block](store, nil, Config{InitialWindow: w}, nil).Latest(ctx, BlockSource{}, 25)
		require.NoError(t, err)
		require.Equal(t, numbers(want.Data), numbers(got.Data), "initial window %d", w)
	}
	require.Equal(t, uint64(250), want.Data[0].Number)
}

func TestLatest_FallbackScan(t *testing.T) {
	store := memory.NewMemoryStorage()
	// Sparse stream: blocks 1 and 1000 only.
	store.AddBlocks(domain.Block{Number: 1}, domain.Block{Number: 1000})

	sel := NewSelector[domain.Block](store, nil, Config{InitialWindow: 2, MaxWindow: 8}, nil)
	env, err := sel.Latest(context.Background(), BlockSource{}, 2)
	require.NoError(t, err)
	require.Equal(t, []uint64{1000, 1}, numbers(env.Data))
}

func TestLatest_FewerItemsThanRequested(t *testing.T) {
	store := memory.NewMemoryStorage()
	blocks(store, 5, 6)

	env, err := NewSelector[domain.Block](store, nil, Config{Density: 1, Margin: 10}, nil).Latest(context.Background(), BlockSource{}, 10)
	require.NoError(t, err)
	require.Equal(t, []uint64{6, 5}, numbers(env.Data))
}

func TestLatest_EmptyStream(t *testing.T) {
	store := memory.NewMemoryStorage()
	env, err := NewSelector[domain.Block](store, nil, Config{}, nil).Latest(context.Background(), BlockSource{}, 10)
	require.NoError(t, err)
	require.Empty(t, env.Data)
	require.Zero(t, env.Total)
}

func TestLatest_Validation(t *testing.T) {
	store := memory.NewMemoryStorage()
	sel := NewSelector[domain.Block](store, nil, Config{}, nil)

	_, err := sel.Latest(context.Background(), BlockSource{}, 0)
	require.True(t, errors.Is(err, domain.ErrValidation))
	_, err = sel.Latest(context.Background(), BlockSource{}, 101)
	require.True(t, errors.Is(err, domain.ErrValidation))
	require.Zero(t, store.Acquired())
}

func TestLatest_TransactionsOrderedWithinBlock(t *testing.T) {
	store := memory.NewMemoryStorage()
	blocks(store, 1, 2)
	for b := uint64(1); b <= 2; b++ {
		for i := uint32(0); i < 2; i++ {
			store.AddTransactions(domain.Transaction{
				Hash: fmt.Sprintf("0x%d%d", b, i), BlockNumber: b, TransactionIndex: i,
				Status: domain.TxStatusSuccess,
			})
		}
	}

	sel := NewSelector[domain.Transaction](store, nil, Config{Density: 0.1, Margin: 100}, nil)
	env, err := sel.Latest(context.Background(), TransactionSource{EstimateWindow: 10000}, 3)
	require.NoError(t, err)
	require.Len(t, env.Data, 3)
	require.Equal(t, "0x21", env.Data[0].Hash)
	require.Equal(t, "0x20", env.Data[1].Hash)
	require.Equal(t, "0x11", env.Data[2].Hash)
	require.Equal(t, int64(4), env.Total)
	require.True(t, env.Estimated)
}

func TestLatest_Transfers(t *testing.T) {
	store := memory.NewMemoryStorage()
	token := domain.Address("0x00000000000000000000000000000000000000aa")
	other := domain.Address("0x00000000000000000000000000000000000000bb")
	for b := uint64(1); b <= 6; b++ {
		asset := token
		if b%2 == 0 {
			asset = other
		}
		store.AddTransfers(domain.TransferEvent{
			Kind: domain.AssetFungible, Asset: asset,
			From: domain.ZeroAddress, To: "0x0000000000000000000000000000000000000001",
			Value: big.NewInt(1), BlockNumber: b, TxHash: fmt.Sprintf("0x%d", b),
		})
	}

	sel := NewSelector[domain.TransferEvent](store, nil, Config{InitialWindow: 1}, nil)
	env, err := sel.Latest(context.Background(), TransferSource{Kind: domain.AssetFungible, Asset: token}, 2)
	require.NoError(t, err)
	require.Len(t, env.Data, 2)
	require.Equal(t, uint64(5), env.Data[0].BlockNumber)
	require.Equal(t, uint64(3), env.Data[1].BlockNumber)
}

func TestLatest_DependencyError(t *testing.T) {
	store := memory.NewMemoryStorage()
	blocks(store, 1, 3)
	store.FailQueries(errors.New("pool exhausted"))

	_, err := NewSelector[domain.Block](store, nil, Config{}, nil).Latest(context.Background(), BlockSource{}, 3)
	require.True(t, errors.Is(err, domain.ErrDependency))
	require.Zero(t, store.OpenSessions())
}

func TestConfig_InitialFor(t *testing.T) {
	require.Equal(t, uint64(30), Config{Density: 1, Margin: 10}.InitialFor(20))
	require.Equal(t, uint64(140), Config{Density: 0.5, Margin: 100}.InitialFor(20))
	require.Equal(t, uint64(7), Config{Density: 1, Margin: 10, InitialWindow: 7}.InitialFor(20))
}

func TestLatest_SamePositionOrderedByHash(t *testing.T) {
	token := domain.Address("0x00000000000000000000000000000000000000aa")
	ev := func(hash string) domain.TransferEvent {
		return domain.TransferEvent{
			Kind: domain.AssetFungible, Asset: token,
			From: domain.ZeroAddress, To: "0x0000000000000000000000000000000000000001",
			Value: big.NewInt(1), BlockNumber: 4, LogIndex: 2, TxHash: hash,
		}
	}

	for _, order := range [][]string{{"0xb", "0xa", "0xc"}, {"0xc", "0xb", "0xa"}} {
		store := memory.NewMemoryStorage()
		for _, h := range order {
			store.AddTransfers(ev(h))
		}

		env, err := NewSelector[domain.TransferEvent](store, nil, Config{InitialWindow: 1}, nil).
			Latest(context.Background(), TransferSource{Kind: domain.AssetFungible, Asset: token}, 2)
		require.NoError(t, err)
		require.Len(t, env.Data, 2)
		require.Equal(t, "0xa", env.Data[0].TxHash, "insert order %v", order)
		require.Equal(t, "0xb", env.Data[1].TxHash, "insert order %v", order)
	}
}
