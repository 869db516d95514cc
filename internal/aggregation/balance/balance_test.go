package balance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vietddude/explorer/internal/core/domain"
	"github.com/vietddude/explorer/internal/infra/storage/memory"
)

const (
	assetX = "0x00000000000000000000000000000000000000aa"
	holdA  = "0x000000000000000000000000000000000000000a"
	holdB  = "0x000000000000000000000000000000000000000b"
	holdC  = "0x000000000000000000000000000000000000000c"
)

func addr(i int) domain.Address {
	return domain.Address(fmt.Sprintf("0x%040x", i))
}

func fungible(block uint64, idx uint32, from, to domain.Address, v int64) domain.TransferEvent {
	return domain.TransferEvent{
		Kind:        domain.AssetFungible,
		Asset:       assetX,
		From:        from,
		To:          to,
		Value:       big.NewInt(v),
		BlockNumber: block,
		LogIndex:    idx,
		TxHash:      fmt.Sprintf("0x%064x", block*1000+uint64(idx)),
	}
}

func TestComputeBalances_Scenario(t *testing.T) {
	store := memory.NewMemoryStorage()
	store.AddTransfers(
		fungible(1, 0, holdA, holdB, 100),
		fungible(2, 0, holdB, holdC, 40),
	)
	agg := New(store, nil)
	ctx := context.Background()

	env, err := agg.ComputeBalances(ctx, assetX, 1, 10)
	require.NoError(t, err)
	require.Len(t, env.Data, 2)
	require.Equal(t, domain.Address(holdB), env.Data[0].Holder)
	require.Equal(t, "60", env.Data[0].Balance.String())
	require.Equal(t, domain.Address(holdC), env.Data[1].Holder)
	require.Equal(t, "40", env.Data[1].Balance.String())
	require.Equal(t, int64(2), env.Total)
	require.Equal(t, int64(1), env.TotalPages)
	require.False(t, env.Estimated)

	// A sent 100 it never received: clamped and reported.
	require.Len(t, env.Warnings, 1)
	require.Equal(t, domain.WarningNegativeBalance, env.Warnings[0].Kind)
	require.Equal(t, holdA, env.Warnings[0].Subject)

	res, err := agg.ComputeBalance(ctx, assetX, holdA)
	require.NoError(t, err)
	require.Equal(t, "0", res.Balance.String())
	require.Len(t, res.Warnings, 1)

	require.Zero(t, store.OpenSessions())
}

func TestComputeBalances_Conservation(t *testing.T) {
	store := memory.NewMemoryStorage()
	rng := rand.New(rand.NewSource(7))

	balances := make(map[domain.Address]int64)
	minted, burned := int64(0), int64(0)
	block := uint64(1)
	for i := 0; i < 400; i++ {
		block++
		switch op := rng.Intn(5); {
		case op == 0 || len(balances) == 0:
			to := addr(1 + rng.Intn(30))
			v := int64(1 + rng.Intn(1000))
			store.AddTransfers(fungible(block, 0, domain.ZeroAddress, to, v))
			balances[to] += v
			minted += v
		default:
			var from domain.Address
			for h, b := range balances {
				if b > 0 {
					from = h
					break
				}
			}
			if from == "" {
				continue
			}
			v := 1 + rng.Int63n(balances[from])
			to := domain.ZeroAddress
			if op != 1 {
				to = addr(1 + rng.Intn(30))
			}
			store.AddTransfers(fungible(block, 0, from, to, v))
			balances[from] -= v
			if to.IsZero() {
				burned += v
			} else {
				balances[to] += v
			}
		}
	}

	env, err := New(store, nil).ComputeBalances(context.Background(), assetX, 1, 100)
	require.NoError(t, err)
	require.Empty(t, env.Warnings)

	sum := new(big.Int)
	for _, hb := range env.Data {
		sum.Add(sum, hb.Balance)
		require.Equal(t, balances[hb.Holder], hb.Balance.Int64(), "holder %s", hb.Holder)
	}
	require.Equal(t, minted-burned, sum.Int64())
}

func TestComputeBalances_PaginationCompleteAndDeterministic(t *testing.T) {
	store := memory.NewMemoryStorage()
	// Ten holders sharing three balance values forces tie-breaks on holder.
	for i := 1; i <= 10; i++ {
		store.AddTransfers(fungible(uint64(i), 0, domain.ZeroAddress, addr(i), int64(100*(i%3+1))))
	}
	agg := New(store, nil)
	ctx := context.Background()

	for limit := 1; limit <= 11; limit++ {
		first, err := agg.ComputeBalances(ctx, assetX, 1, limit)
		require.NoError(t, err)
		require.Equal(t, int64(10), first.Total)

		seen := make(map[domain.Address]bool)
		var all []domain.HolderBalance
		for p := 1; int64(p) <= first.TotalPages; p++ {
			env, err := agg.ComputeBalances(ctx, assetX, p, limit)
			require.NoError(t, err)
			for _, hb := range env.Data {
				require.False(t, seen[hb.Holder], "holder %s repeated at limit %d", hb.Holder, limit)
				seen[hb.Holder] = true
			}
			all = append(all, env.Data...)
		}
		require.Len(t, all, 10)

		for i := 1; i < len(all); i++ {
			c := all[i-1].Balance.Cmp(all[i].Balance)
			require.True(t, c > 0 || (c == 0 && all[i-1].Holder < all[i].Holder), "order broken at %d", i)
		}

		again, err := agg.ComputeBalances(ctx, assetX, 1, limit)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestComputeBalances_DeduplicatesEvents(t *testing.T) {
	store := memory.NewMemoryStorage()
	ev := fungible(1, 0, domain.ZeroAddress, holdB, 50)
	store.AddTransfers(ev, ev, ev)

	env, err := New(store, nil).ComputeBalances(context.Background(), assetX, 1, 10)
	require.NoError(t, err)
	require.Len(t, env.Data, 1)
	require.Equal(t, "50", env.Data[0].Balance.String())
}

func TestComputeBalances_ArbitraryPrecision(t *testing.T) {
	store := memory.NewMemoryStorage()
	huge, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	ev := fungible(1, 0, domain.ZeroAddress, holdB, 0)
	ev.Value = huge
	ev2 := fungible(2, 0, domain.ZeroAddress, holdB, 0)
	ev2.Value = huge
	store.AddTransfers(ev, ev2)

	env, err := New(store, nil).ComputeBalances(context.Background(), assetX, 1, 10)
	require.NoError(t, err)
	want := new(big.Int).Add(huge, huge)
	require.Equal(t, want.String(), env.Data[0].Balance.String())
}

func TestComputeBalance_Errors(t *testing.T) {
	store := memory.NewMemoryStorage()
	store.AddTransfers(fungible(1, 0, domain.ZeroAddress, holdB, 10))
	agg := New(store, nil)
	ctx := context.Background()

	_, err := agg.ComputeBalance(ctx, "0x1234", holdB)
	require.True(t, errors.Is(err, domain.ErrValidation))
	require.Zero(t, store.Acquired(), "validation must not touch the store")

	_, err = agg.ComputeBalances(ctx, assetX, 0, 10)
	require.True(t, errors.Is(err, domain.ErrValidation))
	_, err = agg.ComputeBalances(ctx, assetX, 1, 101)
	require.True(t, errors.Is(err, domain.ErrValidation))
	_, err = agg.ComputeBalances(ctx, assetX, math.MaxInt/100+2, 100)
	require.True(t, errors.Is(err, domain.ErrValidation), "offset overflow")
	require.Zero(t, store.Acquired())

	_, err = agg.ComputeBalance(ctx, "0x00000000000000000000000000000000000000ff", holdB)
	require.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = agg.ComputeBalance(ctx, assetX, holdC)
	require.True(t, errors.Is(err, domain.ErrNotFound))

	require.Zero(t, store.OpenSessions())
}

func TestComputeBalances_ReleasesSessionOnFailure(t *testing.T) {
	store := memory.NewMemoryStorage()
	for i := 1; i <= 5; i++ {
		store.AddTransfers(fungible(uint64(i), 0, domain.ZeroAddress, holdB, 1))
	}
	agg := New(store, nil)
	boom := errors.New("connection reset")

	store.FailIterators(2, boom)
	_, err := agg.ComputeBalances(context.Background(), assetX, 1, 10)
	require.True(t, errors.Is(err, domain.ErrDependency))
	require.True(t, errors.Is(err, boom))
	var dep *domain.DependencyError
	require.True(t, errors.As(err, &dep))
	require.True(t, dep.Retryable())
	require.Zero(t, store.OpenSessions())
	store.FailIterators(0, nil)

	store.FailQueries(boom)
	_, err = agg.ComputeBalance(context.Background(), assetX, holdB)
	require.True(t, errors.Is(err, domain.ErrDependency))
	require.Zero(t, store.OpenSessions())
	store.FailQueries(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = agg.ComputeBalances(ctx, assetX, 1, 10)
	require.True(t, errors.Is(err, domain.ErrDependency))
	require.True(t, errors.Is(err, context.Canceled))
	require.Zero(t, store.OpenSessions())
}

func TestComputeHolderBalances(t *testing.T) {
	store := memory.NewMemoryStorage()
	other := domain.Address("0x00000000000000000000000000000000000000bb")
	ev := fungible(2, 0, domain.ZeroAddress, holdB, 5)
	ev.Asset = other
	store.AddTransfers(
		fungible(1, 0, domain.ZeroAddress, holdB, 70),
		ev,
		fungible(3, 0, holdB, holdC, 70),
	)

	env, err := New(store, nil).ComputeHolderBalances(context.Background(), holdB, 1, 10)
	require.NoError(t, err)
	require.Len(t, env.Data, 1)
	require.Equal(t, other, env.Data[0].Asset)
	require.Equal(t, "5", env.Data[0].Balance.String())
}

func TestComputeHolderBalances_NoHistory(t *testing.T) {
	store := memory.NewMemoryStorage()
	store.AddTransfers(
		fungible(1, 0, domain.ZeroAddress, holdB, 70),
		fungible(2, 0, holdB, holdC, 70),
	)
	agg := New(store, nil)
	ctx := context.Background()

	_, err := agg.ComputeHolderBalances(ctx, holdA, 1, 10)
	require.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = agg.ComputeHolderBalances(ctx, string(domain.ZeroAddress), 1, 10)
	require.True(t, errors.Is(err, domain.ErrNotFound))

	// History that nets to zero is an empty page, not NotFound.
	env, err := agg.ComputeHolderBalances(ctx, holdB, 1, 10)
	require.NoError(t, err)
	require.Empty(t, env.Data)
	require.Zero(t, env.Total)
	require.Zero(t, store.OpenSessions())
}

func TestHolderCount(t *testing.T) {
	store := memory.NewMemoryStorage()
	store.AddTransfers(
		fungible(1, 0, domain.ZeroAddress, holdA, 10),
		fungible(2, 0, domain.ZeroAddress, holdB, 10),
		fungible(3, 0, holdB, domain.ZeroAddress, 10),
	)

	n, err := New(store, nil).HolderCount(context.Background(), assetX)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
