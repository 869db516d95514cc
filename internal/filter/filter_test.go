package filter

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vietddude/explorer/internal/core/domain"
)

const (
	token = domain.Address("0x00000000000000000000000000000000000000aa")
	alice = domain.Address("0x0000000000000000000000000000000000000001")
	bob   = domain.Address("0x0000000000000000000000000000000000000002")
)

func ptr[T any](v T) *T { return &v }

func TestCompile_Empty(t *testing.T) {
	clause, args := TransferFilter{}.Compile(1)
	require.Equal(t, "TRUE", clause)
	require.Empty(t, args)
}

func TestCompile_Placeholders(t *testing.T) {
	f := TransferFilter{
		Asset:     ptr(token),
		Holder:    ptr(alice),
		FromBlock: ptr(uint64(10)),
		ToBlock:   ptr(uint64(20)),
	}
	clause, args := f.Compile(3)
	require.Equal(t,
		"token_address = $3 AND (from_address = $4 OR to_address = $4) AND block_number >= $5 AND block_number <= $6",
		clause)
	require.Equal(t, []any{string(token), string(alice), int64(10), int64(20)}, args)
}

func TestCompile_Direction(t *testing.T) {
	in := TransferFilter{Holder: ptr(alice), Direction: DirectionIn}
	clause, _ := in.Compile(1)
	require.Equal(t, "to_address = $1", clause)

	out := TransferFilter{Holder: ptr(alice), Direction: DirectionOut}
	clause, _ = out.Compile(1)
	require.Equal(t, "from_address = $1", clause)
}

func TestMatch(t *testing.T) {
	ev := domain.TransferEvent{
		Kind: domain.AssetFungible, Asset: token, From: alice, To: bob,
		Value: big.NewInt(5), BlockNumber: 15, TxHash: "0x01",
	}

	require.True(t, TransferFilter{}.Match(ev))
	require.True(t, TransferFilter{Holder: ptr(bob)}.Match(ev))
	require.True(t, TransferFilter{Holder: ptr(bob), Direction: DirectionIn}.Match(ev))
	require.False(t, TransferFilter{Holder: ptr(bob), Direction: DirectionOut}.Match(ev))
	require.False(t, TransferFilter{FromBlock: ptr(uint64(16))}.Match(ev))
	require.True(t, TransferFilter{FromBlock: ptr(uint64(15)), ToBlock: ptr(uint64(15))}.Match(ev))
	require.False(t, TransferFilter{TxHash: ptr("0x02")}.Match(ev))
}

func TestParse(t *testing.T) {
	f, err := Parse(TransferFilter{Asset: ptr(token)},
		`from = "0x0000000000000000000000000000000000000001" AND block >= 100 AND block < 200`)
	require.NoError(t, err)
	require.Equal(t, token, *f.Asset)
	require.Equal(t, alice, *f.From)
	require.Equal(t, uint64(100), *f.FromBlock)
	require.Equal(t, uint64(199), *f.ToBlock)
	require.Nil(t, f.To)
}

func TestParse_Empty(t *testing.T) {
	base := TransferFilter{Asset: ptr(token)}
	f, err := Parse(base, "   ")
	require.NoError(t, err)
	require.Equal(t, base, f)
}

func TestParse_Rejects(t *testing.T) {
	cases := []string{
		`from = "not-an-address"`,
		`nonce = 1`,
		`from > "0x0000000000000000000000000000000000000001"`,
		`block > 10 AND block < 5`,
		`block < 0`,
		`block = 1 OR block = 2`,
	}
	for _, c := range cases {
		_, err := Parse(TransferFilter{}, c)
		require.Error(t, err, c)
		require.True(t, errors.Is(err, domain.ErrValidation), "%s: %v", c, err)
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("IN")
	require.NoError(t, err)
	require.Equal(t, DirectionIn, d)

	_, err = ParseDirection("sideways")
	require.True(t, errors.Is(err, domain.ErrValidation))
}
