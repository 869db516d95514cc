package ownership

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/vietddude/explorer/internal/core/domain"
)

type tokenKey struct {
	asset domain.Address
	id    string
}

// tokenState is the replayed history of one token.
type tokenState struct {
	asset domain.Address
	id    *big.Int
	net   map[domain.Address]int

	// received is the position of the latest transfer each holder received.
	received map[domain.Address]domain.Position
}

// book holds per-token net counts over distinct events.
type book struct {
	tokens     map[tokenKey]*tokenState
	seen       map[domain.EventKey]struct{}
	duplicates int
}

func newBook() *book {
	return &book{
		tokens: make(map[tokenKey]*tokenState),
		seen:   make(map[domain.EventKey]struct{}),
	}
}

func (b *book) apply(ev domain.TransferEvent) {
	if ev.Value == nil {
		return
	}
	key := ev.Key()
	if _, dup := b.seen[key]; dup {
		b.duplicates++
		return
	}
	b.seen[key] = struct{}{}

	tk := tokenKey{asset: ev.Asset, id: ev.Value.String()}
	st, ok := b.tokens[tk]
	if !ok {
		st = &tokenState{
			asset:    ev.Asset,
			id:       new(big.Int).Set(ev.Value),
			net:      make(map[domain.Address]int),
			received: make(map[domain.Address]domain.Position),
		}
		b.tokens[tk] = st
	}

	if !ev.From.IsZero() {
		st.net[ev.From]--
	}
	if !ev.To.IsZero() {
		st.net[ev.To]++
		if pos, ok := st.received[ev.To]; !ok || pos.Less(ev.Position()) {
			st.received[ev.To] = ev.Position()
		}
	}
}

// sorted returns token states ordered by asset then token id.
func (b *book) sorted() []*tokenState {
	out := make([]*tokenState, 0, len(b.tokens))
	for _, st := range b.tokens {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].asset != out[j].asset {
			return out[i].asset < out[j].asset
		}
		return out[i].id.Cmp(out[j].id) < 0
	})
	return out
}

// owners resolves every token and returns the owned ones ordered by asset then token id.
func (b *book) owners() ([]domain.TokenOwner, []domain.IntegrityWarning) {
	var (
		out      []domain.TokenOwner
		warnings []domain.IntegrityWarning
	)
	for _, st := range b.sorted() {
		owner, ws, ok := st.resolve()
		warnings = append(warnings, ws...)
		if ok {
			out = append(out, domain.TokenOwner{Asset: st.asset, TokenID: new(big.Int).Set(st.id), Owner: owner})
		}
	}
	sortOwners(out)
	return out, warnings
}

// resolve returns the owner of the token. ok is false when no holder is positive, which
// is the burned state. More than one positive holder, or any count above 1, is clamped to
// the positive holder with the latest received transfer.
func (st *tokenState) resolve() (domain.Address, []domain.IntegrityWarning, bool) {
	if st == nil {
		return "", nil, false
	}

	var positive []domain.Address
	anomalous := false
	for holder, n := range st.net {
		if n > 0 {
			positive = append(positive, holder)
		}
		if n > 1 {
			anomalous = true
		}
	}

	switch {
	case len(positive) == 0:
		return "", nil, false
	case len(positive) == 1 && !anomalous:
		return positive[0], nil, true
	}

	sort.Slice(positive, func(i, j int) bool {
		pi, pj := st.received[positive[i]], st.received[positive[j]]
		if c := pi.Compare(pj); c != 0 {
			return c > 0
		}
		return positive[i] < positive[j]
	})
	owner := positive[0]

	return owner, []domain.IntegrityWarning{{
		Kind:    domain.WarningOwnershipConflict,
		Asset:   st.asset,
		Subject: st.id.String(),
		Detail:  fmt.Sprintf("%d positive holders, max net count %d; clamped to %s", len(positive), st.maxNet(), owner),
	}}, true
}

func (st *tokenState) maxNet() int {
	top := 0
	for _, n := range st.net {
		if n > top {
			top = n
		}
	}
	return top
}
