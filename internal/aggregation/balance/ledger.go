package balance

import (
	"math/big"
	"sort"

	"github.com/vietddude/explorer/internal/core/domain"
)

// ledger accumulates signed deltas per holder over distinct events.
type ledger struct {
	deltas     map[domain.Address]*big.Int
	seen       map[domain.EventKey]struct{}
	events     int
	duplicates int
}

func newLedger() *ledger {
	return &ledger{
		deltas: make(map[domain.Address]*big.Int),
		seen:   make(map[domain.EventKey]struct{}),
	}
}

func (l *ledger) apply(ev domain.TransferEvent) {
	key := ev.Key()
	if _, dup := l.seen[key]; dup {
		l.duplicates++
		return
	}
	l.seen[key] = struct{}{}
	l.events++

	if ev.Value == nil || ev.Value.Sign() == 0 {
		return
	}
	if !ev.From.IsZero() {
		l.add(ev.From, new(big.Int).Neg(ev.Value))
	}
	if !ev.To.IsZero() {
		l.add(ev.To, ev.Value)
	}
}

func (l *ledger) add(holder domain.Address, v *big.Int) {
	d, ok := l.deltas[holder]
	if !ok {
		d = new(big.Int)
		l.deltas[holder] = d
	}
	d.Add(d, v)
}

// positive returns holders with a balance above zero, sorted by balance descending then
// holder ascending, and a warning for every negative balance.
func (l *ledger) positive(asset domain.Address) ([]domain.HolderBalance, []domain.IntegrityWarning) {
	var (
		out      []domain.HolderBalance
		warnings []domain.IntegrityWarning
	)
	for holder, d := range l.deltas {
		switch d.Sign() {
		case 1:
			out = append(out, domain.HolderBalance{Holder: holder, Balance: new(big.Int).Set(d)})
		case -1:
			warnings = append(warnings, negativeWarning(asset, holder, d))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Balance.Cmp(out[j].Balance); c != 0 {
			return c > 0
		}
		return out[i].Holder < out[j].Holder
	})
	sortWarnings(warnings)
	return out, warnings
}
