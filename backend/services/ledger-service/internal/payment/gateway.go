package payment

import (
	"context"
	"errors"
	"math"
	"sync"

	"evledger/backend/services/ledger-service/internal/ledger"
)

var (
	// ErrUnderfunded is returned when the attached value does not cover the cost.
	ErrUnderfunded = errors.New("payment: supplied funds below cost")
	// ErrUnknownSettlement is returned by Reverse for a settlement that was never applied.
	ErrUnknownSettlement = errors.New("payment: settlement not found")
	// ErrOverflow is returned when a settlement would wrap an account or the treasury balance.
	ErrOverflow = errors.New("payment: amount overflows account")
)

// Gateway moves the value attached to a charging session. Settle keeps the cost and returns
// the refund to the payer; Reverse undoes a Settle when the surrounding transaction aborts.
type Gateway interface {
	Settle(ctx context.Context, s ledger.Settlement) error
	Reverse(ctx context.Context, s ledger.Settlement) error
}

// Account summarizes the value flow of one identity.
type Account struct {
	Paid     uint64 `json:"paid"`
	Refunded uint64 `json:"refunded"`
	Earned   uint64 `json:"earned"`
}

// Treasury is an in-memory Gateway. It holds collected costs and tracks, per identity,
// what was paid, refunded and earned as a station.
type Treasury struct {
	mu       sync.Mutex
	balance  uint64
	accounts map[ledger.Identity]*Account
	settled  map[uint64]ledger.Settlement
}

// NewTreasury returns an empty treasury.
func NewTreasury() *Treasury {
	return &Treasury{
		accounts: make(map[ledger.Identity]*Account),
		settled:  make(map[uint64]ledger.Settlement),
	}
}

// Settle collects s.Cost from s.Payer and hands back s.Refund.
func (t *Treasury) Settle(_ context.Context, s ledger.Settlement) error {
	if s.Supplied < s.Cost || s.Supplied-s.Cost != s.Refund {
		return ErrUnderfunded
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	payer := t.accounts[s.Payer]
	station := t.accounts[s.Station]
	if payer == nil {
		payer = &Account{}
	}
	if station == nil {
		station = &Account{}
	}
	if overflows(payer.Paid, s.Cost) || overflows(payer.Refunded, s.Refund) ||
		overflows(station.Earned, s.Cost) || overflows(t.balance, s.Cost) {
		return ErrOverflow
	}

	payer = t.account(s.Payer)
	station = t.account(s.Station)
	payer.Paid += s.Cost
	payer.Refunded += s.Refund
	station.Earned += s.Cost
	t.balance += s.Cost
	t.settled[s.SessionID] = s
	return nil
}

// Reverse returns the full supplied amount of a previous Settle to the payer.
func (t *Treasury) Reverse(_ context.Context, s ledger.Settlement) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	applied, ok := t.settled[s.SessionID]
	if !ok || applied != s {
		return ErrUnknownSettlement
	}

	payer := t.account(s.Payer)
	station := t.account(s.Station)
	payer.Paid -= s.Cost
	payer.Refunded -= s.Refund
	station.Earned -= s.Cost
	t.balance -= s.Cost
	delete(t.settled, s.SessionID)
	return nil
}

// Balance is the total value collected.
func (t *Treasury) Balance() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance
}

// Account returns a copy of the account of id.
func (t *Treasury) Account(id ledger.Identity) Account {
	t.mu.Lock()
	defer t.mu.Unlock()
	if acc, ok := t.accounts[id]; ok {
		return *acc
	}
	return Account{}
}

func overflows(a, b uint64) bool {
	return b > math.MaxUint64-a
}

func (t *Treasury) account(id ledger.Identity) *Account {
	acc, ok := t.accounts[id]
	if !ok {
		acc = &Account{}
		t.accounts[id] = acc
	}
	return acc
}
