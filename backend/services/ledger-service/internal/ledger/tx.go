package ledger

import (
	"math"
	"time"
)

// Tx is one all-or-nothing transaction against a State. Operations validate every
// precondition before touching the state, and each mutation records its inverse so
// Rollback can restore the state exactly when a later step (value transfer, persistence) fails.
type Tx struct {
	state  *State
	now    time.Time
	closed bool
	undo   []func()

	events      []Event
	settlements []Settlement
	vehicles    []VehicleRecord
	sessions    []ChargingSession
	energy      map[VehicleID]uint64
	balances    map[VehicleID]uint64
}

// Changeset is everything a transaction wrote, in the shape the persistence layer stores it.
// Energy and Balances hold the new values, not deltas.
type Changeset struct {
	Vehicles []VehicleRecord
	Sessions []ChargingSession
	Energy   map[VehicleID]uint64
	Balances map[VehicleID]uint64
	Stats    Stats
	Events   []Event
}

// Empty reports whether the changeset carries no writes.
func (c Changeset) Empty() bool {
	return len(c.Vehicles) == 0 && len(c.Sessions) == 0 && len(c.Energy) == 0 &&
		len(c.Balances) == 0 && len(c.Events) == 0
}

// Now is the timestamp the transaction stamps on records and events.
func (tx *Tx) Now() time.Time {
	return tx.now
}

// Events returns the notifications emitted so far, in emission order.
func (tx *Tx) Events() []Event {
	out := make([]Event, len(tx.events))
	copy(out, tx.events)
	return out
}

// Settlements returns the value movements staged by charging sessions.
func (tx *Tx) Settlements() []Settlement {
	out := make([]Settlement, len(tx.settlements))
	copy(out, tx.settlements)
	return out
}

// Changes returns the writes of the transaction together with the resulting counters.
func (tx *Tx) Changes() Changeset {
	cs := Changeset{
		Vehicles: append([]VehicleRecord(nil), tx.vehicles...),
		Sessions: append([]ChargingSession(nil), tx.sessions...),
		Energy:   make(map[VehicleID]uint64, len(tx.energy)),
		Balances: make(map[VehicleID]uint64, len(tx.balances)),
		Stats:    tx.state.Stats(),
		Events:   tx.Events(),
	}
	for id, total := range tx.energy {
		cs.Energy[id] = total
	}
	for id, balance := range tx.balances {
		cs.Balances[id] = balance
	}
	return cs
}

// Commit makes the transaction's effects permanent. The Tx can no longer be used.
func (tx *Tx) Commit() {
	tx.closed = true
	tx.undo = nil
}

// Rollback reverts every mutation in reverse order. It is a no-op on a closed Tx.
func (tx *Tx) Rollback() {
	if tx.closed {
		return
	}
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.closed = true
}

func (tx *Tx) emit(event Event) {
	event.RecordedAt = tx.now
	tx.events = append(tx.events, event)
}

func (tx *Tx) setEnergy(v *Vehicle, total uint64) {
	prev := v.TotalEnergyConsumed
	v.TotalEnergyConsumed = total
	tx.energy[v.ID] = total
	tx.undo = append(tx.undo, func() { v.TotalEnergyConsumed = prev })
}

func (tx *Tx) setBalance(id VehicleID, balance uint64) {
	prev, existed := tx.state.credits[id]
	tx.state.credits[id] = balance
	tx.balances[id] = balance
	tx.undo = append(tx.undo, func() {
		if existed {
			tx.state.credits[id] = prev
			return
		}
		delete(tx.state.credits, id)
	})
}

func addOverflows(a, b uint64) bool {
	return b > math.MaxUint64-a
}
