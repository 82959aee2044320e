package ledger

import (
	"sort"
	"time"
)

// State is the whole ledger: vehicles, owner lists, sessions, credit balances and counters.
// It is not safe for concurrent use; callers serialize access (see service.LedgerService).
type State struct {
	vehicles     map[VehicleID]*Vehicle
	ordinals     map[VehicleID]uint64
	owned        map[Identity][]VehicleID
	sessions     []ChargingSession
	credits      map[VehicleID]uint64
	vehicleCount uint64
}

// NewState returns an empty ledger.
func NewState() *State {
	return &State{
		vehicles: make(map[VehicleID]*Vehicle),
		ordinals: make(map[VehicleID]uint64),
		owned:    make(map[Identity][]VehicleID),
		credits:  make(map[VehicleID]uint64),
	}
}

// Begin opens a transaction that observes now as the current time.
func (s *State) Begin(now time.Time) *Tx {
	return &Tx{state: s, now: now.UTC(), energy: make(map[VehicleID]uint64), balances: make(map[VehicleID]uint64)}
}

// VehicleInfo returns a copy of the vehicle record.
func (s *State) VehicleInfo(id VehicleID) (Vehicle, error) {
	v, ok := s.vehicles[id]
	if !ok {
		return Vehicle{}, ErrVehicleNotFound
	}
	return *v, nil
}

// OwnerVehicles lists the vehicles registered by owner in registration order. It never fails.
func (s *State) OwnerVehicles(owner Identity) []VehicleID {
	ids := s.owned[owner]
	out := make([]VehicleID, len(ids))
	copy(out, ids)
	return out
}

// ChargingSession returns session id, valid in [1, SessionCounter].
func (s *State) ChargingSession(id uint64) (ChargingSession, error) {
	if id == 0 || id > uint64(len(s.sessions)) {
		return ChargingSession{}, ErrInvalidSessionID
	}
	return s.sessions[id-1], nil
}

// AvailableEnergyCredits returns the credit balance of a registered vehicle.
func (s *State) AvailableEnergyCredits(id VehicleID) (uint64, error) {
	if _, ok := s.vehicles[id]; !ok {
		return 0, ErrVehicleNotFound
	}
	return s.credits[id], nil
}

// Stats returns the aggregate counters.
func (s *State) Stats() Stats {
	return Stats{
		TotalVehiclesRegistered: s.vehicleCount,
		SessionCounter:          uint64(len(s.sessions)),
	}
}

// VehicleRecord is a vehicle plus its registration ordinal, which fixes owner list order.
type VehicleRecord struct {
	Vehicle
	Ordinal uint64 `json:"ordinal"`
}

// Snapshot is a complete, consistent copy of a State.
type Snapshot struct {
	Vehicles []VehicleRecord      `json:"vehicles"`
	Sessions []ChargingSession    `json:"sessions"`
	Credits  map[VehicleID]uint64 `json:"credits"`
	Stats    Stats                `json:"stats"`
}

// Snapshot copies the state. Vehicles are ordered by registration ordinal.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Vehicles: make([]VehicleRecord, 0, len(s.vehicles)),
		Sessions: make([]ChargingSession, len(s.sessions)),
		Credits:  make(map[VehicleID]uint64, len(s.credits)),
		Stats:    s.Stats(),
	}
	for id, v := range s.vehicles {
		snap.Vehicles = append(snap.Vehicles, VehicleRecord{Vehicle: *v, Ordinal: s.ordinals[id]})
	}
	sort.Slice(snap.Vehicles, func(i, j int) bool { return snap.Vehicles[i].Ordinal < snap.Vehicles[j].Ordinal })
	copy(snap.Sessions, s.sessions)
	for id, balance := range s.credits {
		snap.Credits[id] = balance
	}
	return snap
}

// Restore rebuilds a State from a snapshot, rejecting snapshots that break an invariant:
// duplicate or unregistered vehicles, non-dense session ids, sessions or credits for unknown
// vehicles, or counters that disagree with the collections.
func Restore(snap Snapshot) (*State, error) {
	s := NewState()

	vehicles := make([]VehicleRecord, len(snap.Vehicles))
	copy(vehicles, snap.Vehicles)
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].Ordinal < vehicles[j].Ordinal })

	for i, rec := range vehicles {
		if rec.ID == "" || !rec.Registered || rec.Ordinal != uint64(i+1) {
			return nil, ErrInvalidSnapshot
		}
		if _, dup := s.vehicles[rec.ID]; dup {
			return nil, ErrInvalidSnapshot
		}
		v := rec.Vehicle
		s.vehicles[v.ID] = &v
		s.ordinals[v.ID] = rec.Ordinal
		s.owned[v.Owner] = append(s.owned[v.Owner], v.ID)
	}
	s.vehicleCount = uint64(len(vehicles))

	s.sessions = make([]ChargingSession, 0, len(snap.Sessions))
	for i, session := range snap.Sessions {
		if session.ID != uint64(i+1) || !session.Completed {
			return nil, ErrInvalidSnapshot
		}
		if _, ok := s.vehicles[session.VehicleID]; !ok {
			return nil, ErrInvalidSnapshot
		}
		s.sessions = append(s.sessions, session)
	}

	for id, balance := range snap.Credits {
		if _, ok := s.vehicles[id]; !ok {
			return nil, ErrInvalidSnapshot
		}
		s.credits[id] = balance
	}

	if snap.Stats != s.Stats() {
		return nil, ErrInvalidSnapshot
	}
	return s, nil
}
