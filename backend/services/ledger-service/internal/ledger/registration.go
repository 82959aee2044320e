package ledger

import "strings"

// RegisterVehicle creates the vehicle with caller as its permanent owner and appends it to
// the caller's vehicle list. A vehicle id is accepted at most once, ever.
func (tx *Tx) RegisterVehicle(id VehicleID, model, batteryCapacity string, caller Identity) error {
	if tx.closed {
		return ErrTxClosed
	}
	s := tx.state
	if _, exists := s.vehicles[id]; exists {
		return ErrAlreadyRegistered
	}
	if strings.TrimSpace(string(id)) == "" ||
		strings.TrimSpace(model) == "" ||
		strings.TrimSpace(batteryCapacity) == "" ||
		caller.IsZero() {
		return ErrInvalidInput
	}

	ordinal := s.vehicleCount + 1
	v := &Vehicle{
		ID:              id,
		Model:           model,
		BatteryCapacity: batteryCapacity,
		Owner:           caller,
		RegisteredAt:    tx.now,
		Registered:      true,
	}

	prevOwned := s.owned[caller]
	s.vehicles[id] = v
	s.ordinals[id] = ordinal
	s.owned[caller] = append(prevOwned, id)
	s.vehicleCount = ordinal
	tx.undo = append(tx.undo, func() {
		delete(s.vehicles, id)
		delete(s.ordinals, id)
		if len(prevOwned) == 0 {
			delete(s.owned, caller)
		} else {
			s.owned[caller] = prevOwned
		}
		s.vehicleCount = ordinal - 1
	})

	tx.vehicles = append(tx.vehicles, VehicleRecord{Vehicle: *v, Ordinal: ordinal})
	tx.emit(Event{
		Type:      EventVehicleRegistered,
		VehicleID: id,
		Owner:     caller,
		Model:     model,
	})
	return nil
}
