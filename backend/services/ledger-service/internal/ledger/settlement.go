package ledger

// RecordChargingSession settles a charging session supplied by the caller, who is recorded
// as the station. Anyone may call it.
func (tx *Tx) RecordChargingSession(vehicleID VehicleID, energyAmount, cost uint64, caller Identity, suppliedFunds uint64) (uint64, error) {
	return tx.settle(sessionRequest{
		vehicleID: vehicleID,
		energy:    energyAmount,
		cost:      cost,
		station:   caller,
		caller:    caller,
		supplied:  suppliedFunds,
	})
}

// RecordOwnerChargingSession settles a session on behalf of the vehicle owner, naming the
// station that supplied the energy explicitly.
func (tx *Tx) RecordOwnerChargingSession(vehicleID VehicleID, energyAmount, cost uint64, station, caller Identity, suppliedFunds uint64) (uint64, error) {
	return tx.settle(sessionRequest{
		vehicleID: vehicleID,
		energy:    energyAmount,
		cost:      cost,
		station:   station,
		caller:    caller,
		supplied:  suppliedFunds,
		ownerOnly: true,
	})
}

type sessionRequest struct {
	vehicleID VehicleID
	energy    uint64
	cost      uint64
	station   Identity
	caller    Identity
	supplied  uint64
	ownerOnly bool
}

// settle records an already completed session, adds its energy to the vehicle, emits
// Started then Completed, and stages the refund of supplied - cost to the caller.
func (tx *Tx) settle(req sessionRequest) (uint64, error) {
	if tx.closed {
		return 0, ErrTxClosed
	}
	s := tx.state
	v, ok := s.vehicles[req.vehicleID]
	if !ok {
		return 0, ErrVehicleNotFound
	}
	if req.ownerOnly {
		if v.Owner != req.caller {
			return 0, ErrUnauthorized
		}
		if req.station.IsZero() {
			return 0, ErrInvalidStation
		}
	}
	if req.energy == 0 || addOverflows(v.TotalEnergyConsumed, req.energy) {
		return 0, ErrInvalidAmount
	}
	if req.supplied < req.cost {
		return 0, ErrInsufficientPayment
	}

	sessionID := uint64(len(s.sessions)) + 1
	session := ChargingSession{
		ID:           sessionID,
		VehicleID:    req.vehicleID,
		Station:      req.station,
		EnergyAmount: req.energy,
		Cost:         req.cost,
		Timestamp:    tx.now,
		Completed:    true,
	}
	s.sessions = append(s.sessions, session)
	tx.undo = append(tx.undo, func() { s.sessions = s.sessions[:sessionID-1] })
	tx.setEnergy(v, v.TotalEnergyConsumed+req.energy)

	tx.sessions = append(tx.sessions, session)
	tx.emit(Event{
		Type:      EventChargingSessionStarted,
		SessionID: sessionID,
		VehicleID: req.vehicleID,
		Station:   req.station,
	})
	tx.emit(Event{
		Type:         EventChargingSessionCompleted,
		SessionID:    sessionID,
		EnergyAmount: req.energy,
		Cost:         req.cost,
	})
	tx.settlements = append(tx.settlements, Settlement{
		SessionID: sessionID,
		VehicleID: req.vehicleID,
		Payer:     req.caller,
		Station:   req.station,
		Supplied:  req.supplied,
		Cost:      req.cost,
		Refund:    req.supplied - req.cost,
	})
	return sessionID, nil
}
