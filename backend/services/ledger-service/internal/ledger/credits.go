package ledger

// AddEnergyCredits issues amount credits to a vehicle, e.g. for energy its owner produced
// off-grid. Only the owner may issue.
func (tx *Tx) AddEnergyCredits(vehicleID VehicleID, amount uint64, caller Identity) error {
	if tx.closed {
		return ErrTxClosed
	}
	s := tx.state
	v, ok := s.vehicles[vehicleID]
	if !ok {
		return ErrVehicleNotFound
	}
	if v.Owner != caller {
		return ErrUnauthorized
	}
	balance := s.credits[vehicleID]
	if amount == 0 || addOverflows(balance, amount) {
		return ErrInvalidAmount
	}

	tx.setBalance(vehicleID, balance+amount)
	return nil
}

// TransferEnergyCredits moves amount credits between two distinct vehicles. The caller must
// own the source vehicle. The sum of both balances is unchanged.
func (tx *Tx) TransferEnergyCredits(from, to VehicleID, amount uint64, caller Identity) error {
	if tx.closed {
		return ErrTxClosed
	}
	s := tx.state
	source, ok := s.vehicles[from]
	if !ok {
		return ErrVehicleNotFound
	}
	if _, ok := s.vehicles[to]; !ok {
		return ErrVehicleNotFound
	}
	if source.Owner != caller {
		return ErrUnauthorized
	}
	if from == to {
		return ErrSameVehicle
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	fromBalance, toBalance := s.credits[from], s.credits[to]
	if fromBalance < amount {
		return ErrInsufficientCredits
	}
	if addOverflows(toBalance, amount) {
		return ErrInvalidAmount
	}

	tx.setBalance(from, fromBalance-amount)
	tx.setBalance(to, toBalance+amount)
	tx.emit(Event{
		Type:          EventEnergyTransferCompleted,
		FromVehicleID: from,
		ToVehicleID:   to,
		Amount:        amount,
	})
	return nil
}
