package ledger

import (
	"strings"
	"time"
)

// Identity is an opaque acting principal. Two identities are the same principal only when equal.
type Identity string

// IsZero reports whether the identity names no one: empty, or a hex address of all zeros.
func (i Identity) IsZero() bool {
	s := strings.TrimSpace(string(i))
	if s == "" {
		return true
	}
	hex, ok := strings.CutPrefix(strings.ToLower(s), "0x")
	if !ok {
		return false
	}
	return strings.Trim(hex, "0") == ""
}

// VehicleID is the caller-chosen unique key of a vehicle.
type VehicleID string

// Vehicle is a registered vehicle. Owner never changes after registration.
type Vehicle struct {
	ID                  VehicleID `json:"vehicle_id"`
	Model               string    `json:"model"`
	BatteryCapacity     string    `json:"battery_capacity"`
	Owner               Identity  `json:"owner"`
	TotalEnergyConsumed uint64    `json:"total_energy_consumed"`
	RegisteredAt        time.Time `json:"registered_at"`
	Registered          bool      `json:"registered"`
}

// ChargingSession is an immutable, already settled charging record.
type ChargingSession struct {
	ID           uint64    `json:"session_id"`
	VehicleID    VehicleID `json:"vehicle_id"`
	Station      Identity  `json:"station"`
	EnergyAmount uint64    `json:"energy_amount"`
	Cost         uint64    `json:"cost"`
	Timestamp    time.Time `json:"timestamp"`
	Completed    bool      `json:"completed"`
}

// Stats holds the process-wide counters.
type Stats struct {
	TotalVehiclesRegistered uint64 `json:"total_vehicles_registered"`
	SessionCounter          uint64 `json:"session_counter"`
}

// Settlement is the value movement staged by a charging session: the payer attached Supplied,
// keeps paying Cost and gets Refund back.
type Settlement struct {
	SessionID uint64    `json:"session_id"`
	VehicleID VehicleID `json:"vehicle_id"`
	Payer     Identity  `json:"payer"`
	Station   Identity  `json:"station"`
	Supplied  uint64    `json:"supplied"`
	Cost      uint64    `json:"cost"`
	Refund    uint64    `json:"refund"`
}
