package ledger

import (
	"encoding/json"
	"time"
)

// EventType names a ledger notification.
type EventType string

const (
	EventVehicleRegistered        EventType = "VehicleRegistered"
	EventChargingSessionStarted   EventType = "ChargingSessionStarted"
	EventChargingSessionCompleted EventType = "ChargingSessionCompleted"
	EventEnergyTransferCompleted  EventType = "EnergyTransferCompleted"
)

// Event is one append-only notification. Only the fields of its Type are set, and only
// those are encoded, always including zero values.
type Event struct {
	Type       EventType `json:"type"`
	RecordedAt time.Time `json:"recorded_at"`

	// VehicleRegistered, ChargingSessionStarted
	VehicleID VehicleID `json:"vehicle_id,omitempty"`
	Owner     Identity  `json:"owner,omitempty"`
	Model     string    `json:"model,omitempty"`

	// ChargingSessionStarted, ChargingSessionCompleted
	SessionID    uint64   `json:"session_id,omitempty"`
	Station      Identity `json:"station,omitempty"`
	EnergyAmount uint64   `json:"energy_amount,omitempty"`
	Cost         uint64   `json:"cost,omitempty"`

	// EnergyTransferCompleted
	FromVehicleID VehicleID `json:"from_vehicle_id,omitempty"`
	ToVehicleID   VehicleID `json:"to_vehicle_id,omitempty"`
	Amount        uint64    `json:"amount,omitempty"`
}

type vehicleRegisteredPayload struct {
	Type       EventType `json:"type"`
	RecordedAt time.Time `json:"recorded_at"`
	VehicleID  VehicleID `json:"vehicle_id"`
	Owner      Identity  `json:"owner"`
	Model      string    `json:"model"`
}

type sessionStartedPayload struct {
	Type       EventType `json:"type"`
	RecordedAt time.Time `json:"recorded_at"`
	SessionID  uint64    `json:"session_id"`
	VehicleID  VehicleID `json:"vehicle_id"`
	Station    Identity  `json:"station"`
}

type sessionCompletedPayload struct {
	Type         EventType `json:"type"`
	RecordedAt   time.Time `json:"recorded_at"`
	SessionID    uint64    `json:"session_id"`
	EnergyAmount uint64    `json:"energy_amount"`
	Cost         uint64    `json:"cost"`
}

type transferCompletedPayload struct {
	Type          EventType `json:"type"`
	RecordedAt    time.Time `json:"recorded_at"`
	FromVehicleID VehicleID `json:"from_vehicle_id"`
	ToVehicleID   VehicleID `json:"to_vehicle_id"`
	Amount        uint64    `json:"amount"`
}

// MarshalJSON encodes the payload of e.Type.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventVehicleRegistered:
		return json.Marshal(vehicleRegisteredPayload{e.Type, e.RecordedAt, e.VehicleID, e.Owner, e.Model})
	case EventChargingSessionStarted:
		return json.Marshal(sessionStartedPayload{e.Type, e.RecordedAt, e.SessionID, e.VehicleID, e.Station})
	case EventChargingSessionCompleted:
		return json.Marshal(sessionCompletedPayload{e.Type, e.RecordedAt, e.SessionID, e.EnergyAmount, e.Cost})
	case EventEnergyTransferCompleted:
		return json.Marshal(transferCompletedPayload{e.Type, e.RecordedAt, e.FromVehicleID, e.ToVehicleID, e.Amount})
	default:
		type plain Event
		return json.Marshal(plain(e))
	}
}
