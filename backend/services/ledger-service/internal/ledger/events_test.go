package ledger

import (
	"encoding/json"
	"testing"
)

func TestZeroCostCompletedEventKeepsCost(t *testing.T) {
	s := NewState()
	mustRun(t, s, func(tx *Tx) error { return tx.RegisterVehicle(v1, "Model 3", "75kWh", owner1) })
	tx := mustRun(t, s, func(tx *Tx) error {
		_, err := tx.RecordChargingSession(v1, 5, 0, station, 0)
		return err
	})

	events := tx.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	data, err := json.Marshal(events[1])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"type", "recorded_at", "session_id", "energy_amount", "cost"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("expected key %q in %s", key, data)
		}
	}
	if cost := fields["cost"].(float64); cost != 0 {
		t.Fatalf("expected cost 0, got %v", cost)
	}
	if _, ok := fields["vehicle_id"]; ok {
		t.Fatalf("expected completed event without vehicle_id, got %s", data)
	}
}

func TestEventJSONCarriesOnlyTypeFields(t *testing.T) {
	tests := []struct {
		event Event
		keys  []string
	}{
		{Event{Type: EventVehicleRegistered, VehicleID: v1, Owner: owner1, Model: "Leaf"}, []string{"vehicle_id", "owner", "model"}},
		{Event{Type: EventChargingSessionStarted, SessionID: 1, VehicleID: v1, Station: station}, []string{"session_id", "vehicle_id", "station"}},
		{Event{Type: EventEnergyTransferCompleted, FromVehicleID: v1, ToVehicleID: v2, Amount: 3}, []string{"from_vehicle_id", "to_vehicle_id", "amount"}},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.event)
		if err != nil {
			t.Fatalf("marshal %s: %v", tt.event.Type, err)
		}
		var fields map[string]interface{}
		if err := json.Unmarshal(data, &fields); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.event.Type, err)
		}
		if len(fields) != len(tt.keys)+2 {
			t.Fatalf("%s: expected %d keys, got %s", tt.event.Type, len(tt.keys)+2, data)
		}
		for _, key := range tt.keys {
			if _, ok := fields[key]; !ok {
				t.Fatalf("%s: expected key %q in %s", tt.event.Type, key, data)
			}
		}

		var back Event
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("decode %s: %v", tt.event.Type, err)
		}
		if back != tt.event {
			t.Fatalf("expected %+v, got %+v", tt.event, back)
		}
	}
}
