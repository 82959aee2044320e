package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"evledger/backend/services/ledger-service/internal/ledger"
)

// SnapshotRepository persists the ledger in Postgres. Each ledger transaction is written by
// one SQL transaction, so a restored snapshot never contains half of a ledger transaction.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository returns repository.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Migrate creates the ledger tables when missing.
func (r *SnapshotRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("repository: migrate: %w", err)
		}
	}
	return nil
}

// Apply writes a committed ledger changeset atomically.
func (r *SnapshotRepository) Apply(ctx context.Context, cs ledger.Changeset) (err error) {
	if cs.Empty() {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("repository: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, v := range cs.Vehicles {
		const query = `
			INSERT INTO ledger_vehicles (vehicle_id, ordinal, model, battery_capacity, owner, total_energy_consumed, registered_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err = tx.ExecContext(ctx, query,
			string(v.ID),
			int64(v.Ordinal),
			v.Model,
			v.BatteryCapacity,
			string(v.Owner),
			formatUint(v.TotalEnergyConsumed),
			v.RegisteredAt,
		); err != nil {
			return fmt.Errorf("repository: insert vehicle %s: %w", v.ID, err)
		}
	}

	for _, s := range cs.Sessions {
		const query = `
			INSERT INTO ledger_sessions (session_id, vehicle_id, station, energy_amount, cost, recorded_at, completed)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err = tx.ExecContext(ctx, query,
			int64(s.ID),
			string(s.VehicleID),
			string(s.Station),
			formatUint(s.EnergyAmount),
			formatUint(s.Cost),
			s.Timestamp,
			s.Completed,
		); err != nil {
			return fmt.Errorf("repository: insert session %d: %w", s.ID, err)
		}
	}

	for id, total := range cs.Energy {
		const query = `UPDATE ledger_vehicles SET total_energy_consumed = $2 WHERE vehicle_id = $1`
		if err = execOne(ctx, tx, query, string(id), formatUint(total)); err != nil {
			return fmt.Errorf("repository: update energy %s: %w", id, err)
		}
	}

	for id, balance := range cs.Balances {
		const query = `
			INSERT INTO ledger_credits (vehicle_id, balance)
			VALUES ($1, $2)
			ON CONFLICT (vehicle_id) DO UPDATE SET balance = EXCLUDED.balance
		`
		if _, err = tx.ExecContext(ctx, query, string(id), formatUint(balance)); err != nil {
			return fmt.Errorf("repository: upsert credits %s: %w", id, err)
		}
	}

	const counters = `UPDATE ledger_counters SET total_vehicles = $1, session_counter = $2 WHERE id = 1`
	if err = execOne(ctx, tx, counters, int64(cs.Stats.TotalVehiclesRegistered), int64(cs.Stats.SessionCounter)); err != nil {
		return fmt.Errorf("repository: update counters: %w", err)
	}

	for _, e := range cs.Events {
		payload, marshalErr := json.Marshal(e)
		if marshalErr != nil {
			err = marshalErr
			return fmt.Errorf("repository: encode event: %w", err)
		}
		const query = `INSERT INTO ledger_events (event_type, payload, recorded_at) VALUES ($1, $2, $3)`
		if _, err = tx.ExecContext(ctx, query, string(e.Type), payload, e.RecordedAt); err != nil {
			return fmt.Errorf("repository: append event: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("repository: commit: %w", err)
	}
	return nil
}

// Load reads the whole ledger inside one read-only repeatable-read transaction.
func (r *SnapshotRepository) Load(ctx context.Context) (ledger.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("repository: begin: %w", err)
	}
	defer tx.Rollback()

	snap := ledger.Snapshot{Credits: make(map[ledger.VehicleID]uint64)}

	if snap.Vehicles, err = loadVehicles(ctx, tx); err != nil {
		return ledger.Snapshot{}, err
	}
	if snap.Sessions, err = loadSessions(ctx, tx); err != nil {
		return ledger.Snapshot{}, err
	}
	if err = loadCredits(ctx, tx, snap.Credits); err != nil {
		return ledger.Snapshot{}, err
	}

	const counters = `SELECT total_vehicles, session_counter FROM ledger_counters WHERE id = 1`
	var totalVehicles, sessionCounter int64
	if err = tx.QueryRowContext(ctx, counters).Scan(&totalVehicles, &sessionCounter); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("repository: load counters: %w", err)
	}
	snap.Stats = ledger.Stats{
		TotalVehiclesRegistered: uint64(totalVehicles),
		SessionCounter:          uint64(sessionCounter),
	}
	return snap, nil
}

func loadVehicles(ctx context.Context, tx *sql.Tx) ([]ledger.VehicleRecord, error) {
	const query = `
		SELECT vehicle_id, ordinal, model, battery_capacity, owner, total_energy_consumed::text, registered_at
		FROM ledger_vehicles
		ORDER BY ordinal
	`
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: load vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []ledger.VehicleRecord
	for rows.Next() {
		var (
			rec     ledger.VehicleRecord
			id      string
			owner   string
			ordinal int64
			energy  string
		)
		if err := rows.Scan(&id, &ordinal, &rec.Model, &rec.BatteryCapacity, &owner, &energy, &rec.RegisteredAt); err != nil {
			return nil, fmt.Errorf("repository: scan vehicle: %w", err)
		}
		if rec.TotalEnergyConsumed, err = parseUint(energy); err != nil {
			return nil, fmt.Errorf("repository: vehicle %s energy: %w", id, err)
		}
		rec.ID = ledger.VehicleID(id)
		rec.Owner = ledger.Identity(owner)
		rec.Ordinal = uint64(ordinal)
		rec.RegisteredAt = rec.RegisteredAt.UTC()
		rec.Registered = true
		vehicles = append(vehicles, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vehicles, nil
}

func loadSessions(ctx context.Context, tx *sql.Tx) ([]ledger.ChargingSession, error) {
	const query = `
		SELECT session_id, vehicle_id, station, energy_amount::text, cost::text, recorded_at, completed
		FROM ledger_sessions
		ORDER BY session_id
	`
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: load sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ledger.ChargingSession
	for rows.Next() {
		var (
			s         ledger.ChargingSession
			id        int64
			vehicleID string
			station   string
			energy    string
			cost      string
		)
		if err := rows.Scan(&id, &vehicleID, &station, &energy, &cost, &s.Timestamp, &s.Completed); err != nil {
			return nil, fmt.Errorf("repository: scan session: %w", err)
		}
		if s.EnergyAmount, err = parseUint(energy); err != nil {
			return nil, fmt.Errorf("repository: session %d energy: %w", id, err)
		}
		if s.Cost, err = parseUint(cost); err != nil {
			return nil, fmt.Errorf("repository: session %d cost: %w", id, err)
		}
		s.ID = uint64(id)
		s.VehicleID = ledger.VehicleID(vehicleID)
		s.Station = ledger.Identity(station)
		s.Timestamp = s.Timestamp.UTC()
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func loadCredits(ctx context.Context, tx *sql.Tx, into map[ledger.VehicleID]uint64) error {
	const query = `SELECT vehicle_id, balance::text FROM ledger_credits`
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("repository: load credits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("repository: scan credits: %w", err)
		}
		balance, err := parseUint(raw)
		if err != nil {
			return fmt.Errorf("repository: credits %s: %w", id, err)
		}
		into[ledger.VehicleID(id)] = balance
	}
	return rows.Err()
}

func execOne(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return sql.ErrNoRows
	}
	return nil
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseUint(raw string) (uint64, error) {
	return strconv.ParseUint(raw, 10, 64)
}
