package repository

// Unsigned 64-bit amounts do not fit BIGINT, so they are stored as NUMERIC(20,0) and
// exchanged as decimal strings.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_vehicles (
		vehicle_id            TEXT PRIMARY KEY,
		ordinal               BIGINT NOT NULL UNIQUE,
		model                 TEXT NOT NULL,
		battery_capacity      TEXT NOT NULL,
		owner                 TEXT NOT NULL,
		total_energy_consumed NUMERIC(20,0) NOT NULL DEFAULT 0,
		registered_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_vehicles_owner_idx ON ledger_vehicles (owner, ordinal)`,
	`CREATE TABLE IF NOT EXISTS ledger_sessions (
		session_id    BIGINT PRIMARY KEY,
		vehicle_id    TEXT NOT NULL REFERENCES ledger_vehicles (vehicle_id),
		station       TEXT NOT NULL,
		energy_amount NUMERIC(20,0) NOT NULL,
		cost          NUMERIC(20,0) NOT NULL,
		recorded_at   TIMESTAMPTZ NOT NULL,
		completed     BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_credits (
		vehicle_id TEXT PRIMARY KEY REFERENCES ledger_vehicles (vehicle_id),
		balance    NUMERIC(20,0) NOT NULL CHECK (balance >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_counters (
		id              SMALLINT PRIMARY KEY CHECK (id = 1),
		total_vehicles  BIGINT NOT NULL,
		session_counter BIGINT NOT NULL
	)`,
	`INSERT INTO ledger_counters (id, total_vehicles, session_counter) VALUES (1, 0, 0) ON CONFLICT (id) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS ledger_events (
		seq         BIGSERIAL PRIMARY KEY,
		event_type  TEXT NOT NULL,
		payload     JSONB NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
}
