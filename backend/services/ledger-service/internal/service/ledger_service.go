package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"evledger/backend/services/ledger-service/internal/ledger"
	"evledger/backend/services/ledger-service/internal/payment"
)

const defaultNotifyTimeout = 5 * time.Second

// Store persists committed changesets and reloads the ledger on startup.
type Store interface {
	Apply(ctx context.Context, cs ledger.Changeset) error
	Load(ctx context.Context) (ledger.Snapshot, error)
}

// Notifier receives the events of every committed transaction, in commit order.
type Notifier interface {
	Publish(ctx context.Context, events []ledger.Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, events []ledger.Event) error

// Publish calls f.
func (f NotifierFunc) Publish(ctx context.Context, events []ledger.Event) error {
	return f(ctx, events)
}

// Receipt describes a committed operation.
type Receipt struct {
	SessionID uint64         `json:"session_id,omitempty"`
	Refund    uint64         `json:"refund"`
	Events    []ledger.Event `json:"events"`
}

// Option configures LedgerService.
type Option func(*LedgerService)

// WithStore makes every commit durable in store.
func WithStore(store Store) Option {
	return func(s *LedgerService) { s.store = store }
}

// WithNotifier adds a best-effort event sink.
func WithNotifier(n Notifier) Option {
	return func(s *LedgerService) { s.notifiers = append(s.notifiers, n) }
}

// WithClock overrides the time source stamped on records.
func WithClock(clock func() time.Time) Option {
	return func(s *LedgerService) { s.clock = clock }
}

// WithNotifyTimeout bounds each notifier call.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *LedgerService) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// LedgerService serializes ledger operations. Each mutating call runs as one transaction:
// the ledger change, the value settlement and the durable write either all happen or none do.
type LedgerService struct {
	mu            sync.RWMutex
	state         *ledger.State
	gateway       payment.Gateway
	store         Store
	notifiers     []Notifier
	clock         func() time.Time
	notifyTimeout time.Duration
	logger        *zap.Logger
}

// NewLedgerService builds service over an empty ledger.
func NewLedgerService(gateway payment.Gateway, logger *zap.Logger, opts ...Option) *LedgerService {
	s := &LedgerService{
		state:         ledger.NewState(),
		gateway:       gateway,
		clock:         time.Now,
		notifyTimeout: defaultNotifyTimeout,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore replaces the in-memory ledger with the persisted one. Without a store it does nothing.
func (s *LedgerService) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	snap, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("service: load ledger: %w", err)
	}
	state, err := ledger.Restore(snap)
	if err != nil {
		return fmt.Errorf("service: restore ledger: %w", err)
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	stats := state.Stats()
	s.logger.Info("ledger restored",
		zap.Uint64("vehicles", stats.TotalVehiclesRegistered),
		zap.Uint64("sessions", stats.SessionCounter),
	)
	return nil
}

// RegisterVehicle binds a new vehicle to caller.
func (s *LedgerService) RegisterVehicle(ctx context.Context, id ledger.VehicleID, model, batteryCapacity string, caller ledger.Identity) (Receipt, error) {
	return s.execute(ctx, "register_vehicle", func(tx *ledger.Tx) (uint64, error) {
		return 0, tx.RegisterVehicle(id, model, batteryCapacity, caller)
	})
}

// RecordChargingSession settles a session that caller pays for and operates as station.
func (s *LedgerService) RecordChargingSession(ctx context.Context, vehicleID ledger.VehicleID, energyAmount, cost uint64, caller ledger.Identity, suppliedFunds uint64) (Receipt, error) {
	return s.execute(ctx, "record_charging_session", func(tx *ledger.Tx) (uint64, error) {
		return tx.RecordChargingSession(vehicleID, energyAmount, cost, caller, suppliedFunds)
	})
}

// RecordOwnerChargingSession settles a session the vehicle owner pays for at station.
func (s *LedgerService) RecordOwnerChargingSession(ctx context.Context, vehicleID ledger.VehicleID, energyAmount, cost uint64, station, caller ledger.Identity, suppliedFunds uint64) (Receipt, error) {
	return s.execute(ctx, "record_owner_charging_session", func(tx *ledger.Tx) (uint64, error) {
		return tx.RecordOwnerChargingSession(vehicleID, energyAmount, cost, station, caller, suppliedFunds)
	})
}

// AddEnergyCredits mints credits for a registered vehicle.
func (s *LedgerService) AddEnergyCredits(ctx context.Context, vehicleID ledger.VehicleID, amount uint64, caller ledger.Identity) (Receipt, error) {
	return s.execute(ctx, "add_energy_credits", func(tx *ledger.Tx) (uint64, error) {
		return 0, tx.AddEnergyCredits(vehicleID, amount, caller)
	})
}

// TransferEnergyCredits moves credits between two vehicles of caller.
func (s *LedgerService) TransferEnergyCredits(ctx context.Context, from, to ledger.VehicleID, amount uint64, caller ledger.Identity) (Receipt, error) {
	return s.execute(ctx, "transfer_energy_credits", func(tx *ledger.Tx) (uint64, error) {
		return 0, tx.TransferEnergyCredits(from, to, amount, caller)
	})
}

// VehicleInfo returns the vehicle record.
func (s *LedgerService) VehicleInfo(id ledger.VehicleID) (ledger.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.VehicleInfo(id)
}

// OwnerVehicles lists the vehicles of owner in registration order.
func (s *LedgerService) OwnerVehicles(owner ledger.Identity) []ledger.VehicleID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.OwnerVehicles(owner)
}

// ChargingSession returns the session with id.
func (s *LedgerService) ChargingSession(id uint64) (ledger.ChargingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ChargingSession(id)
}

// AvailableEnergyCredits returns the credit balance of a vehicle.
func (s *LedgerService) AvailableEnergyCredits(id ledger.VehicleID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AvailableEnergyCredits(id)
}

// Stats returns the global counters.
func (s *LedgerService) Stats() ledger.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Stats()
}

func (s *LedgerService) execute(ctx context.Context, op string, fn func(tx *ledger.Tx) (uint64, error)) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state.Begin(s.clock().UTC())
	sessionID, err := fn(tx)
	if err != nil {
		tx.Rollback()
		return Receipt{}, err
	}

	settlements := tx.Settlements()
	for i, settlement := range settlements {
		if err := s.gateway.Settle(ctx, settlement); err != nil {
			err = fmt.Errorf("service: settle session %d: %w", settlement.SessionID, err)
			s.abort(ctx, op, tx, settlements[:i], err)
			return Receipt{}, err
		}
	}

	changes := tx.Changes()
	if s.store != nil && !changes.Empty() {
		if err := s.store.Apply(ctx, changes); err != nil {
			err = fmt.Errorf("service: persist %s: %w", op, err)
			s.abort(ctx, op, tx, settlements, err)
			return Receipt{}, err
		}
	}

	tx.Commit()

	receipt := Receipt{SessionID: sessionID, Events: changes.Events}
	for _, settlement := range settlements {
		receipt.Refund += settlement.Refund
	}
	s.notify(ctx, op, changes.Events)

	s.logger.Debug("ledger operation committed", zap.String("op", op), zap.Int("events", len(changes.Events)))
	return receipt, nil
}

// abort reverses applied settlements newest first and rolls back the ledger change.
func (s *LedgerService) abort(ctx context.Context, op string, tx *ledger.Tx, applied []ledger.Settlement, cause error) {
	var reverseErrs []error
	for i := len(applied) - 1; i >= 0; i-- {
		if err := s.gateway.Reverse(context.WithoutCancel(ctx), applied[i]); err != nil {
			reverseErrs = append(reverseErrs, fmt.Errorf("session %d: %w", applied[i].SessionID, err))
		}
	}
	tx.Rollback()

	fields := []zap.Field{zap.String("op", op), zap.Error(cause)}
	if err := errors.Join(reverseErrs...); err != nil {
		s.logger.Error("settlement reversal failed", append(fields, zap.NamedError("reverse_error", err))...)
		return
	}
	s.logger.Warn("ledger operation aborted", fields...)
}

// notify runs while the write lock is held so sinks observe events in commit order.
func (s *LedgerService) notify(ctx context.Context, op string, events []ledger.Event) {
	if len(events) == 0 {
		return
	}
	for _, n := range s.notifiers {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
		err := n.Publish(nctx, events)
		cancel()
		if err != nil {
			s.logger.Warn("publish ledger events failed", zap.String("op", op), zap.Error(err))
		}
	}
}
