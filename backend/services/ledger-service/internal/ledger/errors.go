package ledger

import "errors"

// Every failed operation returns one of these and leaves the state untouched.
var (
	ErrInvalidInput        = errors.New("ledger: invalid input")
	ErrAlreadyRegistered   = errors.New("ledger: vehicle already registered")
	ErrVehicleNotFound     = errors.New("ledger: vehicle not found")
	ErrInvalidAmount       = errors.New("ledger: amount must be greater than zero")
	ErrInsufficientPayment = errors.New("ledger: insufficient payment")
	ErrInsufficientCredits = errors.New("ledger: insufficient energy credits")
	ErrUnauthorized        = errors.New("ledger: caller is not the vehicle owner")
	ErrInvalidStation      = errors.New("ledger: invalid station identity")
	ErrSameVehicle         = errors.New("ledger: cannot transfer to the same vehicle")
	ErrInvalidSessionID    = errors.New("ledger: invalid session id")

	// ErrTxClosed is returned when an operation runs on a committed or rolled back Tx.
	ErrTxClosed = errors.New("ledger: transaction already closed")
	// ErrInvalidSnapshot is returned by Restore for snapshots that break a state invariant.
	ErrInvalidSnapshot = errors.New("ledger: inconsistent snapshot")
)

// IsNotFound reports whether err means the referenced entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrVehicleNotFound) || errors.Is(err, ErrInvalidSessionID)
}
