package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"evledger/backend/services/ledger-service/internal/ledger"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ledger.ErrVehicleNotFound, http.StatusNotFound},
		{ledger.ErrInvalidSessionID, http.StatusNotFound},
		{ledger.ErrAlreadyRegistered, http.StatusConflict},
		{ledger.ErrInsufficientCredits, http.StatusConflict},
		{ledger.ErrUnauthorized, http.StatusForbidden},
		{ledger.ErrInsufficientPayment, http.StatusPaymentRequired},
		{ledger.ErrInvalidInput, http.StatusBadRequest},
		{ledger.ErrInvalidAmount, http.StatusBadRequest},
		{ledger.ErrInvalidStation, http.StatusBadRequest},
		{ledger.ErrSameVehicle, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", ledger.ErrUnauthorized), http.StatusForbidden},
		{errors.New("database down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Fatalf("statusFor(%v): expected %d, got %d", tt.err, tt.want, got)
		}
	}
}

func TestParseSessionID(t *testing.T) {
	if id, err := parseSessionID("42"); err != nil || id != 42 {
		t.Fatalf("expected 42, got %d (%v)", id, err)
	}
	for _, raw := range []string{"", "-1", "abc", "18446744073709551616"} {
		if _, err := parseSessionID(raw); err == nil {
			t.Fatalf("parseSessionID(%q): expected error", raw)
		}
	}
}
