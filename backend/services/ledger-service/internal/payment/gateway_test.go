package payment

import (
	"context"
	"errors"
	"math"
	"testing"

	"evledger/backend/services/ledger-service/internal/ledger"
)

func TestTreasurySettleKeepsCostAndRefundsExcess(t *testing.T) {
	treasury := NewTreasury()
	s := ledger.Settlement{SessionID: 1, VehicleID: "V1", Payer: "driver", Station: "station", Supplied: 150, Cost: 100, Refund: 50}

	if err := treasury.Settle(context.Background(), s); err != nil {
		t.Fatalf("settle: %v", err)
	}

	payer := treasury.Account("driver")
	if payer.Paid != 100 || payer.Refunded != 50 {
		t.Fatalf("expected paid 100 refunded 50, got %+v", payer)
	}
	if earned := treasury.Account("station").Earned; earned != 100 {
		t.Fatalf("expected station to earn 100, got %d", earned)
	}
	if treasury.Balance() != 100 {
		t.Fatalf("expected treasury balance 100, got %d", treasury.Balance())
	}
}

func TestTreasurySelfChargingStation(t *testing.T) {
	treasury := NewTreasury()
	s := ledger.Settlement{SessionID: 1, Payer: "station", Station: "station", Supplied: 10, Cost: 10}
	if err := treasury.Settle(context.Background(), s); err != nil {
		t.Fatalf("settle: %v", err)
	}
	acc := treasury.Account("station")
	if acc.Paid != 10 || acc.Earned != 10 {
		t.Fatalf("expected paid and earned 10, got %+v", acc)
	}
}

func TestTreasuryRejectsInconsistentSettlement(t *testing.T) {
	treasury := NewTreasury()
	tests := []ledger.Settlement{
		{SessionID: 1, Payer: "a", Supplied: 10, Cost: 20},
		{SessionID: 2, Payer: "a", Supplied: 30, Cost: 20, Refund: 5},
	}
	for _, s := range tests {
		if err := treasury.Settle(context.Background(), s); !errors.Is(err, ErrUnderfunded) {
			t.Fatalf("expected ErrUnderfunded for %+v, got %v", s, err)
		}
	}
	if treasury.Balance() != 0 {
		t.Fatalf("expected untouched treasury, got %d", treasury.Balance())
	}
}

func TestTreasuryReverse(t *testing.T) {
	treasury := NewTreasury()
	s := ledger.Settlement{SessionID: 3, Payer: "driver", Station: "station", Supplied: 80, Cost: 60, Refund: 20}
	if err := treasury.Settle(context.Background(), s); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if err := treasury.Reverse(context.Background(), s); err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if treasury.Balance() != 0 {
		t.Fatalf("expected zero balance after reverse, got %d", treasury.Balance())
	}
	if acc := treasury.Account("driver"); acc != (Account{}) {
		t.Fatalf("expected driver account cleared, got %+v", acc)
	}
	if err := treasury.Reverse(context.Background(), s); !errors.Is(err, ErrUnknownSettlement) {
		t.Fatalf("expected ErrUnknownSettlement on second reverse, got %v", err)
	}
}

func TestTreasurySettleRejectsOverflow(t *testing.T) {
	treasury := NewTreasury()
	first := ledger.Settlement{SessionID: 1, Payer: "driver", Station: "station", Supplied: math.MaxUint64, Cost: math.MaxUint64}
	if err := treasury.Settle(context.Background(), first); err != nil {
		t.Fatalf("settle: %v", err)
	}

	second := ledger.Settlement{SessionID: 2, Payer: "other", Station: "elsewhere", Supplied: 1, Cost: 1}
	if err := treasury.Settle(context.Background(), second); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if treasury.Balance() != math.MaxUint64 {
		t.Fatalf("expected balance untouched, got %d", treasury.Balance())
	}
	if acc := treasury.Account("other"); acc != (Account{}) {
		t.Fatalf("expected no account for rejected payer, got %+v", acc)
	}
	if err := treasury.Reverse(context.Background(), second); !errors.Is(err, ErrUnknownSettlement) {
		t.Fatalf("expected rejected settlement to be unknown, got %v", err)
	}
}
