package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBillApplyPayment(t *testing.T) {
	fresh := func(status BillStatus, paid int64) *Bill {
		return &Bill{
			Amount:     decimal.NewFromInt(1750),
			PaidAmount: decimal.NewFromInt(paid),
			Status:     status,
		}
	}

	tests := []struct {
		name       string
		bill       *Bill
		amount     decimal.Decimal
		wantErr    error
		wantStatus BillStatus
		wantPaid   decimal.Decimal
	}{
		{
			name:       "Partial payment",
			bill:       fresh(BillUnpaid, 0),
			amount:     decimal.NewFromInt(500),
			wantStatus: BillPartial,
			wantPaid:   decimal.NewFromInt(500),
		},
		{
			name:       "Exact settlement",
			bill:       fresh(BillUnpaid, 0),
			amount:     decimal.NewFromInt(1750),
			wantStatus: BillPaid,
			wantPaid:   decimal.NewFromInt(1750),
		},
		{
			name:       "Settling the remainder",
			bill:       fresh(BillPartial, 1000),
			amount:     decimal.NewFromInt(750),
			wantStatus: BillPaid,
			wantPaid:   decimal.NewFromInt(1750),
		},
		{
			name:       "Overdue bills stay payable",
			bill:       fresh(BillOverdue, 0),
			amount:     decimal.NewFromInt(100),
			wantStatus: BillPartial,
			wantPaid:   decimal.NewFromInt(100),
		},
		{
			name:    "Zero amount",
			bill:    fresh(BillUnpaid, 0),
			amount:  decimal.Zero,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "Negative amount",
			bill:    fresh(BillUnpaid, 0),
			amount:  decimal.NewFromInt(-5),
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "Over the remaining balance",
			bill:    fresh(BillPartial, 1000),
			amount:  decimal.NewFromInt(751),
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "Paid bill is terminal",
			bill:    fresh(BillPaid, 1750),
			amount:  decimal.NewFromInt(1),
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "Cancelled bill is never collected",
			bill:    fresh(BillCancelled, 0),
			amount:  decimal.NewFromInt(100),
			wantErr: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bill.ApplyPayment(tt.amount)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.bill.Status != tt.wantStatus {
				t.Errorf("status = %v, want %v", tt.bill.Status, tt.wantStatus)
			}
			if !tt.bill.PaidAmount.Equal(tt.wantPaid) {
				t.Errorf("paidAmount = %v, want %v", tt.bill.PaidAmount, tt.wantPaid)
			}
		})
	}
}

func TestBillRemaining(t *testing.T) {
	b := &Bill{Amount: decimal.NewFromInt(1750), PaidAmount: decimal.NewFromInt(500)}
	if !b.Remaining().Equal(decimal.NewFromInt(1250)) {
		t.Errorf("Remaining() = %v, want 1250", b.Remaining())
	}
}

func TestNewID(t *testing.T) {
	a := NewID(PrefixBill)
	b := NewID(PrefixBill)
	if a == b {
		t.Errorf("ids collide: %q", a)
	}
	if len(a) < 6 || a[:5] != "BILL-" {
		t.Errorf("id = %q, want BILL- prefix", a)
	}
}
