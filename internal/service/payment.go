package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/utilityops/ums-backend/internal/domain"
	"github.com/utilityops/ums-backend/internal/store"
)

// PaymentService applies payments to bills.
type PaymentService struct {
	store store.Store
	clock func() time.Time
}

func NewPaymentService(st store.Store) *PaymentService {
	return &PaymentService{store: st, clock: time.Now}
}

// PayBill records a payment against a bill and returns the payment and
// the bill as updated. Non-positive amounts and amounts above the bill's
// remaining balance are rejected with domain.ErrInvalidAmount; unknown
// bills with domain.ErrNotFound.
func (s *PaymentService) PayBill(ctx context.Context, billID string, amount decimal.Decimal, method domain.PaymentMethod, processedBy string) (*domain.Payment, *domain.Bill, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, domain.ErrInvalidAmount
	}
	if method == "" {
		method = domain.PaymentCash
	}
	if processedBy == "" {
		processedBy = "Cashier"
	}

	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return nil, nil, err
	}

	payment := &domain.Payment{
		ID:          domain.NewID(domain.PrefixPayment),
		BillID:      bill.ID,
		CustomerID:  bill.CustomerID,
		Amount:      amount,
		Method:      method,
		Date:        s.clock(),
		ProcessedBy: processedBy,
	}
	// The store re-validates against the bill row it locks, so a
	// concurrent payment cannot push paid_amount past the total.
	updated, err := s.store.ApplyPayment(ctx, payment)
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("bill_id", bill.ID).
		Str("payment_id", payment.ID).
		Str("amount", amount.String()).
		Str("status", string(updated.Status)).
		Msg("payment processed")
	return payment, updated, nil
}
