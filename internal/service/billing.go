package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/utilityops/ums-backend/internal/domain"
	"github.com/utilityops/ums-backend/internal/store"
)

// Consumption derives the units consumed from the meter's last stored
// reading and the proposed current reading. A proposed reading below the
// last recorded value is rejected with domain.ErrInvalidReading.
func Consumption(last, current decimal.Decimal) (decimal.Decimal, error) {
	c := current.Sub(last)
	if c.IsNegative() {
		return decimal.Decimal{}, domain.ErrInvalidReading
	}
	return c, nil
}

// BillAmount applies the linear tariff: consumption * rate + fixed charge.
func BillAmount(consumption decimal.Decimal, t *domain.Tariff) decimal.Decimal {
	return consumption.Mul(t.Rate).Add(t.Fixed)
}

// BillingService turns accepted meter readings into bills.
type BillingService struct {
	store store.Store
	// clock is swapped in tests to pin bill and due dates.
	clock func() time.Time
}

func NewBillingService(st store.Store) *BillingService {
	return &BillingService{store: st, clock: time.Now}
}

// BillResult is returned to the caller of a reading submission.
type BillResult struct {
	BillID string          `json:"billId"`
	Amount decimal.Decimal `json:"amount"`
}

// Bills fall due 30 days after generation.
const dueAfter = 30 * 24 * time.Hour

// SubmitReading runs the reading-to-bill pipeline: meter lookup,
// consumption, active tariff, amount, then one atomic write of the
// reading, the bill and the meter's advanced last reading. Nothing is
// persisted on rejection.
func (s *BillingService) SubmitReading(ctx context.Context, meterID string, currentReading decimal.Decimal, readBy string) (*BillResult, error) {
	if currentReading.IsNegative() {
		return nil, domain.ErrInvalidReading
	}

	meter, err := s.store.GetMeter(ctx, meterID)
	if err != nil {
		return nil, err
	}
	consumption, err := Consumption(meter.LastReading, currentReading)
	if err != nil {
		return nil, err
	}
	tariff, err := s.store.ActiveTariff(ctx, meter.TypeID)
	if err != nil {
		return nil, err
	}
	amount := BillAmount(consumption, tariff)

	now := s.clock()
	reading := &domain.Reading{
		ID:          domain.NewID(domain.PrefixReading),
		MeterID:     meter.ID,
		Value:       currentReading,
		Consumption: consumption,
		ReadBy:      readBy,
		Date:        now,
	}
	bill := &domain.Bill{
		ID:          domain.NewID(domain.PrefixBill),
		CustomerID:  meter.CustomerID,
		MeterID:     meter.ID,
		ReadingID:   reading.ID,
		Amount:      amount,
		Consumption: consumption,
		Date:        now,
		DueDate:     now.Add(dueAfter),
		Status:      domain.BillUnpaid,
		PaidAmount:  decimal.Zero,
	}
	if err := s.store.RecordReading(ctx, reading, bill); err != nil {
		return nil, err
	}

	log.Info().
		Str("meter_id", meter.ID).
		Str("bill_id", bill.ID).
		Str("amount", amount.String()).
		Msg("bill generated")
	return &BillResult{BillID: bill.ID, Amount: amount}, nil
}
