package service

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// FromMQTT handles one automated meter message. Payload:
// {"meter_id": "MTR-...", "reading": 1534.2}. The reading flows through
// the same pipeline as a field officer submission.
func (s *BillingService) FromMQTT(ctx context.Context, topic string, payload []byte) error {
	var msg struct {
		MeterID string          `json:"meter_id"`
		Reading decimal.Decimal `json:"reading"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	_, err := s.SubmitReading(ctx, msg.MeterID, msg.Reading, "Smart Meter")
	return err
}
