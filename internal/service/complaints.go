package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/utilityops/ums-backend/internal/domain"
	"github.com/utilityops/ums-backend/internal/store"
)

// ComplaintService registers and updates customer complaints.
type ComplaintService struct {
	store  store.Store
	alerts Alerter
	clock  func() time.Time
}

func NewComplaintService(st store.Store, alerts Alerter) *ComplaintService {
	return &ComplaintService{store: st, alerts: alerts, clock: time.Now}
}

// RegisterInput carries the fields a caller may set when filing a complaint.
type RegisterInput struct {
	CustomerID  string
	MeterID     *string
	Category    string
	Subject     string
	Description string
	Priority    domain.ComplaintPriority
}

// Register files a new complaint. Critical complaints also publish an
// alert when cloud services are enabled; alert failures are logged, never
// surfaced to the caller.
func (s *ComplaintService) Register(ctx context.Context, in RegisterInput) (*domain.Complaint, error) {
	if _, err := s.store.GetCustomer(ctx, in.CustomerID); err != nil {
		return nil, err
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	c := &domain.Complaint{
		ID:          domain.NewID(domain.PrefixComplaint),
		CustomerID:  in.CustomerID,
		MeterID:     in.MeterID,
		Category:    in.Category,
		Subject:     in.Subject,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      domain.ComplaintOpen,
		CreatedAt:   s.clock(),
	}
	if err := s.store.CreateComplaint(ctx, c); err != nil {
		return nil, err
	}

	if c.Priority == domain.PriorityCritical && s.alerts != nil {
		if err := s.alerts.ComplaintAlert(c.CustomerID, c.Subject, string(c.Priority)); err != nil {
			log.Error().Err(err).Str("complaint_id", c.ID).Msg("complaint alert failed")
		}
	}
	return c, nil
}

func (s *ComplaintService) Update(ctx context.Context, id string, upd store.ComplaintUpdate) (*domain.Complaint, error) {
	return s.store.UpdateComplaint(ctx, id, upd)
}

func (s *ComplaintService) List(ctx context.Context) ([]domain.Complaint, error) {
	return s.store.ListComplaints(ctx)
}
