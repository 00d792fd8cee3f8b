package service

import (
	"github.com/utilityops/ums-backend/internal/store"
)

// Alerter publishes operational notifications (critical complaints,
// overdue-account summaries). Nil when cloud services are disabled.
type Alerter interface {
	ComplaintAlert(customerID, subject string, priority string) error
	OverdueAlert(defaulters []string) error
}

// Uploader stores rendered reports and returns a download URL.
// Nil when cloud services are disabled.
type Uploader interface {
	UploadReport(key string, data []byte, contentType string) (string, error)
	ListReports(prefix string) ([]string, error)
}

type Services struct {
	Store      store.Store
	Billing    *BillingService
	Payments   *PaymentService
	Reports    *ReportService
	Complaints *ComplaintService
	Auth       *AuthService
}

func New(st store.Store, alerts Alerter, uploads Uploader) *Services {
	return &Services{
		Store:      st,
		Billing:    NewBillingService(st),
		Payments:   NewPaymentService(st),
		Reports:    NewReportService(st, uploads, alerts),
		Complaints: NewComplaintService(st, alerts),
		Auth:       &AuthService{store: st},
	}
}
