package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/utilityops/ums-backend/internal/domain"
	"github.com/utilityops/ums-backend/internal/store"
)

// ReportService serves the derived read-only views, the cloud export and
// the overdue-account notifications.
type ReportService struct {
	store   store.Store
	uploads Uploader
	alerts  Alerter
}

func NewReportService(st store.Store, uploads Uploader, alerts Alerter) *ReportService {
	return &ReportService{store: st, uploads: uploads, alerts: alerts}
}

func (s *ReportService) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	return s.store.DashboardStats(ctx)
}

func (s *ReportService) Revenue(ctx context.Context, year, month int) ([]domain.RevenueDay, error) {
	return s.store.RevenueByDay(ctx, year, month)
}

func (s *ReportService) Defaulters(ctx context.Context, minDays int) ([]domain.Defaulter, error) {
	if minDays <= 0 {
		minDays = 30
	}
	return s.store.Defaulters(ctx, minDays)
}

func (s *ReportService) TopConsumers(ctx context.Context, utilityType, limit int) ([]domain.Consumer, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.TopConsumers(ctx, utilityType, limit)
}

func (s *ReportService) Monthly(ctx context.Context, year, month int) (*domain.MonthlyReport, error) {
	return s.store.MonthlyReport(ctx, year, month)
}

// ErrCloudDisabled is returned by ExportMonthly when no uploader is wired.
var ErrCloudDisabled = fmt.Errorf("cloud services not enabled")

// ExportMonthly renders the monthly report as JSON, uploads it and
// returns a presigned download URL.
func (s *ReportService) ExportMonthly(ctx context.Context, year, month int) (string, error) {
	if s.uploads == nil {
		return "", ErrCloudDisabled
	}
	rep, err := s.store.MonthlyReport(ctx, year, month)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(rep)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("reports/monthly/%04d-%02d.json", year, month)
	return s.uploads.UploadReport(key, data, "application/json")
}

// NotifyDefaulters publishes one summary notification covering every
// customer overdue by at least minDays. Returns how many customers the
// summary covered; zero defaulters publish nothing.
func (s *ReportService) NotifyDefaulters(ctx context.Context, minDays int) (int, error) {
	if s.alerts == nil {
		return 0, ErrCloudDisabled
	}
	rows, err := s.Defaulters(ctx, minDays)
	if err != nil {
		return 0, err
	}
	lines := make([]string, 0, len(rows))
	for _, d := range rows {
		lines = append(lines, fmt.Sprintf("%s (%s): %s overdue across %d bills",
			d.CustomerName, d.CustomerID, d.TotalOverdue.String(), d.OverdueBills))
	}
	if err := s.alerts.OverdueAlert(lines); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ListExports returns the keys of previously exported reports.
func (s *ReportService) ListExports(context.Context) ([]string, error) {
	if s.uploads == nil {
		return nil, ErrCloudDisabled
	}
	return s.uploads.ListReports("reports/")
}
