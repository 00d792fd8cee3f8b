package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/utilityops/ums-backend/internal/domain"
)

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	svcs, meter := newTestServices(t)

	res, err := svcs.Billing.SubmitReading(ctx, meter.ID, decimal.NewFromInt(150), "")
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	if _, _, err := svcs.Payments.PayBill(ctx, res.BillID, decimal.NewFromInt(750), domain.PaymentCash, ""); err != nil {
		t.Fatalf("fixture payment: %v", err)
	}

	stats, err := svcs.Reports.Dashboard(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalActiveCustomers != 1 || stats.TotalActiveMeters != 1 {
		t.Errorf("active counts = %d/%d, want 1/1", stats.TotalActiveCustomers, stats.TotalActiveMeters)
	}
	if stats.UnpaidBills != 0 {
		t.Errorf("unpaidBills = %d, want 0 (bill is Partial)", stats.UnpaidBills)
	}
	if !stats.TotalOutstanding.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("totalOutstanding = %v, want 1000", stats.TotalOutstanding)
	}
	if !stats.MonthlyRevenue.Equal(decimal.NewFromInt(750)) {
		t.Errorf("monthlyRevenue = %v, want 750", stats.MonthlyRevenue)
	}
}

func TestRevenueByDay(t *testing.T) {
	ctx := context.Background()
	svcs, meter := newTestServices(t)

	res, err := svcs.Billing.SubmitReading(ctx, meter.ID, decimal.NewFromInt(150), "")
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}

	day1 := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 11, 9, 0, 0, 0, time.UTC)
	for _, p := range []struct {
		at     time.Time
		amount int64
	}{
		{day1, 200},
		{day1.Add(2 * time.Hour), 300},
		{day2, 400},
	} {
		svcs.Payments.clock = func() time.Time { return p.at }
		if _, _, err := svcs.Payments.PayBill(ctx, res.BillID, decimal.NewFromInt(p.amount), domain.PaymentCash, ""); err != nil {
			t.Fatalf("fixture payment: %v", err)
		}
	}

	rows, err := svcs.Reports.Revenue(ctx, 2026, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 days, got %d", len(rows))
	}
	// Newest day first.
	if rows[0].PaymentDay != "2026-08-11" || rows[1].PaymentDay != "2026-08-10" {
		t.Errorf("order = %q, %q", rows[0].PaymentDay, rows[1].PaymentDay)
	}
	if !rows[1].TotalRevenue.Equal(decimal.NewFromInt(500)) || rows[1].TransactionCount != 2 {
		t.Errorf("day1 = %v/%d, want 500/2", rows[1].TotalRevenue, rows[1].TransactionCount)
	}

	// A different year filter excludes everything.
	rows, err = svcs.Reports.Revenue(ctx, 2025, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows for 2025, got %d", len(rows))
	}
}

func TestTopConsumers(t *testing.T) {
	ctx := context.Background()
	svcs, meter := newTestServices(t)

	other := &domain.Customer{ID: "CUS-100002", FirstName: "Kamala", LastName: "Silva", Name: "Kamala Silva", Status: domain.CustomerActive}
	if err := svcs.Store.CreateCustomer(ctx, other); err != nil {
		t.Fatalf("seed: %v", err)
	}
	waterMeter := &domain.Meter{ID: "MTR-2001", CustomerID: other.ID, TypeID: domain.UtilityWater, Status: domain.MeterActive}
	if err := svcs.Store.CreateMeter(ctx, waterMeter); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := svcs.Billing.SubmitReading(ctx, meter.ID, decimal.NewFromInt(150), ""); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	if _, err := svcs.Billing.SubmitReading(ctx, waterMeter.ID, decimal.NewFromInt(300), ""); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	rows, err := svcs.Reports.TopConsumers(ctx, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 consumers, got %d", len(rows))
	}
	if rows[0].CustomerID != other.ID || !rows[0].TotalConsumption.Equal(decimal.NewFromInt(300)) {
		t.Errorf("top = %v %v, want CUS-100002 300", rows[0].CustomerID, rows[0].TotalConsumption)
	}

	rows, err = svcs.Reports.TopConsumers(ctx, domain.UtilityElectricity, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].CustomerID != "CUS-100001" {
		t.Errorf("electricity filter returned %v", rows)
	}
}

func TestMonthlyReport(t *testing.T) {
	ctx := context.Background()
	svcs, meter := newTestServices(t)
	at := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	svcs.Billing.clock = func() time.Time { return at }
	svcs.Payments.clock = func() time.Time { return at }

	res, err := svcs.Billing.SubmitReading(ctx, meter.ID, decimal.NewFromInt(150), "")
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	if _, _, err := svcs.Payments.PayBill(ctx, res.BillID, decimal.NewFromInt(1000), domain.PaymentOnline, ""); err != nil {
		t.Fatalf("fixture payment: %v", err)
	}

	rep, err := svcs.Reports.Monthly(ctx, 2026, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.BillsGenerated != 1 || !rep.TotalBilled.Equal(decimal.NewFromInt(1750)) {
		t.Errorf("bills = %d/%v, want 1/1750", rep.BillsGenerated, rep.TotalBilled)
	}
	if rep.PaymentsReceived != 1 || !rep.TotalCollected.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("payments = %d/%v, want 1/1000", rep.PaymentsReceived, rep.TotalCollected)
	}
	if !rep.TotalConsumption.Equal(decimal.NewFromInt(50)) {
		t.Errorf("consumption = %v, want 50", rep.TotalConsumption)
	}

	empty, err := svcs.Reports.Monthly(ctx, 2026, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty.BillsGenerated != 0 || empty.PaymentsReceived != 0 {
		t.Errorf("july report not empty: %+v", empty)
	}
}

func TestNotifyDefaulters(t *testing.T) {
	ctx := context.Background()
	svcs, meter := newTestServices(t)
	alerts := &fakeAlerter{}
	svcs.Reports.alerts = alerts

	// Bill the customer 90 days in the past so the due date is long gone.
	svcs.Billing.clock = func() time.Time { return time.Now().AddDate(0, 0, -90) }
	if _, err := svcs.Billing.SubmitReading(ctx, meter.ID, decimal.NewFromInt(150), ""); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	n, err := svcs.Reports.NotifyDefaulters(ctx, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("notified = %d, want 1", n)
	}
	if len(alerts.overdue) != 1 || len(alerts.overdue[0]) != 1 {
		t.Fatalf("overdue alerts = %v", alerts.overdue)
	}
	if got := alerts.overdue[0][0]; got != "Nimal Fernando (CUS-100001): 1750 overdue across 1 bills" {
		t.Errorf("summary line = %q", got)
	}
}

func TestNotifyDefaultersWithoutCloud(t *testing.T) {
	svcs, _ := newTestServices(t)
	_, err := svcs.Reports.NotifyDefaulters(context.Background(), 30)
	if !errors.Is(err, ErrCloudDisabled) {
		t.Fatalf("error = %v, want ErrCloudDisabled", err)
	}
}

func TestExportMonthlyWithoutCloud(t *testing.T) {
	svcs, _ := newTestServices(t)
	_, err := svcs.Reports.ExportMonthly(context.Background(), 2026, 8)
	if !errors.Is(err, ErrCloudDisabled) {
		t.Fatalf("error = %v, want ErrCloudDisabled", err)
	}
}

type fakeUploader struct {
	keys []string
}

func (f *fakeUploader) UploadReport(key string, data []byte, contentType string) (string, error) {
	f.keys = append(f.keys, key)
	return "https://reports.example/" + key, nil
}

func (f *fakeUploader) ListReports(prefix string) ([]string, error) { return f.keys, nil }

func TestExportMonthly(t *testing.T) {
	svcs, _ := newTestServices(t)
	up := &fakeUploader{}
	svcs.Reports.uploads = up

	url, err := svcs.Reports.ExportMonthly(context.Background(), 2026, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://reports.example/reports/monthly/2026-08.json" {
		t.Errorf("url = %q", url)
	}
	keys, err := svcs.Reports.ListExports(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 1 || keys[0] != "reports/monthly/2026-08.json" {
		t.Errorf("keys = %v", keys)
	}
}
