package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/utilityops/ums-backend/internal/domain"
	"github.com/utilityops/ums-backend/internal/store"
)

// seeded returns a store holding one customer with a meter, a reading,
// a bill, a payment and a complaint, so delete tests have dependents to
// orphan.
func seeded(t *testing.T) (*Memory, *domain.Customer) {
	t.Helper()
	ctx := context.Background()
	m := New()

	cust := &domain.Customer{ID: "CUS-100001", FirstName: "Nimal", LastName: "Fernando", Name: "Nimal Fernando", Status: domain.CustomerActive}
	if err := m.CreateCustomer(ctx, cust); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	meter := &domain.Meter{ID: "MTR-1001", CustomerID: cust.ID, TypeID: domain.UtilityElectricity, LastReading: decimal.NewFromInt(100), Status: domain.MeterActive}
	if err := m.CreateMeter(ctx, meter); err != nil {
		t.Fatalf("seed meter: %v", err)
	}

	rd := &domain.Reading{ID: "RDG-1", MeterID: meter.ID, Value: decimal.NewFromInt(150), Consumption: decimal.NewFromInt(50), Date: time.Now()}
	bill := &domain.Bill{
		ID:          "BILL-1",
		ReadingID:   rd.ID,
		CustomerID:  cust.ID,
		MeterID:     meter.ID,
		Consumption: rd.Consumption,
		Amount:      decimal.NewFromInt(1750),
		PaidAmount:  decimal.Zero,
		Status:      domain.BillUnpaid,
		Date:        time.Now(),
		DueDate:     time.Now().AddDate(0, 0, 30),
	}
	if err := m.RecordReading(ctx, rd, bill); err != nil {
		t.Fatalf("seed reading: %v", err)
	}
	payment := &domain.Payment{ID: "PAY-1", BillID: bill.ID, CustomerID: cust.ID, Amount: decimal.NewFromInt(500), Method: domain.PaymentCash, Date: time.Now()}
	if _, err := m.ApplyPayment(ctx, payment); err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	complaint := &domain.Complaint{ID: "CMP-1", CustomerID: cust.ID, Subject: "No supply", Priority: domain.PriorityHigh, Status: domain.ComplaintOpen, CreatedAt: time.Now()}
	if err := m.CreateComplaint(ctx, complaint); err != nil {
		t.Fatalf("seed complaint: %v", err)
	}
	return m, cust
}

func TestDeleteCustomerCascades(t *testing.T) {
	ctx := context.Background()
	m, cust := seeded(t)

	if err := m.DeleteCustomer(ctx, cust.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Customers) != 0 || len(snap.Meters) != 0 {
		t.Errorf("customer/meters left: %d/%d", len(snap.Customers), len(snap.Meters))
	}
	if len(snap.Readings) != 0 || len(snap.Bills) != 0 || len(snap.Payments) != 0 || len(snap.Complaints) != 0 {
		t.Errorf("orphans left: %d readings, %d bills, %d payments, %d complaints",
			len(snap.Readings), len(snap.Bills), len(snap.Payments), len(snap.Complaints))
	}
	// Seed data survives the cascade.
	if len(snap.Tariffs) != 3 {
		t.Errorf("tariffs = %d, want 3", len(snap.Tariffs))
	}

	if err := m.DeleteCustomer(ctx, cust.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestDeleteMeterCascades(t *testing.T) {
	ctx := context.Background()
	m, _ := seeded(t)

	if err := m.DeleteMeter(ctx, "MTR-1001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap, _ := m.Snapshot(ctx)
	if len(snap.Meters) != 0 || len(snap.Readings) != 0 {
		t.Errorf("meter cascade left %d meters, %d readings", len(snap.Meters), len(snap.Readings))
	}
	// Bills stay: they belong to the customer, not the meter.
	if len(snap.Bills) != 1 {
		t.Errorf("bills = %d, want 1", len(snap.Bills))
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	m, _ := seeded(t)

	snap, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	snap.Customers[0].Name = "mutated"
	snap.Bills[0].Amount = decimal.NewFromInt(1)

	again, _ := m.Snapshot(ctx)
	if again.Customers[0].Name != "Nimal Fernando" {
		t.Errorf("snapshot mutation leaked into store: %q", again.Customers[0].Name)
	}
	if !again.Bills[0].Amount.Equal(decimal.NewFromInt(1750)) {
		t.Errorf("bill amount mutated to %v", again.Bills[0].Amount)
	}
}

func TestRecordReadingRejectsStaleValue(t *testing.T) {
	ctx := context.Background()
	m, cust := seeded(t)

	rd := &domain.Reading{ID: "RDG-2", MeterID: "MTR-1001", Value: decimal.NewFromInt(120), Date: time.Now()}
	bill := &domain.Bill{ID: "BILL-2", ReadingID: rd.ID, CustomerID: cust.ID, MeterID: rd.MeterID, Amount: decimal.NewFromInt(100), Status: domain.BillUnpaid}
	if err := m.RecordReading(ctx, rd, bill); !errors.Is(err, domain.ErrInvalidReading) {
		t.Fatalf("error = %v, want ErrInvalidReading", err)
	}

	snap, _ := m.Snapshot(ctx)
	if len(snap.Readings) != 1 || len(snap.Bills) != 1 {
		t.Errorf("rejected reading persisted: %d readings, %d bills", len(snap.Readings), len(snap.Bills))
	}
	got, _ := m.GetCustomer(ctx, cust.ID)
	if !got.OutstandingBalance.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("outstandingBalance = %v, want 1250", got.OutstandingBalance)
	}
}

func TestRecordReadingRejectsStaleBaseline(t *testing.T) {
	ctx := context.Background()
	m, cust := seeded(t)

	// Derived from the meter before the seeded reading landed: value 160
	// with consumption 60 implies a baseline of 100, but the meter is at
	// 150 now. Accepting it would bill the 100-150 span twice.
	rd := &domain.Reading{ID: "RDG-2", MeterID: "MTR-1001", Value: decimal.NewFromInt(160), Consumption: decimal.NewFromInt(60), Date: time.Now()}
	bill := &domain.Bill{ID: "BILL-2", ReadingID: rd.ID, CustomerID: cust.ID, MeterID: rd.MeterID, Consumption: rd.Consumption, Amount: decimal.NewFromInt(2000), Status: domain.BillUnpaid}
	if err := m.RecordReading(ctx, rd, bill); !errors.Is(err, domain.ErrInvalidReading) {
		t.Fatalf("error = %v, want ErrInvalidReading", err)
	}
	mt, _ := m.GetMeter(ctx, "MTR-1001")
	if !mt.LastReading.Equal(decimal.NewFromInt(150)) {
		t.Errorf("lastReading = %v, want 150", mt.LastReading)
	}

	// Recomputed against the current meter value it goes through.
	rd.Consumption = decimal.NewFromInt(10)
	bill.Consumption = rd.Consumption
	if err := m.RecordReading(ctx, rd, bill); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mt, _ = m.GetMeter(ctx, "MTR-1001")
	if !mt.LastReading.Equal(decimal.NewFromInt(160)) {
		t.Errorf("lastReading = %v, want 160", mt.LastReading)
	}
}

func TestOverdueClassifiedAtReadTime(t *testing.T) {
	ctx := context.Background()
	m, _ := seeded(t)

	// Jump the clock past the due date without touching the stored bill.
	m.now = func() time.Time { return time.Now().AddDate(0, 2, 0) }

	bills, err := m.ListOverdueBills(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bills) != 1 || bills[0].ID != "BILL-1" {
		t.Fatalf("overdue bills = %v", bills)
	}
	// Stored status is untouched: classification is a view, not a write.
	stored, _ := m.GetBill(ctx, "BILL-1")
	if stored.Status != domain.BillPartial {
		t.Errorf("stored status = %v, want Partial", stored.Status)
	}

	stats, _ := m.DashboardStats(ctx)
	if stats.OverdueBills != 1 {
		t.Errorf("stats.OverdueBills = %d, want 1", stats.OverdueBills)
	}
}

func TestDefaulters(t *testing.T) {
	ctx := context.Background()
	m, cust := seeded(t)

	m.now = func() time.Time { return time.Now().AddDate(0, 0, 70) }

	rows, err := m.Defaulters(ctx, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 defaulter, got %d", len(rows))
	}
	if rows[0].CustomerID != cust.ID || rows[0].OverdueBills != 1 {
		t.Errorf("defaulter = %+v", rows[0])
	}
	// Remaining, not the full bill amount.
	if !rows[0].TotalOverdue.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("totalOverdue = %v, want 1250", rows[0].TotalOverdue)
	}

	// A stricter window excludes the bill again.
	rows, _ = m.Defaulters(ctx, 60)
	if len(rows) != 0 {
		t.Errorf("expected no defaulters at 60 days, got %d", len(rows))
	}
}

func TestUpdateTariff(t *testing.T) {
	ctx := context.Background()
	m := New()

	upd := store.TariffUpdate{Name: "Electricity Peak", Rate: decimal.NewFromInt(30), Fixed: decimal.NewFromInt(600)}
	if err := m.UpdateTariff(ctx, 1, upd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tariff, err := m.ActiveTariff(ctx, domain.UtilityElectricity)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if tariff.Name != "Electricity Peak" || !tariff.Rate.Equal(decimal.NewFromInt(30)) {
		t.Errorf("tariff = %+v", tariff)
	}

	if err := m.UpdateTariff(ctx, 99, upd); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateComplaintStampsResolvedAt(t *testing.T) {
	ctx := context.Background()
	m, _ := seeded(t)
	at := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return at }

	res := "Transformer replaced"
	got, err := m.UpdateComplaint(ctx, "CMP-1", store.ComplaintUpdate{Status: domain.ComplaintResolved, Resolution: &res})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(at) {
		t.Errorf("resolvedAt = %v, want %v", got.ResolvedAt, at)
	}
	if got.Resolution == nil || *got.Resolution != res {
		t.Errorf("resolution = %v", got.Resolution)
	}

	// Re-resolving keeps the original timestamp.
	m.now = func() time.Time { return at.AddDate(0, 0, 5) }
	got, err = m.UpdateComplaint(ctx, "CMP-1", store.ComplaintUpdate{Status: domain.ComplaintClosed})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.ResolvedAt.Equal(at) {
		t.Errorf("resolvedAt moved to %v", got.ResolvedAt)
	}
}

func TestFindUserStampsLastLogin(t *testing.T) {
	ctx := context.Background()
	m := New()
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return at }

	u, err := m.FindUser(ctx, "cashier1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != domain.RoleCashier {
		t.Errorf("role = %v, want Cashier", u.Role)
	}
	if u.LastLogin == nil || !u.LastLogin.Equal(at) {
		t.Errorf("lastLogin = %v, want %v", u.LastLogin, at)
	}
}

func TestFindUserSynthesizesAdminFallback(t *testing.T) {
	ctx := context.Background()
	m := New()

	u, err := m.FindUser(ctx, "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != 0 || u.Username != "nobody" || u.FullName != "nobody" {
		t.Errorf("synthesized user = %+v", u)
	}
	if u.Role != domain.RoleAdmin {
		t.Errorf("role = %v, want Admin", u.Role)
	}
	// Synthesized profiles are not persisted.
	for _, su := range m.users {
		if su.Username == "nobody" {
			t.Error("fallback profile was stored")
		}
	}
}

func TestListUnpaidBillsOrder(t *testing.T) {
	ctx := context.Background()
	m, cust := seeded(t)

	later := &domain.Bill{
		ID: "BILL-2", ReadingID: "RDG-2", CustomerID: cust.ID, MeterID: "MTR-1001",
		Amount: decimal.NewFromInt(900), PaidAmount: decimal.Zero, Status: domain.BillUnpaid,
		Date: time.Now(), DueDate: time.Now().AddDate(0, 0, 60),
	}
	rd := &domain.Reading{ID: "RDG-2", MeterID: "MTR-1001", Value: decimal.NewFromInt(180), Consumption: decimal.NewFromInt(30), Date: time.Now()}
	if err := m.RecordReading(ctx, rd, later); err != nil {
		t.Fatalf("seed: %v", err)
	}

	bills, err := m.ListUnpaidBills(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bills) != 2 {
		t.Fatalf("expected 2 payable bills, got %d", len(bills))
	}
	// Earliest due date first.
	if bills[0].ID != "BILL-1" || bills[1].ID != "BILL-2" {
		t.Errorf("order = %q, %q", bills[0].ID, bills[1].ID)
	}
	if bills[0].CustomerName != "Nimal Fernando" {
		t.Errorf("customerName = %q", bills[0].CustomerName)
	}
}
