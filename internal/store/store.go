// Package store defines the persistence contract shared by the
// postgres-backed store and the in-memory fallback. The implementation is
// chosen once at startup and injected into the services; nothing in the
// request path reaches for a global connection.
package store

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/utilityops/ums-backend/internal/domain"
)

// CustomerUpdate carries the editable customer fields. A nil Email keeps
// the stored address.
type CustomerUpdate struct {
	FirstName string
	LastName  string
	Address   string
	Phone     string
	Email     *string
}

// TariffUpdate carries the editable tariff fields.
type TariffUpdate struct {
	Name  string
	Rate  decimal.Decimal
	Fixed decimal.Decimal
}

// ComplaintUpdate carries the editable complaint fields. Nil pointers keep
// the stored values.
type ComplaintUpdate struct {
	Status     domain.ComplaintStatus
	Resolution *string
	AssignedTo *string
}

type Store interface {
	// Snapshot returns the full dataset for the initial-data endpoint.
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
	DashboardStats(ctx context.Context) (*domain.DashboardStats, error)

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, c *domain.Customer) error
	UpdateCustomer(ctx context.Context, id string, upd CustomerUpdate) error
	// DeleteCustomer removes the customer and every dependent meter,
	// reading, bill, payment and complaint.
	DeleteCustomer(ctx context.Context, id string) error

	ListMeters(ctx context.Context) ([]domain.Meter, error)
	GetMeter(ctx context.Context, id string) (*domain.Meter, error)
	CreateMeter(ctx context.Context, m *domain.Meter) error
	// DeleteMeter removes the meter and its readings.
	DeleteMeter(ctx context.Context, id string) error

	// ActiveTariff returns the active tariff for a utility type, or
	// domain.ErrNoTariff when none exists.
	ActiveTariff(ctx context.Context, typeID int) (*domain.Tariff, error)
	ListTariffs(ctx context.Context) ([]domain.Tariff, error)
	UpdateTariff(ctx context.Context, id int64, upd TariffUpdate) error

	// RecordReading persists the reading and its bill and advances the
	// meter's last reading to the reading's value, all as one unit:
	// either every write lands or none are visible. The reading's
	// consumption must have been derived from the meter's current last
	// reading; a stale baseline is rejected with domain.ErrInvalidReading.
	RecordReading(ctx context.Context, rd *domain.Reading, bill *domain.Bill) error
	ListReadings(ctx context.Context) ([]domain.Reading, error)

	GetBill(ctx context.Context, id string) (*domain.Bill, error)
	ListBills(ctx context.Context) ([]domain.Bill, error)
	ListUnpaidBills(ctx context.Context) ([]domain.Bill, error)
	ListOverdueBills(ctx context.Context) ([]domain.Bill, error)

	// ApplyPayment persists the payment, moves the bill's paid amount and
	// status, and reduces the customer's outstanding balance, all as one
	// unit. Returns the bill as updated.
	ApplyPayment(ctx context.Context, p *domain.Payment) (*domain.Bill, error)
	ListPayments(ctx context.Context) ([]domain.Payment, error)

	ListComplaints(ctx context.Context) ([]domain.Complaint, error)
	CreateComplaint(ctx context.Context, c *domain.Complaint) error
	UpdateComplaint(ctx context.Context, id string, upd ComplaintUpdate) (*domain.Complaint, error)

	// RevenueByDay groups payments by calendar day, newest day first.
	// Zero year/month mean no filter.
	RevenueByDay(ctx context.Context, year, month int) ([]domain.RevenueDay, error)
	// Defaulters aggregates bills overdue by at least minDays per customer.
	Defaulters(ctx context.Context, minDays int) ([]domain.Defaulter, error)
	// TopConsumers ranks customers by total consumption. Zero utilityType
	// means all types.
	TopConsumers(ctx context.Context, utilityType, limit int) ([]domain.Consumer, error)
	MonthlyReport(ctx context.Context, year, month int) (*domain.MonthlyReport, error)

	// FindUser looks up an active user by username and stamps last login.
	// The postgres store returns domain.ErrNotFound for unknown usernames;
	// the memory fallback synthesizes an Admin profile instead.
	FindUser(ctx context.Context, username string) (*domain.User, error)

	Close() error
}
