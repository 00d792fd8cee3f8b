package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Utility type IDs, fixed by the tariff schema.
const (
	UtilityElectricity = 1
	UtilityWater       = 2
	UtilityGas         = 3
)

type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "Active"
	CustomerInactive CustomerStatus = "Inactive"
)

type MeterStatus string

const (
	MeterActive      MeterStatus = "Active"
	MeterMaintenance MeterStatus = "Maintenance"
	MeterInactive    MeterStatus = "Inactive"
)

// BillStatus tracks a bill through its payment lifecycle.
type BillStatus string

const (
	BillUnpaid    BillStatus = "Unpaid"
	BillPartial   BillStatus = "Partial"
	BillPaid      BillStatus = "Paid"
	BillOverdue   BillStatus = "Overdue"
	BillCancelled BillStatus = "Cancelled"
)

// Payable reports whether a bill in this status can still accept payments.
// Paid is terminal; Cancelled bills are never collected.
func (s BillStatus) Payable() bool {
	switch s {
	case BillUnpaid, BillPartial, BillOverdue:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "Cash"
	PaymentCard         PaymentMethod = "Card"
	PaymentOnline       PaymentMethod = "Online"
	PaymentBankTransfer PaymentMethod = "Bank Transfer"
)

type ComplaintPriority string

const (
	PriorityLow      ComplaintPriority = "Low"
	PriorityMedium   ComplaintPriority = "Medium"
	PriorityHigh     ComplaintPriority = "High"
	PriorityCritical ComplaintPriority = "Critical"
)

type ComplaintStatus string

const (
	ComplaintOpen       ComplaintStatus = "Open"
	ComplaintInProgress ComplaintStatus = "In Progress"
	ComplaintResolved   ComplaintStatus = "Resolved"
	ComplaintClosed     ComplaintStatus = "Closed"
)

// Resolved reports whether the status closes out a complaint.
func (s ComplaintStatus) Resolved() bool {
	return s == ComplaintResolved || s == ComplaintClosed
}

type Role string

const (
	RoleAdmin        Role = "Admin"
	RoleFieldOfficer Role = "FieldOfficer"
	RoleCashier      Role = "Cashier"
	RoleManager      Role = "Manager"
)

type Customer struct {
	ID                 string          `db:"id" json:"id"`
	FirstName          string          `db:"first_name" json:"firstName"`
	LastName           string          `db:"last_name" json:"lastName"`
	Name               string          `db:"name" json:"name"`
	Address            string          `db:"address" json:"address"`
	Phone              string          `db:"phone" json:"phone"`
	Email              string          `db:"email" json:"email"`
	CustomerTypeID     int             `db:"customer_type_id" json:"customerTypeId"`
	Status             CustomerStatus  `db:"status" json:"status"`
	OutstandingBalance decimal.Decimal `db:"outstanding_balance" json:"outstandingBalance"`
}

type Meter struct {
	ID          string          `db:"id" json:"id"`
	CustomerID  string          `db:"customer_id" json:"customerId"`
	TypeID      int             `db:"type_id" json:"typeId"`
	LastReading decimal.Decimal `db:"last_reading" json:"lastReading"`
	Status      MeterStatus     `db:"status" json:"status"`
}

// Reading is append-only: once stored it is never mutated.
type Reading struct {
	ID          string          `db:"id" json:"id"`
	MeterID     string          `db:"meter_id" json:"meterId"`
	Value       decimal.Decimal `db:"value" json:"value"`
	Consumption decimal.Decimal `db:"consumption" json:"consumption"`
	ReadBy      string          `db:"read_by" json:"readBy,omitempty"`
	Date        time.Time       `db:"date" json:"date"`

	// Joined for list views.
	CustomerName string `db:"customer_name" json:"customerName,omitempty"`
}

type Tariff struct {
	ID     int64           `db:"id" json:"id"`
	TypeID int             `db:"type_id" json:"typeId"`
	Name   string          `db:"name" json:"name"`
	Rate   decimal.Decimal `db:"rate" json:"rate"`
	Fixed  decimal.Decimal `db:"fixed" json:"fixed"`
	Active bool            `db:"active" json:"-"`
}

type Bill struct {
	ID          string          `db:"id" json:"id"`
	CustomerID  string          `db:"customer_id" json:"customerId"`
	MeterID     string          `db:"meter_id" json:"meterId"`
	ReadingID   string          `db:"reading_id" json:"readingId"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Consumption decimal.Decimal `db:"consumption" json:"consumption"`
	Date        time.Time       `db:"date" json:"date"`
	DueDate     time.Time       `db:"due_date" json:"dueDate"`
	Status      BillStatus      `db:"status" json:"status"`
	PaidAmount  decimal.Decimal `db:"paid_amount" json:"paidAmount"`

	// Joined for list views.
	CustomerName string `db:"customer_name" json:"customerName,omitempty"`
}

// Remaining is the amount still owed on the bill.
func (b *Bill) Remaining() decimal.Decimal {
	return b.Amount.Sub(b.PaidAmount)
}

// ApplyPayment adds amount to the bill's paid total and recomputes the status.
// Amounts that are non-positive or exceed the remaining balance are rejected
// with ErrInvalidAmount; the bill is untouched on rejection.
func (b *Bill) ApplyPayment(amount decimal.Decimal) error {
	if !b.Status.Payable() {
		return ErrInvalidAmount
	}
	if amount.LessThanOrEqual(decimal.Zero) || amount.GreaterThan(b.Remaining()) {
		return ErrInvalidAmount
	}
	b.PaidAmount = b.PaidAmount.Add(amount)
	if b.PaidAmount.GreaterThanOrEqual(b.Amount) {
		b.Status = BillPaid
	} else {
		b.Status = BillPartial
	}
	return nil
}

// Payment is append-only: once stored it is never mutated.
type Payment struct {
	ID          string          `db:"id" json:"id"`
	BillID      string          `db:"bill_id" json:"billId"`
	CustomerID  string          `db:"customer_id" json:"customerId"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Method      PaymentMethod   `db:"method" json:"method"`
	Date        time.Time       `db:"date" json:"date"`
	ProcessedBy string          `db:"processed_by" json:"processedBy"`

	// Joined for list views.
	CustomerName string `db:"customer_name" json:"customerName,omitempty"`
}

type Complaint struct {
	ID          string            `db:"id" json:"id"`
	CustomerID  string            `db:"customer_id" json:"customerId"`
	MeterID     *string           `db:"meter_id" json:"meterId,omitempty"`
	Category    string            `db:"category" json:"category"`
	Subject     string            `db:"subject" json:"subject"`
	Description string            `db:"description" json:"description"`
	Priority    ComplaintPriority `db:"priority" json:"priority"`
	Status      ComplaintStatus   `db:"status" json:"status"`
	AssignedTo  *string           `db:"assigned_to" json:"assignedTo,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
	ResolvedAt  *time.Time        `db:"resolved_at" json:"resolvedAt,omitempty"`
	Resolution  *string           `db:"resolution" json:"resolution,omitempty"`

	// Joined for list views.
	CustomerName string `db:"customer_name" json:"customerName,omitempty"`
}

type User struct {
	ID        int64      `db:"id" json:"id"`
	Username  string     `db:"username" json:"username"`
	FullName  string     `db:"full_name" json:"fullName"`
	Role      Role       `db:"role" json:"role"`
	Email     string     `db:"email" json:"email"`
	Active    bool       `db:"active" json:"-"`
	LastLogin *time.Time `db:"last_login" json:"lastLogin,omitempty"`
}

// Snapshot is the full dataset returned by the initial-data endpoint.
type Snapshot struct {
	Customers  []Customer  `json:"customers"`
	Meters     []Meter     `json:"meters"`
	Readings   []Reading   `json:"readings"`
	Bills      []Bill      `json:"bills"`
	Payments   []Payment   `json:"payments"`
	Tariffs    []Tariff    `json:"tariffs"`
	Complaints []Complaint `json:"complaints"`
}

// DashboardStats mirrors the dashboard summary view. Field names are the
// view's column names, which the dashboard consumes verbatim.
type DashboardStats struct {
	TotalActiveCustomers int             `db:"total_active_customers" json:"TotalActiveCustomers"`
	TotalActiveMeters    int             `db:"total_active_meters" json:"TotalActiveMeters"`
	UnpaidBills          int             `db:"unpaid_bills" json:"UnpaidBills"`
	OverdueBills         int             `db:"overdue_bills" json:"OverdueBills"`
	TotalOutstanding     decimal.Decimal `db:"total_outstanding" json:"TotalOutstanding"`
	TodayRevenue         decimal.Decimal `db:"today_revenue" json:"TodayRevenue"`
	MonthlyRevenue       decimal.Decimal `db:"monthly_revenue" json:"MonthlyRevenue"`
	OpenComplaints       int             `db:"open_complaints" json:"OpenComplaints"`
}

// RevenueDay is one row of the revenue-by-day report.
type RevenueDay struct {
	PaymentDay       string          `db:"payment_day" json:"PaymentDay"`
	TotalRevenue     decimal.Decimal `db:"total_revenue" json:"TotalRevenue"`
	TransactionCount int             `db:"transaction_count" json:"TransactionCount"`
}

// Defaulter aggregates a customer's overdue bills.
type Defaulter struct {
	CustomerID   string          `db:"customer_id" json:"CustomerID"`
	CustomerName string          `db:"customer_name" json:"CustomerName"`
	TotalOverdue decimal.Decimal `db:"total_overdue" json:"TotalOverdue"`
	OverdueBills int             `db:"overdue_bills" json:"OverdueBills"`
}

// Consumer is one row of the top-consumers report.
type Consumer struct {
	CustomerID       string          `db:"customer_id" json:"CustomerID"`
	CustomerName     string          `db:"customer_name" json:"CustomerName"`
	TotalConsumption decimal.Decimal `db:"total_consumption" json:"TotalConsumption"`
}

// MonthlyReport summarizes billing and collection for one calendar month.
type MonthlyReport struct {
	Year             int             `db:"-" json:"Year"`
	Month            int             `db:"-" json:"Month"`
	BillsGenerated   int             `db:"bills_generated" json:"BillsGenerated"`
	TotalBilled      decimal.Decimal `db:"total_billed" json:"TotalBilled"`
	TotalConsumption decimal.Decimal `db:"total_consumption" json:"TotalConsumption"`
	PaymentsReceived int             `db:"payments_received" json:"PaymentsReceived"`
	TotalCollected   decimal.Decimal `db:"total_collected" json:"TotalCollected"`
}
