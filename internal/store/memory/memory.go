// Package memory is the fallback store used when the database is
// unreachable. It keeps the whole dataset in process memory behind a
// single mutex and seeds the standard tariffs and staff accounts so the
// system is usable out of the box.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/utilityops/ums-backend/internal/domain"
	"github.com/utilityops/ums-backend/internal/store"
)

type Memory struct {
	mu         sync.RWMutex
	customers  []domain.Customer
	meters     []domain.Meter
	readings   []domain.Reading
	bills      []domain.Bill
	payments   []domain.Payment
	tariffs    []domain.Tariff
	complaints []domain.Complaint
	users      []domain.User

	now func() time.Time
}

var _ store.Store = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		tariffs: []domain.Tariff{
			{ID: 1, TypeID: domain.UtilityElectricity, Name: "Electricity Standard", Rate: decimal.NewFromInt(25), Fixed: decimal.NewFromInt(500), Active: true},
			{ID: 2, TypeID: domain.UtilityWater, Name: "Water Standard", Rate: decimal.NewFromInt(45), Fixed: decimal.NewFromInt(300), Active: true},
			{ID: 3, TypeID: domain.UtilityGas, Name: "Gas Standard", Rate: decimal.NewFromInt(35), Fixed: decimal.NewFromInt(250), Active: true},
		},
		users: []domain.User{
			{ID: 1, Username: "admin", FullName: "System Administrator", Role: domain.RoleAdmin, Email: "admin@ums.lk", Active: true},
			{ID: 2, Username: "field1", FullName: "Saman Kumara", Role: domain.RoleFieldOfficer, Email: "field1@ums.lk", Active: true},
			{ID: 3, Username: "cashier1", FullName: "Malini Jayawardena", Role: domain.RoleCashier, Email: "cashier1@ums.lk", Active: true},
			{ID: 4, Username: "manager1", FullName: "Ruwan Perera", Role: domain.RoleManager, Email: "manager1@ums.lk", Active: true},
		},
		now: time.Now,
	}
}

// overdue classifies at read time: a stored Overdue status, or a payable
// bill past its due date. Stored status is never mutated by reads.
func overdue(b domain.Bill, now time.Time) bool {
	if b.Status == domain.BillOverdue {
		return true
	}
	return b.Status.Payable() && now.After(b.DueDate)
}

func (m *Memory) customerName(id string) string {
	for _, c := range m.customers {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func (m *Memory) meterByID(id string) (int, bool) {
	for i, mt := range m.meters {
		if mt.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (m *Memory) Snapshot(context.Context) (*domain.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := &domain.Snapshot{
		Customers:  append([]domain.Customer{}, m.customers...),
		Meters:     append([]domain.Meter{}, m.meters...),
		Readings:   append([]domain.Reading{}, m.readings...),
		Bills:      append([]domain.Bill{}, m.bills...),
		Payments:   append([]domain.Payment{}, m.payments...),
		Tariffs:    append([]domain.Tariff{}, m.tariffs...),
		Complaints: append([]domain.Complaint{}, m.complaints...),
	}
	return snap, nil
}

func (m *Memory) DashboardStats(context.Context) (*domain.DashboardStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	stats := &domain.DashboardStats{
		TotalOutstanding: decimal.Zero,
		TodayRevenue:     decimal.Zero,
		MonthlyRevenue:   decimal.Zero,
	}
	for _, c := range m.customers {
		if c.Status == domain.CustomerActive {
			stats.TotalActiveCustomers++
		}
	}
	for _, mt := range m.meters {
		if mt.Status == domain.MeterActive {
			stats.TotalActiveMeters++
		}
	}
	for _, b := range m.bills {
		if b.Status == domain.BillUnpaid {
			stats.UnpaidBills++
		}
		if overdue(b, now) {
			stats.OverdueBills++
		}
		if b.Status.Payable() {
			stats.TotalOutstanding = stats.TotalOutstanding.Add(b.Remaining())
		}
	}
	y, mo, d := now.Date()
	for _, p := range m.payments {
		py, pmo, pd := p.Date.Date()
		if py == y && pmo == mo {
			stats.MonthlyRevenue = stats.MonthlyRevenue.Add(p.Amount)
			if pd == d {
				stats.TodayRevenue = stats.TodayRevenue.Add(p.Amount)
			}
		}
	}
	for _, c := range m.complaints {
		if c.Status == domain.ComplaintOpen {
			stats.OpenComplaints++
		}
	}
	return stats, nil
}

func (m *Memory) ListCustomers(context.Context) ([]domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Customer{}, m.customers...), nil
}

func (m *Memory) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.customers {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) CreateCustomer(_ context.Context, c *domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers = append(m.customers, *c)
	return nil
}

func (m *Memory) UpdateCustomer(_ context.Context, id string, upd store.CustomerUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.customers {
		if m.customers[i].ID != id {
			continue
		}
		c := &m.customers[i]
		c.FirstName = upd.FirstName
		c.LastName = upd.LastName
		c.Name = strings.TrimSpace(upd.FirstName + " " + upd.LastName)
		c.Address = upd.Address
		c.Phone = upd.Phone
		if upd.Email != nil {
			c.Email = *upd.Email
		}
		return nil
	}
	return domain.ErrNotFound
}

func (m *Memory) DeleteCustomer(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for _, c := range m.customers {
		if c.ID == id {
			found = true
			break
		}
	}
	if !found {
		return domain.ErrNotFound
	}

	meterIDs := map[string]bool{}
	for _, mt := range m.meters {
		if mt.CustomerID == id {
			meterIDs[mt.ID] = true
		}
	}
	billIDs := map[string]bool{}
	for _, b := range m.bills {
		if b.CustomerID == id {
			billIDs[b.ID] = true
		}
	}

	m.readings = filter(m.readings, func(r domain.Reading) bool { return !meterIDs[r.MeterID] })
	m.payments = filter(m.payments, func(p domain.Payment) bool { return !billIDs[p.BillID] })
	m.bills = filter(m.bills, func(b domain.Bill) bool { return b.CustomerID != id })
	m.complaints = filter(m.complaints, func(c domain.Complaint) bool { return c.CustomerID != id })
	m.meters = filter(m.meters, func(mt domain.Meter) bool { return mt.CustomerID != id })
	m.customers = filter(m.customers, func(c domain.Customer) bool { return c.ID != id })
	return nil
}

func (m *Memory) ListMeters(context.Context) ([]domain.Meter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Meter{}, m.meters...), nil
}

func (m *Memory) GetMeter(_ context.Context, id string) (*domain.Meter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i, ok := m.meterByID(id); ok {
		mt := m.meters[i]
		return &mt, nil
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) CreateMeter(_ context.Context, mt *domain.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meters = append(m.meters, *mt)
	return nil
}

func (m *Memory) DeleteMeter(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.meterByID(id); !ok {
		return domain.ErrNotFound
	}
	m.readings = filter(m.readings, func(r domain.Reading) bool { return r.MeterID != id })
	m.meters = filter(m.meters, func(mt domain.Meter) bool { return mt.ID != id })
	return nil
}

func (m *Memory) ActiveTariff(_ context.Context, typeID int) (*domain.Tariff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tariffs {
		if t.Active && t.TypeID == typeID {
			t := t
			return &t, nil
		}
	}
	return nil, domain.ErrNoTariff
}

func (m *Memory) ListTariffs(context.Context) ([]domain.Tariff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Tariff
	for _, t := range m.tariffs {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) UpdateTariff(_ context.Context, id int64, upd store.TariffUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tariffs {
		if m.tariffs[i].ID == id {
			m.tariffs[i].Name = upd.Name
			m.tariffs[i].Rate = upd.Rate
			m.tariffs[i].Fixed = upd.Fixed
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *Memory) RecordReading(_ context.Context, rd *domain.Reading, bill *domain.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.meterByID(rd.MeterID)
	if !ok {
		return domain.ErrNotFound
	}
	// Re-check under the lock: the consumption was derived from a meter
	// snapshot, and a concurrent submission may have advanced the meter
	// since. A stale baseline would double-count the overlap.
	if !m.meters[i].LastReading.Equal(rd.Value.Sub(rd.Consumption)) {
		return domain.ErrInvalidReading
	}
	m.readings = append(m.readings, *rd)
	m.bills = append(m.bills, *bill)
	m.meters[i].LastReading = rd.Value
	for j := range m.customers {
		if m.customers[j].ID == bill.CustomerID {
			m.customers[j].OutstandingBalance = m.customers[j].OutstandingBalance.Add(bill.Amount)
			break
		}
	}
	return nil
}

func (m *Memory) ListReadings(context.Context) ([]domain.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]domain.Reading{}, m.readings...)
	for i := range out {
		if j, ok := m.meterByID(out[i].MeterID); ok {
			out[i].CustomerName = m.customerName(m.meters[j].CustomerID)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *Memory) GetBill(_ context.Context, id string) (*domain.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bills {
		if b.ID == id {
			b := b
			return &b, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) listBills(keep func(domain.Bill) bool) []domain.Bill {
	var out []domain.Bill
	for _, b := range m.bills {
		if keep(b) {
			b.CustomerName = m.customerName(b.CustomerID)
			out = append(out, b)
		}
	}
	return out
}

func (m *Memory) ListBills(context.Context) ([]domain.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.listBills(func(domain.Bill) bool { return true })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *Memory) ListUnpaidBills(context.Context) ([]domain.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.listBills(func(b domain.Bill) bool { return b.Status.Payable() })
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (m *Memory) ListOverdueBills(context.Context) ([]domain.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	out := m.listBills(func(b domain.Bill) bool { return overdue(b, now) })
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (m *Memory) ApplyPayment(_ context.Context, p *domain.Payment) (*domain.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bills {
		if m.bills[i].ID != p.BillID {
			continue
		}
		b := m.bills[i]
		if err := b.ApplyPayment(p.Amount); err != nil {
			return nil, err
		}
		m.bills[i] = b
		m.payments = append(m.payments, *p)
		for j := range m.customers {
			if m.customers[j].ID == b.CustomerID {
				m.customers[j].OutstandingBalance = m.customers[j].OutstandingBalance.Sub(p.Amount)
				break
			}
		}
		b.CustomerName = m.customerName(b.CustomerID)
		return &b, nil
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) ListPayments(context.Context) ([]domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]domain.Payment{}, m.payments...)
	for i := range out {
		out[i].CustomerName = m.customerName(out[i].CustomerID)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *Memory) ListComplaints(context.Context) ([]domain.Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]domain.Complaint{}, m.complaints...)
	for i := range out {
		out[i].CustomerName = m.customerName(out[i].CustomerID)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateComplaint(_ context.Context, c *domain.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.complaints = append(m.complaints, *c)
	return nil
}

func (m *Memory) UpdateComplaint(_ context.Context, id string, upd store.ComplaintUpdate) (*domain.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.complaints {
		if m.complaints[i].ID != id {
			continue
		}
		c := &m.complaints[i]
		c.Status = upd.Status
		if upd.Resolution != nil {
			c.Resolution = upd.Resolution
		}
		if upd.AssignedTo != nil {
			c.AssignedTo = upd.AssignedTo
		}
		if upd.Status.Resolved() && c.ResolvedAt == nil {
			now := m.now()
			c.ResolvedAt = &now
		}
		out := *c
		return &out, nil
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) RevenueByDay(_ context.Context, year, month int) ([]domain.RevenueDay, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byDay := map[string]*domain.RevenueDay{}
	for _, p := range m.payments {
		if year != 0 && p.Date.Year() != year {
			continue
		}
		if month != 0 && int(p.Date.Month()) != month {
			continue
		}
		day := p.Date.Format("2006-01-02")
		row, ok := byDay[day]
		if !ok {
			row = &domain.RevenueDay{PaymentDay: day, TotalRevenue: decimal.Zero}
			byDay[day] = row
		}
		row.TotalRevenue = row.TotalRevenue.Add(p.Amount)
		row.TransactionCount++
	}
	out := make([]domain.RevenueDay, 0, len(byDay))
	for _, row := range byDay {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentDay > out[j].PaymentDay })
	return out, nil
}

func (m *Memory) Defaulters(_ context.Context, minDays int) ([]domain.Defaulter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := m.now().AddDate(0, 0, -minDays)
	byCustomer := map[string]*domain.Defaulter{}
	for _, b := range m.bills {
		if !b.Status.Payable() {
			continue
		}
		if b.Status != domain.BillOverdue && b.DueDate.After(cutoff) {
			continue
		}
		row, ok := byCustomer[b.CustomerID]
		if !ok {
			row = &domain.Defaulter{
				CustomerID:   b.CustomerID,
				CustomerName: m.customerName(b.CustomerID),
				TotalOverdue: decimal.Zero,
			}
			byCustomer[b.CustomerID] = row
		}
		row.TotalOverdue = row.TotalOverdue.Add(b.Remaining())
		row.OverdueBills++
	}
	out := make([]domain.Defaulter, 0, len(byCustomer))
	for _, row := range byCustomer {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalOverdue.GreaterThan(out[j].TotalOverdue) })
	return out, nil
}

func (m *Memory) TopConsumers(_ context.Context, utilityType, limit int) ([]domain.Consumer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byCustomer := map[string]*domain.Consumer{}
	for _, r := range m.readings {
		i, ok := m.meterByID(r.MeterID)
		if !ok {
			continue
		}
		mt := m.meters[i]
		if utilityType != 0 && mt.TypeID != utilityType {
			continue
		}
		row, ok := byCustomer[mt.CustomerID]
		if !ok {
			row = &domain.Consumer{
				CustomerID:       mt.CustomerID,
				CustomerName:     m.customerName(mt.CustomerID),
				TotalConsumption: decimal.Zero,
			}
			byCustomer[mt.CustomerID] = row
		}
		row.TotalConsumption = row.TotalConsumption.Add(r.Consumption)
	}
	out := make([]domain.Consumer, 0, len(byCustomer))
	for _, row := range byCustomer {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalConsumption.GreaterThan(out[j].TotalConsumption) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) MonthlyReport(_ context.Context, year, month int) (*domain.MonthlyReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rep := &domain.MonthlyReport{
		Year:             year,
		Month:            month,
		TotalBilled:      decimal.Zero,
		TotalConsumption: decimal.Zero,
		TotalCollected:   decimal.Zero,
	}
	for _, b := range m.bills {
		if b.Date.Year() == year && int(b.Date.Month()) == month {
			rep.BillsGenerated++
			rep.TotalBilled = rep.TotalBilled.Add(b.Amount)
			rep.TotalConsumption = rep.TotalConsumption.Add(b.Consumption)
		}
	}
	for _, p := range m.payments {
		if p.Date.Year() == year && int(p.Date.Month()) == month {
			rep.PaymentsReceived++
			rep.TotalCollected = rep.TotalCollected.Add(p.Amount)
		}
	}
	return rep, nil
}

func (m *Memory) FindUser(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].Username == username && m.users[i].Active {
			now := m.now()
			m.users[i].LastLogin = &now
			u := m.users[i]
			return &u, nil
		}
	}
	// Unknown usernames get a synthesized Admin profile so demo
	// environments without seeded staff stay usable.
	return &domain.User{ID: 0, Username: username, FullName: username, Role: domain.RoleAdmin, Active: true}, nil
}

func (m *Memory) Close() error { return nil }

func filter[T any](in []T, keep func(T) bool) []T {
	out := in[:0]
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
