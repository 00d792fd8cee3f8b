// Package postgres is the sqlx-backed store. Submit-reading and pay-bill
// run as single transactions with the meter or bill row locked, so
// concurrent submissions cannot race on last_reading or paid_amount.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/utilityops/ums-backend/internal/domain"
	"github.com/utilityops/ums-backend/internal/store"
)

type Postgres struct {
	db *sqlx.DB
}

var _ store.Store = (*Postgres)(nil)

func New(db *sqlx.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Close() error { return p.db.Close() }

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

const customerCols = `id, first_name, last_name, first_name || ' ' || last_name AS name,
	address, phone, email, customer_type_id, status, outstanding_balance`

func (p *Postgres) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{}
	if err := p.db.SelectContext(ctx, &snap.Customers, `SELECT `+customerCols+` FROM customers ORDER BY id`); err != nil {
		return nil, err
	}
	if err := p.db.SelectContext(ctx, &snap.Meters, `SELECT id, customer_id, type_id, last_reading, status FROM meters ORDER BY id`); err != nil {
		return nil, err
	}
	if err := p.db.SelectContext(ctx, &snap.Readings, `SELECT id, meter_id, value, consumption, read_by, date, '' AS customer_name FROM readings ORDER BY date DESC`); err != nil {
		return nil, err
	}
	if err := p.db.SelectContext(ctx, &snap.Bills, `SELECT id, customer_id, meter_id, reading_id, amount, consumption, date, due_date, status, paid_amount, '' AS customer_name FROM bills ORDER BY date DESC`); err != nil {
		return nil, err
	}
	if err := p.db.SelectContext(ctx, &snap.Payments, `SELECT id, bill_id, customer_id, amount, method, date, processed_by, '' AS customer_name FROM payments ORDER BY date DESC`); err != nil {
		return nil, err
	}
	if err := p.db.SelectContext(ctx, &snap.Tariffs, `SELECT id, type_id, name, rate, fixed, active FROM tariffs WHERE active ORDER BY id`); err != nil {
		return nil, err
	}
	if err := p.db.SelectContext(ctx, &snap.Complaints, `SELECT id, customer_id, meter_id, category, subject, description, priority, status, assigned_to, created_at, resolved_at, resolution, '' AS customer_name FROM complaints ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return snap, nil
}

func (p *Postgres) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	var stats domain.DashboardStats
	err := p.db.GetContext(ctx, &stats, `SELECT
		(SELECT COUNT(*) FROM customers WHERE status = 'Active') AS total_active_customers,
		(SELECT COUNT(*) FROM meters WHERE status = 'Active') AS total_active_meters,
		(SELECT COUNT(*) FROM bills WHERE status = 'Unpaid') AS unpaid_bills,
		(SELECT COUNT(*) FROM bills WHERE status = 'Overdue'
			OR (status IN ('Unpaid', 'Partial') AND due_date < NOW())) AS overdue_bills,
		(SELECT COALESCE(SUM(amount - paid_amount), 0) FROM bills
			WHERE status IN ('Unpaid', 'Overdue', 'Partial')) AS total_outstanding,
		(SELECT COALESCE(SUM(amount), 0) FROM payments
			WHERE date::date = CURRENT_DATE) AS today_revenue,
		(SELECT COALESCE(SUM(amount), 0) FROM payments
			WHERE date_trunc('month', date) = date_trunc('month', NOW())) AS monthly_revenue,
		(SELECT COUNT(*) FROM complaints WHERE status = 'Open') AS open_complaints`)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (p *Postgres) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	var out []domain.Customer
	err := p.db.SelectContext(ctx, &out, `SELECT `+customerCols+` FROM customers ORDER BY id`)
	return out, err
}

func (p *Postgres) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := p.db.GetContext(ctx, &c, `SELECT `+customerCols+` FROM customers WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (p *Postgres) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO customers (id, first_name, last_name, address, phone, email, customer_type_id, status, outstanding_balance)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.FirstName, c.LastName, c.Address, c.Phone, c.Email, c.CustomerTypeID, c.Status, c.OutstandingBalance)
	return err
}

func (p *Postgres) UpdateCustomer(ctx context.Context, id string, upd store.CustomerUpdate) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE customers SET first_name = $1, last_name = $2, address = $3, phone = $4,
		 email = COALESCE($5, email) WHERE id = $6`,
		upd.FirstName, upd.LastName, upd.Address, upd.Phone, upd.Email, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *Postgres) DeleteCustomer(ctx context.Context, id string) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	steps := []string{
		`DELETE FROM payments WHERE bill_id IN (SELECT id FROM bills WHERE customer_id = $1)`,
		`DELETE FROM readings WHERE meter_id IN (SELECT id FROM meters WHERE customer_id = $1)`,
		`DELETE FROM bills WHERE customer_id = $1`,
		`DELETE FROM complaints WHERE customer_id = $1`,
		`DELETE FROM meters WHERE customer_id = $1`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) ListMeters(ctx context.Context) ([]domain.Meter, error) {
	var out []domain.Meter
	err := p.db.SelectContext(ctx, &out, `SELECT id, customer_id, type_id, last_reading, status FROM meters ORDER BY id`)
	return out, err
}

func (p *Postgres) GetMeter(ctx context.Context, id string) (*domain.Meter, error) {
	var m domain.Meter
	err := p.db.GetContext(ctx, &m, `SELECT id, customer_id, type_id, last_reading, status FROM meters WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (p *Postgres) CreateMeter(ctx context.Context, m *domain.Meter) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO meters (id, customer_id, type_id, last_reading, status) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.CustomerID, m.TypeID, m.LastReading, m.Status)
	return err
}

func (p *Postgres) DeleteMeter(ctx context.Context, id string) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM readings WHERE meter_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM meters WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) ActiveTariff(ctx context.Context, typeID int) (*domain.Tariff, error) {
	var t domain.Tariff
	err := p.db.GetContext(ctx, &t,
		`SELECT id, type_id, name, rate, fixed, active FROM tariffs WHERE active AND type_id = $1 ORDER BY id LIMIT 1`, typeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoTariff
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (p *Postgres) ListTariffs(ctx context.Context) ([]domain.Tariff, error) {
	var out []domain.Tariff
	err := p.db.SelectContext(ctx, &out, `SELECT id, type_id, name, rate, fixed, active FROM tariffs WHERE active ORDER BY id`)
	return out, err
}

func (p *Postgres) UpdateTariff(ctx context.Context, id int64, upd store.TariffUpdate) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE tariffs SET name = $1, rate = $2, fixed = $3 WHERE id = $4`,
		upd.Name, upd.Rate, upd.Fixed, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *Postgres) RecordReading(ctx context.Context, rd *domain.Reading, bill *domain.Bill) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock the meter row so a concurrent submission cannot advance
	// last_reading underneath this one.
	var m domain.Meter
	err = tx.GetContext(ctx, &m,
		`SELECT id, customer_id, type_id, last_reading, status FROM meters WHERE id = $1 FOR UPDATE`, rd.MeterID)
	if err != nil {
		return notFound(err)
	}
	// The consumption was derived from a meter snapshot taken before the
	// lock. If another submission advanced last_reading in between, the
	// baseline is stale and the bill would double-count the overlap.
	if !m.LastReading.Equal(rd.Value.Sub(rd.Consumption)) {
		return domain.ErrInvalidReading
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO readings (id, meter_id, value, consumption, read_by, date) VALUES ($1, $2, $3, $4, $5, $6)`,
		rd.ID, rd.MeterID, rd.Value, rd.Consumption, rd.ReadBy, rd.Date); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO bills (id, customer_id, meter_id, reading_id, amount, consumption, date, due_date, status, paid_amount)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		bill.ID, bill.CustomerID, bill.MeterID, bill.ReadingID, bill.Amount, bill.Consumption,
		bill.Date, bill.DueDate, bill.Status, bill.PaidAmount); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE meters SET last_reading = $1 WHERE id = $2`, rd.Value, rd.MeterID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE customers SET outstanding_balance = outstanding_balance + $1 WHERE id = $2`,
		bill.Amount, bill.CustomerID); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) ListReadings(ctx context.Context) ([]domain.Reading, error) {
	var out []domain.Reading
	err := p.db.SelectContext(ctx, &out,
		`SELECT r.id, r.meter_id, r.value, r.consumption, r.read_by, r.date,
		        c.first_name || ' ' || c.last_name AS customer_name
		 FROM readings r
		 JOIN meters m ON r.meter_id = m.id
		 JOIN customers c ON m.customer_id = c.id
		 ORDER BY r.date DESC`)
	return out, err
}

const billCols = `b.id, b.customer_id, b.meter_id, b.reading_id, b.amount, b.consumption,
	b.date, b.due_date, b.status, b.paid_amount,
	c.first_name || ' ' || c.last_name AS customer_name`

func (p *Postgres) GetBill(ctx context.Context, id string) (*domain.Bill, error) {
	var b domain.Bill
	err := p.db.GetContext(ctx, &b,
		`SELECT `+billCols+` FROM bills b JOIN customers c ON b.customer_id = c.id WHERE b.id = $1`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (p *Postgres) ListBills(ctx context.Context) ([]domain.Bill, error) {
	var out []domain.Bill
	err := p.db.SelectContext(ctx, &out,
		`SELECT `+billCols+` FROM bills b JOIN customers c ON b.customer_id = c.id ORDER BY b.date DESC`)
	return out, err
}

func (p *Postgres) ListUnpaidBills(ctx context.Context) ([]domain.Bill, error) {
	var out []domain.Bill
	err := p.db.SelectContext(ctx, &out,
		`SELECT `+billCols+` FROM bills b JOIN customers c ON b.customer_id = c.id
		 WHERE b.status IN ('Unpaid', 'Overdue', 'Partial')
		 ORDER BY b.due_date ASC`)
	return out, err
}

func (p *Postgres) ListOverdueBills(ctx context.Context) ([]domain.Bill, error) {
	var out []domain.Bill
	err := p.db.SelectContext(ctx, &out,
		`SELECT `+billCols+` FROM bills b JOIN customers c ON b.customer_id = c.id
		 WHERE b.status = 'Overdue'
		    OR (b.status IN ('Unpaid', 'Partial') AND b.due_date < NOW())
		 ORDER BY b.due_date ASC`)
	return out, err
}

func (p *Postgres) ApplyPayment(ctx context.Context, pay *domain.Payment) (*domain.Bill, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var b domain.Bill
	err = tx.GetContext(ctx, &b,
		`SELECT id, customer_id, meter_id, reading_id, amount, consumption, date, due_date, status, paid_amount
		 FROM bills WHERE id = $1 FOR UPDATE`, pay.BillID)
	if err != nil {
		return nil, notFound(err)
	}
	if err := b.ApplyPayment(pay.Amount); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO payments (id, bill_id, customer_id, amount, method, date, processed_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		pay.ID, pay.BillID, pay.CustomerID, pay.Amount, pay.Method, pay.Date, pay.ProcessedBy); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE bills SET paid_amount = $1, status = $2 WHERE id = $3`,
		b.PaidAmount, b.Status, b.ID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE customers SET outstanding_balance = outstanding_balance - $1 WHERE id = $2`,
		pay.Amount, b.CustomerID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (p *Postgres) ListPayments(ctx context.Context) ([]domain.Payment, error) {
	var out []domain.Payment
	err := p.db.SelectContext(ctx, &out,
		`SELECT p.id, p.bill_id, p.customer_id, p.amount, p.method, p.date, p.processed_by,
		        c.first_name || ' ' || c.last_name AS customer_name
		 FROM payments p
		 JOIN customers c ON p.customer_id = c.id
		 ORDER BY p.date DESC`)
	return out, err
}

const complaintCols = `co.id, co.customer_id, co.meter_id, co.category, co.subject, co.description,
	co.priority, co.status, co.assigned_to, co.created_at, co.resolved_at, co.resolution,
	c.first_name || ' ' || c.last_name AS customer_name`

func (p *Postgres) ListComplaints(ctx context.Context) ([]domain.Complaint, error) {
	var out []domain.Complaint
	err := p.db.SelectContext(ctx, &out,
		`SELECT `+complaintCols+` FROM complaints co JOIN customers c ON co.customer_id = c.id ORDER BY co.created_at DESC`)
	return out, err
}

func (p *Postgres) CreateComplaint(ctx context.Context, c *domain.Complaint) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO complaints (id, customer_id, meter_id, category, subject, description, priority, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.CustomerID, c.MeterID, c.Category, c.Subject, c.Description, c.Priority, c.Status, c.CreatedAt)
	return err
}

func (p *Postgres) UpdateComplaint(ctx context.Context, id string, upd store.ComplaintUpdate) (*domain.Complaint, error) {
	var c domain.Complaint
	err := p.db.GetContext(ctx, &c,
		`UPDATE complaints SET status = $1,
		        resolution = COALESCE($2, resolution),
		        assigned_to = COALESCE($3, assigned_to),
		        resolved_at = CASE WHEN $1 IN ('Resolved', 'Closed') AND resolved_at IS NULL THEN NOW() ELSE resolved_at END
		 WHERE id = $4
		 RETURNING id, customer_id, meter_id, category, subject, description, priority, status,
		           assigned_to, created_at, resolved_at, resolution, '' AS customer_name`,
		upd.Status, upd.Resolution, upd.AssignedTo, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (p *Postgres) RevenueByDay(ctx context.Context, year, month int) ([]domain.RevenueDay, error) {
	q := `SELECT to_char(date, 'YYYY-MM-DD') AS payment_day,
	             SUM(amount) AS total_revenue,
	             COUNT(*) AS transaction_count
	      FROM payments`
	var args []any
	if year != 0 {
		q += fmt.Sprintf(" WHERE EXTRACT(YEAR FROM date) = $%d", len(args)+1)
		args = append(args, year)
		if month != 0 {
			q += fmt.Sprintf(" AND EXTRACT(MONTH FROM date) = $%d", len(args)+1)
			args = append(args, month)
		}
	}
	q += ` GROUP BY payment_day ORDER BY payment_day DESC`

	var out []domain.RevenueDay
	err := p.db.SelectContext(ctx, &out, q, args...)
	return out, err
}

func (p *Postgres) Defaulters(ctx context.Context, minDays int) ([]domain.Defaulter, error) {
	var out []domain.Defaulter
	err := p.db.SelectContext(ctx, &out,
		`SELECT b.customer_id,
		        c.first_name || ' ' || c.last_name AS customer_name,
		        SUM(b.amount - b.paid_amount) AS total_overdue,
		        COUNT(*) AS overdue_bills
		 FROM bills b
		 JOIN customers c ON b.customer_id = c.id
		 WHERE b.status IN ('Unpaid', 'Partial', 'Overdue')
		   AND (b.status = 'Overdue' OR b.due_date < NOW() - make_interval(days => $1))
		 GROUP BY b.customer_id, customer_name
		 ORDER BY total_overdue DESC`, minDays)
	return out, err
}

func (p *Postgres) TopConsumers(ctx context.Context, utilityType, limit int) ([]domain.Consumer, error) {
	var out []domain.Consumer
	err := p.db.SelectContext(ctx, &out,
		`SELECT m.customer_id,
		        c.first_name || ' ' || c.last_name AS customer_name,
		        SUM(r.consumption) AS total_consumption
		 FROM readings r
		 JOIN meters m ON r.meter_id = m.id
		 JOIN customers c ON m.customer_id = c.id
		 WHERE $1 = 0 OR m.type_id = $1
		 GROUP BY m.customer_id, customer_name
		 ORDER BY total_consumption DESC
		 LIMIT $2`, utilityType, limit)
	return out, err
}

func (p *Postgres) MonthlyReport(ctx context.Context, year, month int) (*domain.MonthlyReport, error) {
	rep := &domain.MonthlyReport{Year: year, Month: month}
	err := p.db.GetContext(ctx, rep,
		`SELECT COUNT(*) AS bills_generated,
		        COALESCE(SUM(amount), 0) AS total_billed,
		        COALESCE(SUM(consumption), 0) AS total_consumption
		 FROM bills
		 WHERE EXTRACT(YEAR FROM date) = $1 AND EXTRACT(MONTH FROM date) = $2`, year, month)
	if err != nil {
		return nil, err
	}
	err = p.db.GetContext(ctx, rep,
		`SELECT COUNT(*) AS payments_received,
		        COALESCE(SUM(amount), 0) AS total_collected
		 FROM payments
		 WHERE EXTRACT(YEAR FROM date) = $1 AND EXTRACT(MONTH FROM date) = $2`, year, month)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func (p *Postgres) FindUser(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := p.db.GetContext(ctx, &u,
		`UPDATE users SET last_login = NOW()
		 WHERE username = $1 AND active
		 RETURNING id, username, full_name, role, email, active, last_login`, username)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
