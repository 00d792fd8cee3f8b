package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Migrate creates the schema and seeds the standard tariffs and staff
// accounts when the tables are empty. Safe to run on every startup.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			customer_type_id INT NOT NULL DEFAULT 1,
			status TEXT NOT NULL DEFAULT 'Active',
			outstanding_balance NUMERIC(12,2) NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS meters (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL REFERENCES customers(id),
			type_id INT NOT NULL,
			last_reading NUMERIC(12,2) NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'Active'
		)`,
		`CREATE TABLE IF NOT EXISTS readings (
			id TEXT PRIMARY KEY,
			meter_id TEXT NOT NULL REFERENCES meters(id),
			value NUMERIC(12,2) NOT NULL,
			consumption NUMERIC(12,2) NOT NULL,
			read_by TEXT NOT NULL DEFAULT '',
			date TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS tariffs (
			id BIGSERIAL PRIMARY KEY,
			type_id INT NOT NULL,
			name TEXT NOT NULL,
			rate NUMERIC(12,2) NOT NULL,
			fixed NUMERIC(12,2) NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS bills (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL REFERENCES customers(id),
			meter_id TEXT NOT NULL,
			reading_id TEXT NOT NULL UNIQUE REFERENCES readings(id),
			amount NUMERIC(12,2) NOT NULL,
			consumption NUMERIC(12,2) NOT NULL,
			date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			due_date TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'Unpaid',
			paid_amount NUMERIC(12,2) NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id TEXT PRIMARY KEY,
			bill_id TEXT NOT NULL REFERENCES bills(id),
			customer_id TEXT NOT NULL REFERENCES customers(id),
			amount NUMERIC(12,2) NOT NULL,
			method TEXT NOT NULL,
			date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_by TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS complaints (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL REFERENCES customers(id),
			meter_id TEXT,
			category TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT 'Medium',
			status TEXT NOT NULL DEFAULT 'Open',
			assigned_to TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_at TIMESTAMPTZ,
			resolution TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL,
			role TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			last_login TIMESTAMPTZ
		)`,
		`INSERT INTO tariffs (type_id, name, rate, fixed)
		 SELECT v.type_id, v.name, v.rate, v.fixed
		 FROM (VALUES
			(1, 'Electricity Standard', 25.00, 500.00),
			(2, 'Water Standard', 45.00, 300.00),
			(3, 'Gas Standard', 35.00, 250.00)
		 ) AS v(type_id, name, rate, fixed)
		 WHERE NOT EXISTS (SELECT 1 FROM tariffs)`,
		`INSERT INTO users (username, full_name, role, email)
		 SELECT v.username, v.full_name, v.role, v.email
		 FROM (VALUES
			('admin', 'System Administrator', 'Admin', 'admin@ums.lk'),
			('field1', 'Saman Kumara', 'FieldOfficer', 'field1@ums.lk'),
			('cashier1', 'Malini Jayawardena', 'Cashier', 'cashier1@ums.lk'),
			('manager1', 'Ruwan Perera', 'Manager', 'manager1@ums.lk')
		 ) AS v(username, full_name, role, email)
		 WHERE NOT EXISTS (SELECT 1 FROM users)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
