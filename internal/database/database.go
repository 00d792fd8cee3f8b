package database

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"
	"github.com/utilityops/ums-backend/internal/domain"
)

// Connect opens the Postgres pool. Connection failures are wrapped with
// domain.ErrStoreUnavailable so callers can decide between failing and
// falling back to the in-memory store.
func Connect() (*sqlx.DB, error) {
	dsn := viper.GetString("DB_DSN")
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return db, nil
}
