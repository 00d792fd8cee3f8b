package domain

import "errors"

var (
	// ErrNotFound covers unknown customer, meter, bill and complaint IDs.
	ErrNotFound = errors.New("not found")

	// ErrInvalidReading rejects a reading below the meter's last recorded
	// value, or one whose consumption was derived from a meter value that
	// is no longer current.
	ErrInvalidReading = errors.New("reading conflicts with last recorded value")

	// ErrNoTariff means no active tariff exists for the meter's utility type.
	ErrNoTariff = errors.New("no active tariff for utility type")

	// ErrInvalidAmount rejects non-positive payments and payments exceeding
	// the bill's remaining balance.
	ErrInvalidAmount = errors.New("invalid payment amount")

	// ErrStoreUnavailable is returned when the database cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
)
