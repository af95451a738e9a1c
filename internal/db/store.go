package db

import (
	"context"
	"database/sql"
	"time"
)

// Appointment statuses.
const (
	AppointmentBooked    = "Booked"
	AppointmentCompleted = "Completed"
	AppointmentCancelled = "Cancelled"
)

// Report statuses.
const (
	ReportPending  = "Pending"
	ReportUploaded = "Uploaded"
)

// AppointmentStatusValid reports whether s is one of the appointment statuses
// the schema accepts.
func AppointmentStatusValid(s string) bool {
	switch s {
	case AppointmentBooked, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

// Store runs the clinic's SQL against a shared connection pool. It is safe
// for concurrent use.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open pool.
func NewStore(conn *sql.DB) *Store {
	return &Store{db: conn}
}

// Ping checks that the database answers a trivial query.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var one int
	return s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// Stats exposes pool statistics; GET /ready reports them.
func (s *Store) Stats() sql.DBStats {
	return s.db.Stats()
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
