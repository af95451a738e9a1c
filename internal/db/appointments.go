package db

import (
	"context"
	"time"
)

// Appointment is one row of the admin appointment listing.
type Appointment struct {
	ID          int64
	PatientID   int64
	PatientName string
	Date        time.Time
	Treatment   string
	Status      string
}

// CreateAppointment books an appointment with status Booked. An unknown
// patient yields ErrNotFound.
func (s *Store) CreateAppointment(ctx context.Context, patientID int64, date time.Time, treatment string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO appointments (patient_id, appointment_date, treatment, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, patientID, date, treatment, AppointmentBooked).Scan(&id)
	if err != nil {
		return 0, classify("create appointment", err)
	}
	return id, nil
}

// UpdateAppointmentStatus overwrites the status of one appointment. Last
// write wins. ErrNotFound when no row has that id.
func (s *Store) UpdateAppointmentStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE appointments SET status = $1 WHERE id = $2
	`, status, id)
	if err != nil {
		return classify("update appointment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("update appointment", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAppointments returns every appointment, newest date first.
func (s *Store) ListAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.patient_id,
		       COALESCE(p.name, 'Patient ' || a.patient_id::text),
		       a.appointment_date, a.treatment, a.status
		FROM appointments a
		LEFT JOIN patients p ON p.id = a.patient_id
		ORDER BY a.appointment_date DESC, a.id DESC
	`)
	if err != nil {
		return nil, classify("list appointments", err)
	}
	defer rows.Close()

	out := make([]Appointment, 0)
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.Date, &a.Treatment, &a.Status); err != nil {
			return nil, classify("scan appointment", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list appointments", err)
	}
	return out, nil
}
