package db

import (
	"context"
	"strings"
)

// NewPatient holds the columns written on registration. PasswordHash must
// already be hashed.
type NewPatient struct {
	Name         string
	Email        string
	Phone        string
	PasswordHash string
}

// PatientCredentials is what login needs to verify a patient.
type PatientCredentials struct {
	ID           int64
	Name         string
	PasswordHash string
}

// CreatePatient inserts a patient and returns its id. A duplicate email
// yields ErrConflict.
func (s *Store) CreatePatient(ctx context.Context, p NewPatient) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO patients (name, email, phone, password)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, p.Name, p.Email, p.Phone, p.PasswordHash).Scan(&id)
	if err != nil {
		return 0, classify("create patient", err)
	}
	return id, nil
}

// FindPatientsByLogin returns every patient whose email or phone matches
// login. Email is unique but phone is not, so the caller checks the password
// against each candidate.
func (s *Store) FindPatientsByLogin(ctx context.Context, login string) ([]PatientCredentials, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, password
		FROM patients
		WHERE email = $1 OR phone = $2
		ORDER BY id
	`, strings.ToLower(login), login)
	if err != nil {
		return nil, classify("find patient", err)
	}
	defer rows.Close()

	var out []PatientCredentials
	for rows.Next() {
		var c PatientCredentials
		if err := rows.Scan(&c.ID, &c.Name, &c.PasswordHash); err != nil {
			return nil, classify("scan patient", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("find patient", err)
	}
	return out, nil
}
