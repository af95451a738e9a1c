package db

import (
	"context"
	"database/sql"
	"time"
)

// ReportRequest is one row of the admin report-request listing. Nil
// pointers are SQL NULLs.
type ReportRequest struct {
	ID          int64
	PatientID   int64
	PatientName string
	TestName    string
	Status      string
	RequestedAt *time.Time
	UploadDate  *time.Time
	S3Key       *string
}

// PatientReport is one of a patient's own reports.
type PatientReport struct {
	ID          int64
	TestName    string
	Status      string
	Filename    *string
	S3Key       *string
	RequestedAt *time.Time
	UploadDate  *time.Time
}

// CreateReportRequest inserts a Pending report. An unknown patient yields
// ErrNotFound.
func (s *Store) CreateReportRequest(ctx context.Context, patientID int64, testName string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO reports (patient_id, test_name, status)
		VALUES ($1, $2, $3)
		RETURNING id
	`, patientID, testName, ReportPending).Scan(&id)
	if err != nil {
		return 0, classify("create report", err)
	}
	return id, nil
}

// ListReportRequests returns every report joined to its patient, newest
// request first. A missing patient name becomes "Unknown Patient" and a
// missing status becomes Pending.
func (s *Store) ListReportRequests(ctx context.Context) ([]ReportRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.patient_id,
		       COALESCE(p.name, 'Unknown Patient'),
		       r.test_name,
		       COALESCE(r.status, 'Pending'),
		       r.requested_at, r.upload_date, r.s3_key
		FROM reports r
		LEFT JOIN patients p ON p.id = r.patient_id
		ORDER BY r.requested_at DESC NULLS LAST, r.id DESC
	`)
	if err != nil {
		return nil, classify("list report requests", err)
	}
	defer rows.Close()

	out := make([]ReportRequest, 0)
	for rows.Next() {
		var (
			rr          ReportRequest
			requestedAt sql.NullTime
			uploadDate  sql.NullTime
			key         sql.NullString
		)
		if err := rows.Scan(&rr.ID, &rr.PatientID, &rr.PatientName, &rr.TestName, &rr.Status,
			&requestedAt, &uploadDate, &key); err != nil {
			return nil, classify("scan report request", err)
		}
		rr.RequestedAt = nullTime(requestedAt)
		rr.UploadDate = nullTime(uploadDate)
		rr.S3Key = nullString(key)
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list report requests", err)
	}
	return out, nil
}

// ListPatientReports returns one patient's reports, most recently uploaded
// first and pending ones after, each group newest request first.
func (s *Store) ListPatientReports(ctx context.Context, patientID int64) ([]PatientReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, test_name, status, filename, s3_key, requested_at, upload_date
		FROM reports
		WHERE patient_id = $1
		ORDER BY upload_date DESC NULLS LAST, requested_at DESC
	`, patientID)
	if err != nil {
		return nil, classify("list patient reports", err)
	}
	defer rows.Close()

	out := make([]PatientReport, 0)
	for rows.Next() {
		var (
			pr          PatientReport
			filename    sql.NullString
			key         sql.NullString
			requestedAt sql.NullTime
			uploadDate  sql.NullTime
		)
		if err := rows.Scan(&pr.ID, &pr.TestName, &pr.Status, &filename, &key, &requestedAt, &uploadDate); err != nil {
			return nil, classify("scan patient report", err)
		}
		pr.Filename = nullString(filename)
		pr.S3Key = nullString(key)
		pr.RequestedAt = nullTime(requestedAt)
		pr.UploadDate = nullTime(uploadDate)
		out = append(out, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list patient reports", err)
	}
	return out, nil
}

// MarkReportUploaded records the object key and filename of an uploaded
// report and stamps upload_date. ErrNotFound when no row has that id, in
// which case nothing is written.
func (s *Store) MarkReportUploaded(ctx context.Context, id int64, filename, key string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reports
		SET status = $1, filename = $2, s3_key = $3, upload_date = CURRENT_TIMESTAMP
		WHERE id = $4
	`, ReportUploaded, filename, key, id)
	if err != nil {
		return classify("mark report uploaded", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("mark report uploaded", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
