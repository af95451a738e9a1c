package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dental-clinic/internal/db"
)

const (
	reportContentType = "application/pdf"
	timestampLayout   = "2006-01-02 15:04:05"
)

type requestReportRequest struct {
	PatientID flexID `json:"patient_id"`
	TestName  string `json:"test_name"`
}

type requestReportResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	ReportID int64  `json:"report_id"`
}

type uploadURLRequest struct {
	PatientID flexID `json:"patient_id"`
	TestName  string `json:"test_name"`
}

type uploadURLResponse struct {
	Success   bool   `json:"success"`
	UploadURL string `json:"upload_url"`
	S3Key     string `json:"s3_key"`
}

type uploadReportRequest struct {
	ReportID flexID `json:"report_id"`
	Filename string `json:"filename"`
	S3Key    string `json:"s3_key"`
}

type uploadReportResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	ReportID int64  `json:"report_id"`
}

// ReportRequestView is one entry of GET /admin/report-requests.
type ReportRequestView struct {
	ID          int64   `json:"id"`
	PatientID   int64   `json:"patient_id"`
	PatientName string  `json:"patient_name"`
	TestName    string  `json:"test_name"`
	Status      string  `json:"status"`
	RequestedAt string  `json:"requested_at"`
	UploadDate  *string `json:"upload_date"`
	S3Key       *string `json:"s3_key"`
}

// PatientReportView is one entry of GET /reports/{patient_id}.
type PatientReportView struct {
	ReportID    int64   `json:"report_id"`
	TestName    string  `json:"test_name"`
	Status      string  `json:"status"`
	Filename    *string `json:"filename"`
	RequestedAt *string `json:"requested_at"`
	UploadDate  *string `json:"upload_date"`
	DownloadURL *string `json:"download_url"`
}

func formatTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timestampLayout)
	return &s
}

// handleRequestReport handles POST /request-report.
func (s *Server) handleRequestReport(w http.ResponseWriter, r *http.Request) {
	var req requestReportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}

	req.TestName = strings.TrimSpace(req.TestName)
	if !req.PatientID.Set {
		writeError(w, http.StatusBadRequest, "Patient ID is required")
		return
	}
	if req.TestName == "" {
		writeError(w, http.StatusBadRequest, "Test name is required")
		return
	}
	if msg := tooLong(fieldLimit{"test_name", req.TestName, maxTestNameLen}); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	id, err := s.store.CreateReportRequest(r.Context(), req.PatientID.Value, req.TestName)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Patient not found")
		return
	}
	if err != nil {
		s.dbError(w, r, "request report", err)
		return
	}

	s.emit(r.Context(), EventReportRequested, strconv.FormatInt(req.PatientID.Value, 10), map[string]any{
		"report_id":  id,
		"patient_id": req.PatientID.Value,
		"test_name":  req.TestName,
	})

	writeJSON(w, http.StatusOK, requestReportResponse{
		Success:  true,
		Message:  "Report requested successfully",
		ReportID: id,
	})
}

// handleListReportRequests handles GET /admin/report-requests.
func (s *Server) handleListReportRequests(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListReportRequests(r.Context())
	if err != nil {
		s.dbError(w, r, "list report requests", err)
		return
	}

	out := make([]ReportRequestView, 0, len(rows))
	for _, rr := range rows {
		v := ReportRequestView{
			ID:          rr.ID,
			PatientID:   rr.PatientID,
			PatientName: rr.PatientName,
			TestName:    rr.TestName,
			Status:      rr.Status,
			RequestedAt: "N/A",
			UploadDate:  formatTimestamp(rr.UploadDate),
			S3Key:       rr.S3Key,
		}
		if v.PatientName == "" {
			v.PatientName = "Unknown Patient"
		}
		if v.Status == "" {
			v.Status = db.ReportPending
		}
		if ts := formatTimestamp(rr.RequestedAt); ts != nil {
			v.RequestedAt = *ts
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGenerateUploadURL handles POST /generate-upload-url. The client PUTs
// the PDF straight to the object store and then reports the key back via
// /upload-report.
func (s *Server) handleGenerateUploadURL(w http.ResponseWriter, r *http.Request) {
	var req uploadURLRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}

	req.TestName = strings.TrimSpace(req.TestName)
	if !req.PatientID.Set {
		writeError(w, http.StatusBadRequest, "Patient ID is required")
		return
	}
	if req.TestName == "" {
		writeError(w, http.StatusBadRequest, "Test name is required")
		return
	}
	if msg := tooLong(fieldLimit{"test_name", req.TestName, maxTestNameLen}); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	key := NewReportKey(req.PatientID.Value, req.TestName)
	uploadURL, err := s.objects.PresignUpload(r.Context(), key, reportContentType, presignTTL)
	if err != nil {
		s.log.Error("generate upload url: presign failed", map[string]any{
			"request_id": RequestIDFromContext(r.Context()),
			"s3_key":     key,
		}, err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	writeJSON(w, http.StatusOK, uploadURLResponse{Success: true, UploadURL: uploadURL, S3Key: key})
}

// handleUploadReport handles POST /upload-report.
func (s *Server) handleUploadReport(w http.ResponseWriter, r *http.Request) {
	var req uploadReportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}

	req.S3Key = strings.TrimSpace(req.S3Key)
	req.Filename = strings.TrimSpace(req.Filename)
	if !req.ReportID.Set {
		writeError(w, http.StatusBadRequest, "report_id missing in request")
		return
	}
	if req.S3Key == "" {
		writeError(w, http.StatusBadRequest, "s3_key missing in request")
		return
	}
	if req.Filename == "" {
		req.Filename = filenameFromKey(req.S3Key)
	}
	if msg := tooLong(
		fieldLimit{"s3_key", req.S3Key, maxKeyLen},
		fieldLimit{"filename", req.Filename, maxFilenameLen},
	); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	err := s.store.MarkReportUploaded(r.Context(), req.ReportID.Value, req.Filename, req.S3Key)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Report ID not found")
		return
	}
	if err != nil {
		s.dbError(w, r, "upload report", err)
		return
	}

	s.audit(r, AuditEntry{
		Action:   AuditReportUpload,
		Resource: "report/" + strconv.FormatInt(req.ReportID.Value, 10),
		Success:  true,
		Details:  map[string]any{"s3_key": req.S3Key},
	})
	s.emit(r.Context(), EventReportUploaded, strconv.FormatInt(req.ReportID.Value, 10), map[string]any{
		"report_id": req.ReportID.Value,
		"filename":  req.Filename,
		"s3_key":    req.S3Key,
	})

	writeJSON(w, http.StatusOK, uploadReportResponse{
		Success:  true,
		Message:  "Report uploaded successfully",
		ReportID: req.ReportID.Value,
	})
}

// handlePatientReports handles GET /reports/{patient_id}. Uploaded reports
// carry a short-lived download URL; everything else gets null.
func (s *Server) handlePatientReports(w http.ResponseWriter, r *http.Request) {
	patientID, ok := parsePathID(r.PathValue("patient_id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "patient_id must be a positive integer")
		return
	}

	rows, err := s.store.ListPatientReports(r.Context(), patientID)
	if err != nil {
		s.dbError(w, r, "patient reports", err)
		return
	}

	out := make([]PatientReportView, 0, len(rows))
	for _, pr := range rows {
		v := PatientReportView{
			ReportID:    pr.ID,
			TestName:    pr.TestName,
			Status:      pr.Status,
			Filename:    pr.Filename,
			RequestedAt: formatTimestamp(pr.RequestedAt),
			UploadDate:  formatTimestamp(pr.UploadDate),
		}
		if v.Status == "" {
			v.Status = db.ReportPending
		}
		if v.Status == db.ReportUploaded && pr.S3Key != nil && *pr.S3Key != "" {
			u, err := s.objects.PresignDownload(r.Context(), *pr.S3Key, presignTTL)
			if err != nil {
				s.log.Warn("patient reports: presign failed", map[string]any{
					"request_id": RequestIDFromContext(r.Context()),
					"report_id":  pr.ID,
					"error":      err.Error(),
				})
			} else {
				v.DownloadURL = &u
			}
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}
