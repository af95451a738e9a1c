package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"dental-clinic/internal/db"
)

type bookAppointmentRequest struct {
	PatientID flexID `json:"patient_id"`
	Date      string `json:"date"`
	Treatment string `json:"treatment"`
}

type bookAppointmentResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	AppointmentID int64  `json:"appointment_id"`
}

type updateStatusRequest struct {
	AppointmentID flexID `json:"appointment_id"`
	Status        string `json:"status"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AppointmentView is one entry of GET /admin/appointments.
type AppointmentView struct {
	ID              int64  `json:"id"`
	PatientID       int64  `json:"patient_id"`
	PatientName     string `json:"patient_name"`
	AppointmentDate string `json:"appointment_date"`
	Treatment       string `json:"treatment"`
	Status          string `json:"status"`
}

// handleBookAppointment handles POST /book-appointment.
func (s *Server) handleBookAppointment(w http.ResponseWriter, r *http.Request) {
	var req bookAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}

	req.Date = strings.TrimSpace(req.Date)
	req.Treatment = strings.TrimSpace(req.Treatment)
	switch {
	case !req.PatientID.Set:
		writeError(w, http.StatusBadRequest, "Patient ID is required")
		return
	case req.Date == "":
		writeError(w, http.StatusBadRequest, "Date is required")
		return
	case req.Treatment == "":
		writeError(w, http.StatusBadRequest, "Treatment is required")
		return
	}

	if msg := tooLong(fieldLimit{"treatment", req.Treatment, maxTreatmentLen}); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Date must be formatted YYYY-MM-DD")
		return
	}

	id, err := s.store.CreateAppointment(r.Context(), req.PatientID.Value, date, req.Treatment)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Patient not found")
		return
	}
	if err != nil {
		s.dbError(w, r, "book appointment", err)
		return
	}

	s.emit(r.Context(), EventAppointmentBooked, strconv.FormatInt(req.PatientID.Value, 10), map[string]any{
		"appointment_id": id,
		"patient_id":     req.PatientID.Value,
		"date":           date.Format(dateLayout),
		"treatment":      req.Treatment,
	})

	writeJSON(w, http.StatusOK, bookAppointmentResponse{
		Success:       true,
		Message:       "Appointment booked successfully!",
		AppointmentID: id,
	})
}

// handleUpdateAppointmentStatus handles POST /admin/update-appointment-status.
func (s *Server) handleUpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}

	req.Status = strings.TrimSpace(req.Status)
	if !req.AppointmentID.Set {
		writeError(w, http.StatusBadRequest, "Appointment ID is required")
		return
	}
	if !db.AppointmentStatusValid(req.Status) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Status must be one of %s, %s, %s",
			db.AppointmentBooked, db.AppointmentCompleted, db.AppointmentCancelled))
		return
	}

	err := s.store.UpdateAppointmentStatus(r.Context(), req.AppointmentID.Value, req.Status)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Appointment not found")
		return
	}
	if err != nil {
		s.dbError(w, r, "update appointment status", err)
		return
	}

	s.audit(r, AuditEntry{
		Action:   AuditAppointmentStatus,
		Resource: "appointment/" + strconv.FormatInt(req.AppointmentID.Value, 10),
		Success:  true,
		Details:  map[string]any{"status": req.Status},
	})
	s.emit(r.Context(), EventAppointmentStatusChanged, strconv.FormatInt(req.AppointmentID.Value, 10), map[string]any{
		"appointment_id": req.AppointmentID.Value,
		"status":         req.Status,
	})

	writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Appointment marked as " + req.Status,
	})
}

// handleListAppointments handles GET /admin/appointments.
func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := s.store.ListAppointments(r.Context())
	if err != nil {
		s.dbError(w, r, "list appointments", err)
		return
	}

	out := make([]AppointmentView, 0, len(appts))
	for _, a := range appts {
		name := a.PatientName
		if name == "" {
			name = fmt.Sprintf("Patient %d", a.PatientID)
		}
		out = append(out, AppointmentView{
			ID:              a.ID,
			PatientID:       a.PatientID,
			PatientName:     name,
			AppointmentDate: a.Date.Format(dateLayout),
			Treatment:       a.Treatment,
			Status:          a.Status,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
