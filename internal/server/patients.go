package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"dental-clinic/internal/db"
	"dental-clinic/internal/passwords"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type registerResponse struct {
	Success   bool   `json:"success"`
	PatientID int64  `json:"patient_id"`
	Message   string `json:"message"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success     bool   `json:"success"`
	PatientID   int64  `json:"patient_id"`
	PatientName string `json:"patient_name"`
}

// handleRegister handles POST /patient/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)

	for _, f := range []struct{ name, value string }{
		{"name", req.Name},
		{"email", req.Email},
		{"phone", req.Phone},
		{"password", req.Password},
	} {
		if f.value == "" {
			writeError(w, http.StatusBadRequest, "Missing required field: "+f.name)
			return
		}
	}
	if !validateEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	if msg := tooLong(
		fieldLimit{"name", req.Name, maxNameLen},
		fieldLimit{"email", req.Email, maxEmailLen},
		fieldLimit{"phone", req.Phone, maxPhoneLen},
	); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	hash, err := passwords.Hash(req.Password)
	if errors.Is(err, passwords.ErrTooLong) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("password must be at most %d bytes", passwords.MaxBytes))
		return
	}
	if err != nil {
		s.log.Error("register: hash failed", map[string]any{"request_id": RequestIDFromContext(r.Context())}, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	id, err := s.store.CreatePatient(r.Context(), db.NewPatient{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
	})
	if errors.Is(err, db.ErrConflict) {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		s.dbError(w, r, "register", err)
		return
	}

	s.emit(r.Context(), EventPatientRegistered, strconv.FormatInt(id, 10), map[string]any{
		"patient_id": id,
		"name":       req.Name,
		"email":      req.Email,
	})

	writeJSON(w, http.StatusOK, registerResponse{Success: true, PatientID: id, Message: "Registered"})
}

// handlePatientLogin handles POST /patient/login. The login value may be
// either an email or a phone number.
func (s *Server) handlePatientLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}

	login := strings.TrimSpace(req.Login)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	if login == "" {
		login = strings.TrimSpace(req.Phone)
	}
	if login == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Login and password are required")
		return
	}

	candidates, err := s.store.FindPatientsByLogin(r.Context(), login)
	if err != nil {
		s.dbError(w, r, "login", err)
		return
	}

	// Phone numbers are not unique, so every match gets a chance.
	for _, c := range candidates {
		if passwords.Verify(req.Password, c.PasswordHash) {
			writeJSON(w, http.StatusOK, loginResponse{Success: true, PatientID: c.ID, PatientName: c.Name})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Wrong credentials")
}

// dbError logs a store failure with the request id and answers with a
// generic 500, or 400 when the database rejected an input value.
func (s *Server) dbError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, db.ErrInvalid) {
		s.log.Info(op+": value rejected by database", map[string]any{
			"request_id": RequestIDFromContext(r.Context()),
			"error":      err.Error(),
		})
		writeError(w, http.StatusBadRequest, "Invalid input value")
		return
	}
	s.log.Error(op+": database error", map[string]any{
		"request_id": RequestIDFromContext(r.Context()),
	}, err)
	writeError(w, http.StatusInternalServerError, "database error")
}
