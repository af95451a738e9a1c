package server

import (
	"errors"
	"net/http"
	"strings"

	"dental-clinic/internal/db"
	"dental-clinic/internal/passwords"
)

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Success bool `json:"success"`
}

// handleAdminLogin handles POST /admin/login. It only answers whether the
// credentials match; no session is issued.
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	hash, err := s.store.AdminPasswordHash(r.Context(), req.Username)
	if errors.Is(err, db.ErrNotFound) {
		s.audit(r, AuditEntry{Action: AuditAdminLogin, Actor: req.Username})
		writeJSON(w, http.StatusUnauthorized, adminLoginResponse{Success: false})
		return
	}
	if err != nil {
		s.dbError(w, r, "admin login", err)
		return
	}

	if !passwords.Verify(req.Password, hash) {
		s.audit(r, AuditEntry{Action: AuditAdminLogin, Actor: req.Username})
		writeJSON(w, http.StatusUnauthorized, adminLoginResponse{Success: false})
		return
	}
	s.audit(r, AuditEntry{Action: AuditAdminLogin, Actor: req.Username, Success: true})
	writeJSON(w, http.StatusOK, adminLoginResponse{Success: true})
}
