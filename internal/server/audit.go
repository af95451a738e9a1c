package server

import (
	"net/http"
)

// AuditAction names an administrative operation recorded in the audit trail.
type AuditAction string

const (
	AuditAdminLogin        AuditAction = "admin_login"
	AuditAppointmentStatus AuditAction = "appointment_status"
	AuditReportUpload      AuditAction = "report_upload"
)

// AuditEntry is one audit record. Actor is empty for unauthenticated
// admin endpoints.
type AuditEntry struct {
	Action   AuditAction
	Actor    string
	Resource string
	Success  bool
	Details  map[string]any
}

// audit writes entry as a structured "audit" log line tagged with the
// request id and caller address.
func (s *Server) audit(r *http.Request, entry AuditEntry) {
	fields := map[string]any{
		"audit":      true,
		"action":     string(entry.Action),
		"success":    entry.Success,
		"request_id": RequestIDFromContext(r.Context()),
		"ip":         clientIP(r),
		"ua":         r.UserAgent(),
	}
	if entry.Actor != "" {
		fields["actor"] = entry.Actor
	}
	if entry.Resource != "" {
		fields["resource"] = entry.Resource
	}
	for k, v := range entry.Details {
		if _, taken := fields[k]; !taken {
			fields[k] = v
		}
	}
	s.log.Info("audit", fields)
}
