package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"dental-clinic/internal/db"
)

// Store is the relational persistence the handlers need. *db.Store
// implements it.
type Store interface {
	Ping(ctx context.Context) error
	CreatePatient(ctx context.Context, p db.NewPatient) (int64, error)
	FindPatientsByLogin(ctx context.Context, login string) ([]db.PatientCredentials, error)
	CreateAppointment(ctx context.Context, patientID int64, date time.Time, treatment string) (int64, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, status string) error
	ListAppointments(ctx context.Context) ([]db.Appointment, error)
	CreateReportRequest(ctx context.Context, patientID int64, testName string) (int64, error)
	ListReportRequests(ctx context.Context) ([]db.ReportRequest, error)
	ListPatientReports(ctx context.Context, patientID int64) ([]db.PatientReport, error)
	MarkReportUploaded(ctx context.Context, id int64, filename, key string) error
	AdminPasswordHash(ctx context.Context, username string) (string, error)
}

// ObjectStore presigns access to report files. *MinioStore implements it.
type ObjectStore interface {
	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
	Ping(ctx context.Context) error
}

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
}

type Config struct {
	Addr        string // e.g. ":10000"
	Build       BuildInfo
	Store       Store
	Objects     ObjectStore
	Events      Publisher // nil discards events
	Logger      *Logger   // nil uses DefaultLogger
	CORSOrigins []string
	Tracing     bool
}

type Server struct {
	httpServer *http.Server
	handler    http.Handler

	store   Store
	objects ObjectStore
	events  Publisher
	log     *Logger
	build   BuildInfo
}

// presignTTL bounds every upload and download URL handed to clients.
const presignTTL = time.Hour

func New(cfg Config) *Server {
	s := &Server{
		store:   cfg.Store,
		objects: cfg.Objects,
		events:  cfg.Events,
		log:     cfg.Logger,
		build:   cfg.Build,
	}
	if s.events == nil {
		s.events = NopPublisher()
	}
	if s.log == nil {
		s.log = DefaultLogger
	}

	mux := http.NewServeMux()
	s.routes(mux)

	// Wrap middleware, innermost first. Request ids are assigned before
	// anything logs.
	var handler http.Handler = mux
	handler = compressionMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = withCORS(defaultCORSPolicy(cfg.CORSOrigins))(handler)
	if cfg.Tracing {
		handler = tracingMiddleware(handler)
	}
	handler = recoveryMiddleware(s.log)(handler)
	handler = loggingMiddleware(s.log)(handler)
	handler = requestIDMiddleware(handler)
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /patient/register", s.handleRegister)
	mux.HandleFunc("POST /patient/login", s.handlePatientLogin)

	mux.HandleFunc("POST /book-appointment", s.handleBookAppointment)
	mux.HandleFunc("POST /admin/update-appointment-status", s.handleUpdateAppointmentStatus)
	mux.HandleFunc("GET /admin/appointments", s.handleListAppointments)

	mux.HandleFunc("POST /request-report", s.handleRequestReport)
	mux.HandleFunc("GET /admin/report-requests", s.handleListReportRequests)
	mux.HandleFunc("POST /generate-upload-url", s.handleGenerateUploadURL)
	mux.HandleFunc("POST /upload-report", s.handleUploadReport)
	mux.HandleFunc("GET /reports/{patient_id}", s.handlePatientReports)

	mux.HandleFunc("POST /admin/login", s.handleAdminLogin)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/db", s.handleHealthDB)
	mux.HandleFunc("GET /health/s3", s.handleHealthS3)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /live", s.handleLive)
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
