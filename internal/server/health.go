package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of an individual component
type ComponentStatus string

const (
	ComponentStatusUp   ComponentStatus = "up"
	ComponentStatusDown ComponentStatus = "down"
)

// Health is the body of GET /ready.
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Commit     string                     `json:"commit,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents the health of a single system component
type ComponentHealth struct {
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LatencyMs int64           `json:"latency_ms"`
	Pool      *PoolStats      `json:"pool,omitempty"`
}

// PoolStats is a snapshot of the database connection pool.
type PoolStats struct {
	MaxOpen   int   `json:"max_open"`
	Open      int   `json:"open"`
	InUse     int   `json:"in_use"`
	Idle      int   `json:"idle"`
	WaitCount int64 `json:"wait_count"`
}

// poolStatser is implemented by stores backed by a database/sql pool.
type poolStatser interface {
	Stats() sql.DBStats
}

func poolStats(store Store) *PoolStats {
	ps, ok := store.(poolStatser)
	if !ok {
		return nil
	}
	st := ps.Stats()
	return &PoolStats{
		MaxOpen:   st.MaxOpenConnections,
		Open:      st.OpenConnections,
		InUse:     st.InUse,
		Idle:      st.Idle,
		WaitCount: st.WaitCount,
	}
}

// handleHealth handles GET /health. It only proves the process is serving.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealthDB handles GET /health/db.
func (s *Server) handleHealthDB(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Warn("health: database unreachable", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"database": "disconnected"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"database": "connected"})
}

// handleHealthS3 handles GET /health/s3.
func (s *Server) handleHealthS3(w http.ResponseWriter, r *http.Request) {
	if err := s.objects.Ping(r.Context()); err != nil {
		s.log.Warn("health: object store unreachable", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"s3": "error", "details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"s3": "connected"})
}

// handleReady handles GET /ready, aggregating every dependency for load
// balancers and orchestrators.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	health := s.checkHealth(r.Context())

	status := http.StatusOK
	if health.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// handleLive handles GET /live (is the process running?)
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) checkHealth(ctx context.Context) Health {
	database := checkComponent(ctx, "database", s.store.Ping)
	database.Pool = poolStats(s.store)

	health := Health{
		Timestamp: time.Now().UTC(),
		Version:   s.build.Version,
		Commit:    s.build.Commit,
		Components: map[string]ComponentHealth{
			"database":     database,
			"object_store": checkComponent(ctx, "object store", s.objects.Ping),
		},
	}
	health.Status = determineOverallHealth(health.Components)
	return health
}

func checkComponent(ctx context.Context, name string, ping func(context.Context) error) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return ComponentHealth{
			Status:    ComponentStatusDown,
			Message:   name + " check failed: " + err.Error(),
			LatencyMs: latency,
		}
	}
	return ComponentHealth{
		Status:    ComponentStatusUp,
		Message:   name + " healthy",
		LatencyMs: latency,
	}
}

// determineOverallHealth is unhealthy as soon as any component is down.
func determineOverallHealth(components map[string]ComponentHealth) HealthStatus {
	for _, c := range components {
		if c.Status == ComponentStatusDown {
			return HealthStatusUnhealthy
		}
	}
	return HealthStatusHealthy
}
