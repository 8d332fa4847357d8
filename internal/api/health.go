package api

import (
	"net/http"

	"github.com/brightlock/idgateway/internal/api/helpers"
)

// HealthLive is a bare liveness probe: if the process can answer HTTP, it is
// live, regardless of store/cache reachability.
func (s *Server) HealthLive(w http.ResponseWriter, r *http.Request) {
	helpers.RespondJSON(w, http.StatusOK, map[string]string{"status": "live"})
}

// HealthReady additionally verifies the store is reachable.
func (s *Server) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := s.Pool.Ping(r.Context()); err != nil {
		s.Logger.Error("health_ready_failed", "error", err)
		helpers.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unready"})
		return
	}
	helpers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Health is the combined /health endpoint: liveness plus store reachability.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.HealthReady(w, r)
}
