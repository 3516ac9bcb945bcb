package api

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// health reports process liveness and, when a pinger is registered,
// database reachability.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}

	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		resp.Checks = map[string]string{}
		if err := s.pinger.PingContext(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks["database"] = err.Error()
			JSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Checks["database"] = "ok"
	}

	OK(w, resp)
}
