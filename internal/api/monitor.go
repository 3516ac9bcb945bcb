package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/portsense/portsense/internal/monitor"
)

// runMonitorCycle triggers a monitoring cycle on demand. A cycle that
// is already in flight yields 409 instead of queueing another.
func (s *Server) runMonitorCycle(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		JSONError(w, ErrInternalServer)
		return
	}

	// Detach from the request context so a client disconnect does not
	// cancel a cycle that has already started mutating state.
	result, err := s.runner.RunCycle(context.WithoutCancel(r.Context()))
	if err != nil {
		if errors.Is(err, monitor.ErrCycleRunning) {
			JSONError(w, NewConflict("monitoring cycle already running"))
			return
		}
		s.log.Error().Err(err).Msg("manual cycle failed")
		JSONError(w, ErrInternalServer)
		return
	}
	OK(w, result)
}

type monitorStatusResponse struct {
	Running bool                 `json:"running"`
	Last    *monitor.CycleResult `json:"last,omitempty"`
}

// monitorStatus reports whether a cycle is in flight and the summary of
// the last completed one.
func (s *Server) monitorStatus(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		OK(w, monitorStatusResponse{})
		return
	}
	OK(w, monitorStatusResponse{
		Running: s.runner.Running(),
		Last:    s.runner.LastResult(),
	})
}
