package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/portsense/portsense/internal/api/middleware"
	"github.com/portsense/portsense/internal/models"
	"github.com/portsense/portsense/internal/storage"
)

// statsWindow is the trailing period covered by the stats endpoint.
const statsWindow = 30 * 24 * time.Hour

// listAlerts returns the caller's alerts, newest first.
func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	limit := s.config.AlertLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	alerts, err := s.storage.Alerts().ListByUser(ctx, userID, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("list alerts failed")
		JSONError(w, ErrInternalServer)
		return
	}
	if alerts == nil {
		alerts = []*models.Alert{}
	}
	OK(w, alerts)
}

// acknowledgeAlert marks one alert as read. Acknowledging an already
// acknowledged alert succeeds and keeps the original timestamp.
func (s *Server) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, NewBadRequest("alert id required"))
		return
	}

	ctx := r.Context()
	alert, err := s.storage.Alerts().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			JSONError(w, NewNotFound("alert not found"))
			return
		}
		s.log.Error().Err(err).Str("alert", id).Msg("get alert failed")
		JSONError(w, ErrInternalServer)
		return
	}
	if alert.UserID != middleware.GetUserID(ctx) {
		JSONError(w, ErrForbidden)
		return
	}

	if err := s.storage.Alerts().Acknowledge(ctx, id, time.Now()); err != nil {
		s.log.Error().Err(err).Str("alert", id).Msg("acknowledge failed")
		JSONError(w, ErrInternalServer)
		return
	}

	fresh, err := s.storage.Alerts().GetByID(ctx, id)
	if err != nil {
		JSONError(w, ErrInternalServer)
		return
	}
	OK(w, fresh)
}

type bulkAcknowledgeRequest struct {
	IDs []string `json:"ids"`
}

type bulkAcknowledgeResponse struct {
	Acknowledged int `json:"acknowledged"`
	Skipped      int `json:"skipped"`
}

// bulkAcknowledgeAlerts acknowledges a batch of the caller's alerts.
// Foreign or unknown ids are skipped, never an error for the batch.
func (s *Server) bulkAcknowledgeAlerts(w http.ResponseWriter, r *http.Request) {
	var req bulkAcknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, NewBadRequest("invalid request body"))
		return
	}
	if len(req.IDs) == 0 {
		JSONError(w, NewValidationError("ids is required"))
		return
	}
	if len(req.IDs) > 100 {
		JSONError(w, NewValidationError("at most 100 ids per request"))
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	now := time.Now()

	resp := bulkAcknowledgeResponse{}
	for _, id := range req.IDs {
		alert, err := s.storage.Alerts().GetByID(ctx, id)
		if err != nil || alert.UserID != userID {
			resp.Skipped++
			continue
		}
		if err := s.storage.Alerts().Acknowledge(ctx, id, now); err != nil {
			s.log.Error().Err(err).Str("alert", id).Msg("bulk acknowledge failed")
			resp.Skipped++
			continue
		}
		resp.Acknowledged++
	}
	OK(w, resp)
}

// alertStats returns 30-day alert totals for the caller.
func (s *Server) alertStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	stats, err := s.storage.Alerts().Stats(ctx, userID, time.Now().Add(-statsWindow))
	if err != nil {
		s.log.Error().Err(err).Msg("alert stats failed")
		JSONError(w, ErrInternalServer)
		return
	}
	OK(w, stats)
}
