package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/portsense/portsense/internal/api/middleware"
	"github.com/portsense/portsense/internal/models"
	"github.com/portsense/portsense/internal/storage"
)

// listContainers returns the caller's active containers.
func (s *Server) listContainers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	containers, err := s.storage.Containers().ListByUser(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Msg("list containers failed")
		JSONError(w, ErrInternalServer)
		return
	}
	if containers == nil {
		containers = []*models.Container{}
	}
	OK(w, containers)
}

// getContainer returns one container after an ownership check.
func (s *Server) getContainer(w http.ResponseWriter, r *http.Request) {
	c, apiErr := s.loadOwnedContainer(r)
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}
	OK(w, c)
}

// patchRequest carries the manually editable container fields. Absent
// fields are left untouched.
type patchRequest struct {
	Status          *string `json:"status,omitempty"`
	CurrentLocation *string `json:"current_location,omitempty"`
	ETA             *string `json:"eta,omitempty"` // RFC3339
	IsActive        *bool   `json:"is_active,omitempty"`
}

// patchContainer applies a manual field update.
func (s *Server) patchContainer(w http.ResponseWriter, r *http.Request) {
	c, apiErr := s.loadOwnedContainer(r)
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, NewBadRequest("invalid request body"))
		return
	}

	ctx := r.Context()

	if req.IsActive != nil && *req.IsActive != c.IsActive {
		if err := s.storage.Containers().SetActive(ctx, c.ID, *req.IsActive); err != nil {
			s.log.Error().Err(err).Str("container", c.ID).Msg("set active failed")
			JSONError(w, ErrInternalServer)
			return
		}
	}

	upd := &models.ContainerUpdate{}
	changed := false
	if req.Status != nil {
		status := strings.TrimSpace(*req.Status)
		if status == "" {
			JSONError(w, NewValidationError("status cannot be empty"))
			return
		}
		upd.Status = &status
		changed = true
	}
	if req.CurrentLocation != nil {
		upd.CurrentLocation = req.CurrentLocation
		changed = true
	}
	if req.ETA != nil {
		eta, err := time.Parse(time.RFC3339, *req.ETA)
		if err != nil {
			JSONError(w, NewValidationError("eta must be RFC3339"))
			return
		}
		upd.ETA = &eta
		changed = true
	}

	if changed {
		now := time.Now()
		fresh, err := s.storage.Containers().Update(ctx, c.ID, upd, now)
		if err != nil {
			s.log.Error().Err(err).Str("container", c.ID).Msg("patch container failed")
			JSONError(w, ErrInternalServer)
			return
		}

		if err := s.storage.History().Append(ctx, &models.ContainerHistory{
			ID:          uuid.New().String(),
			ContainerID: fresh.ID,
			Status:      fresh.Status,
			Location:    fresh.CurrentLocation,
			Latitude:    fresh.Latitude,
			Longitude:   fresh.Longitude,
			ETA:         fresh.ETA,
			DelayHours:  fresh.DelayHours,
			RecordedAt:  now,
		}); err != nil {
			// History is advisory; the update itself already succeeded.
			s.log.Error().Err(err).Str("container", c.ID).Msg("failed to append history")
		}

		if s.hub != nil {
			s.hub.Publish(&models.ChangeEvent{
				Container:      fresh,
				PreviousStatus: c.Status,
				NewStatus:      fresh.Status,
				ChangeType:     manualChangeType(c, fresh),
				Timestamp:      now,
			})
		}

		OK(w, fresh)
		return
	}

	fresh, err := s.storage.Containers().GetByID(ctx, c.ID)
	if err != nil {
		JSONError(w, ErrInternalServer)
		return
	}
	OK(w, fresh)
}

// manualChangeType picks the dominant change for a manual update, in
// location > delay > risk > status order of precedence.
func manualChangeType(before, after *models.Container) models.ChangeType {
	switch {
	case after.CurrentLocation != before.CurrentLocation:
		return models.ChangeLocation
	case after.DelayHours != before.DelayHours:
		return models.ChangeDelay
	case after.RiskLevel != before.RiskLevel:
		return models.ChangeRisk
	default:
		return models.ChangeStatus
	}
}

// containerHistory returns recent history records for a container.
func (s *Server) containerHistory(w http.ResponseWriter, r *http.Request) {
	c, apiErr := s.loadOwnedContainer(r)
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}

	limit := s.config.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= s.config.HistoryLimit {
			limit = v
		}
	}

	records, err := s.storage.History().ListByContainer(r.Context(), c.ID, limit)
	if err != nil {
		s.log.Error().Err(err).Str("container", c.ID).Msg("list history failed")
		JSONError(w, ErrInternalServer)
		return
	}
	if records == nil {
		records = []*models.ContainerHistory{}
	}
	OK(w, records)
}

// loadOwnedContainer resolves the {id} path parameter and enforces that
// the caller owns the container. Missing and foreign containers are
// distinguished (404 vs 403).
func (s *Server) loadOwnedContainer(r *http.Request) (*models.Container, *Error) {
	id := chi.URLParam(r, "id")
	if id == "" {
		return nil, NewBadRequest("container id required")
	}

	ctx := r.Context()
	c, err := s.storage.Containers().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewNotFound("container not found")
		}
		s.log.Error().Err(err).Str("container", id).Msg("get container failed")
		return nil, ErrInternalServer
	}

	if c.UserID != middleware.GetUserID(ctx) {
		return nil, ErrForbidden
	}
	return c, nil
}
