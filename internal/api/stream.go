package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/portsense/portsense/internal/api/middleware"
	"github.com/portsense/portsense/internal/models"
)

// sseWriter provides Server-Sent Events writing capabilities.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter, flusher http.Flusher) *sseWriter {
	return &sseWriter{w: w, flusher: flusher}
}

// sendJSON marshals v and sends it as a data-only SSE message.
// Format: data: <json>\n\n
func (s *sseWriter) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Stream payload types. Clients switch on the "type" field.
type connectionPayload struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type heartbeatPayload struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type changePayload struct {
	Type           string             `json:"type"`
	Container      *models.Container  `json:"container"`
	PreviousStatus string             `json:"previous_status"`
	NewStatus      string             `json:"new_status"`
	ChangeType     models.ChangeType  `json:"change_type"`
	Timestamp      time.Time          `json:"timestamp"`
}

// streamContainers serves the SSE change stream for the caller's
// containers. The connection stays open until the client disconnects,
// the hub shuts down, or a write fails.
func (s *Server) streamContainers(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		JSONError(w, ErrInternalServer)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		JSONError(w, NewBadRequest("streaming unsupported"))
		return
	}

	userID := middleware.GetUserID(r.Context())
	sub := s.hub.Subscribe(userID)
	if sub == nil {
		JSONError(w, ErrInternalServer)
		return
	}
	defer s.hub.Unsubscribe(sub.ID())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	writer := newSSEWriter(w, flusher)

	if err := writer.sendJSON(connectionPayload{Type: "connection", Timestamp: time.Now()}); err != nil {
		return
	}

	s.log.Debug().Str("user", userID).Str("subscription", sub.ID()).Msg("stream opened")

	heartbeat := time.NewTicker(s.config.HeartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			s.log.Debug().Str("subscription", sub.ID()).Msg("stream client disconnected")
			return

		case <-heartbeat.C:
			if err := writer.sendJSON(heartbeatPayload{Type: "heartbeat", Timestamp: time.Now()}); err != nil {
				s.log.Debug().Err(err).Str("subscription", sub.ID()).Msg("heartbeat write failed")
				return
			}

		case event, open := <-sub.Events():
			if !open {
				// Hub shut down.
				return
			}
			payload := changePayload{
				Type:           "change",
				Container:      event.Container,
				PreviousStatus: event.PreviousStatus,
				NewStatus:      event.NewStatus,
				ChangeType:     event.ChangeType,
				Timestamp:      event.Timestamp,
			}
			if err := writer.sendJSON(payload); err != nil {
				s.log.Debug().Err(err).Str("subscription", sub.ID()).Msg("event write failed")
				return
			}
		}
	}
}
