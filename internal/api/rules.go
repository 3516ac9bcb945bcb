package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ruleResponse is the wire form of a rule, with a human-readable
// cooldown.
type ruleResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	AlertType   string `json:"alert_type"`
	Cooldown    string `json:"cooldown"`
	Enabled     bool   `json:"enabled"`
}

// listRules returns the rule table with effective enabled flags.
func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	rules := s.engine.Rules()
	resp := make([]ruleResponse, len(rules))
	for i, rule := range rules {
		resp[i] = ruleResponse{
			ID:          rule.ID,
			Name:        rule.Name,
			Description: rule.Description,
			Severity:    string(rule.Severity),
			AlertType:   string(rule.AlertType),
			Cooldown:    rule.Cooldown.String(),
			Enabled:     rule.Enabled,
		}
	}
	OK(w, resp)
}

type updateRuleRequest struct {
	Enabled *bool `json:"enabled"`
}

type ruleStateResponse struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

// updateRule toggles a rule at runtime. The rule table itself is fixed;
// only the enabled flag can change.
func (s *Server) updateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, NewBadRequest("rule id required"))
		return
	}

	var req updateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, NewBadRequest("invalid request body"))
		return
	}
	if req.Enabled == nil {
		JSONError(w, NewValidationError("enabled is required"))
		return
	}

	if !s.engine.SetEnabled(id, *req.Enabled) {
		JSONError(w, NewNotFound("rule not found"))
		return
	}

	s.log.Info().Str("rule", id).Bool("enabled", *req.Enabled).Msg("rule toggled")
	OK(w, ruleStateResponse{ID: id, Enabled: *req.Enabled})
}
