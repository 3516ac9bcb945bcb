package alerting

import (
	"time"

	"github.com/portsense/portsense/internal/models"
)

// CooldownWindow is how far back the caller should fetch alert history
// before filtering; no rule cooldown exceeds it.
const CooldownWindow = 24 * time.Hour

// FilterTriggers drops every trigger whose rule already produced an
// alert for the same container within that rule's cooldown. Matching is
// by rule id stored on the alert record, so two rules of the same
// category never suppress each other.
//
// The function is pure: it only reads its inputs and returns the
// surviving triggers in their original order.
func FilterTriggers(triggers []Trigger, recent []*models.Alert, now time.Time) []Trigger {
	if len(triggers) == 0 {
		return nil
	}

	survivors := make([]Trigger, 0, len(triggers))
	for _, trig := range triggers {
		if onCooldown(trig, recent, now) {
			continue
		}
		survivors = append(survivors, trig)
	}
	return survivors
}

func onCooldown(trig Trigger, recent []*models.Alert, now time.Time) bool {
	cutoff := now.Add(-trig.Cooldown)
	for _, a := range recent {
		if a.RuleID == trig.RuleID && a.CreatedAt.After(cutoff) {
			return true
		}
	}
	return false
}
