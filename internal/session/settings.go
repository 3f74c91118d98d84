package session

import (
	"time"

	"github.com/medianbudget/backend/internal/models"
)

// Settings are the defaults for new sessions. They are passed in from the
// configuration, never read from the environment here.
type Settings struct {
	GracePeriod    time.Duration
	Phase2Duration time.Duration
}

// For returns the grace period and phase 2 duration for a new session of
// the given kind. Overrides are given in seconds, nil keeps the default.
//
// The configured grace period only applies to budget sessions. Proposal
// sessions close as soon as the last participant has voted.
func (s Settings) For(kind models.SessionKind, graceSeconds, phase2Seconds *int64) (grace, phase2 time.Duration) {
	grace, phase2 = s.GracePeriod, s.Phase2Duration
	if kind == models.KindProposal {
		grace = 0
	}

	if graceSeconds != nil {
		grace = time.Duration(*graceSeconds) * time.Second
	}

	if phase2Seconds != nil {
		phase2 = time.Duration(*phase2Seconds) * time.Second
	}

	return grace, phase2
}
