package session

import (
	"context"
	"errors"

	"github.com/medianbudget/backend/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Evaluator closes sessions once every participant has voted or the
// voting phase has run out of time.
type Evaluator struct {
	*Terminator
}

func NewEvaluator(t *Terminator) *Evaluator {
	return &Evaluator{Terminator: t}
}

// AfterVote checks the close conditions of the session after a vote or
// ballot was recorded. The returned outcome is nil when the session stays
// open.
func (e *Evaluator) AfterVote(ctx context.Context, s models.Session) (*Outcome, error) {
	due, err := e.Due(ctx, s)
	if err != nil || !due {
		return nil, err
	}

	outcome, err := e.Trigger(ctx, s.ID)
	if err != nil {
		return nil, err
	}

	return &outcome, nil
}

// Due reports if a close condition of the session is met.
func (e *Evaluator) Due(ctx context.Context, s models.Session) (bool, error) {
	if !s.IsOpen() {
		return false, nil
	}

	if e.elapsed(s) {
		return true, nil
	}

	return e.complete(e.db.WithContext(ctx), s)
}

// elapsed reports if phase 2 has run for its full duration.
func (e *Evaluator) elapsed(s models.Session) bool {
	if s.Phase != models.Phase2 || s.Phase2StartTime == nil || s.Phase2Duration <= 0 {
		return false
	}

	return !e.Clock().Before(s.Phase2StartTime.Add(s.Phase2Duration))
}

// complete reports if every active participant has voted.
func (e *Evaluator) complete(db *gorm.DB, s models.Session) (bool, error) {
	participants, err := models.CountParticipants(db, s.ID)
	if err != nil || participants == 0 {
		return false, err
	}

	var model any = &models.Vote{}
	if s.Kind == models.KindProposal {
		model = &models.Ballot{}
	}

	// Only votes of registered participants count
	var voters int64
	err = db.Model(model).
		Where("session_id = ? AND participant_id IN (?)", s.ID,
			db.Model(&models.Participant{}).Select("participant_id").Where("session_id = ?", s.ID)).
		Count(&voters).Error
	if err != nil {
		return false, err
	}

	return voters >= participants, nil
}

// SweepElapsed triggers the close of every session whose voting phase has
// run out of time.
func (e *Evaluator) SweepElapsed(ctx context.Context) ([]Outcome, error) {
	var sessions []models.Session
	err := e.db.WithContext(ctx).
		Where("status = ? AND phase = ? AND phase2_duration > 0 AND termination_scheduled_at IS NULL", models.StatusActive, models.Phase2).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	var outcomes []Outcome
	var errs []error
	for _, s := range sessions {
		if !e.elapsed(s) {
			continue
		}

		o, err := e.Trigger(ctx, s.ID)
		if err != nil {
			log.Error().Err(err).Str("session", s.ID.String()).Msg("closing elapsed session failed")
			errs = append(errs, err)
			continue
		}
		outcomes = append(outcomes, o)
	}

	return outcomes, errors.Join(errs...)
}
