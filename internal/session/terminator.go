package session

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/medianbudget/backend/internal/budget"
	"github.com/medianbudget/backend/internal/metrics"
	"github.com/medianbudget/backend/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrAlreadyClaimed   = errors.New("the termination of this session has already been executed")
	ErrSessionNotActive = errors.New("the session is not active")
)

const (
	msgClosed      = "the session has been closed"
	msgNoSchedule  = "no termination is scheduled for this session"
	triggerManual  = "forced"
	triggerPolling = "scheduled"
)

// Outcome is the result of a termination attempt.
type Outcome struct {
	SessionID        uuid.UUID
	Executed         bool
	SecondsRemaining *int64
	Message          string
}

// Terminator closes sessions exactly once.
//
// A close is first scheduled for now plus the grace period of the session.
// Once that time has passed, any number of uncoordinated callers may poll.
// The first to clear the scheduled timestamp with a conditional update
// wins and performs the close, all others see ErrAlreadyClaimed. A grace
// period of zero closes on the first poll, which goes through the same
// guard.
type Terminator struct {
	*Machine
}

func NewTerminator(m *Machine) *Terminator {
	return &Terminator{Machine: m}
}

// Schedule sets the termination time of an active session unless one is
// already set and returns the scheduled time.
func (t *Terminator) Schedule(ctx context.Context, id uuid.UUID) (time.Time, error) {
	db := t.db.WithContext(ctx)

	s, err := find(db, id)
	if err != nil {
		return time.Time{}, err
	}

	if s.Status != models.StatusActive || s.Phase == models.PhaseClosed {
		return time.Time{}, ErrSessionNotActive
	}

	if s.TerminationScheduledAt != nil {
		return *s.TerminationScheduledAt, nil
	}

	at := t.Clock().Add(s.GracePeriod)
	err = db.Model(&models.Session{}).
		Where("id = ? AND status = ? AND phase <> ? AND termination_scheduled_at IS NULL", s.ID, models.StatusActive, models.PhaseClosed).
		Updates(map[string]any{
			"termination_scheduled_at": at,
			"revision":                 gorm.Expr("revision + 1"),
		}).Error
	if err != nil {
		return time.Time{}, err
	}

	// Another request may have scheduled or claimed in between
	s, err = find(db, id)
	if err != nil {
		return time.Time{}, err
	}

	if s.TerminationScheduledAt == nil {
		return time.Time{}, ErrAlreadyClaimed
	}

	log.Debug().Str("session", id.String()).Time("at", *s.TerminationScheduledAt).Msg("termination scheduled")
	return *s.TerminationScheduledAt, nil
}

// Poll executes the scheduled termination of the session if it is due.
//
// Polling before the scheduled time only reports the remaining seconds and
// has no side effects.
func (t *Terminator) Poll(ctx context.Context, id uuid.UUID) (Outcome, error) {
	s, err := find(t.db.WithContext(ctx), id)
	if err != nil {
		return Outcome{}, err
	}

	return t.poll(ctx, s)
}

func (t *Terminator) poll(ctx context.Context, s models.Session) (Outcome, error) {
	outcome := Outcome{SessionID: s.ID}

	if s.TerminationScheduledAt == nil {
		outcome.Message = msgNoSchedule
		if s.Status == models.StatusClosed {
			outcome.Message = msgClosed
		}
		return outcome, nil
	}

	now := t.Clock()
	if now.Before(*s.TerminationScheduledAt) {
		remaining := int64(math.Ceil(s.TerminationScheduledAt.Sub(now).Seconds()))
		outcome.SecondsRemaining = &remaining
		return outcome, nil
	}

	err := t.claim(ctx, &s, true)
	if errors.Is(err, ErrAlreadyClaimed) {
		outcome.Message = ErrAlreadyClaimed.Error()
		return outcome, nil
	} else if err != nil {
		return outcome, err
	}

	return t.close(ctx, s, Close, triggerPolling)
}

// PollDue polls every session whose termination is due.
func (t *Terminator) PollDue(ctx context.Context) ([]Outcome, error) {
	var due []models.Session
	err := t.db.WithContext(ctx).
		Where("status = ? AND termination_scheduled_at IS NOT NULL AND termination_scheduled_at <= ?", models.StatusActive, t.Clock()).
		Find(&due).Error
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(due))
	var errs []error
	for _, s := range due {
		o, err := t.poll(ctx, s)
		if err != nil {
			log.Error().Err(err).Str("session", s.ID.String()).Msg("termination failed")
			errs = append(errs, err)
			continue
		}
		outcomes = append(outcomes, o)
	}

	return outcomes, errors.Join(errs...)
}

// Trigger is called when a close condition of the session is met. It
// schedules the termination and executes it right away if the session has
// no grace period.
func (t *Terminator) Trigger(ctx context.Context, id uuid.UUID) (Outcome, error) {
	_, err := t.Schedule(ctx, id)
	if errors.Is(err, ErrAlreadyClaimed) || errors.Is(err, ErrSessionNotActive) {
		return Outcome{SessionID: id, Message: err.Error()}, nil
	} else if err != nil {
		return Outcome{}, err
	}

	return t.Poll(ctx, id)
}

// ForceClose closes an active session regardless of any schedule. It also
// recovers sessions where a close was claimed but failed.
func (t *Terminator) ForceClose(ctx context.Context, id uuid.UUID) (Outcome, error) {
	s, err := find(t.db.WithContext(ctx), id)
	if err != nil {
		return Outcome{}, err
	}

	if _, err := Transition(stateOf(s), ForceClose); err != nil {
		return Outcome{}, err
	}

	err = t.claim(ctx, &s, false)
	if err != nil {
		return Outcome{}, err
	}

	return t.close(ctx, s, ForceClose, triggerManual)
}

// Recompute deletes the result of a budget session and computes it again.
// Sessions that are not closed yet are force closed, which computes the
// result.
func (t *Terminator) Recompute(ctx context.Context, id uuid.UUID) (models.Result, error) {
	db := t.db.WithContext(ctx)

	s, err := find(db, id)
	if err != nil {
		return models.Result{}, err
	}

	if s.Kind == models.KindProposal {
		return models.Result{}, ErrNotBudgetSession
	}

	if s.Status != models.StatusClosed {
		if _, err := t.ForceClose(ctx, id); err != nil {
			return models.Result{}, err
		}

		s, err = find(db, id)
		if err != nil {
			return models.Result{}, err
		}
	}

	var result models.Result
	err = db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where(&models.Result{SessionID: s.ID}).Delete(&models.Result{}).Error
		if err != nil {
			return err
		}

		result, err = ComputeResult(tx, s)
		return err
	})

	return result, err
}

// claim takes the exclusive right to close the session. The claim moves
// the session to the closed phase and clears the scheduled timestamp in one
// conditional update. Only the caller whose update matched the row may
// continue.
func (t *Terminator) claim(ctx context.Context, s *models.Session, scheduled bool) error {
	q := t.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND revision = ? AND status = ?", s.ID, s.Revision, models.StatusActive)

	if scheduled {
		q = q.Where("termination_scheduled_at IS NOT NULL")
	}

	tx := q.Updates(map[string]any{
		"termination_scheduled_at": nil,
		"phase":                    models.PhaseClosed,
		"revision":                 gorm.Expr("revision + 1"),
	})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected != 1 {
		metrics.TerminationClaims.WithLabelValues("lost").Inc()
		return ErrAlreadyClaimed
	}

	metrics.TerminationClaims.WithLabelValues("won").Inc()
	s.TerminationScheduledAt = nil
	s.Phase = models.PhaseClosed
	s.Revision++
	return nil
}

// close performs the close of a claimed session. A failure leaves the
// session claimed but not closed, ForceClose recovers it.
func (t *Terminator) close(ctx context.Context, s models.Session, event Event, trigger string) (Outcome, error) {
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch s.Kind {
		case models.KindProposal:
			if _, err := TallyProposals(tx, s); err != nil {
				return err
			}
		default:
			_, err := ComputeResult(tx, s)
			if errors.Is(err, budget.ErrEmptyVoteSet) {
				log.Warn().Str("session", s.ID.String()).Msg("closing session without votes, no result is computed")
			} else if err != nil {
				return err
			}
		}

		return apply(tx, &s, event, t.Clock())
	})
	if err != nil {
		log.Error().Err(err).Str("session", s.ID.String()).Msg("session close failed after claim")
		return Outcome{SessionID: s.ID}, err
	}

	metrics.SessionsClosed.WithLabelValues(string(s.Kind), trigger).Inc()
	t.publish(ctx, s, trigger)

	return Outcome{SessionID: s.ID, Executed: true, Message: msgClosed}, nil
}
