package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medianbudget/backend/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrInvalidTransition = errors.New("this transition is not possible for the current state of the session")
	ErrStaleSession      = errors.New("the session was modified by another request, please retry")
)

// Event is something that moves a session to another state.
type Event string

const (
	Activate    Event = "activate"
	StartPhase2 Event = "phase2"
	Close       Event = "close"
	ForceClose  Event = "force-close"
)

// State is the position of a session in its lifecycle.
//
// An active session in the closed phase has been claimed for closing but
// the close has not completed yet.
type State struct {
	Status models.SessionStatus
	Phase  models.Phase
}

func (s State) String() string {
	return fmt.Sprintf("%s/%s", s.Status, s.Phase)
}

func stateOf(s models.Session) State {
	return State{Status: s.Status, Phase: s.Phase}
}

// Transition returns the state reached from the given state by the event.
//
// Closed is terminal.
func Transition(from State, event Event) (State, error) {
	switch event {
	case Activate:
		if from.Status == models.StatusDraft {
			return State{Status: models.StatusActive, Phase: models.Phase1}, nil
		}
	case StartPhase2:
		if from.Status == models.StatusActive && from.Phase == models.Phase1 {
			return State{Status: models.StatusActive, Phase: models.Phase2}, nil
		}
	case Close, ForceClose:
		if from.Status == models.StatusActive {
			return State{Status: models.StatusClosed, Phase: models.PhaseClosed}, nil
		}
	}

	return from, fmt.Errorf("%w: cannot %s a session in state %s", ErrInvalidTransition, event, from)
}

// apply persists the transition of the session as a conditional update. The
// update only matches if nobody changed the session since it was read.
func apply(db *gorm.DB, s *models.Session, event Event, now time.Time) error {
	next, err := Transition(stateOf(*s), event)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"status":   next.Status,
		"phase":    next.Phase,
		"revision": gorm.Expr("revision + 1"),
	}

	if event == StartPhase2 {
		updates["phase2_start_time"] = now
	}

	if next.Status == models.StatusClosed {
		updates["ended_at"] = now
		updates["termination_scheduled_at"] = nil
	}

	tx := db.Model(&models.Session{}).
		Where("id = ? AND revision = ? AND status = ? AND phase = ?", s.ID, s.Revision, s.Status, s.Phase).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected != 1 {
		return ErrStaleSession
	}

	return reload(db, s)
}

func reload(db *gorm.DB, s *models.Session) error {
	fresh, err := find(db, s.ID)
	if err != nil {
		return err
	}

	*s = fresh
	return nil
}

func find(db *gorm.DB, id uuid.UUID) (models.Session, error) {
	var s models.Session
	err := db.First(&s, "id = ?", id).Error
	return s, err
}

// Machine moves sessions through their lifecycle and publishes every phase
// change.
type Machine struct {
	db       *gorm.DB
	notifier Notifier

	// Clock returns the current time. Tests replace it.
	Clock func() time.Time
}

func NewMachine(db *gorm.DB, notifier Notifier) *Machine {
	if notifier == nil {
		notifier = LogNotifier{Logger: log.Logger}
	}

	return &Machine{
		db:       db,
		notifier: notifier,
		Clock: func() time.Time {
			return time.Now().In(time.UTC)
		},
	}
}

// Fire applies an administrative event to the session. Closing events go
// through the Terminator so that a session is closed exactly once.
func (m *Machine) Fire(ctx context.Context, id uuid.UUID, event Event) (models.Session, error) {
	if event == Close || event == ForceClose {
		return models.Session{}, fmt.Errorf("%w: use the terminator to close sessions", ErrInvalidTransition)
	}

	db := m.db.WithContext(ctx)
	s, err := find(db, id)
	if err != nil {
		return models.Session{}, err
	}

	err = apply(db, &s, event, m.Clock())
	if err != nil {
		return models.Session{}, err
	}

	m.publish(ctx, s, string(event))
	return s, nil
}

// publish sends a phase change notification. Failures are logged and never
// affect the caller.
func (m *Machine) publish(ctx context.Context, s models.Session, trigger string) {
	change := PhaseChange{
		SessionID: s.ID,
		Status:    s.Status,
		Phase:     s.Phase,
		Revision:  s.Revision,
		Trigger:   trigger,
		At:        m.Clock(),
	}

	if err := m.notifier.PhaseChanged(ctx, change); err != nil {
		log.Warn().Err(err).Str("session", s.ID.String()).Msg("notification: failed to publish phase change (non-fatal)")
	}
}
