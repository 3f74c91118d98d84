package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medianbudget/backend/internal/budget"
	"golang.org/x/text/currency"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	StatusDraft  SessionStatus = "draft"
	StatusActive SessionStatus = "active"
	StatusClosed SessionStatus = "closed"
)

type Phase string

const (
	Phase1      Phase = "phase1"
	Phase2      Phase = "phase2"
	PhaseClosed Phase = "closed"
)

type SessionKind string

const (
	KindBudget   SessionKind = "budget"
	KindProposal SessionKind = "proposal"
)

var (
	ErrSessionNameEmpty    = errors.New("the session name must not be empty")
	ErrSessionKindInvalid  = errors.New("the session kind must be one of 'budget' or 'proposal'")
	ErrSessionCurrency     = errors.New("the currency is not a valid ISO 4217 code")
	ErrSessionNoCategories = errors.New("a budget session needs at least one category")
	ErrSessionNotOpen      = errors.New("the session does not accept votes at the moment")
)

// Session is a single voting session.
//
// Categories and income categories are stored as JSON columns since they are
// only ever read together with the session they belong to.
type Session struct {
	DefaultModel
	Name             string                  `gorm:"not null"`
	Note             string                  ``
	Kind             SessionKind             `gorm:"not null"`
	Currency         string                  ``
	Categories       []budget.Category       `gorm:"serializer:json"`
	IncomeCategories []budget.IncomeCategory `gorm:"serializer:json"`
	Status           SessionStatus           `gorm:"not null;index"`
	Phase            Phase                   `gorm:"not null"`

	Phase2StartTime *time.Time
	Phase2Duration  time.Duration // zero means phase 2 never times out

	// GracePeriod is the delay between the close trigger and the actual
	// close. Zero closes immediately.
	GracePeriod            time.Duration
	TerminationScheduledAt *time.Time `gorm:"index"`

	// Revision is incremented by every guarded state write.
	Revision uint64 `gorm:"not null"`
	EndedAt  *time.Time
}

// Definition returns the category definitions votes are validated and
// aggregated against.
func (s Session) Definition() budget.Definition {
	return budget.Definition{
		Categories:       s.Categories,
		IncomeCategories: s.IncomeCategories,
	}
}

// IsOpen reports if the session accepts votes and ballots. A session in
// the closed phase that is still active is being closed.
func (s Session) IsOpen() bool {
	return s.Status == StatusActive && s.Phase != PhaseClosed
}

// LockOpen locks the row of the session until the end of the transaction
// if the session still accepts votes and ballots, ErrSessionNotOpen
// otherwise. Claiming a close updates the same row, so a write after
// LockOpen either commits before the claim or is not made at all.
func LockOpen(tx *gorm.DB, sessionID uuid.UUID) error {
	res := tx.Model(&Session{}).
		Where("id = ? AND status = ? AND phase <> ?", sessionID, StatusActive, PhaseClosed).
		UpdateColumn("revision", gorm.Expr("revision"))
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected != 1 {
		return ErrSessionNotOpen
	}

	return nil
}

// BeforeSave validates the session.
//
// Updates through a map on Model(&Session{}) run this hook on an empty
// struct, so only fields that are set are checked.
func (s *Session) BeforeSave(tx *gorm.DB) error {
	s.Name = strings.TrimSpace(s.Name)
	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))

	if s.Currency != "" {
		if _, err := currency.ParseISO(s.Currency); err != nil {
			return fmt.Errorf("%w: %s", ErrSessionCurrency, s.Currency)
		}
	}

	if s.Kind != "" && s.Kind != KindBudget && s.Kind != KindProposal {
		return ErrSessionKindInvalid
	}

	if len(s.Categories) > 0 || len(s.IncomeCategories) > 0 {
		if err := s.Definition().Check(); err != nil {
			return err
		}
	}

	return nil
}

// BeforeCreate applies the checks that only make sense for new sessions.
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if err := s.DefaultModel.BeforeCreate(tx); err != nil {
		return err
	}

	if strings.TrimSpace(s.Name) == "" {
		return ErrSessionNameEmpty
	}

	if s.Kind == "" {
		s.Kind = KindBudget
	}

	if s.Kind == KindBudget && len(s.Categories) == 0 {
		return ErrSessionNoCategories
	}

	if s.Status == "" {
		s.Status = StatusDraft
	}

	if s.Phase == "" {
		s.Phase = Phase1
	}

	return nil
}
