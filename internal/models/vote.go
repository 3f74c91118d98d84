package models

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/medianbudget/backend/internal/budget"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrVoteParticipantEmpty = errors.New("a vote needs a participant ID")

// Vote is the budget submitted by one participant of a session.
//
// There is at most one vote per participant and session, a new submission
// replaces the previous one.
type Vote struct {
	DefaultModel
	SessionID         uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex:idx_vote_session_participant"`
	Session           Session                   `json:"-"`
	ParticipantID     string                    `gorm:"not null;uniqueIndex:idx_vote_session_participant"`
	Allocations       []budget.Allocation       `gorm:"serializer:json"`
	IncomeAllocations []budget.IncomeAllocation `gorm:"serializer:json"`
	TotalExpenses     decimal.Decimal           `gorm:"type:text"`
	TotalIncome       decimal.Decimal           `gorm:"type:text"`
}

// Budget returns the allocations of the vote.
func (v Vote) Budget() budget.Vote {
	return budget.Vote{
		Allocations:       v.Allocations,
		IncomeAllocations: v.IncomeAllocations,
	}
}

// BeforeSave derives the totals from the allocations. Totals sent by
// clients are never trusted.
func (v *Vote) BeforeSave(_ *gorm.DB) error {
	v.ParticipantID = strings.TrimSpace(v.ParticipantID)
	if v.ParticipantID == "" {
		return ErrVoteParticipantEmpty
	}

	b := v.Budget()
	v.TotalExpenses = b.TotalExpenses()
	v.TotalIncome = b.TotalIncome()
	return nil
}

// UpsertVote stores the vote for its session and participant. An existing
// vote of the participant is replaced.
func UpsertVote(db *gorm.DB, vote *Vote) error {
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "participant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"allocations", "income_allocations", "total_expenses", "total_income", "updated_at"}),
	}).Create(vote).Error
	if err != nil {
		return err
	}

	// On conflict, the ID of the passed in vote is not the stored one
	var stored Vote
	err = db.Where(&Vote{SessionID: vote.SessionID, ParticipantID: vote.ParticipantID}).First(&stored).Error
	if err != nil {
		return err
	}

	*vote = stored
	return nil
}

// RecordVote stores the vote if its session is open. The check and the
// write happen in one transaction.
func RecordVote(db *gorm.DB, vote *Vote) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := LockOpen(tx, vote.SessionID); err != nil {
			return err
		}

		return UpsertVote(tx, vote)
	})
}

// SessionVotes returns the budgets of all votes of a session.
func SessionVotes(db *gorm.DB, sessionID uuid.UUID) ([]budget.Vote, error) {
	var votes []Vote
	err := db.Where(&Vote{SessionID: sessionID}).Order("created_at ASC").Find(&votes).Error
	if err != nil {
		return nil, err
	}

	budgets := make([]budget.Vote, 0, len(votes))
	for _, v := range votes {
		budgets = append(budgets, v.Budget())
	}
	return budgets, nil
}
