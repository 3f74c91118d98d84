package models

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrBallotEmpty           = errors.New("a ballot needs at least one choice")
	ErrBallotUnknownProposal = errors.New("the ballot contains a proposal that is not part of this session")
	ErrBallotDuplicateChoice = errors.New("the ballot contains more than one choice for the same proposal")
)

// Choice is the decision of a participant on one proposal.
type Choice struct {
	ProposalID uuid.UUID `json:"proposalId" example:"9a6a0b0e-0ee2-4f3e-8a0e-9d3a2f4a1b2c"` // ID of the proposal
	Approve    bool      `json:"approve" example:"true"`                                    // Approve or reject the proposal
}

// Ballot holds all choices of one participant in a proposal session. Each
// participant can cast exactly one ballot per session.
type Ballot struct {
	DefaultModel
	SessionID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ballot_session_participant"`
	Session       Session   `json:"-"`
	ParticipantID string    `gorm:"not null;uniqueIndex:idx_ballot_session_participant"`
	Choices       []Choice  `gorm:"serializer:json"`
}

func (b *Ballot) BeforeSave(_ *gorm.DB) error {
	b.ParticipantID = strings.TrimSpace(b.ParticipantID)
	if b.ParticipantID == "" {
		return ErrParticipantIDEmpty
	}

	if len(b.Choices) == 0 {
		return ErrBallotEmpty
	}

	seen := make(map[uuid.UUID]bool, len(b.Choices))
	for _, c := range b.Choices {
		if seen[c.ProposalID] {
			return ErrBallotDuplicateChoice
		}
		seen[c.ProposalID] = true
	}

	return nil
}

// CastBallot stores the ballot if its session is open.
func CastBallot(db *gorm.DB, ballot *Ballot) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := LockOpen(tx, ballot.SessionID); err != nil {
			return err
		}

		return tx.Create(ballot).Error
	})
}

// CheckChoices verifies that every choice refers to one of the proposals.
func (b Ballot) CheckChoices(proposals []Proposal) error {
	ids := make(map[uuid.UUID]bool, len(proposals))
	for _, p := range proposals {
		ids[p.ID] = true
	}

	for _, c := range b.Choices {
		if !ids[c.ProposalID] {
			return ErrBallotUnknownProposal
		}
	}

	return nil
}
