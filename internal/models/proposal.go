package models

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrProposalTitleEmpty = errors.New("the proposal title must not be empty")

// Proposal is an option participants of a proposal session vote on.
//
// Tiers group proposals by their rating in phase 1. Only proposals of the
// highest tier are decided on when the session closes.
type Proposal struct {
	DefaultModel
	SessionID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Session     Session   `json:"-"`
	Title       string    `gorm:"not null"`
	Description string
	Tier        int  `gorm:"not null"`
	Archived    bool `gorm:"not null"`
	Winner      bool `gorm:"not null"`
	YesVotes    int  `gorm:"not null"`
	NoVotes     int  `gorm:"not null"`
}

func (p *Proposal) BeforeSave(_ *gorm.DB) error {
	p.Title = strings.TrimSpace(p.Title)

	// Updates through a map run hooks on an empty struct
	if p.Title == "" && p.SessionID != uuid.Nil {
		return ErrProposalTitleEmpty
	}

	return nil
}
