package models

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrParticipantIDEmpty = errors.New("the participant ID must not be empty")

// Participant is an active participant of a session.
type Participant struct {
	DefaultModel
	SessionID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_participant_session"`
	Session       Session   `json:"-"`
	ParticipantID string    `gorm:"not null;uniqueIndex:idx_participant_session"`
}

func (Participant) TableName() string {
	return "session_participants"
}

func (p *Participant) BeforeSave(_ *gorm.DB) error {
	p.ParticipantID = strings.TrimSpace(p.ParticipantID)
	if p.ParticipantID == "" {
		return ErrParticipantIDEmpty
	}

	return nil
}

// CountParticipants returns the number of active participants of a session.
func CountParticipants(db *gorm.DB, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := db.Model(&Participant{}).Where(&Participant{SessionID: sessionID}).Count(&count).Error
	return count, err
}
