package models

import (
	"errors"
)

var (
	ErrGeneral          = errors.New("an error occurred on the server during your request")
	ErrResourceNotFound = errors.New("there is no")

	ErrParticipantAlreadyJoined = errors.New("the participant has already joined this session")
	ErrBallotAlreadyCast        = errors.New("the participant has already cast a ballot in this session")
	ErrResultExists             = errors.New("a result already exists for this session")
)
