package v1

import (
	"errors"
	"net/http"

	"github.com/medianbudget/backend/internal/budget"
	"github.com/medianbudget/backend/internal/httputil"
	"github.com/medianbudget/backend/internal/models"
	"github.com/medianbudget/backend/internal/session"
)

type httpError struct {
	Error string `json:"error" example:"An ID specified in the query string was not a valid UUID"`
}

// conflicts are errors caused by the lifecycle state of a session.
var conflicts = []error{
	session.ErrInvalidTransition,
	session.ErrStaleSession,
	session.ErrSessionNotActive,
	session.ErrSessionNotClosed,
	session.ErrAlreadyClaimed,
	models.ErrParticipantAlreadyJoined,
	models.ErrBallotAlreadyCast,
	models.ErrResultExists,
	models.ErrSessionNotOpen,
	errSessionClosed,
	errProposalsLocked,
	errBallotPhase,
}

// status returns the appropriate status for an error
func status(err error) int {
	if errors.Is(err, models.ErrGeneral) {
		return http.StatusInternalServerError
	}

	if errors.Is(err, models.ErrResourceNotFound) {
		return http.StatusNotFound
	}

	if errors.Is(err, httputil.ErrParticipantIDNotSet) {
		return http.StatusUnauthorized
	}

	if errors.Is(err, errAdminKey) || errors.Is(err, errNotParticipant) {
		return http.StatusForbidden
	}

	if errors.Is(err, budget.ErrEmptyVoteSet) {
		return http.StatusUnprocessableEntity
	}

	for _, c := range conflicts {
		if errors.Is(err, c) {
			return http.StatusConflict
		}
	}

	return http.StatusBadRequest
}

var (
	errAdminKey       = errors.New("this endpoint needs a valid X-Admin-Key header")
	errNotParticipant = errors.New("you need to join the session before voting")
)

// Session errors
var (
	errSessionClosed      = errors.New("the session is closed")
	errNegativeDuration   = errors.New("durations must not be negative")
	errNotProposalSession = errors.New("this endpoint is only available for proposal sessions")
)

// Proposal errors
var (
	errProposalsLocked = errors.New("proposals can only be added before phase 2 starts")
	errBallotPhase     = errors.New("ballots can only be cast in phase 2")
)

var errVoteInvalid = errors.New("the vote is not valid, see validationErrors for details")
