package v1

import (
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/medianbudget/backend/internal/budget"
	"github.com/medianbudget/backend/internal/httputil"
	"github.com/medianbudget/backend/internal/metrics"
	"github.com/medianbudget/backend/internal/models"
	"github.com/medianbudget/backend/internal/session"
	"github.com/rs/zerolog/log"
)

// RegisterVoteRoutes registers the routes for votes with
// the RouterGroup that is passed.
func (co Controller) RegisterVoteRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", httputil.OptionsPost)
	r.POST("", co.CreateVote)
}

func (co Controller) registerSessionVoteRoutes(r *gin.RouterGroup) {
	r.OPTIONS("/:id/votes/me", httputil.OptionsGet)
	r.GET("/:id/votes/me", co.GetMyVote)
}

// joined reports if the participant has joined the session.
func (co Controller) joined(c *gin.Context, s models.Session, participantID string) (bool, error) {
	var count int64
	err := co.db(c).Model(&models.Participant{}).
		Where(&models.Participant{SessionID: s.ID, ParticipantID: participantID}).
		Count(&count).Error
	return count > 0, err
}

// afterVote evaluates the close conditions. A failure there does not undo
// the recorded vote, it is logged and the close is left to the next
// trigger.
func (co Controller) afterVote(c *gin.Context, s models.Session) *Termination {
	outcome, err := co.Evaluator.AfterVote(c.Request.Context(), s)
	if err != nil {
		log.Error().Str("request-id", requestid.Get(c)).Str("session", s.ID.String()).Err(err).Msg("evaluating close conditions failed")
		return nil
	}

	if outcome == nil {
		return nil
	}

	t := newTermination(*outcome)
	return &t
}

// @Summary		Submit vote
// @Description	Validates the vote against the categories of the session and stores it. A new vote of the same participant replaces the previous one. Invalid votes are rejected with every problem listed in validationErrors.
// @Tags			Votes
// @Produce		json
// @Success		200					{object}	VoteResponse
// @Failure		400					{object}	VoteResponse
// @Failure		401					{object}	VoteResponse
// @Failure		403					{object}	VoteResponse
// @Failure		404					{object}	VoteResponse
// @Failure		409					{object}	VoteResponse
// @Failure		500					{object}	VoteResponse
// @Param			vote				body		VoteEditable	true	"Vote"
// @Param			X-Participant-ID	header		string			true	"Participant ID"
// @Router			/v1/votes [post]
func (co Controller) CreateVote(c *gin.Context) {
	participantID, err := httputil.ParticipantID(c)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), VoteResponse{
			Error: &e,
		})
		return
	}

	var editable VoteEditable
	err = httputil.BindData(c, &editable)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), VoteResponse{
			Error: &e,
		})
		return
	}

	var s models.Session
	err = co.db(c).First(&s, "id = ?", editable.SessionID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), VoteResponse{
			Error: &e,
		})
		return
	}

	err = co.checkVote(c, s, models.KindBudget, participantID)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), VoteResponse{
			Error: &e,
		})
		return
	}

	result := budget.Validate(editable.budget(), s.Definition())
	if !result.Valid {
		metrics.VotesRejected.Inc()
		e := errVoteInvalid.Error()
		c.JSON(http.StatusBadRequest, VoteResponse{
			Error:            &e,
			ValidationErrors: result.Errors,
		})
		return
	}

	vote := editable.model(participantID)
	err = models.RecordVote(co.db(c), &vote)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), VoteResponse{
			Error: &e,
		})
		return
	}
	metrics.VotesRecorded.Inc()

	data := newVote(c, vote)
	c.JSON(http.StatusOK, VoteResponse{
		Data:        &data,
		Termination: co.afterVote(c, s),
	})
}

// checkVote verifies that the participant may vote in the session.
func (co Controller) checkVote(c *gin.Context, s models.Session, kind models.SessionKind, participantID string) error {
	if s.Kind != kind {
		if kind == models.KindProposal {
			return errNotProposalSession
		}
		return session.ErrNotBudgetSession
	}

	if !s.IsOpen() {
		return models.ErrSessionNotOpen
	}

	ok, err := co.joined(c, s, participantID)
	if err != nil {
		return err
	}

	if !ok {
		return errNotParticipant
	}

	return nil
}

// @Summary		Get own vote
// @Description	Returns the current vote of the calling participant
// @Tags			Votes
// @Produce		json
// @Success		200					{object}	VoteResponse
// @Failure		400					{object}	VoteResponse
// @Failure		401					{object}	VoteResponse
// @Failure		404					{object}	VoteResponse
// @Failure		500					{object}	VoteResponse
// @Param			id					path		URIID	true	"ID formatted as string"
// @Param			X-Participant-ID	header		string	true	"Participant ID"
// @Router			/v1/sessions/{id}/votes/me [get]
func (co Controller) GetMyVote(c *gin.Context) {
	participantID, err := httputil.ParticipantID(c)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), VoteResponse{
			Error: &e,
		})
		return
	}

	s, err := co.getSession(c)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), VoteResponse{
			Error: &e,
		})
		return
	}

	var vote models.Vote
	err = co.db(c).Where(&models.Vote{SessionID: s.ID, ParticipantID: participantID}).First(&vote).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), VoteResponse{
			Error: &e,
		})
		return
	}

	data := newVote(c, vote)
	c.JSON(http.StatusOK, VoteResponse{Data: &data})
}
