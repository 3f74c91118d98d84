package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medianbudget/backend/internal/httputil"
	"github.com/medianbudget/backend/internal/metrics"
	"github.com/medianbudget/backend/internal/models"
)

func (co Controller) registerProposalRoutes(r *gin.RouterGroup) {
	r.OPTIONS("/:id/proposals", httputil.OptionsGetPost)
	r.GET("/:id/proposals", co.GetProposals)
	r.POST("/:id/proposals", co.requireAdmin, co.CreateProposal)

	r.OPTIONS("/:id/ballots", httputil.OptionsPost)
	r.POST("/:id/ballots", co.CastBallot)
}

// @Summary		Create proposal
// @Description	Adds a proposal to a proposal session. Proposals can only be added while the session is a draft or in phase 1. Needs the X-Admin-Key header.
// @Tags			Proposals
// @Produce		json
// @Success		201			{object}	ProposalResponse
// @Failure		400			{object}	ProposalResponse
// @Failure		403			{object}	httpError
// @Failure		404			{object}	ProposalResponse
// @Failure		409			{object}	ProposalResponse
// @Failure		500			{object}	ProposalResponse
// @Param			id			path		URIID				true	"ID formatted as string"
// @Param			proposal	body		ProposalEditable	true	"Proposal"
// @Param			X-Admin-Key	header		string				true	"Admin key"
// @Router			/v1/sessions/{id}/proposals [post]
func (co Controller) CreateProposal(c *gin.Context) {
	s, err := co.getSession(c)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ProposalResponse{
			Error: &e,
		})
		return
	}

	if s.Kind != models.KindProposal {
		e := errNotProposalSession.Error()
		c.JSON(status(errNotProposalSession), ProposalResponse{
			Error: &e,
		})
		return
	}

	if s.Status == models.StatusClosed || s.Phase != models.Phase1 {
		e := errProposalsLocked.Error()
		c.JSON(status(errProposalsLocked), ProposalResponse{
			Error: &e,
		})
		return
	}

	var editable ProposalEditable
	err = httputil.BindData(c, &editable)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ProposalResponse{
			Error: &e,
		})
		return
	}

	proposal := editable.model(s.ID)
	err = co.db(c).Create(&proposal).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ProposalResponse{
			Error: &e,
		})
		return
	}

	data := newProposal(c, proposal)
	c.JSON(http.StatusCreated, ProposalResponse{Data: &data})
}

// @Summary		List proposals
// @Description	Returns all proposals of a session, highest tier first
// @Tags			Proposals
// @Produce		json
// @Success		200	{object}	ProposalListResponse
// @Failure		400	{object}	ProposalListResponse
// @Failure		404	{object}	ProposalListResponse
// @Failure		500	{object}	ProposalListResponse
// @Param			id	path		URIID	true	"ID formatted as string"
// @Router			/v1/sessions/{id}/proposals [get]
func (co Controller) GetProposals(c *gin.Context) {
	s, err := co.getSession(c)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ProposalListResponse{
			Error: &e,
		})
		return
	}

	var proposals []models.Proposal
	err = co.db(c).Where(&models.Proposal{SessionID: s.ID}).Order("tier DESC, created_at ASC").Find(&proposals).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ProposalListResponse{
			Error: &e,
		})
		return
	}

	data := make([]Proposal, 0)
	for _, p := range proposals {
		data = append(data, newProposal(c, p))
	}

	c.JSON(http.StatusOK, ProposalListResponse{Data: data})
}

// @Summary		Cast ballot
// @Description	Casts the single ballot of the calling participant. Ballots can only be cast in phase 2 and cannot be changed.
// @Tags			Proposals
// @Produce		json
// @Success		201					{object}	BallotResponse
// @Failure		400					{object}	BallotResponse
// @Failure		401					{object}	BallotResponse
// @Failure		403					{object}	BallotResponse
// @Failure		404					{object}	BallotResponse
// @Failure		409					{object}	BallotResponse
// @Failure		500					{object}	BallotResponse
// @Param			id					path		URIID			true	"ID formatted as string"
// @Param			ballot				body		BallotEditable	true	"Ballot"
// @Param			X-Participant-ID	header		string			true	"Participant ID"
// @Router			/v1/sessions/{id}/ballots [post]
func (co Controller) CastBallot(c *gin.Context) {
	participantID, err := httputil.ParticipantID(c)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), BallotResponse{
			Error: &e,
		})
		return
	}

	s, err := co.getSession(c)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), BallotResponse{
			Error: &e,
		})
		return
	}

	err = co.checkVote(c, s, models.KindProposal, participantID)
	if err == nil && s.Phase != models.Phase2 {
		err = errBallotPhase
	}
	if err != nil {
		e := err.Error()
		c.JSON(status(err), BallotResponse{
			Error: &e,
		})
		return
	}

	var editable BallotEditable
	err = httputil.BindData(c, &editable)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), BallotResponse{
			Error: &e,
		})
		return
	}

	var proposals []models.Proposal
	err = co.db(c).Where(&models.Proposal{SessionID: s.ID}).Find(&proposals).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), BallotResponse{
			Error: &e,
		})
		return
	}

	ballot := models.Ballot{
		SessionID:     s.ID,
		ParticipantID: participantID,
		Choices:       editable.Choices,
	}

	err = ballot.CheckChoices(proposals)
	if err == nil {
		err = models.CastBallot(co.db(c), &ballot)
	}
	if err != nil {
		e := err.Error()
		c.JSON(status(err), BallotResponse{
			Error: &e,
		})
		return
	}
	metrics.BallotsCast.Inc()

	data := newBallot(ballot)
	c.JSON(http.StatusCreated, BallotResponse{
		Data:        &data,
		Termination: co.afterVote(c, s),
	})
}
