package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/medianbudget/backend/internal/httputil"
)

// TerminationRequest selects the session to poll. Without a session ID,
// all sessions with a due close are processed.
type TerminationRequest struct {
	SessionID *uuid.UUID `json:"sessionId,omitempty" example:"3b1ea324-d438-4419-882a-2fc91d71772f"`
}

type TerminationResponse struct {
	Error *string      `json:"error" example:"there is no session matching your query"` // The error, if any occurred
	Data  *Termination `json:"data"`                                                    // Outcome for the session
}

type TerminationListResponse struct {
	Error *string       `json:"error" example:"an error occurred on the server during your request"` // The error, if any occurred
	Data  []Termination `json:"data"`                                                                // Outcome per processed session
}

// RegisterTerminationRoutes registers the termination polling routes with
// the RouterGroup that is passed.
func (co Controller) RegisterTerminationRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", httputil.OptionsPost)
	r.POST("", co.PollTermination)
}

// @Summary		Poll termination
// @Description	Executes the scheduled close of a session if it is due. Before that, the remaining seconds are returned. Any number of clients may poll, exactly one of them executes the close.
// @Description	Without a sessionId, every session whose close is due is processed and a list of outcomes is returned.
// @Tags			Termination
// @Produce		json
// @Success		200		{object}	TerminationResponse
// @Success		200		{object}	TerminationListResponse
// @Failure		400		{object}	TerminationResponse
// @Failure		404		{object}	TerminationResponse
// @Failure		500		{object}	TerminationResponse
// @Param			request	body		TerminationRequest	false	"Session to poll"
// @Router			/v1/termination [post]
func (co Controller) PollTermination(c *gin.Context) {
	var request TerminationRequest
	err := httputil.BindData(c, &request)
	if err != nil && !errors.Is(err, httputil.ErrRequestBodyEmpty) {
		e := err.Error()
		c.JSON(status(err), TerminationResponse{
			Error: &e,
		})
		return
	}

	if request.SessionID == nil {
		co.pollAll(c)
		return
	}

	outcome, err := co.Terminator.Poll(c.Request.Context(), *request.SessionID)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), TerminationResponse{
			Error: &e,
		})
		return
	}

	data := newTermination(outcome)
	c.JSON(http.StatusOK, TerminationResponse{Data: &data})
}

// pollAll schedules the close of sessions whose voting time has run out
// and executes every due close.
func (co Controller) pollAll(c *gin.Context) {
	elapsed, err := co.Evaluator.SweepElapsed(c.Request.Context())
	if err != nil {
		e := err.Error()
		c.JSON(status(err), TerminationListResponse{
			Error: &e,
		})
		return
	}

	due, err := co.Terminator.PollDue(c.Request.Context())
	if err != nil {
		e := err.Error()
		c.JSON(status(err), TerminationListResponse{
			Error: &e,
		})
		return
	}

	data := make([]Termination, 0)
	for _, o := range append(elapsed, due...) {
		data = append(data, newTermination(o))
	}

	c.JSON(http.StatusOK, TerminationListResponse{Data: data})
}
