package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medianbudget/backend/internal/httputil"
	"github.com/medianbudget/backend/internal/session"
)

func (co Controller) registerResultRoutes(r *gin.RouterGroup) {
	r.OPTIONS("/:id/result", httputil.OptionsGet)
	r.GET("/:id/result", co.GetResult)
	r.OPTIONS("/:id/result/recompute", httputil.OptionsPost)
	r.POST("/:id/result/recompute", co.requireAdmin, co.RecomputeResult)
}

// @Summary		Get result
// @Description	Returns the median budget of a closed session. The result is computed on first access and never changes afterwards.
// @Tags			Results
// @Produce		json
// @Success		200	{object}	ResultResponse
// @Failure		400	{object}	ResultResponse
// @Failure		404	{object}	ResultResponse
// @Failure		409	{object}	ResultResponse
// @Failure		422	{object}	ResultResponse
// @Failure		500	{object}	ResultResponse
// @Param			id	path		URIID	true	"ID formatted as string"
// @Router			/v1/sessions/{id}/result [get]
func (co Controller) GetResult(c *gin.Context) {
	s, err := co.getSession(c)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ResultResponse{
			Error: &e,
		})
		return
	}

	result, err := session.ResultFor(co.db(c), s)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ResultResponse{
			Error: &e,
		})
		return
	}

	data := newResult(c, result)
	c.JSON(http.StatusOK, ResultResponse{Data: &data})
}

// @Summary		Recompute result
// @Description	Deletes the result of the session and computes it again. Sessions that are still active are closed first. Needs the X-Admin-Key header.
// @Tags			Results
// @Produce		json
// @Success		200			{object}	ResultResponse
// @Failure		400			{object}	ResultResponse
// @Failure		403			{object}	httpError
// @Failure		404			{object}	ResultResponse
// @Failure		409			{object}	ResultResponse
// @Failure		422			{object}	ResultResponse
// @Failure		500			{object}	ResultResponse
// @Param			id			path		URIID	true	"ID formatted as string"
// @Param			X-Admin-Key	header		string	true	"Admin key"
// @Router			/v1/sessions/{id}/result/recompute [post]
func (co Controller) RecomputeResult(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		e := err.Error()
		c.JSON(status(err), ResultResponse{
			Error: &e,
		})
		return
	}

	result, err := co.Terminator.Recompute(c.Request.Context(), uri.ID.UUID)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ResultResponse{
			Error: &e,
		})
		return
	}

	data := newResult(c, result)
	c.JSON(http.StatusOK, ResultResponse{Data: &data})
}
