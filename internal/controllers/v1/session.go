package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medianbudget/backend/internal/httputil"
	"github.com/medianbudget/backend/internal/models"
	"github.com/medianbudget/backend/internal/session"
	"github.com/ryanuber/go-glob"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// RegisterSessionRoutes registers the routes for sessions with
// the RouterGroup that is passed.
func (co Controller) RegisterSessionRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsSessionList)
		r.GET("", co.GetSessions)
		r.POST("", co.requireAdmin, co.CreateSession)
	}

	// Session with ID
	{
		r.OPTIONS("/:id", co.OptionsSessionDetail)
		r.GET("/:id", co.GetSession)

		r.OPTIONS("/:id/activate", httputil.OptionsPost)
		r.POST("/:id/activate", co.requireAdmin, co.ActivateSession)
		r.OPTIONS("/:id/phase2", httputil.OptionsPost)
		r.POST("/:id/phase2", co.requireAdmin, co.StartPhase2)
		r.OPTIONS("/:id/close", httputil.OptionsPost)
		r.POST("/:id/close", co.requireAdmin, co.CloseSession)

		r.OPTIONS("/:id/participants", httputil.OptionsPost)
		r.POST("/:id/participants", co.JoinSession)
	}

	co.registerSessionVoteRoutes(r)
	co.registerResultRoutes(r)
	co.registerProposalRoutes(r)
}

// db returns the database bound to the request context.
func (co Controller) db(c *gin.Context) *gorm.DB {
	return co.DB.WithContext(c.Request.Context())
}

// getSession binds the id URI parameter and loads the session.
func (co Controller) getSession(c *gin.Context) (models.Session, error) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		return models.Session{}, err
	}

	var s models.Session
	err := co.db(c).First(&s, "id = ?", uri.ID.UUID).Error
	return s, err
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Sessions
// @Success		204
// @Router			/v1/sessions [options]
func OptionsSessionList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Sessions
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/sessions/{id} [options]
func (co Controller) OptionsSessionDetail(c *gin.Context) {
	_, err := co.getSession(c)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	httputil.OptionsGet(c)
}

// @Summary		Create session
// @Description	Creates a new session in the draft state. Needs the X-Admin-Key header.
// @Tags			Sessions
// @Produce		json
// @Success		201			{object}	SessionResponse
// @Failure		400			{object}	SessionResponse
// @Failure		403			{object}	httpError
// @Failure		500			{object}	SessionResponse
// @Param			session		body		SessionEditable	true	"Session"
// @Param			X-Admin-Key	header		string			true	"Admin key"
// @Router			/v1/sessions [post]
func (co Controller) CreateSession(c *gin.Context) {
	var editable SessionEditable
	err := httputil.BindData(c, &editable)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), SessionResponse{
			Error: &s,
		})
		return
	}

	model, err := editable.model(co.Config.Sessions())
	if err != nil {
		s := err.Error()
		c.JSON(status(err), SessionResponse{
			Error: &s,
		})
		return
	}

	err = co.db(c).Create(&model).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), SessionResponse{
			Error: &s,
		})
		return
	}

	data := newSession(c, model)
	c.JSON(http.StatusCreated, SessionResponse{Data: &data})
}

// @Summary		List sessions
// @Description	Returns a list of sessions, newest first
// @Tags			Sessions
// @Produce		json
// @Success		200	{object}	SessionListResponse
// @Failure		400	{object}	SessionListResponse
// @Failure		500	{object}	SessionListResponse
// @Router			/v1/sessions [get]
// @Param			name	query	string	false	"Glob pattern for the name, e.g. 'city*'"
// @Param			status	query	string	false	"Filter by status"
// @Param			kind	query	string	false	"Filter by kind"
// @Param			offset	query	uint	false	"The offset of the first Session returned. Defaults to 0."
// @Param			limit	query	int		false	"Maximum number of Sessions to return. Defaults to 50."
func (co Controller) GetSessions(c *gin.Context) {
	var filter SessionQueryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, SessionListResponse{
			Error: &s,
		})
		return
	}

	// Get the set parameters in the query string
	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)
	model := filter.model()

	var sessions []models.Session
	err := co.db(c).
		Order("created_at DESC").
		Where(&model, queryFields...).
		Find(&sessions).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), SessionListResponse{
			Error: &s,
		})
		return
	}

	// Glob patterns cannot be expressed in SQL portably, so the name
	// filter and therefore the pagination are applied here
	if slices.Contains(setFields, "Name") {
		sessions = slices.DeleteFunc(sessions, func(s models.Session) bool {
			return !glob.Glob(filter.Name, s.Name)
		})
	}

	total := int64(len(sessions))
	sessions = sessions[min(int(filter.Offset), len(sessions)):]

	// Default to 50 Sessions, a negative limit returns all
	limit := 50
	if slices.Contains(setFields, "Limit") {
		limit = filter.Limit
	}

	if limit >= 0 && limit < len(sessions) {
		sessions = sessions[:limit]
	}

	// When there are no resources, we want an empty list, not null
	data := make([]Session, 0)
	for _, s := range sessions {
		data = append(data, newSession(c, s))
	}

	c.JSON(http.StatusOK, SessionListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  total,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get session
// @Description	Returns a specific session
// @Tags			Sessions
// @Produce		json
// @Success		200	{object}	SessionResponse
// @Failure		400	{object}	SessionResponse
// @Failure		404	{object}	SessionResponse
// @Failure		500	{object}	SessionResponse
// @Param			id	path		URIID	true	"ID formatted as string"
// @Router			/v1/sessions/{id} [get]
func (co Controller) GetSession(c *gin.Context) {
	s, err := co.getSession(c)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), SessionResponse{
			Error: &e,
		})
		return
	}

	data := newSession(c, s)
	c.JSON(http.StatusOK, SessionResponse{Data: &data})
}

// @Summary		Activate session
// @Description	Opens a draft session for participants. Needs the X-Admin-Key header.
// @Tags			Sessions
// @Produce		json
// @Success		200			{object}	SessionResponse
// @Failure		403			{object}	httpError
// @Failure		404			{object}	SessionResponse
// @Failure		409			{object}	SessionResponse
// @Param			id			path		URIID	true	"ID formatted as string"
// @Param			X-Admin-Key	header		string	true	"Admin key"
// @Router			/v1/sessions/{id}/activate [post]
func (co Controller) ActivateSession(c *gin.Context) {
	co.fire(c, session.Activate)
}

// @Summary		Start phase 2
// @Description	Signals that rating has been completed and starts phase 2. Needs the X-Admin-Key header.
// @Tags			Sessions
// @Produce		json
// @Success		200			{object}	SessionResponse
// @Failure		403			{object}	httpError
// @Failure		404			{object}	SessionResponse
// @Failure		409			{object}	SessionResponse
// @Param			id			path		URIID	true	"ID formatted as string"
// @Param			X-Admin-Key	header		string	true	"Admin key"
// @Router			/v1/sessions/{id}/phase2 [post]
func (co Controller) StartPhase2(c *gin.Context) {
	co.fire(c, session.StartPhase2)
}

func (co Controller) fire(c *gin.Context, event session.Event) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		e := err.Error()
		c.JSON(status(err), SessionResponse{
			Error: &e,
		})
		return
	}

	s, err := co.Machine.Fire(c.Request.Context(), uri.ID.UUID, event)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), SessionResponse{
			Error: &e,
		})
		return
	}

	data := newSession(c, s)
	c.JSON(http.StatusOK, SessionResponse{Data: &data})
}

// @Summary		Close session
// @Description	Closes an active session immediately, ignoring any grace period. Also recovers sessions whose close failed. Needs the X-Admin-Key header.
// @Tags			Sessions
// @Produce		json
// @Success		200			{object}	SessionResponse
// @Failure		403			{object}	httpError
// @Failure		404			{object}	SessionResponse
// @Failure		409			{object}	SessionResponse
// @Failure		500			{object}	SessionResponse
// @Param			id			path		URIID	true	"ID formatted as string"
// @Param			X-Admin-Key	header		string	true	"Admin key"
// @Router			/v1/sessions/{id}/close [post]
func (co Controller) CloseSession(c *gin.Context) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		e := err.Error()
		c.JSON(status(err), SessionResponse{
			Error: &e,
		})
		return
	}

	_, err := co.Terminator.ForceClose(c.Request.Context(), uri.ID.UUID)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), SessionResponse{
			Error: &e,
		})
		return
	}

	s, err := co.getSession(c)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), SessionResponse{
			Error: &e,
		})
		return
	}

	data := newSession(c, s)
	c.JSON(http.StatusOK, SessionResponse{Data: &data})
}

// @Summary		Join session
// @Description	Registers the calling participant as active participant of the session. Only votes of active participants count towards closing the session.
// @Tags			Sessions
// @Produce		json
// @Success		201					{object}	ParticipantResponse
// @Failure		401					{object}	ParticipantResponse
// @Failure		404					{object}	ParticipantResponse
// @Failure		409					{object}	ParticipantResponse
// @Failure		500					{object}	ParticipantResponse
// @Param			id					path		URIID	true	"ID formatted as string"
// @Param			X-Participant-ID	header		string	true	"Participant ID"
// @Router			/v1/sessions/{id}/participants [post]
func (co Controller) JoinSession(c *gin.Context) {
	participantID, err := httputil.ParticipantID(c)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ParticipantResponse{
			Error: &e,
		})
		return
	}

	s, err := co.getSession(c)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ParticipantResponse{
			Error: &e,
		})
		return
	}

	if s.Status == models.StatusClosed || s.Phase == models.PhaseClosed {
		e := errSessionClosed.Error()
		c.JSON(status(errSessionClosed), ParticipantResponse{
			Error: &e,
		})
		return
	}

	participant := models.Participant{
		SessionID:     s.ID,
		ParticipantID: participantID,
	}

	err = co.db(c).Create(&participant).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), ParticipantResponse{
			Error: &e,
		})
		return
	}

	data := newParticipant(participant)
	c.JSON(http.StatusCreated, ParticipantResponse{Data: &data})
}
