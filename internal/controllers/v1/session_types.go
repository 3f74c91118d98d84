package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medianbudget/backend/internal/budget"
	"github.com/medianbudget/backend/internal/models"
	"github.com/medianbudget/backend/internal/session"
)

type SessionEditable struct {
	Name             string                  `json:"name" example:"City budget 2027"`               // Name of the session
	Note             string                  `json:"note" example:"Decided on by the city council"` // A longer description of the session
	Kind             models.SessionKind      `json:"kind" example:"budget" default:"budget"`        // Either budget or proposal
	Currency         string                  `json:"currency" example:"EUR"`                        // ISO 4217 code of the currency all amounts are in
	Categories       []budget.Category       `json:"categories"`                                    // Expense categories participants allocate to
	IncomeCategories []budget.IncomeCategory `json:"incomeCategories"`                              // Income sources participants allocate to

	// Seconds between the close trigger and the close. Defaults to the configured grace period for budget sessions and 0 for proposal sessions
	GracePeriodSeconds *int64 `json:"gracePeriodSeconds,omitempty" example:"60"`

	// Seconds phase 2 runs before the session closes. Defaults to the configured duration, 0 never times out
	Phase2DurationSeconds *int64 `json:"phase2DurationSeconds,omitempty" example:"86400"`
}

func (editable SessionEditable) model(settings session.Settings) (models.Session, error) {
	for _, s := range []*int64{editable.GracePeriodSeconds, editable.Phase2DurationSeconds} {
		if s != nil && *s < 0 {
			return models.Session{}, errNegativeDuration
		}
	}

	grace, phase2 := settings.For(editable.Kind, editable.GracePeriodSeconds, editable.Phase2DurationSeconds)

	return models.Session{
		Name:             editable.Name,
		Note:             editable.Note,
		Kind:             editable.Kind,
		Currency:         editable.Currency,
		Categories:       editable.Categories,
		IncomeCategories: editable.IncomeCategories,
		GracePeriod:      grace,
		Phase2Duration:   phase2,
	}, nil
}

type SessionLinks struct {
	Self         string `json:"self" example:"https://example.com/api/v1/sessions/3b1ea324-d438-4419-882a-2fc91d71772f"`                      // The session itself
	Participants string `json:"participants" example:"https://example.com/api/v1/sessions/3b1ea324-d438-4419-882a-2fc91d71772f/participants"` // Join the session
	MyVote       string `json:"myVote" example:"https://example.com/api/v1/sessions/3b1ea324-d438-4419-882a-2fc91d71772f/votes/me"`           // The vote of the calling participant
	Result       string `json:"result" example:"https://example.com/api/v1/sessions/3b1ea324-d438-4419-882a-2fc91d71772f/result"`             // The median budget
	Proposals    string `json:"proposals" example:"https://example.com/api/v1/sessions/3b1ea324-d438-4419-882a-2fc91d71772f/proposals"`       // Proposals of the session
	Ballots      string `json:"ballots" example:"https://example.com/api/v1/sessions/3b1ea324-d438-4419-882a-2fc91d71772f/ballots"`           // Cast a ballot
}

type Session struct {
	models.DefaultModel
	Name                   string                  `json:"name" example:"City budget 2027"`
	Note                   string                  `json:"note" example:"Decided on by the city council"`
	Kind                   models.SessionKind      `json:"kind" example:"budget"`
	Currency               string                  `json:"currency" example:"EUR"`
	Categories             []budget.Category       `json:"categories"`
	IncomeCategories       []budget.IncomeCategory `json:"incomeCategories"`
	Status                 models.SessionStatus    `json:"status" example:"active"`
	Phase                  models.Phase            `json:"phase" example:"phase2"`
	Phase2StartTime        *time.Time              `json:"phase2StartTime" example:"2026-10-16T12:00:00Z"`
	Phase2DurationSeconds  int64                   `json:"phase2DurationSeconds" example:"86400"`
	GracePeriodSeconds     int64                   `json:"gracePeriodSeconds" example:"60"`
	TerminationScheduledAt *time.Time              `json:"terminationScheduledAt" example:"2026-10-17T12:01:00Z"` // Time the session closes, set once a close condition is met
	Revision               uint64                  `json:"revision" example:"4"`
	EndedAt                *time.Time              `json:"endedAt" example:"2026-10-17T12:01:00Z"`
	Links                  SessionLinks            `json:"links"`
}

func newSession(c *gin.Context, model models.Session) Session {
	url := c.GetString(string(models.ContextURL))
	self := url + "/v1/sessions/" + model.ID.String()

	categories := model.Categories
	if categories == nil {
		categories = make([]budget.Category, 0)
	}

	income := model.IncomeCategories
	if income == nil {
		income = make([]budget.IncomeCategory, 0)
	}

	return Session{
		DefaultModel:           model.DefaultModel,
		Name:                   model.Name,
		Note:                   model.Note,
		Kind:                   model.Kind,
		Currency:               model.Currency,
		Categories:             categories,
		IncomeCategories:       income,
		Status:                 model.Status,
		Phase:                  model.Phase,
		Phase2StartTime:        model.Phase2StartTime,
		Phase2DurationSeconds:  int64(model.Phase2Duration / time.Second),
		GracePeriodSeconds:     int64(model.GracePeriod / time.Second),
		TerminationScheduledAt: model.TerminationScheduledAt,
		Revision:               model.Revision,
		EndedAt:                model.EndedAt,
		Links: SessionLinks{
			Self:         self,
			Participants: self + "/participants",
			MyVote:       self + "/votes/me",
			Result:       self + "/result",
			Proposals:    self + "/proposals",
			Ballots:      self + "/ballots",
		},
	}
}

type SessionResponse struct {
	Error *string  `json:"error" example:"the session does not accept votes at the moment"` // The error, if any occurred
	Data  *Session `json:"data"`                                                            // Data for the session
}

type SessionListResponse struct {
	Data       []Session   `json:"data"`                                              // List of sessions
	Error      *string     `json:"error" example:"the specified status is not valid"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                        // Pagination information
}

type SessionQueryFilter struct {
	Name   string               `form:"name" filterField:"false"`   // Glob pattern the name must match, e.g. "city*"
	Status models.SessionStatus `form:"status"`                     // Exact status
	Kind   models.SessionKind   `form:"kind"`                       // Exact kind
	Offset uint                 `form:"offset" filterField:"false"` // The offset of the first Session returned. Defaults to 0.
	Limit  int                  `form:"limit" filterField:"false"`  // Maximum number of Sessions to return. Defaults to 50.
}

func (f SessionQueryFilter) model() models.Session {
	return models.Session{
		Status: f.Status,
		Kind:   f.Kind,
	}
}

type Participant struct {
	models.DefaultModel
	SessionID     string `json:"sessionId" example:"3b1ea324-d438-4419-882a-2fc91d71772f"` // ID of the session
	ParticipantID string `json:"participantId" example:"voter-17"`                         // Opaque ID of the participant
}

func newParticipant(model models.Participant) Participant {
	return Participant{
		DefaultModel:  model.DefaultModel,
		SessionID:     model.SessionID.String(),
		ParticipantID: model.ParticipantID,
	}
}

type ParticipantResponse struct {
	Error *string      `json:"error" example:"the participant has already joined this session"` // The error, if any occurred
	Data  *Participant `json:"data"`                                                            // Data for the participant
}
