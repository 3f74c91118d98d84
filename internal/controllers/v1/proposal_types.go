package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/medianbudget/backend/internal/models"
)

type ProposalEditable struct {
	Title       string `json:"title" example:"More bike lanes"`                          // Title of the proposal
	Description string `json:"description" example:"Connect all districts by bike lane"` // A longer description
	Tier        int    `json:"tier" example:"2"`                                         // Rating tier from phase 1, only the highest tier is decided on
}

func (editable ProposalEditable) model(sessionID uuid.UUID) models.Proposal {
	return models.Proposal{
		SessionID:   sessionID,
		Title:       editable.Title,
		Description: editable.Description,
		Tier:        editable.Tier,
	}
}

type Proposal struct {
	models.DefaultModel
	SessionID   uuid.UUID `json:"sessionId" example:"3b1ea324-d438-4419-882a-2fc91d71772f"`
	Title       string    `json:"title" example:"More bike lanes"`
	Description string    `json:"description" example:"Connect all districts by bike lane"`
	Tier        int       `json:"tier" example:"2"`
	Archived    bool      `json:"archived" example:"false"` // Set for all proposals when the session closes
	Winner      bool      `json:"winner" example:"false"`   // Top tier proposal with more approvals than rejections
	YesVotes    int       `json:"yesVotes" example:"2"`
	NoVotes     int       `json:"noVotes" example:"1"`
	Links       struct {
		Session string `json:"session" example:"https://example.com/api/v1/sessions/3b1ea324-d438-4419-882a-2fc91d71772f"` // The session
	} `json:"links"`
}

func newProposal(c *gin.Context, model models.Proposal) Proposal {
	p := Proposal{
		DefaultModel: model.DefaultModel,
		SessionID:    model.SessionID,
		Title:        model.Title,
		Description:  model.Description,
		Tier:         model.Tier,
		Archived:     model.Archived,
		Winner:       model.Winner,
		YesVotes:     model.YesVotes,
		NoVotes:      model.NoVotes,
	}
	p.Links.Session = c.GetString(string(models.ContextURL)) + "/v1/sessions/" + model.SessionID.String()

	return p
}

type ProposalResponse struct {
	Error *string   `json:"error" example:"proposals can only be added before phase 2 starts"` // The error, if any occurred
	Data  *Proposal `json:"data"`                                                              // Data for the proposal
}

type ProposalListResponse struct {
	Error *string    `json:"error" example:"there is no session matching your query"` // The error, if any occurred
	Data  []Proposal `json:"data"`                                                    // List of proposals
}

type BallotEditable struct {
	Choices []models.Choice `json:"choices"` // One choice per proposal of the highest tier
}

type Ballot struct {
	models.DefaultModel
	SessionID     uuid.UUID       `json:"sessionId" example:"3b1ea324-d438-4419-882a-2fc91d71772f"`
	ParticipantID string          `json:"participantId" example:"voter-17"`
	Choices       []models.Choice `json:"choices"`
}

func newBallot(model models.Ballot) Ballot {
	return Ballot{
		DefaultModel:  model.DefaultModel,
		SessionID:     model.SessionID,
		ParticipantID: model.ParticipantID,
		Choices:       model.Choices,
	}
}

type BallotResponse struct {
	Error       *string      `json:"error" example:"the participant has already cast a ballot in this session"` // The error, if any occurred
	Data        *Ballot      `json:"data"`                                                                      // Data for the ballot
	Termination *Termination `json:"termination,omitempty"`                                                     // Set when the ballot completed the session
}
