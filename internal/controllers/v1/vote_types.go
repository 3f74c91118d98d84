package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/medianbudget/backend/internal/budget"
	"github.com/medianbudget/backend/internal/models"
	"github.com/medianbudget/backend/internal/session"
	"github.com/shopspring/decimal"
)

type VoteEditable struct {
	SessionID         uuid.UUID                 `json:"sessionId" example:"3b1ea324-d438-4419-882a-2fc91d71772f"` // ID of the session the vote is for
	Allocations       []budget.Allocation       `json:"allocations"`                                              // Amounts per expense category
	IncomeAllocations []budget.IncomeAllocation `json:"incomeAllocations"`                                        // Amounts per income category

	// Totals are accepted for compatibility but always derived from the allocations
	TotalExpenses *decimal.Decimal `json:"totalExpenses,omitempty" example:"400"`
	TotalIncome   *decimal.Decimal `json:"totalIncome,omitempty" example:"500"`
}

func (editable VoteEditable) budget() budget.Vote {
	return budget.Vote{
		Allocations:       editable.Allocations,
		IncomeAllocations: editable.IncomeAllocations,
	}
}

func (editable VoteEditable) model(participantID string) models.Vote {
	return models.Vote{
		SessionID:         editable.SessionID,
		ParticipantID:     participantID,
		Allocations:       editable.Allocations,
		IncomeAllocations: editable.IncomeAllocations,
	}
}

type VoteLinks struct {
	Session string `json:"session" example:"https://example.com/api/v1/sessions/3b1ea324-d438-4419-882a-2fc91d71772f"`       // The session the vote is for
	Result  string `json:"result" example:"https://example.com/api/v1/sessions/3b1ea324-d438-4419-882a-2fc91d71772f/result"` // The median budget of the session
}

type Vote struct {
	models.DefaultModel
	SessionID         uuid.UUID                 `json:"sessionId" example:"3b1ea324-d438-4419-882a-2fc91d71772f"`
	ParticipantID     string                    `json:"participantId" example:"voter-17"`
	Allocations       []budget.Allocation       `json:"allocations"`
	IncomeAllocations []budget.IncomeAllocation `json:"incomeAllocations"`
	TotalExpenses     decimal.Decimal           `json:"totalExpenses" example:"400"`
	TotalIncome       decimal.Decimal           `json:"totalIncome" example:"500"`
	Links             VoteLinks                 `json:"links"`
}

func newVote(c *gin.Context, model models.Vote) Vote {
	url := c.GetString(string(models.ContextURL)) + "/v1/sessions/" + model.SessionID.String()

	return Vote{
		DefaultModel:      model.DefaultModel,
		SessionID:         model.SessionID,
		ParticipantID:     model.ParticipantID,
		Allocations:       model.Allocations,
		IncomeAllocations: model.IncomeAllocations,
		TotalExpenses:     model.TotalExpenses,
		TotalIncome:       model.TotalIncome,
		Links: VoteLinks{
			Session: url,
			Result:  url + "/result",
		},
	}
}

type VoteResponse struct {
	Error            *string                  `json:"error" example:"the vote is not valid, see validationErrors for details"` // The error, if any occurred
	ValidationErrors []budget.ValidationError `json:"validationErrors,omitempty"`                                              // Every problem found in the vote
	Data             *Vote                    `json:"data"`                                                                    // Data for the vote
	Termination      *Termination             `json:"termination,omitempty"`                                                   // Set when the vote completed the session
}

// Termination is the outcome of a termination attempt.
type Termination struct {
	SessionID           uuid.UUID `json:"sessionId" example:"3b1ea324-d438-4419-882a-2fc91d71772f"` // ID of the session
	TerminationExecuted bool      `json:"terminationExecuted" example:"false"`                      // True if this request closed the session
	SecondsRemaining    *int64    `json:"secondsRemaining,omitempty" example:"42"`                  // Seconds until the scheduled close
	Message             string    `json:"message,omitempty" example:"the session has been closed"`  // Explanation if nothing was executed
}

func newTermination(o session.Outcome) Termination {
	return Termination{
		SessionID:           o.SessionID,
		TerminationExecuted: o.Executed,
		SecondsRemaining:    o.SecondsRemaining,
		Message:             o.Message,
	}
}
