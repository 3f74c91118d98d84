package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/medianbudget/backend/internal/budget"
	"github.com/medianbudget/backend/internal/models"
	"github.com/shopspring/decimal"
)

type ResultLinks struct {
	Session   string `json:"session" example:"https://example.com/api/v1/sessions/3b1ea324-d438-4419-882a-2fc91d71772f"`                    // The session
	Recompute string `json:"recompute" example:"https://example.com/api/v1/sessions/3b1ea324-d438-4419-882a-2fc91d71772f/result/recompute"` // Regenerates the result
}

// Result is the median budget of a closed session.
type Result struct {
	models.DefaultModel
	SessionID               uuid.UUID               `json:"sessionId" example:"3b1ea324-d438-4419-882a-2fc91d71772f"`
	MedianAllocations       []budget.CategoryMedian `json:"medianAllocations"`
	MedianIncomeAllocations []budget.IncomeMedian   `json:"medianIncomeAllocations"`
	TotalMedianExpenses     decimal.Decimal         `json:"totalMedianExpenses" example:"400"` // Sum of the raw category medians
	TotalMedianIncome       decimal.Decimal         `json:"totalMedianIncome" example:"500"`   // Sum of the income medians
	BalancedExpenses        decimal.Decimal         `json:"balancedExpenses" example:"500"`    // Expenses after balancing, equal to the total median income
	VoterCount              int                     `json:"voterCount" example:"2"`
	Links                   ResultLinks             `json:"links"`
}

func newResult(c *gin.Context, model models.Result) Result {
	url := c.GetString(string(models.ContextURL)) + "/v1/sessions/" + model.SessionID.String()

	return Result{
		DefaultModel:            model.DefaultModel,
		SessionID:               model.SessionID,
		MedianAllocations:       model.MedianAllocations,
		MedianIncomeAllocations: model.MedianIncomeAllocations,
		TotalMedianExpenses:     model.TotalMedianExpenses,
		TotalMedianIncome:       model.TotalMedianIncome,
		BalancedExpenses:        model.BalancedExpenses,
		VoterCount:              model.VoterCount,
		Links: ResultLinks{
			Session:   url,
			Recompute: url + "/result/recompute",
		},
	}
}

type ResultResponse struct {
	Error *string `json:"error" example:"the session is not closed yet"` // The error, if any occurred
	Data  *Result `json:"data"`                                          // Data for the result
}
