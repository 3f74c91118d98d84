package v1_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medianbudget/backend/internal/budget"
	v1 "github.com/medianbudget/backend/internal/controllers/v1"
	"github.com/medianbudget/backend/internal/models"
	"github.com/medianbudget/backend/test"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestVoteClosesSession() {
	s := suite.createActiveSession(budgetSession("Budget"), "alice", "bob")

	response := suite.vote(vote(s, 150, 250), "alice")
	suite.Assert().Nil(response.Termination, "the session waits for bob")
	suite.Assert().Equal("alice", response.Data.ParticipantID)
	suite.Assert().True(response.Data.TotalExpenses.Equal(d(400)))
	suite.Assert().True(response.Data.TotalIncome.Equal(d(500)))

	response = suite.vote(vote(s, 300, 100), "bob")
	suite.Require().NotNil(response.Termination)
	suite.Assert().True(response.Termination.TerminationExecuted)
	suite.Assert().Equal(models.StatusClosed, suite.getSession(s).Status)

	r := suite.request(http.MethodGet, "/v1/sessions/"+s.ID.String()+"/result", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var result v1.ResultResponse
	test.DecodeResponse(suite.T(), &r, &result)
	suite.Assert().Equal(2, result.Data.VoterCount)
	suite.Assert().True(result.Data.TotalMedianExpenses.Equal(d(400)))
	suite.Assert().True(result.Data.BalancedExpenses.Equal(d(500)))
	suite.Require().Len(result.Data.MedianAllocations, 2)
	suite.Assert().True(result.Data.MedianAllocations[0].RawMedianAmount.Equal(d(225)))
	suite.Assert().True(result.Data.MedianAllocations[0].MedianAmount.Equal(decimal.RequireFromString("281.25")))
	suite.Assert().True(result.Data.MedianAllocations[1].MedianAmount.Equal(decimal.RequireFromString("218.75")))

	// The session is closed, further votes are rejected
	r = suite.request(http.MethodPost, "/v1/votes", vote(s, 150, 250), participant("alice"))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusConflict)
}

func (suite *TestSuiteStandard) TestVoteReplacesPrevious() {
	s := suite.createActiveSession(budgetSession("Budget"), "alice", "bob")

	first := suite.vote(vote(s, 150, 250), "alice")
	second := suite.vote(vote(s, 200, 200), "alice")
	suite.Assert().Equal(first.Data.ID, second.Data.ID)

	r := suite.request(http.MethodGet, "/v1/sessions/"+s.ID.String()+"/votes/me", "", participant("alice"))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.VoteResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().True(response.Data.Allocations[0].Amount.Equal(d(200)))
	suite.Assert().Equal(models.StatusActive, suite.getSession(s).Status)
}

func (suite *TestSuiteStandard) TestVoteTotalsAreDerived() {
	s := suite.createActiveSession(budgetSession("Budget"), "alice", "bob")

	editable := vote(s, 150, 250)
	wrong := d(1)
	editable.TotalExpenses = &wrong

	response := suite.vote(editable, "alice")
	suite.Assert().True(response.Data.TotalExpenses.Equal(d(400)))
}

func (suite *TestSuiteStandard) TestVoteValidation() {
	s := suite.createActiveSession(budgetSession("Budget"), "alice")

	editable := vote(s, 99, 250)
	editable.Allocations = append(editable.Allocations, budget.Allocation{CategoryID: "unknown", Amount: d(5)})

	r := suite.request(http.MethodPost, "/v1/votes", editable, participant("alice"))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)

	var response v1.VoteResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Nil(response.Data)
	suite.Require().Len(response.ValidationErrors, 2, "all problems are reported")
	suite.Assert().Equal(budget.BelowMinimum, response.ValidationErrors[0].Kind)
	suite.Assert().Equal("a", response.ValidationErrors[0].CategoryID)
	suite.Assert().Equal(budget.CategoryNotFound, response.ValidationErrors[1].Kind)

	// Nothing was stored
	r = suite.request(http.MethodGet, "/v1/sessions/"+s.ID.String()+"/votes/me", "", participant("alice"))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestVoteRejected() {
	open := suite.createActiveSession(budgetSession("Open"), "alice")
	draft := suite.createSession(budgetSession("Draft"))
	proposals := suite.createActiveSession(v1.SessionEditable{Name: "Proposals", Kind: models.KindProposal}, "alice")

	tests := []struct {
		name        string
		vote        v1.VoteEditable
		participant string
		status      int
	}{
		{"No participant", vote(open, 150, 250), "", http.StatusUnauthorized},
		{"Not joined", vote(open, 150, 250), "mallory", http.StatusForbidden},
		{"Draft session", vote(draft, 150, 250), "alice", http.StatusConflict},
		{"Proposal session", vote(proposals, 150, 250), "alice", http.StatusBadRequest},
		{"Unknown session", vote(v1.Session{DefaultModel: models.DefaultModel{ID: uuid.New()}}, 150, 250), "alice", http.StatusNotFound},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := suite.request(http.MethodPost, "/v1/votes", tt.vote, participant(tt.participant))
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

func (suite *TestSuiteStandard) TestVoteBrokenBody() {
	r := suite.request(http.MethodPost, "/v1/votes", `{ "sessionId": 2 }`, participant("alice"))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestGetMyVoteErrors() {
	s := suite.createActiveSession(budgetSession("Budget"), "alice")

	r := suite.request(http.MethodGet, "/v1/sessions/"+s.ID.String()+"/votes/me", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusUnauthorized)

	r = suite.request(http.MethodGet, "/v1/sessions/"+uuid.New().String()+"/votes/me", "", participant("alice"))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestVoteWithGracePeriod() {
	editable := budgetSession("Budget")
	editable.GracePeriodSeconds = seconds(60)
	s := suite.createActiveSession(editable, "alice")

	response := suite.vote(vote(s, 150, 250), "alice")
	suite.Require().NotNil(response.Termination)
	suite.Assert().False(response.Termination.TerminationExecuted)
	suite.Require().NotNil(response.Termination.SecondsRemaining)
	suite.Assert().InDelta(60, *response.Termination.SecondsRemaining, 2)

	got := suite.getSession(s)
	suite.Assert().Equal(models.StatusActive, got.Status)
	suite.Assert().NotNil(got.TerminationScheduledAt)

	// Votes are still accepted during the grace period
	_ = suite.vote(vote(s, 200, 200), "alice")

	suite.co.Machine.Clock = func() time.Time {
		return time.Now().UTC().Add(2 * time.Minute)
	}

	r := suite.request(http.MethodPost, "/v1/termination", v1.TerminationRequest{SessionID: &s.ID})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var termination v1.TerminationResponse
	test.DecodeResponse(suite.T(), &r, &termination)
	suite.Assert().True(termination.Data.TerminationExecuted)

	r = suite.request(http.MethodGet, "/v1/sessions/"+s.ID.String()+"/result", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var result v1.ResultResponse
	test.DecodeResponse(suite.T(), &r, &result)
	assert.True(suite.T(), result.Data.MedianAllocations[0].RawMedianAmount.Equal(d(200)), "the replaced vote counts")
}
