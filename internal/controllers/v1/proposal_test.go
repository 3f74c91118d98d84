package v1_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/medianbudget/backend/internal/config"
	v1 "github.com/medianbudget/backend/internal/controllers/v1"
	"github.com/medianbudget/backend/internal/models"
	"github.com/medianbudget/backend/test"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) createProposal(s v1.Session, title string, tier int) v1.Proposal {
	r := suite.request(http.MethodPost, "/v1/sessions/"+s.ID.String()+"/proposals", v1.ProposalEditable{Title: title, Tier: tier}, admin())
	test.AssertHTTPStatus(suite.T(), &r, http.StatusCreated)

	var response v1.ProposalResponse
	test.DecodeResponse(suite.T(), &r, &response)
	return *response.Data
}

func (suite *TestSuiteStandard) cast(s v1.Session, participantID string, choices ...models.Choice) v1.BallotResponse {
	r := suite.request(http.MethodPost, "/v1/sessions/"+s.ID.String()+"/ballots", v1.BallotEditable{Choices: choices}, participant(participantID))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusCreated)

	var response v1.BallotResponse
	test.DecodeResponse(suite.T(), &r, &response)
	return response
}

func (suite *TestSuiteStandard) proposals(s v1.Session) map[string]v1.Proposal {
	r := suite.request(http.MethodGet, "/v1/sessions/"+s.ID.String()+"/proposals", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.ProposalListResponse
	test.DecodeResponse(suite.T(), &r, &response)

	byTitle := make(map[string]v1.Proposal, len(response.Data))
	for _, p := range response.Data {
		byTitle[p.Title] = p
	}
	return byTitle
}

func choice(p v1.Proposal, approve bool) models.Choice {
	return models.Choice{ProposalID: p.ID, Approve: approve}
}

func (suite *TestSuiteStandard) TestProposalFlow() {
	s := suite.createActiveSession(v1.SessionEditable{Name: "Club proposals", Kind: models.KindProposal}, "alice", "bob", "carol")
	lanes := suite.createProposal(s, "Bike lanes", 2)
	park := suite.createProposal(s, "Park", 2)
	pool := suite.createProposal(s, "Pool", 1)
	ballots := "/v1/sessions/" + s.ID.String() + "/ballots"

	r := suite.request(http.MethodPost, ballots, v1.BallotEditable{Choices: []models.Choice{choice(lanes, true)}}, participant("alice"))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusConflict)

	s = suite.fire(s, "phase2")

	r = suite.request(http.MethodPost, "/v1/sessions/"+s.ID.String()+"/proposals", v1.ProposalEditable{Title: "Late", Tier: 3}, admin())
	test.AssertHTTPStatus(suite.T(), &r, http.StatusConflict)

	response := suite.cast(s, "alice", choice(lanes, true), choice(park, true), choice(pool, true))
	suite.Assert().Nil(response.Termination)
	suite.Assert().Equal("alice", response.Data.ParticipantID)

	suite.cast(s, "bob", choice(lanes, true), choice(park, false), choice(pool, true))

	r = suite.request(http.MethodPost, ballots, v1.BallotEditable{Choices: []models.Choice{choice(lanes, false)}}, participant("bob"))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusConflict)

	response = suite.cast(s, "carol", choice(lanes, false), choice(park, false), choice(pool, true))
	suite.Require().NotNil(response.Termination)
	suite.Assert().True(response.Termination.TerminationExecuted)
	suite.Assert().Equal(models.StatusClosed, suite.getSession(s).Status)

	result := suite.proposals(s)
	suite.Require().Len(result, 3)

	suite.Assert().True(result["Bike lanes"].Winner)
	suite.Assert().Equal(2, result["Bike lanes"].YesVotes)
	suite.Assert().Equal(1, result["Bike lanes"].NoVotes)
	suite.Assert().False(result["Park"].Winner)
	suite.Assert().False(result["Pool"].Winner, "only the highest tier can win")

	for _, p := range result {
		suite.Assert().True(p.Archived, "%s is not archived", p.Title)
	}
}

// TestProposalFlowDefaultConfig verifies that proposal sessions close
// right after the last ballot with the shipped configuration, which has a
// grace period for budget sessions.
func (suite *TestSuiteStandard) TestProposalFlowDefaultConfig() {
	cfg := config.Default()
	cfg.APIURL = "http://example.com"
	cfg.AdminKey = adminKey
	suite.co = v1.New(suite.co.DB, cfg, nil)

	budget := suite.createSession(budgetSession("Budget"))
	suite.Assert().Equal(int64(60), budget.GracePeriodSeconds)

	s := suite.createActiveSession(v1.SessionEditable{Name: "Club proposals", Kind: models.KindProposal}, "alice", "bob", "carol")
	suite.Assert().Equal(int64(0), s.GracePeriodSeconds)

	lanes := suite.createProposal(s, "Bike lanes", 1)
	s = suite.fire(s, "phase2")

	suite.cast(s, "alice", choice(lanes, true))
	suite.cast(s, "bob", choice(lanes, true))
	response := suite.cast(s, "carol", choice(lanes, false))

	suite.Require().NotNil(response.Termination)
	suite.Assert().True(response.Termination.TerminationExecuted)
	suite.Assert().Nil(response.Termination.SecondsRemaining)
	suite.Assert().Equal(models.StatusClosed, suite.getSession(s).Status)
	suite.Assert().True(suite.proposals(s)["Bike lanes"].Winner)
}

// TestProposalGraceOverride verifies that an explicit grace period is kept
// for proposal sessions.
func (suite *TestSuiteStandard) TestProposalGraceOverride() {
	s := suite.createSession(v1.SessionEditable{Name: "Club proposals", Kind: models.KindProposal, GracePeriodSeconds: seconds(30)})
	suite.Assert().Equal(int64(30), s.GracePeriodSeconds)
}

func (suite *TestSuiteStandard) TestBallotRejected() {
	s := suite.createActiveSession(v1.SessionEditable{Name: "Club proposals", Kind: models.KindProposal}, "alice")
	lanes := suite.createProposal(s, "Bike lanes", 1)
	s = suite.fire(s, "phase2")

	budget := suite.createActiveSession(budgetSession("Budget"), "alice")

	tests := []struct {
		name        string
		session     v1.Session
		participant string
		choices     []models.Choice
		status      int
	}{
		{"No participant", s, "", []models.Choice{choice(lanes, true)}, http.StatusUnauthorized},
		{"Not joined", s, "mallory", []models.Choice{choice(lanes, true)}, http.StatusForbidden},
		{"Budget session", budget, "alice", []models.Choice{choice(lanes, true)}, http.StatusBadRequest},
		{"Unknown proposal", s, "alice", []models.Choice{{ProposalID: uuid.New(), Approve: true}}, http.StatusBadRequest},
		{"No choices", s, "alice", []models.Choice{}, http.StatusBadRequest},
		{"Duplicate choice", s, "alice", []models.Choice{choice(lanes, true), choice(lanes, false)}, http.StatusBadRequest},
		{"Unknown session", v1.Session{DefaultModel: models.DefaultModel{ID: uuid.New()}}, "alice", []models.Choice{choice(lanes, true)}, http.StatusNotFound},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := suite.request(http.MethodPost, "/v1/sessions/"+tt.session.ID.String()+"/ballots", v1.BallotEditable{Choices: tt.choices}, participant(tt.participant))
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}

	// None of the rejected ballots was stored
	suite.cast(s, "alice", choice(lanes, true))
}

func (suite *TestSuiteStandard) TestCreateProposalRejected() {
	s := suite.createSession(budgetSession("Budget"))
	proposals := suite.createSession(v1.SessionEditable{Name: "Club proposals", Kind: models.KindProposal})

	tests := []struct {
		name    string
		path    string
		body    any
		headers []map[string]string
		status  int
	}{
		{"No admin key", proposals.ID.String(), v1.ProposalEditable{Title: "Park"}, nil, http.StatusForbidden},
		{"Budget session", s.ID.String(), v1.ProposalEditable{Title: "Park"}, []map[string]string{admin()}, http.StatusBadRequest},
		{"No title", proposals.ID.String(), v1.ProposalEditable{Title: " "}, []map[string]string{admin()}, http.StatusBadRequest},
		{"Unknown session", uuid.New().String(), v1.ProposalEditable{Title: "Park"}, []map[string]string{admin()}, http.StatusNotFound},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := suite.request(http.MethodPost, "/v1/sessions/"+tt.path+"/proposals", tt.body, tt.headers...)
			assert.Equal(t, tt.status, r.Code, r.Body.String())
		})
	}

	suite.Assert().Len(suite.proposals(proposals), 0)
}
