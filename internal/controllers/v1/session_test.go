package v1_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	v1 "github.com/medianbudget/backend/internal/controllers/v1"
	"github.com/medianbudget/backend/internal/models"
	"github.com/medianbudget/backend/test"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestGetV1() {
	r := suite.request(http.MethodGet, "/v1", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.Response
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal(v1.Links{
		Sessions:    "http://example.com/v1/sessions",
		Votes:       "http://example.com/v1/votes",
		Termination: "http://example.com/v1/termination",
	}, response.Links)
}

func (suite *TestSuiteStandard) TestCreateSessionNeedsAdminKey() {
	tests := []struct {
		name    string
		headers []map[string]string
	}{
		{"No key", nil},
		{"Wrong key", []map[string]string{{"X-Admin-Key": "guessed"}}},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := suite.request(http.MethodPost, "/v1/sessions", budgetSession("Budget"), tt.headers...)
			test.AssertHTTPStatus(t, &r, http.StatusForbidden)
		})
	}
}

func (suite *TestSuiteStandard) TestCreateSessionDisabledWithoutAdminKey() {
	suite.co.Config.AdminKey = ""

	r := suite.request(http.MethodPost, "/v1/sessions", budgetSession("Budget"), map[string]string{"X-Admin-Key": ""})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusForbidden)
}

func (suite *TestSuiteStandard) TestCreateSession() {
	editable := budgetSession("City budget")
	editable.Phase2DurationSeconds = seconds(3600)

	s := suite.createSession(editable)
	suite.Assert().Equal(models.StatusDraft, s.Status)
	suite.Assert().Equal(models.Phase1, s.Phase)
	suite.Assert().Equal(models.KindBudget, s.Kind)
	suite.Assert().Equal("EUR", s.Currency)
	suite.Assert().Equal(int64(0), s.GracePeriodSeconds, "the configured grace period is the default")
	suite.Assert().Equal(int64(3600), s.Phase2DurationSeconds)
	suite.Assert().Len(s.Categories, 2)
	suite.Assert().Equal("http://example.com/v1/sessions/"+s.ID.String(), s.Links.Self)
	suite.Assert().Equal("http://example.com/v1/sessions/"+s.ID.String()+"/result", s.Links.Result)
}

func (suite *TestSuiteStandard) TestCreateSessionInvalid() {
	negative := budgetSession("Negative")
	negative.GracePeriodSeconds = seconds(-1)

	duplicate := budgetSession("Duplicate")
	duplicate.Categories = append(duplicate.Categories, duplicate.Categories[0])

	noCategories := budgetSession("Empty")
	noCategories.Categories = nil

	tests := []struct {
		name string
		body any
	}{
		{"Broken body", `{ "name": 2 }`},
		{"Empty body", ""},
		{"Negative grace period", negative},
		{"Duplicate category", duplicate},
		{"No categories", noCategories},
		{"No name", budgetSession(" ")},
		{"Unknown currency", v1.SessionEditable{Name: "Currency", Kind: models.KindProposal, Currency: "XYZ1"}},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := suite.request(http.MethodPost, "/v1/sessions", tt.body, admin())
			test.AssertHTTPStatus(t, &r, http.StatusBadRequest)
		})
	}
}

func (suite *TestSuiteStandard) TestGetSession() {
	s := suite.createSession(budgetSession("Budget"))

	got := suite.getSession(s)
	suite.Assert().Equal(s.ID, got.ID)
	suite.Assert().Equal("Budget", got.Name)
}

func (suite *TestSuiteStandard) TestGetSessionErrors() {
	r := suite.request(http.MethodGet, "/v1/sessions/"+uuid.New().String(), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)

	var response v1.SessionResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal("there is no session matching your query", *response.Error)

	r = suite.request(http.MethodGet, "/v1/sessions/not-a-uuid", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestGetSessionsDatabaseError() {
	suite.CloseDB()

	r := suite.request(http.MethodGet, "/v1/sessions", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusInternalServerError)
}

func (suite *TestSuiteStandard) TestGetSessionsFilter() {
	suite.createActiveSession(budgetSession("City budget 2026"))
	suite.createSession(budgetSession("City budget 2027"))
	suite.createSession(v1.SessionEditable{Name: "Club proposals", Kind: models.KindProposal})

	tests := []struct {
		name  string
		query string
		len   int
		total int64
	}{
		{"All", "", 3, 3},
		{"Name glob", "name=City*", 2, 2},
		{"Name glob suffix", "name=*2027", 1, 1},
		{"Status", "status=active", 1, 1},
		{"Kind", "kind=proposal", 1, 1},
		{"Kind and glob", "kind=budget&name=Club*", 0, 0},
		{"Limit", "limit=2", 2, 3},
		{"Offset", "offset=2", 1, 3},
		{"Offset beyond", "offset=10", 0, 3},
		{"No limit", "limit=-1", 3, 3},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := suite.request(http.MethodGet, "/v1/sessions?"+tt.query, "")
			test.AssertHTTPStatus(t, &r, http.StatusOK)

			var response v1.SessionListResponse
			test.DecodeResponse(t, &r, &response)
			assert.Len(t, response.Data, tt.len)
			assert.Equal(t, tt.len, response.Pagination.Count)
			assert.Equal(t, tt.total, response.Pagination.Total)
		})
	}
}

func (suite *TestSuiteStandard) TestGetSessionsBadFilter() {
	r := suite.request(http.MethodGet, "/v1/sessions?offset=-1", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestLifecycle() {
	s := suite.createSession(budgetSession("Budget"))

	s = suite.fire(s, "activate")
	suite.Assert().Equal(models.StatusActive, s.Status)
	suite.Assert().Equal(models.Phase1, s.Phase)

	r := suite.request(http.MethodPost, "/v1/sessions/"+s.ID.String()+"/activate", "", admin())
	test.AssertHTTPStatus(suite.T(), &r, http.StatusConflict)

	s = suite.fire(s, "phase2")
	suite.Assert().Equal(models.Phase2, s.Phase)
	suite.Assert().NotNil(s.Phase2StartTime)

	s = suite.fire(s, "close")
	suite.Assert().Equal(models.StatusClosed, s.Status)
	suite.Assert().Equal(models.PhaseClosed, s.Phase)
	suite.Assert().NotNil(s.EndedAt)

	for _, event := range []string{"activate", "phase2", "close"} {
		r := suite.request(http.MethodPost, "/v1/sessions/"+s.ID.String()+"/"+event, "", admin())
		test.AssertHTTPStatus(suite.T(), &r, http.StatusConflict)
	}
}

func (suite *TestSuiteStandard) TestLifecycleNeedsAdminKey() {
	s := suite.createSession(budgetSession("Budget"))

	for _, event := range []string{"activate", "phase2", "close"} {
		r := suite.request(http.MethodPost, "/v1/sessions/"+s.ID.String()+"/"+event, "")
		test.AssertHTTPStatus(suite.T(), &r, http.StatusForbidden)
	}

	suite.Assert().Equal(models.StatusDraft, suite.getSession(s).Status)
}

func (suite *TestSuiteStandard) TestJoin() {
	s := suite.createActiveSession(budgetSession("Budget"))
	path := "/v1/sessions/" + s.ID.String() + "/participants"

	r := suite.request(http.MethodPost, path, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusUnauthorized)

	r = suite.request(http.MethodPost, path, "", participant("alice"))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusCreated)

	var response v1.ParticipantResponse
	test.DecodeResponse(suite.T(), &r, &response)
	suite.Assert().Equal("alice", response.Data.ParticipantID)
	suite.Assert().Equal(s.ID.String(), response.Data.SessionID)

	r = suite.request(http.MethodPost, path, "", participant("alice"))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusConflict)

	suite.fire(s, "close")
	r = suite.request(http.MethodPost, path, "", participant("bob"))
	test.AssertHTTPStatus(suite.T(), &r, http.StatusConflict)
}

func (suite *TestSuiteStandard) TestOptions() {
	s := suite.createSession(budgetSession("Budget"))
	id := s.ID.String()

	tests := []struct {
		path     string
		expected string
	}{
		{"/v1", "OPTIONS, GET"},
		{"/v1/sessions", "OPTIONS, GET, POST"},
		{"/v1/sessions/" + id, "OPTIONS, GET"},
		{"/v1/sessions/" + id + "/activate", "OPTIONS, POST"},
		{"/v1/sessions/" + id + "/phase2", "OPTIONS, POST"},
		{"/v1/sessions/" + id + "/close", "OPTIONS, POST"},
		{"/v1/sessions/" + id + "/participants", "OPTIONS, POST"},
		{"/v1/sessions/" + id + "/votes/me", "OPTIONS, GET"},
		{"/v1/sessions/" + id + "/result", "OPTIONS, GET"},
		{"/v1/sessions/" + id + "/result/recompute", "OPTIONS, POST"},
		{"/v1/sessions/" + id + "/proposals", "OPTIONS, GET, POST"},
		{"/v1/sessions/" + id + "/ballots", "OPTIONS, POST"},
		{"/v1/votes", "OPTIONS, POST"},
		{"/v1/termination", "OPTIONS, POST"},
	}

	for _, tt := range tests {
		suite.T().Run(strings.TrimPrefix(tt.path, "/v1"), func(t *testing.T) {
			r := suite.request(http.MethodOptions, tt.path, "")
			test.AssertHTTPStatus(t, &r, http.StatusNoContent)
			assert.Equal(t, tt.expected, r.Header().Get("allow"))
		})
	}
}

func (suite *TestSuiteStandard) TestOptionsSessionNotFound() {
	r := suite.request(http.MethodOptions, "/v1/sessions/"+uuid.New().String(), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)
}
