package models_test

import (
	"testing"

	"github.com/medianbudget/backend/internal/budget"
	"github.com/medianbudget/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestSessionDefaults() {
	s := suite.createTestSession(models.Session{Currency: " eur "})

	suite.Assert().Equal(models.StatusDraft, s.Status)
	suite.Assert().Equal(models.Phase1, s.Phase)
	suite.Assert().Equal(models.KindBudget, s.Kind)
	suite.Assert().Equal("EUR", s.Currency)
	suite.Assert().Equal(uint64(0), s.Revision)

	var stored models.Session
	suite.Require().Nil(suite.db.First(&stored, s.ID).Error)
	suite.Assert().Len(stored.Categories, 2)
	suite.Assert().True(stored.Categories[0].MinAmount.Equal(decimal.NewFromInt(100)))
	suite.Assert().Equal("hospitals", stored.Categories[0].Subcategories[0].ID)
}

func (suite *TestSuiteStandard) TestSessionValidation() {
	tests := []struct {
		name    string
		session models.Session
		err     error
	}{
		{"No name", models.Session{Name: "  ", Categories: categories()}, models.ErrSessionNameEmpty},
		{"Bad currency", models.Session{Name: "a", Currency: "EURO", Categories: categories()}, models.ErrSessionCurrency},
		{"Bad kind", models.Session{Name: "a", Kind: "poll"}, models.ErrSessionKindInvalid},
		{"No categories", models.Session{Name: "a"}, models.ErrSessionNoCategories},
		{"Minimum above default", models.Session{Name: "a", Categories: []budget.Category{
			{ID: "x", Name: "X", DefaultAmount: decimal.NewFromInt(10), MinAmount: decimal.NewFromInt(11)},
		}}, budget.ErrMinAboveDefault},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			err := suite.db.Create(&tt.session).Error
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func (suite *TestSuiteStandard) TestSessionProposalWithoutCategories() {
	s := suite.createTestSession(models.Session{Kind: models.KindProposal})
	suite.Assert().Equal(models.KindProposal, s.Kind)
	suite.Assert().Empty(s.Categories)
}

// TestSessionMapUpdate verifies that updates through a map are not
// rejected by the hooks, which then run on an empty struct.
func (suite *TestSuiteStandard) TestSessionMapUpdate() {
	s := suite.createTestSession(models.Session{})

	err := suite.db.Model(&models.Session{}).Where("id = ?", s.ID).Updates(map[string]any{
		"status":   models.StatusActive,
		"revision": 1,
	}).Error
	suite.Require().Nil(err)

	var stored models.Session
	suite.Require().Nil(suite.db.First(&stored, s.ID).Error)
	suite.Assert().Equal(models.StatusActive, stored.Status)
	suite.Assert().Equal(uint64(1), stored.Revision)
}

func (suite *TestSuiteStandard) TestSessionNotFound() {
	var s models.Session
	err := suite.db.First(&s, "id = ?", "1b0c6a6e-8d0f-4c39-9e0c-3ad0a1f1f0a4").Error
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
	suite.Assert().Contains(err.Error(), "there is no session matching your query")
}

func (suite *TestSuiteStandard) TestSessionDatabaseClosed() {
	suite.CloseDB()

	err := suite.db.Create(&models.Session{Name: "a", Categories: categories()}).Error
	suite.Assert().ErrorIs(err, models.ErrGeneral)
}
