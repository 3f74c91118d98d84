package models

import (
	"github.com/google/uuid"
	"github.com/medianbudget/backend/internal/budget"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Result is the median budget of a closed session. Every session has at
// most one.
//
// Totals are stored as text so that they keep the precision of the
// amounts in the JSON columns on every database.
type Result struct {
	DefaultModel
	SessionID               uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex"`
	Session                 Session                 `json:"-"`
	MedianAllocations       []budget.CategoryMedian `gorm:"serializer:json"`
	MedianIncomeAllocations []budget.IncomeMedian   `gorm:"serializer:json"`
	TotalMedianExpenses     decimal.Decimal         `gorm:"type:text"`
	TotalMedianIncome       decimal.Decimal         `gorm:"type:text"`
	BalancedExpenses        decimal.Decimal         `gorm:"type:text"`
	VoterCount              int
}

func NewResult(sessionID uuid.UUID, r budget.Result) Result {
	return Result{
		SessionID:               sessionID,
		MedianAllocations:       r.MedianAllocations,
		MedianIncomeAllocations: r.MedianIncomeAllocations,
		TotalMedianExpenses:     r.TotalMedianExpenses,
		TotalMedianIncome:       r.TotalMedianIncome,
		BalancedExpenses:        r.BalancedExpenses,
		VoterCount:              r.VoterCount,
	}
}

// StoreResult inserts the result unless the session already has one and
// returns the stored result. Concurrent callers all get the same row.
func StoreResult(db *gorm.DB, result Result) (Result, error) {
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(&result).Error
	if err != nil {
		return Result{}, err
	}

	return FindResult(db, result.SessionID)
}

// FindResult returns the result of a session.
func FindResult(db *gorm.DB, sessionID uuid.UUID) (Result, error) {
	var result Result
	err := db.Where(&Result{SessionID: sessionID}).First(&result).Error
	return result, err
}
