package budget

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrMinAboveDefault  = errors.New("the minimum amount must not exceed the default amount")
	ErrDuplicateID      = errors.New("ids must be unique")
	ErrEmptyID          = errors.New("ids must not be empty")
	ErrNegativeAmount   = errors.New("amounts must not be negative")
	ErrPercentageBounds = errors.New("percentages must be between 0 and 100")
)

// Subcategory is a line item inside a Category.
type Subcategory struct {
	ID        string          `json:"id" example:"public-transport"`
	Name      string          `json:"name" example:"Public transport"`
	MinAmount decimal.Decimal `json:"minAmount" example:"0"`
}

// Category is an expense category of a session. Subcategories are ordered.
type Category struct {
	ID              string           `json:"id" example:"mobility"`
	Name            string           `json:"name" example:"Mobility"`
	DefaultAmount   decimal.Decimal  `json:"defaultAmount" example:"300"`
	MinAmount       decimal.Decimal  `json:"minAmount" example:"100"`
	IsFixed         bool             `json:"isFixed" example:"false"`
	FixedPercentage *decimal.Decimal `json:"fixedPercentage,omitempty" example:"12.5"`
	Subcategories   []Subcategory    `json:"subcategories"`
}

// IncomeCategory is a source of income. Tax rate categories additionally
// carry a percentage that participants vote on.
type IncomeCategory struct {
	ID             string           `json:"id" example:"income-tax"`
	Name           string           `json:"name" example:"Income tax"`
	Amount         decimal.Decimal  `json:"amount" example:"500"`
	IsTaxRate      bool             `json:"isTaxRate" example:"true"`
	TaxRatePercent *decimal.Decimal `json:"taxRatePercent,omitempty" example:"21"`
}

// Definition is the complete set of categories a session votes on.
type Definition struct {
	Categories       []Category       `json:"categories"`
	IncomeCategories []IncomeCategory `json:"incomeCategories"`
}

// Check verifies the structural invariants of the definition.
func (d Definition) Check() error {
	seen := map[string]bool{}
	for _, c := range d.Categories {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("category %q: %w", c.Name, ErrEmptyID)
		}

		if seen[c.ID] {
			return fmt.Errorf("category %q: %w", c.ID, ErrDuplicateID)
		}
		seen[c.ID] = true

		if c.MinAmount.IsNegative() {
			return fmt.Errorf("category %q: %w", c.ID, ErrNegativeAmount)
		}

		if c.MinAmount.GreaterThan(c.DefaultAmount) {
			return fmt.Errorf("category %q: %w", c.ID, ErrMinAboveDefault)
		}

		if c.FixedPercentage != nil && !inPercentRange(*c.FixedPercentage) {
			return fmt.Errorf("category %q: %w", c.ID, ErrPercentageBounds)
		}

		subs := map[string]bool{}
		for _, s := range c.Subcategories {
			if strings.TrimSpace(s.ID) == "" {
				return fmt.Errorf("subcategory %q of %q: %w", s.Name, c.ID, ErrEmptyID)
			}
			if subs[s.ID] {
				return fmt.Errorf("subcategory %q of %q: %w", s.ID, c.ID, ErrDuplicateID)
			}
			subs[s.ID] = true
		}
	}

	income := map[string]bool{}
	for _, c := range d.IncomeCategories {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("income category %q: %w", c.Name, ErrEmptyID)
		}
		if income[c.ID] {
			return fmt.Errorf("income category %q: %w", c.ID, ErrDuplicateID)
		}
		income[c.ID] = true

		if c.TaxRatePercent != nil && !inPercentRange(*c.TaxRatePercent) {
			return fmt.Errorf("income category %q: %w", c.ID, ErrPercentageBounds)
		}
	}

	return nil
}

// SubAllocation is the amount a participant assigns to a subcategory.
type SubAllocation struct {
	SubcategoryID string          `json:"subcategoryId" example:"public-transport"`
	Amount        decimal.Decimal `json:"amount" example:"120"`
}

// Allocation is the amount a participant assigns to a category.
type Allocation struct {
	CategoryID     string          `json:"categoryId" example:"mobility"`
	Amount         decimal.Decimal `json:"amount" example:"250"`
	SubAllocations []SubAllocation `json:"subAllocations"`
}

// IncomeAllocation is the amount, and optionally the tax rate, a participant
// assigns to an income category.
type IncomeAllocation struct {
	CategoryID     string           `json:"categoryId" example:"income-tax"`
	Amount         decimal.Decimal  `json:"amount" example:"500"`
	TaxRatePercent *decimal.Decimal `json:"taxRatePercent,omitempty" example:"21"`
}

// Vote is one participant's complete budget.
type Vote struct {
	Allocations       []Allocation       `json:"allocations"`
	IncomeAllocations []IncomeAllocation `json:"incomeAllocations"`
}

// TotalExpenses is the sum of all category allocations.
func (v Vote) TotalExpenses() decimal.Decimal {
	total := decimal.Zero
	for _, a := range v.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// TotalIncome is the sum of all income allocations.
func (v Vote) TotalIncome() decimal.Decimal {
	total := decimal.Zero
	for _, a := range v.IncomeAllocations {
		total = total.Add(a.Amount)
	}
	return total
}

func inPercentRange(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(hundred)
}
