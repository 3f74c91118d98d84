package budget

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorKind classifies a validation error.
type ErrorKind string

const (
	CategoryNotFound        ErrorKind = "CategoryNotFound"
	BelowMinimum            ErrorKind = "BelowMinimum"
	SubcategoryNotFound     ErrorKind = "SubcategoryNotFound"
	SubcategoryBelowMinimum ErrorKind = "SubcategoryBelowMinimum"
	IncomeCategoryNotFound  ErrorKind = "IncomeCategoryNotFound"
	TaxRateOutOfRange       ErrorKind = "TaxRateOutOfRange"
	DuplicateAllocation     ErrorKind = "DuplicateAllocation"
)

// ValidationError describes one problem with a submitted vote.
type ValidationError struct {
	Kind            ErrorKind        `json:"kind" example:"BelowMinimum"`
	CategoryID      string           `json:"categoryId" example:"mobility"`
	CategoryName    string           `json:"categoryName,omitempty" example:"Mobility"`
	SubcategoryID   string           `json:"subcategoryId,omitempty" example:"public-transport"`
	SubcategoryName string           `json:"subcategoryName,omitempty" example:"Public transport"`
	Amount          decimal.Decimal  `json:"amount" example:"99"`
	Minimum         *decimal.Decimal `json:"minimum,omitempty" example:"100"`
}

func (e ValidationError) Error() string {
	switch e.Kind {
	case CategoryNotFound:
		return fmt.Sprintf("there is no category %q", e.CategoryID)
	case BelowMinimum:
		return fmt.Sprintf("the amount %s for %s is below the minimum of %s", e.Amount, e.CategoryName, e.Minimum)
	case SubcategoryNotFound:
		return fmt.Sprintf("there is no subcategory %q in %s", e.SubcategoryID, e.CategoryName)
	case SubcategoryBelowMinimum:
		return fmt.Sprintf("the amount %s for %s is below the minimum of %s", e.Amount, e.SubcategoryName, e.Minimum)
	case IncomeCategoryNotFound:
		return fmt.Sprintf("there is no income category %q", e.CategoryID)
	case TaxRateOutOfRange:
		return fmt.Sprintf("the tax rate %s for %s must be between 0 and 100", e.Amount, e.CategoryName)
	case DuplicateAllocation:
		if e.SubcategoryID != "" {
			return fmt.Sprintf("the subcategory %q of %q has more than one allocation", e.SubcategoryID, e.CategoryID)
		}
		return fmt.Sprintf("the category %q has more than one allocation", e.CategoryID)
	}

	return string(e.Kind)
}

// ValidationResult is the outcome of validating a vote.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
}

// Validate checks a vote against the definition of its session.
//
// All allocations are checked and every problem is reported, the function
// never stops at the first error. The vote is not modified.
func Validate(v Vote, d Definition) ValidationResult {
	tree := NewTree(d.Categories)
	errs := []ValidationError{}

	seen := make(map[string]bool, len(v.Allocations))
	for _, a := range v.Allocations {
		if seen[a.CategoryID] {
			errs = append(errs, duplicate(a.CategoryID, "", a.Amount))
			continue
		}
		seen[a.CategoryID] = true

		category, ok := tree.Category(a.CategoryID)
		if !ok {
			errs = append(errs, ValidationError{
				Kind:       CategoryNotFound,
				CategoryID: a.CategoryID,
				Amount:     a.Amount,
			})
			continue
		}

		if a.Amount.LessThan(category.MinAmount) {
			errs = append(errs, ValidationError{
				Kind:         BelowMinimum,
				CategoryID:   category.ID,
				CategoryName: category.Name,
				Amount:       a.Amount,
				Minimum:      minimum(category),
			})
		}

		seenSub := make(map[string]bool, len(a.SubAllocations))
		for _, s := range a.SubAllocations {
			if seenSub[s.SubcategoryID] {
				errs = append(errs, duplicate(category.ID, s.SubcategoryID, s.Amount))
				continue
			}
			seenSub[s.SubcategoryID] = true

			sub, ok := category.Child(s.SubcategoryID)
			if !ok {
				errs = append(errs, ValidationError{
					Kind:          SubcategoryNotFound,
					CategoryID:    category.ID,
					CategoryName:  category.Name,
					SubcategoryID: s.SubcategoryID,
					Amount:        s.Amount,
				})
				continue
			}

			if s.Amount.LessThan(sub.MinAmount) {
				errs = append(errs, ValidationError{
					Kind:            SubcategoryBelowMinimum,
					CategoryID:      category.ID,
					CategoryName:    category.Name,
					SubcategoryID:   sub.ID,
					SubcategoryName: sub.Name,
					Amount:          s.Amount,
					Minimum:         minimum(sub),
				})
			}
		}
	}

	income := make(map[string]IncomeCategory, len(d.IncomeCategories))
	for _, c := range d.IncomeCategories {
		income[c.ID] = c
	}

	seenIncome := make(map[string]bool, len(v.IncomeAllocations))
	for _, a := range v.IncomeAllocations {
		if seenIncome[a.CategoryID] {
			errs = append(errs, duplicate(a.CategoryID, "", a.Amount))
			continue
		}
		seenIncome[a.CategoryID] = true

		category, ok := income[a.CategoryID]
		if !ok {
			errs = append(errs, ValidationError{
				Kind:       IncomeCategoryNotFound,
				CategoryID: a.CategoryID,
				Amount:     a.Amount,
			})
			continue
		}

		if a.TaxRatePercent != nil && !inPercentRange(*a.TaxRatePercent) {
			errs = append(errs, ValidationError{
				Kind:         TaxRateOutOfRange,
				CategoryID:   category.ID,
				CategoryName: category.Name,
				Amount:       *a.TaxRatePercent,
			})
		}
	}

	return ValidationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}

func duplicate(categoryID, subcategoryID string, amount decimal.Decimal) ValidationError {
	return ValidationError{
		Kind:          DuplicateAllocation,
		CategoryID:    categoryID,
		SubcategoryID: subcategoryID,
		Amount:        amount,
	}
}

func minimum(n *Node) *decimal.Decimal {
	m := n.MinAmount
	return &m
}
