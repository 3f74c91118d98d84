package budget

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrEmptyVoteSet = errors.New("a result can only be computed from at least one vote")

// SubcategoryMedian is the median of a subcategory.
type SubcategoryMedian struct {
	SubcategoryID        string          `json:"subcategoryId" example:"public-transport"`
	SubcategoryName      string          `json:"subcategoryName" example:"Public transport"`
	MedianAmount         decimal.Decimal `json:"medianAmount" example:"110"`
	PercentageOfCategory decimal.Decimal `json:"percentageOfCategory" example:"48.8888888888888889"`
}

// CategoryMedian is the aggregated, balanced amount of an expense category.
type CategoryMedian struct {
	CategoryID        string              `json:"categoryId" example:"mobility"`
	CategoryName      string              `json:"categoryName" example:"Mobility"`
	RawMedianAmount   decimal.Decimal     `json:"rawMedianAmount" example:"225"`     // Median before balancing
	MedianAmount      decimal.Decimal     `json:"medianAmount" example:"281.25"`     // Balanced amount
	PercentageOfTotal decimal.Decimal     `json:"percentageOfTotal" example:"56.25"` // Share of the total median expenses
	SubAllocations    []SubcategoryMedian `json:"subAllocations"`
}

// IncomeMedian is the aggregated amount of an income category.
type IncomeMedian struct {
	CategoryID           string           `json:"categoryId" example:"income-tax"`
	CategoryName         string           `json:"categoryName" example:"Income tax"`
	MedianAmount         decimal.Decimal  `json:"medianAmount" example:"500"`
	MedianTaxRatePercent *decimal.Decimal `json:"medianTaxRatePercent,omitempty" example:"21"`
}

// Result is the collective budget of a session.
type Result struct {
	MedianAllocations       []CategoryMedian `json:"medianAllocations"`
	MedianIncomeAllocations []IncomeMedian   `json:"medianIncomeAllocations"`
	TotalMedianExpenses     decimal.Decimal  `json:"totalMedianExpenses" example:"400"`
	TotalMedianIncome       decimal.Decimal  `json:"totalMedianIncome" example:"500"`
	BalancedExpenses        decimal.Decimal  `json:"balancedExpenses" example:"500"`
	VoterCount              int              `json:"voterCount" example:"2"`
}

// Aggregate computes the median budget for a set of votes.
//
// Every category and income category is aggregated independently as the
// median over all votes. As the sum of medians is in general not equal
// to the median of sums, the expense medians are scaled afterwards so that
// the total expenses equal the total median income while every category
// keeps its share.
func Aggregate(votes []Vote, d Definition) (Result, error) {
	if len(votes) == 0 {
		return Result{}, ErrEmptyVoteSet
	}

	income, totalIncome := aggregateIncome(votes, d.IncomeCategories)

	tree := NewTree(d.Categories)
	indexed := make([]amounts, 0, len(votes))
	for _, v := range votes {
		indexed = append(indexed, tree.index(v))
	}

	categories := make([]CategoryMedian, 0, len(tree.Roots))
	totalExpenses := decimal.Zero
	for _, n := range tree.Roots {
		median := n.median(indexed)
		totalExpenses = totalExpenses.Add(median)

		subs := make([]SubcategoryMedian, 0, len(n.Children))
		for _, child := range n.Children {
			subMedian := child.median(indexed)
			subs = append(subs, SubcategoryMedian{
				SubcategoryID:        child.ID,
				SubcategoryName:      child.Name,
				MedianAmount:         subMedian,
				PercentageOfCategory: percentage(subMedian, median),
			})
		}

		categories = append(categories, CategoryMedian{
			CategoryID:      n.ID,
			CategoryName:    n.Name,
			RawMedianAmount: median,
			SubAllocations:  subs,
		})
	}

	balanced := totalIncome
	for i := range categories {
		categories[i].PercentageOfTotal = percentage(categories[i].RawMedianAmount, totalExpenses)
		categories[i].MedianAmount = rebalance(categories[i].RawMedianAmount, totalExpenses, balanced)
	}

	return Result{
		MedianAllocations:       categories,
		MedianIncomeAllocations: income,
		TotalMedianExpenses:     totalExpenses,
		TotalMedianIncome:       totalIncome,
		BalancedExpenses:        balanced,
		VoterCount:              len(votes),
	}, nil
}

// rebalance scales a category median to its share of the balanced total.
//
// This is percentageOfTotal / 100 * balanced, multiplied out before the
// division to not lose precision on the rounded percentage.
func rebalance(median, total, balanced decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return median.Mul(balanced).DivRound(total, precision)
}

func aggregateIncome(votes []Vote, categories []IncomeCategory) ([]IncomeMedian, decimal.Decimal) {
	medians := make([]IncomeMedian, 0, len(categories))
	total := decimal.Zero

	for _, c := range categories {
		values := make([]decimal.Decimal, 0, len(votes))
		var rates []decimal.Decimal

		for _, v := range votes {
			amount := decimal.Zero
			rated := false
			for _, a := range v.IncomeAllocations {
				if a.CategoryID != c.ID {
					continue
				}

				amount = amount.Add(a.Amount)

				// Votes without a tax rate are excluded from the
				// sample instead of counting as zero. Each vote
				// contributes at most one rate.
				if c.IsTaxRate && a.TaxRatePercent != nil && !rated {
					rates = append(rates, *a.TaxRatePercent)
					rated = true
				}
			}
			values = append(values, amount)
		}

		m := IncomeMedian{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			MedianAmount: Median(values),
		}

		if c.IsTaxRate && len(rates) > 0 {
			rate := Median(rates)
			m.MedianTaxRatePercent = &rate
		}

		total = total.Add(m.MedianAmount)
		medians = append(medians, m)
	}

	return medians, total
}
