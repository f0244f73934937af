package core

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID Optional[string]
	Name       string
	Amount     decimal.Decimal
}

// SumByCategory totals expenses per category, largest first. Expenses
// without a category are reported under an empty name.
func SumByCategory(expenses []Expense, categories []Category) []CategoryAmount {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name.OrElse("")
	}

	idx := map[string]int{}
	var out []CategoryAmount
	for _, e := range expenses {
		key := e.CategoryID.OrElse("")
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, CategoryAmount{CategoryID: e.CategoryID, Name: names[key], Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}

	slices.SortStableFunc(out, func(a, b CategoryAmount) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
