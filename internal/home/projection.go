// Package home derives the home screen from the raw expense collection:
// expenses of the selected month whose title matches the search term,
// grouped into day sections, most recent day first, with a running total.
package home

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

type (
	// Section groups the matched expenses of one calendar day. Expenses keep
	// the order in which they appeared in the raw collection.
	Section struct {
		Day      core.Day
		Date     time.Time // midnight of Day
		Label    string
		Expenses []core.Expense
		Total    decimal.Decimal
	}

	// Projection is the complete derived state. It is rebuilt from scratch on
	// every change and never patched.
	Projection struct {
		Month      core.Month
		SearchTerm string
		Sections   []Section
		Total      decimal.Decimal
		Count      int
	}

	// Input is everything Compute depends on.
	Input struct {
		Expenses   []core.Expense
		SearchTerm string
		Month      core.Month
		Now        time.Time
		Location   *time.Location
		Policy     DatePolicy
		Labeler    Labeler
	}
)

// Expenses flattens the sections in display order.
func (p Projection) Expenses() []core.Expense {
	out := make([]core.Expense, 0, p.Count)
	for _, s := range p.Sections {
		out = append(out, s.Expenses...)
	}
	return out
}

// Empty reports whether nothing matched.
func (p Projection) Empty() bool {
	return len(p.Sections) == 0
}

// Matches reports whether the title filter keeps e. The match is a
// case-sensitive substring test; the empty term keeps everything.
func Matches(e core.Expense, term string) bool {
	return term == "" || strings.Contains(e.TitleOrEmpty(), term)
}

// Compute builds the projection for in. It is pure: the same input always
// yields the same projection.
func Compute(in Input) Projection {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}
	policy := in.Policy
	if policy == nil {
		policy = NowPolicy{}
	}
	labeler := in.Labeler
	if labeler == nil {
		labeler = LayoutLabeler{}
	}

	p := Projection{
		Month:      in.Month,
		SearchTerm: in.SearchTerm,
		Total:      decimal.Zero,
	}

	index := map[core.Day]int{}
	for _, e := range in.Expenses {
		at, ok := policy.Resolve(e, in.Now)
		if !ok {
			continue
		}
		day := core.DayOf(at.In(loc))
		if !in.Month.ContainsDay(day) || !Matches(e, in.SearchTerm) {
			continue
		}

		i, seen := index[day]
		if !seen {
			i = len(p.Sections)
			index[day] = i
			p.Sections = append(p.Sections, Section{
				Day:   day,
				Date:  day.Midnight(loc),
				Label: labeler.Label(day),
				Total: decimal.Zero,
			})
		}
		s := &p.Sections[i]
		s.Expenses = append(s.Expenses, e)
		s.Total = s.Total.Add(e.Amount)
		p.Total = p.Total.Add(e.Amount)
		p.Count++
	}

	slices.SortFunc(p.Sections, func(a, b Section) int {
		return b.Day.Compare(a.Day)
	})
	return p
}
