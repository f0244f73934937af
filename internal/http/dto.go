package http

import (
	"time"

	"gastos/internal/core"
	"gastos/internal/home"
	"gastos/internal/services"
)

// Amounts travel as decimal strings so that no precision is lost.
type (
	ExpenseView struct {
		ID         string                `json:"id"`
		Title      core.Optional[string] `json:"title"`
		Amount     string                `json:"amount"`
		Date       *time.Time            `json:"date"`
		CategoryID core.Optional[string] `json:"category_id"`
		AccountID  core.Optional[string] `json:"account_id"`
		TagIDs     []string              `json:"tag_ids"`
	}

	NamedView struct {
		ID   string                `json:"id"`
		Name core.Optional[string] `json:"name"`
	}

	SectionView struct {
		Date     string        `json:"date"`
		Label    string        `json:"label"`
		Total    string        `json:"total"`
		Expenses []ExpenseView `json:"expenses"`
	}

	ProjectionView struct {
		Month      string        `json:"month"`
		SearchTerm string        `json:"search_term"`
		Total      string        `json:"total"`
		Count      int           `json:"count"`
		Sections   []SectionView `json:"sections"`
	}

	CatalogView struct {
		Categories []NamedView `json:"categories"`
		Tags       []NamedView `json:"tags"`
		Accounts   []NamedView `json:"accounts"`
	}

	HomeStateView struct {
		SearchTerm string         `json:"search_term"`
		Month      string         `json:"month"`
		Projection ProjectionView `json:"projection"`
		Catalog    CatalogView    `json:"catalog"`
	}
)

func newExpenseView(e core.Expense) ExpenseView {
	tags := e.TagIDs
	if tags == nil {
		tags = []string{}
	}
	return ExpenseView{
		ID:         e.ID,
		Title:      e.Title,
		Amount:     e.Amount.String(),
		Date:       e.Date.Ptr(),
		CategoryID: e.CategoryID,
		AccountID:  e.AccountID,
		TagIDs:     tags,
	}
}

func newNamedViews[T core.Named](items []T) []NamedView {
	out := make([]NamedView, 0, len(items))
	for _, it := range items {
		out = append(out, newNamedView(it))
	}
	return out
}

func newNamedView[T core.Named](it T) NamedView {
	c := core.Category(it)
	return NamedView{ID: c.ID, Name: c.Name}
}

func newProjectionView(p home.Projection) ProjectionView {
	view := ProjectionView{
		Month:      p.Month.String(),
		SearchTerm: p.SearchTerm,
		Total:      p.Total.String(),
		Count:      p.Count,
		Sections:   make([]SectionView, 0, len(p.Sections)),
	}
	for _, s := range p.Sections {
		sv := SectionView{
			Date:     s.Day.String(),
			Label:    s.Label,
			Total:    s.Total.String(),
			Expenses: make([]ExpenseView, 0, len(s.Expenses)),
		}
		for _, e := range s.Expenses {
			sv.Expenses = append(sv.Expenses, newExpenseView(e))
		}
		view.Sections = append(view.Sections, sv)
	}
	return view
}

func newHomeStateView(st services.HomeState, p home.Projection, c home.Catalog) HomeStateView {
	return HomeStateView{
		SearchTerm: st.SearchTerm,
		Month:      st.Month.String(),
		Projection: newProjectionView(p),
		Catalog: CatalogView{
			Categories: newNamedViews(c.Categories),
			Tags:       newNamedViews(c.Tags),
			Accounts:   newNamedViews(c.Accounts),
		},
	}
}
