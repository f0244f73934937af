package home

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestEngine() *Engine {
	return NewEngine(
		WithLocation(time.UTC),
		WithClock(fixedClock(time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC))),
	)
}

func TestEngineDefaults(t *testing.T) {
	e := newTestEngine()
	assert.Equal(t, march2024, e.SelectedMonth())
	assert.Equal(t, "", e.SearchTerm())
	assert.True(t, e.Projection().Empty())
	assert.True(t, e.Projection().Total.IsZero())
}

func TestEngineRecomputesOnEveryMutation(t *testing.T) {
	e := newTestEngine()
	var got []Projection
	cancel := e.Subscribe(func(p Projection) { got = append(got, p) })

	e.Refresh(Snapshot{Expenses: []core.Expense{
		expense("coffee", "Coffee", "3.5", 2024, time.March, 5),
		expense("beans", "Coffee Beans", "12", 2024, time.March, 5),
		expense("rent", "Rent", "900", 2024, time.March, 1),
		expense("feb", "Coffee", "2", 2024, time.February, 28),
	}})
	require.Len(t, got, 1)
	assert.True(t, e.Projection().Total.Equal(decimal.RequireFromString("915.5")))

	e.SetSearchTerm("Coffee")
	assert.True(t, e.Projection().Total.Equal(decimal.RequireFromString("15.5")))
	assert.Equal(t, "Coffee", e.Projection().SearchTerm)

	e.SetSelectedMonth(time.Date(2024, 2, 14, 18, 0, 0, 0, time.UTC))
	assert.Equal(t, core.Month{Year: 2024, Month: time.February}, e.SelectedMonth())
	assert.True(t, e.Projection().Total.Equal(decimal.NewFromInt(2)))

	e.ClearSearchTerm()
	assert.Equal(t, "", e.SearchTerm())
	require.Len(t, got, 4)

	cancel()
	e.SetSearchTerm("x")
	assert.Len(t, got, 4)
}

func TestEngineNotifiesInRegistrationOrder(t *testing.T) {
	e := newTestEngine()
	var order []string
	subscribe := func(name string) func() {
		return e.Subscribe(func(Projection) { order = append(order, name) })
	}
	subscribe("first")
	cancelSecond := subscribe("second")
	subscribe("third")

	for range 5 {
		order = order[:0]
		e.SetSearchTerm("x")
		assert.Equal(t, []string{"first", "second", "third"}, order)
	}

	cancelSecond()
	cancelSecond()
	subscribe("fourth")
	order = order[:0]
	e.ClearSearchTerm()
	assert.Equal(t, []string{"first", "third", "fourth"}, order)
}

func TestEngineRefreshReplacesWholesale(t *testing.T) {
	e := newTestEngine()
	e.Refresh(Snapshot{Expenses: []core.Expense{expense("a", "a", "1", 2024, time.March, 1)}})
	e.Refresh(Snapshot{Expenses: []core.Expense{expense("b", "b", "2", 2024, time.March, 2)}})
	assert.Equal(t, []string{"b"}, ids(e.Projection().Expenses()))

	_, ok := e.Expense("a")
	assert.False(t, ok)
	got, ok := e.Expense("b")
	require.True(t, ok)
	assert.Equal(t, "b", got.TitleOrEmpty())

	e.Refresh(Snapshot{})
	assert.True(t, e.Projection().Empty())
	assert.True(t, e.Projection().Total.IsZero())
}

func TestEngineRefreshKeepsSearchTermAndMonth(t *testing.T) {
	e := newTestEngine()
	e.SetSearchTerm("Rent")
	e.SetSelectedMonth(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	e.Refresh(Snapshot{Expenses: []core.Expense{
		expense("r", "Rent", "900", 2024, time.January, 1),
		expense("c", "Coffee", "3", 2024, time.January, 1),
	}})
	assert.Equal(t, []string{"r"}, ids(e.Projection().Expenses()))
}

func TestEngineSelectedMonthFallback(t *testing.T) {
	e := newTestEngine()
	e.SetSelectedMonth(time.Date(2023, 7, 31, 23, 0, 0, 0, time.UTC))
	want := core.Month{Year: 2023, Month: time.July}
	require.Equal(t, want, e.SelectedMonth())

	e.SetSelectedMonth(time.Time{})
	assert.Equal(t, want, e.SelectedMonth())

	e.SetSelectedMonth(time.Date(12000, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, want, e.SelectedMonth())
}

func TestEngineMonthPicker(t *testing.T) {
	e := newTestEngine()
	e.ShiftSelectedMonth(1, 0)
	assert.Equal(t, core.Month{Year: 2025, Month: time.March}, e.SelectedMonth())
	e.ShiftSelectedMonth(-2, 0)
	assert.Equal(t, core.Month{Year: 2023, Month: time.March}, e.SelectedMonth())
	e.SelectMonth(time.November)
	assert.Equal(t, core.Month{Year: 2023, Month: time.November}, e.SelectedMonth())
	e.ShiftSelectedMonth(0, 2)
	assert.Equal(t, core.Month{Year: 2024, Month: time.January}, e.SelectedMonth())
	e.SelectMonth(13)
	assert.Equal(t, core.Month{Year: 2024, Month: time.January}, e.SelectedMonth())
}

func TestEngineIdempotentProjection(t *testing.T) {
	e := newTestEngine()
	e.Refresh(Snapshot{Expenses: []core.Expense{
		expense("a", "a", "1", 2024, time.March, 1),
		{ID: "undated", Amount: decimal.NewFromInt(3)},
	}})
	first := e.Projection()
	assert.Equal(t, first, Compute(e.Input(time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC))))
	assert.Equal(t, first, e.Projection())
}

func TestEngineCatalogPassthrough(t *testing.T) {
	e := newTestEngine()
	cats := []core.Category{{ID: "c", Name: core.Some("Food")}}
	tags := []core.Tag{{ID: "t", Name: core.Some("work")}}
	e.Refresh(Snapshot{Categories: cats, Tags: tags})
	assert.Equal(t, cats, e.Catalog().Categories)
	assert.Equal(t, tags, e.Catalog().Tags)
	assert.Empty(t, e.Catalog().Accounts)
}
