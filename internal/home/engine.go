package home

import (
	"log/slog"
	"slices"
	"time"

	"gastos/internal/core"
)

// Snapshot is a full read of the repository. Catalog collections are kept
// for display only and take no part in aggregation.
type Snapshot struct {
	Expenses   []core.Expense
	Categories []core.Category
	Tags       []core.Tag
	Accounts   []core.Account
}

// Catalog is the passthrough part of a snapshot.
type Catalog struct {
	Categories []core.Category
	Tags       []core.Tag
	Accounts   []core.Account
}

// Engine holds the home screen state and recomputes the projection after
// every mutation. It is not safe for concurrent use.
type Engine struct {
	raw        []core.Expense
	catalog    Catalog
	term       string
	month      core.Month
	projection Projection

	loc     *time.Location
	clock   func() time.Time
	policy  DatePolicy
	labeler Labeler
	logger  *slog.Logger

	// Cancelled subscribers leave a nil slot so that indexes stay valid.
	subscribers []func(Projection)
}

// Option configures an Engine.
type Option func(*Engine)

func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

func WithDatePolicy(p DatePolicy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

func WithLabeler(l Labeler) Option {
	return func(e *Engine) {
		if l != nil {
			e.labeler = l
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine returns an engine showing the current month with no search term
// and no expenses.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		loc:     time.Local,
		clock:   time.Now,
		policy:  NowPolicy{},
		labeler: LayoutLabeler{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.month = core.MonthOf(e.clock().In(e.loc))
	e.recompute()
	return e
}

// Refresh replaces the raw collection and the catalog wholesale.
func (e *Engine) Refresh(s Snapshot) {
	e.raw = s.Expenses
	e.catalog = Catalog{Categories: s.Categories, Tags: s.Tags, Accounts: s.Accounts}
	e.recompute()
}

// SetSearchTerm filters titles by term as given: no trimming, no case folding.
func (e *Engine) SetSearchTerm(term string) {
	e.term = term
	e.recompute()
}

func (e *Engine) ClearSearchTerm() {
	e.SetSearchTerm("")
}

// SetSelectedMonth selects the month containing date. A date that cannot be
// normalized keeps the current selection.
func (e *Engine) SetSelectedMonth(date time.Time) {
	m, ok := core.NormalizeMonth(date.In(e.loc))
	if !ok {
		e.logger.Debug("Ignoring unusable month selection", "date", date)
		m = e.month
	}
	e.month = m
	e.recompute()
}

// ShiftSelectedMonth moves the selection by whole years and months.
func (e *Engine) ShiftSelectedMonth(years, months int) {
	e.SetSelectedMonth(e.month.AddDate(years, months).First(e.loc))
}

// SelectMonth keeps the selected year and switches to month.
func (e *Engine) SelectMonth(month time.Month) {
	if month < time.January || month > time.December {
		e.logger.Debug("Ignoring invalid month", "month", int(month))
		return
	}
	e.SetSelectedMonth(e.month.WithMonth(month).First(e.loc))
}

func (e *Engine) SearchTerm() string        { return e.term }
func (e *Engine) SelectedMonth() core.Month { return e.month }
func (e *Engine) Catalog() Catalog          { return e.catalog }

// Projection returns the last computed projection.
func (e *Engine) Projection() Projection {
	return e.projection
}

// Expense looks id up in the raw collection, regardless of filters.
func (e *Engine) Expense(id string) (core.Expense, bool) {
	i := slices.IndexFunc(e.raw, func(x core.Expense) bool { return x.ID == id })
	if i < 0 {
		return core.Expense{}, false
	}
	return e.raw[i], true
}

// Input returns what the next recompute would be fed, with now as the
// evaluation time.
func (e *Engine) Input(now time.Time) Input {
	return Input{
		Expenses:   e.raw,
		SearchTerm: e.term,
		Month:      e.month,
		Now:        now,
		Location:   e.loc,
		Policy:     e.policy,
		Labeler:    e.labeler,
	}
}

// Subscribe registers fn to be called with every new projection.
// Subscribers are notified in registration order. The returned func
// removes fn.
func (e *Engine) Subscribe(fn func(Projection)) (cancel func()) {
	i := len(e.subscribers)
	e.subscribers = append(e.subscribers, fn)
	return func() { e.subscribers[i] = nil }
}

func (e *Engine) recompute() {
	e.projection = Compute(e.Input(e.clock()))
	for _, fn := range e.subscribers {
		if fn != nil {
			fn(e.projection)
		}
	}
}
