package home

import (
	"time"

	"gastos/internal/core"
)

// DatePolicy decides which instant an expense is filed under. A false
// result drops the expense from the projection.
//
// Resolve is called once per expense per compute pass; now is read once per
// pass so every undated expense of a pass lands on the same day.
type DatePolicy interface {
	Resolve(e core.Expense, now time.Time) (time.Time, bool)
}

// NowPolicy files undated expenses under the evaluation time.
type NowPolicy struct{}

func (NowPolicy) Resolve(e core.Expense, now time.Time) (time.Time, bool) {
	if d, ok := e.Date.Get(); ok {
		return d, true
	}
	return now, true
}

// ExcludePolicy leaves undated expenses out.
type ExcludePolicy struct{}

func (ExcludePolicy) Resolve(e core.Expense, _ time.Time) (time.Time, bool) {
	return e.Date.Get()
}

// PinnedPolicy files undated expenses under a fixed instant.
type PinnedPolicy struct {
	At time.Time
}

func (p PinnedPolicy) Resolve(e core.Expense, _ time.Time) (time.Time, bool) {
	if d, ok := e.Date.Get(); ok {
		return d, true
	}
	return p.At, true
}

// PolicyByName maps config values to policies. Unknown names yield false.
func PolicyByName(name string, pinned time.Time) (DatePolicy, bool) {
	switch name {
	case "", "now":
		return NowPolicy{}, true
	case "exclude":
		return ExcludePolicy{}, true
	case "pinned":
		return PinnedPolicy{At: pinned}, true
	}
	return nil, false
}
