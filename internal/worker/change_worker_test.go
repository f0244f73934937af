package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
	"gastos/internal/home"
	"gastos/internal/log"
	"gastos/internal/services"
	"gastos/internal/storage"
	"gastos/internal/storage/memory"
)

var testNow = time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)

func quietLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError, Output: io.Discard})
}

func newWorker(t *testing.T, h HomeReader) *ChangeWorker {
	t.Helper()
	w := NewChangeWorker(h, time.UTC, quietLogger())
	w.clock = func() time.Time { return testNow }
	return w
}

func TestChangeWorkerSummary(t *testing.T) {
	ctx := context.Background()
	store := memory.New([]string{"Food", "Home"}, nil, nil)
	t.Cleanup(func() { store.Close() })

	cats, err := store.ListCategories(ctx)
	require.NoError(t, err)
	ids := map[string]string{}
	for _, c := range cats {
		ids[c.Name.OrElse("")] = c.ID
	}

	at := func(d int) core.Optional[time.Time] {
		return core.Some(time.Date(2024, time.March, d, 12, 0, 0, 0, time.UTC))
	}
	for _, e := range []core.Expense{
		{ID: "1", Amount: decimal.NewFromInt(10), Date: at(1), CategoryID: core.Some(ids["Food"])},
		{ID: "2", Amount: decimal.NewFromInt(5), Date: at(2), CategoryID: core.Some(ids["Food"])},
		{ID: "3", Amount: decimal.NewFromInt(40), Date: at(3), CategoryID: core.Some(ids["Home"])},
		{ID: "4", Amount: decimal.NewFromInt(1), Date: at(4)},
		{ID: "old", Amount: decimal.NewFromInt(99), Date: core.Some(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))},
	} {
		require.NoError(t, store.CreateExpense(ctx, e))
	}

	engine := home.NewEngine(home.WithLocation(time.UTC), home.WithClock(func() time.Time { return testNow }))
	hs := services.NewHomeService(store, engine, nil, nil)
	w := newWorker(t, hs)

	require.NoError(t, w.HandleChange(ctx, storage.Change{Entity: storage.EntityExpense, Op: storage.OpCreate, ID: "4"}))

	s := w.Summary()
	assert.Equal(t, core.Month{Year: 2024, Month: time.March}, s.Projection.Month)
	assert.True(t, s.Projection.Total.Equal(decimal.NewFromInt(56)))
	require.Len(t, s.Categories, 3)
	assert.Equal(t, "Home", categoryLabel(s.Categories[0]))
	assert.Equal(t, "Food", categoryLabel(s.Categories[1]))
	assert.True(t, s.Categories[1].Amount.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, "uncategorized", categoryLabel(s.Categories[2]))
}

type failingHome struct{ HomeReader }

func (failingHome) Refresh(context.Context) error { return errors.New("store offline") }

func TestChangeWorkerRefreshFailure(t *testing.T) {
	w := newWorker(t, failingHome{})
	err := w.HandleChange(context.Background(), storage.Change{Entity: storage.EntityTag, Op: storage.OpDelete, ID: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh after delete tag")
}
