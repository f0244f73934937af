package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
)

func newTestRepository(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "gastos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteExpenseRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	require.NoError(t, repo.CreateCategory(ctx, core.Category{ID: "food", Name: core.Some("Food")}))
	require.NoError(t, repo.CreateTag(ctx, core.Tag{ID: "work", Name: core.Some("work")}))
	require.NoError(t, repo.CreateTag(ctx, core.Tag{ID: "home"}))

	at := time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC)
	e := core.Expense{
		ID:         "coffee",
		Title:      core.Some("Coffee"),
		Amount:     decimal.RequireFromString("3.50"),
		Date:       core.Some(at),
		CategoryID: core.Some("food"),
		TagIDs:     []string{"work", "home", "work"},
	}
	require.NoError(t, repo.CreateExpense(ctx, e))

	got, err := repo.GetExpense(ctx, "coffee")
	require.NoError(t, err)
	assert.Equal(t, "Coffee", got.TitleOrEmpty())
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("3.5")))
	gotAt, ok := got.Date.Get()
	require.True(t, ok)
	assert.True(t, gotAt.Equal(at))
	assert.Equal(t, core.Some("food"), got.CategoryID)
	assert.False(t, got.AccountID.IsSome())
	assert.Equal(t, []string{"home", "work"}, got.TagIDs)

	got.Title = core.None[string]()
	got.TagIDs = []string{"work"}
	require.NoError(t, repo.UpdateExpense(ctx, got))

	got, err = repo.GetExpense(ctx, "coffee")
	require.NoError(t, err)
	assert.False(t, got.Title.IsSome())
	assert.Equal(t, []string{"work"}, got.TagIDs)

	require.NoError(t, repo.DeleteExpense(ctx, "coffee"))
	_, err = repo.GetExpense(ctx, "coffee")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteExpense(ctx, "coffee"), core.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateExpense(ctx, got), core.ErrNotFound)
}

func TestSQLiteListExpensesOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	for _, e := range []core.Expense{
		{ID: "undated", Amount: decimal.NewFromInt(1)},
		{ID: "late", Amount: decimal.NewFromInt(2), Date: core.Some(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))},
		{ID: "early", Amount: decimal.NewFromInt(3), Date: core.Some(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))},
	} {
		require.NoError(t, repo.CreateExpense(ctx, e))
	}

	list, err := repo.ListExpenses(ctx)
	require.NoError(t, err)
	var got []string
	for _, e := range list {
		got = append(got, e.ID)
	}
	assert.Equal(t, []string{"early", "late", "undated"}, got)
}

func TestSQLiteCatalogDeleteDetaches(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	require.NoError(t, repo.CreateCategory(ctx, core.Category{ID: "food", Name: core.Some("Food")}))
	require.NoError(t, repo.CreateAccount(ctx, core.Account{ID: "cash", Name: core.Some("Cash")}))
	require.NoError(t, repo.CreateTag(ctx, core.Tag{ID: "work", Name: core.Some("work")}))
	require.NoError(t, repo.CreateExpense(ctx, core.Expense{
		ID:         "lunch",
		Amount:     decimal.NewFromInt(12),
		CategoryID: core.Some("food"),
		AccountID:  core.Some("cash"),
		TagIDs:     []string{"work"},
	}))

	require.NoError(t, repo.DeleteCategory(ctx, "food"))
	require.NoError(t, repo.DeleteAccount(ctx, "cash"))
	require.NoError(t, repo.DeleteTag(ctx, "work"))

	got, err := repo.GetExpense(ctx, "lunch")
	require.NoError(t, err)
	assert.False(t, got.CategoryID.IsSome())
	assert.False(t, got.AccountID.IsSome())
	assert.Empty(t, got.TagIDs)

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestSQLiteCatalogUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	require.NoError(t, repo.CreateAccount(ctx, core.Account{ID: "bank", Name: core.Some("Bank")}))
	require.NoError(t, repo.UpdateAccount(ctx, core.Account{ID: "bank", Name: core.Some("Checking")}))
	assert.ErrorIs(t, repo.UpdateAccount(ctx, core.Account{ID: "nope"}), core.ErrNotFound)

	accounts, err := repo.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, core.Some("Checking"), accounts[0].Name)

	assert.ErrorIs(t, repo.CreateAccount(ctx, core.Account{ID: " "}), core.ErrEmptyID)
}

func TestSQLiteUnknownReferences(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	require.NoError(t, repo.CreateTag(ctx, core.Tag{ID: "work"}))

	tests := []struct {
		name string
		e    core.Expense
	}{
		{"category", core.Expense{ID: "x", CategoryID: core.Some("nope")}},
		{"account", core.Expense{ID: "x", AccountID: core.Some("nope")}},
		{"tag", core.Expense{ID: "x", TagIDs: []string{"work", "nope"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.CreateExpense(ctx, tt.e)
			assert.ErrorIs(t, err, core.ErrNotFound)
			assert.Contains(t, err.Error(), "nope")

			_, err = repo.GetExpense(ctx, "x")
			assert.ErrorIs(t, err, core.ErrNotFound, "nothing may be written")
		})
	}

	require.NoError(t, repo.CreateExpense(ctx, core.Expense{ID: "y", Amount: decimal.NewFromInt(1), TagIDs: []string{"work"}}))
	err := repo.UpdateExpense(ctx, core.Expense{ID: "y", Amount: decimal.NewFromInt(2), TagIDs: []string{"nope"}})
	assert.ErrorIs(t, err, core.ErrNotFound)

	got, err := repo.GetExpense(ctx, "y")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, []string{"work"}, got.TagIDs)
}

func TestSQLitePublishesChanges(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	changes, cancel := repo.Subscribe(8)
	defer cancel()

	require.NoError(t, repo.CreateTag(ctx, core.Tag{ID: "t"}))
	require.NoError(t, repo.CreateExpense(ctx, core.Expense{ID: "e", Amount: decimal.NewFromInt(1)}))
	require.NoError(t, repo.DeleteExpense(ctx, "e"))

	want := []Change{
		{Entity: EntityTag, Op: OpCreate, ID: "t"},
		{Entity: EntityExpense, Op: OpCreate, ID: "e"},
		{Entity: EntityExpense, Op: OpDelete, ID: "e"},
	}
	for _, w := range want {
		c := <-changes
		assert.Equal(t, w.Entity, c.Entity)
		assert.Equal(t, w.Op, c.Op)
		assert.Equal(t, w.ID, c.ID)
		assert.False(t, c.At.IsZero())
	}
}

func TestRebindPlaceholders(t *testing.T) {
	pg := &SQLRepository{dialect: DialectPostgres}
	assert.Equal(t, "UPDATE t SET a = $1 WHERE id = $2", pg.q("UPDATE t SET a = ? WHERE id = ?"))

	lite := &SQLRepository{dialect: DialectSQLite}
	assert.Equal(t, "SELECT ?", lite.q("SELECT ?"))
}
