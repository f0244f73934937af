package storage

import (
	"context"
	"time"

	"gastos/internal/core"
)

// Ports for repository adapters.
type (
	ExpenseStore interface {
		// ListExpenses returns every expense, oldest first, undated last.
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		GetExpense(ctx context.Context, id string) (core.Expense, error)
		CreateExpense(ctx context.Context, e core.Expense) error
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, id string) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) error
		UpdateCategory(ctx context.Context, c core.Category) error
		// DeleteCategory also clears the category of expenses using it.
		DeleteCategory(ctx context.Context, id string) error
	}

	TagStore interface {
		ListTags(ctx context.Context) ([]core.Tag, error)
		CreateTag(ctx context.Context, t core.Tag) error
		UpdateTag(ctx context.Context, t core.Tag) error
		// DeleteTag also removes the tag from every expense.
		DeleteTag(ctx context.Context, id string) error
	}

	AccountStore interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
		CreateAccount(ctx context.Context, a core.Account) error
		UpdateAccount(ctx context.Context, a core.Account) error
		// DeleteAccount also clears the account of expenses using it.
		DeleteAccount(ctx context.Context, id string) error
	}

	// ChangeFeed delivers a Change after every successful commit.
	ChangeFeed interface {
		Subscribe(buffer int) (changes <-chan Change, cancel func())
	}

	Repository interface {
		ExpenseStore
		CategoryStore
		TagStore
		AccountStore
		ChangeFeed
		Close() error
	}
)

type (
	Entity string
	Op     string
)

const (
	EntityExpense  Entity = "expense"
	EntityCategory Entity = "category"
	EntityTag      Entity = "tag"
	EntityAccount  Entity = "account"

	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one committed mutation.
type Change struct {
	Entity Entity    `json:"entity"`
	Op     Op        `json:"op"`
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
}
