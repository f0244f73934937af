package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/storage"
)

// ExpenseRepository is what the expense editor needs from storage.
type ExpenseRepository interface {
	storage.ExpenseStore
	ListCategories(ctx context.Context) ([]core.Category, error)
}

// ExpenseService applies the editor's defaults before saving.
type ExpenseService struct {
	repo  ExpenseRepository
	clock func() time.Time
	newID func() string
}

func NewExpenseService(repo ExpenseRepository) *ExpenseService {
	return &ExpenseService{
		repo:  repo,
		clock: time.Now,
		newID: uuid.NewString,
	}
}

func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	return s.repo.GetExpense(ctx, id)
}

// Create saves a new expense. A missing id is generated, a missing date
// becomes now and a missing category becomes the default category.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = s.newID()
	}
	e, err := s.withDefaults(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}
	if err := s.repo.CreateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		log.FieldComponent, log.ComponentExpense,
		log.FieldOperation, log.OpCreate,
		"id", e.ID,
		"title", e.TitleOrEmpty(),
		"amount", e.Amount.String())
	return e, nil
}

// Update overwrites an existing expense with the same defaults as Create.
func (s *ExpenseService) Update(ctx context.Context, e core.Expense) (core.Expense, error) {
	e, err := s.withDefaults(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}
	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense deleted",
		log.FieldComponent, log.ComponentExpense,
		log.FieldOperation, log.OpDelete,
		"id", id)
	return nil
}

// ToggleTag adds or removes one tag and saves the expense.
func (s *ExpenseService) ToggleTag(ctx context.Context, id, tagID string) (core.Expense, error) {
	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	e.ToggleTag(tagID)
	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("toggle tag: %w", err)
	}
	return e, nil
}

func (s *ExpenseService) withDefaults(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.TagIDs = core.NormalizeTags(e.TagIDs)
	e.Date = core.Some(e.Date.OrElseGet(s.clock))
	if e.CategoryID.IsSome() {
		return e, nil
	}
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("list categories: %w", err)
	}
	e.CategoryID = DefaultCategory(cats)
	return e, nil
}

// DefaultCategory picks the first category by name, ignoring case. Unnamed
// categories come last; None when there are no categories.
func DefaultCategory(cats []core.Category) core.Optional[string] {
	if len(cats) == 0 {
		return core.None[string]()
	}
	first := slices.MinFunc(cats, func(a, b core.Category) int {
		an, aok := a.Name.Get()
		bn, bok := b.Name.Get()
		switch {
		case aok && !bok:
			return -1
		case !aok && bok:
			return 1
		}
		if c := cmp.Compare(core.FoldName(an), core.FoldName(bn)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return core.Some(first.ID)
}
