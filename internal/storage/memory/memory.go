package memory

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gastos/internal/core"
	"gastos/internal/storage"
)

var _ storage.Repository = (*Store)(nil)

type row struct {
	expense core.Expense
	seq     int
}

// Store keeps everything in process memory. Lists are returned as copies.
type Store struct {
	mu         sync.Mutex
	seq        int
	expenses   map[string]row
	categories []core.Category
	tags       []core.Tag
	accounts   []core.Account
	feed       *storage.Feed
	now        func() time.Time
}

// New returns a store seeded with named catalog entries.
func New(categories, tags, accounts []string) *Store {
	return &Store{
		expenses:   make(map[string]row),
		categories: seed[core.Category](categories),
		tags:       seed[core.Tag](tags),
		accounts:   seed[core.Account](accounts),
		feed:       storage.NewFeed(),
		now:        time.Now,
	}
}

// NewFromFiles seeds the catalog from seed_*.txt files under base, one name
// per line. Missing category and account files fall back to defaults.
func NewFromFiles(base string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	tags := readLines(filepath.Join(base, "seed_tags.txt"))
	accounts := readLines(filepath.Join(base, "seed_accounts.txt"))
	if len(cats) == 0 {
		cats = []string{"Groceries", "Home", "Transport"}
	}
	if len(accounts) == 0 {
		accounts = []string{"Cash"}
	}
	return New(cats, tags, accounts)
}

func seed[T core.Category | core.Tag | core.Account](names []string) []T {
	out := make([]T, 0, len(names))
	for _, n := range names {
		out = append(out, T{ID: uuid.NewString(), Name: core.Some(n)})
	}
	return out
}

func (s *Store) Close() error {
	s.feed.Close()
	return nil
}

func (s *Store) Subscribe(buffer int) (<-chan storage.Change, func()) {
	return s.feed.Subscribe(buffer)
}

func (s *Store) publish(entity storage.Entity, op storage.Op, id string) {
	s.feed.Publish(storage.Change{Entity: entity, Op: op, ID: id, At: s.now()})
}

// ListExpenses returns dated expenses oldest first, then undated ones, each
// group in insertion order.
func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	rows := make([]row, 0, len(s.expenses))
	for _, r := range s.expenses {
		rows = append(rows, r)
	}
	s.mu.Unlock()

	slices.SortFunc(rows, func(a, b row) int {
		at, aok := a.expense.Date.Get()
		bt, bok := b.expense.Date.Get()
		switch {
		case aok && !bok:
			return -1
		case !aok && bok:
			return 1
		case aok && bok:
			if c := at.Compare(bt); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]core.Expense, len(rows))
	for i, r := range rows {
		out[i] = r.expense.Clone()
	}
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, core.ErrNotFound)
	}
	return r.expense.Clone(), nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	if _, ok := s.expenses[e.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("expense %s already exists", e.ID)
	}
	if err := s.checkRefs(e); err != nil {
		s.mu.Unlock()
		return err
	}
	s.seq++
	s.expenses[e.ID] = row{expense: normalized(e), seq: s.seq}
	s.mu.Unlock()

	s.publish(storage.EntityExpense, storage.OpCreate, e.ID)
	return nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	r, ok := s.expenses[e.ID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("expense %s: %w", e.ID, core.ErrNotFound)
	}
	if err := s.checkRefs(e); err != nil {
		s.mu.Unlock()
		return err
	}
	r.expense = normalized(e)
	s.expenses[e.ID] = r
	s.mu.Unlock()

	s.publish(storage.EntityExpense, storage.OpUpdate, e.ID)
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.expenses[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	delete(s.expenses, id)
	s.mu.Unlock()

	s.publish(storage.EntityExpense, storage.OpDelete, id)
	return nil
}

func normalized(e core.Expense) core.Expense {
	e = e.Clone()
	e.TagIDs = core.NormalizeTags(e.TagIDs)
	return e
}

// checkRefs mirrors the foreign keys of the SQL schema. Callers hold s.mu.
func (s *Store) checkRefs(e core.Expense) error {
	if id, ok := e.CategoryID.Get(); ok && indexOf(s.categories, id) < 0 {
		return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if id, ok := e.AccountID.Get(); ok && indexOf(s.accounts, id) < 0 {
		return fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	for _, id := range core.NormalizeTags(e.TagIDs) {
		if indexOf(s.tags, id) < 0 {
			return fmt.Errorf("tag %s: %w", id, core.ErrNotFound)
		}
	}
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.categories), nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) error {
	return s.mutate(storage.EntityCategory, storage.OpCreate, c.ID, func() error {
		return insert(&s.categories, c)
	})
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	return s.mutate(storage.EntityCategory, storage.OpUpdate, c.ID, func() error {
		return replace(s.categories, c)
	})
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	return s.mutate(storage.EntityCategory, storage.OpDelete, id, func() error {
		if err := remove(&s.categories, id); err != nil {
			return err
		}
		s.detach(func(e *core.Expense) {
			if e.CategoryID == core.Some(id) {
				e.CategoryID = core.None[string]()
			}
		})
		return nil
	})
}

func (s *Store) ListTags(_ context.Context) ([]core.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tags), nil
}

func (s *Store) CreateTag(_ context.Context, t core.Tag) error {
	return s.mutate(storage.EntityTag, storage.OpCreate, t.ID, func() error {
		return insert(&s.tags, t)
	})
}

func (s *Store) UpdateTag(_ context.Context, t core.Tag) error {
	return s.mutate(storage.EntityTag, storage.OpUpdate, t.ID, func() error {
		return replace(s.tags, t)
	})
}

func (s *Store) DeleteTag(_ context.Context, id string) error {
	return s.mutate(storage.EntityTag, storage.OpDelete, id, func() error {
		if err := remove(&s.tags, id); err != nil {
			return err
		}
		s.detach(func(e *core.Expense) {
			e.TagIDs = slices.DeleteFunc(e.TagIDs, func(t string) bool { return t == id })
		})
		return nil
	})
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.accounts), nil
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) error {
	return s.mutate(storage.EntityAccount, storage.OpCreate, a.ID, func() error {
		return insert(&s.accounts, a)
	})
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) error {
	return s.mutate(storage.EntityAccount, storage.OpUpdate, a.ID, func() error {
		return replace(s.accounts, a)
	})
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	return s.mutate(storage.EntityAccount, storage.OpDelete, id, func() error {
		if err := remove(&s.accounts, id); err != nil {
			return err
		}
		s.detach(func(e *core.Expense) {
			if e.AccountID == core.Some(id) {
				e.AccountID = core.None[string]()
			}
		})
		return nil
	})
}

// mutate runs fn under the lock and publishes the change when it succeeds.
func (s *Store) mutate(entity storage.Entity, op storage.Op, id string, fn func() error) error {
	s.mu.Lock()
	err := fn()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publish(entity, op, id)
	return nil
}

func (s *Store) detach(fn func(e *core.Expense)) {
	for id, r := range s.expenses {
		fn(&r.expense)
		s.expenses[id] = r
	}
}

func indexOf[T core.Category | core.Tag | core.Account](items []T, id string) int {
	return slices.IndexFunc(items, func(it T) bool { return idOf(it) == id })
}

func idOf[T core.Category | core.Tag | core.Account](it T) string {
	switch v := any(it).(type) {
	case core.Category:
		return v.ID
	case core.Tag:
		return v.ID
	case core.Account:
		return v.ID
	}
	return ""
}

func insert[T core.Category | core.Tag | core.Account](items *[]T, it T) error {
	id := idOf(it)
	if strings.TrimSpace(id) == "" {
		return core.ErrEmptyID
	}
	if indexOf(*items, id) >= 0 {
		return fmt.Errorf("%s already exists", id)
	}
	*items = append(*items, it)
	return nil
}

func replace[T core.Category | core.Tag | core.Account](items []T, it T) error {
	i := indexOf(items, idOf(it))
	if i < 0 {
		return fmt.Errorf("%s: %w", idOf(it), core.ErrNotFound)
	}
	items[i] = it
	return nil
}

func remove[T core.Category | core.Tag | core.Account](items *[]T, id string) error {
	i := indexOf(*items, id)
	if i < 0 {
		return fmt.Errorf("%s: %w", id, core.ErrNotFound)
	}
	*items = slices.Delete(*items, i, i+1)
	return nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops repeated names ignoring case and keeps input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		key := core.FoldName(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
