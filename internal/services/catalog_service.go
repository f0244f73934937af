package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/storage"
)

// CatalogRepository covers the three catalog collections.
type CatalogRepository interface {
	storage.CategoryStore
	storage.TagStore
	storage.AccountStore
}

// CatalogService keeps category, tag and account names unique ignoring
// case. Checks and writes are serialized so two requests cannot both claim
// the same name.
type CatalogService struct {
	mu    sync.Mutex
	repo  CatalogRepository
	newID func() string
}

func NewCatalogService(repo CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo, newID: uuid.NewString}
}

type namedStore[T core.Named] struct {
	entity storage.Entity
	list   func(context.Context) ([]T, error)
	create func(context.Context, T) error
	update func(context.Context, T) error
	delete func(context.Context, string) error
}

func (s *CatalogService) categories() namedStore[core.Category] {
	return namedStore[core.Category]{storage.EntityCategory, s.repo.ListCategories, s.repo.CreateCategory, s.repo.UpdateCategory, s.repo.DeleteCategory}
}

func (s *CatalogService) tags() namedStore[core.Tag] {
	return namedStore[core.Tag]{storage.EntityTag, s.repo.ListTags, s.repo.CreateTag, s.repo.UpdateTag, s.repo.DeleteTag}
}

func (s *CatalogService) accounts() namedStore[core.Account] {
	return namedStore[core.Account]{storage.EntityAccount, s.repo.ListAccounts, s.repo.CreateAccount, s.repo.UpdateAccount, s.repo.DeleteAccount}
}

func add[T core.Named](ctx context.Context, s *CatalogService, st namedStore[T], name string) (T, error) {
	var zero T
	name, err := core.CleanName(name)
	if err != nil {
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := st.list(ctx)
	if err != nil {
		return zero, fmt.Errorf("list %s: %w", st.entity, err)
	}
	if core.NameTaken(items, "", name) {
		return zero, fmt.Errorf("%s %q: %w", st.entity, name, core.ErrNameTaken)
	}

	it := T{ID: s.newID(), Name: core.Some(name)}
	if err := st.create(ctx, it); err != nil {
		return zero, fmt.Errorf("create %s: %w", st.entity, err)
	}
	slog.InfoContext(ctx, "Catalog entry created",
		log.FieldComponent, log.ComponentCatalog,
		log.FieldOperation, log.OpCreate,
		log.FieldEntity, st.entity,
		"name", name)
	return it, nil
}

func rename[T core.Named](ctx context.Context, s *CatalogService, st namedStore[T], id, name string) (T, error) {
	var zero T
	name, err := core.CleanName(name)
	if err != nil {
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := st.list(ctx)
	if err != nil {
		return zero, fmt.Errorf("list %s: %w", st.entity, err)
	}
	if core.NameTaken(items, id, name) {
		return zero, fmt.Errorf("%s %q: %w", st.entity, name, core.ErrNameTaken)
	}

	it := T{ID: id, Name: core.Some(name)}
	if err := st.update(ctx, it); err != nil {
		return zero, fmt.Errorf("update %s: %w", st.entity, err)
	}
	return it, nil
}

func remove[T core.Named](ctx context.Context, s *CatalogService, st namedStore[T], id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := st.delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", st.entity, err)
	}
	slog.InfoContext(ctx, "Catalog entry deleted",
		log.FieldComponent, log.ComponentCatalog,
		log.FieldOperation, log.OpDelete,
		log.FieldEntity, st.entity,
		log.FieldEntityID, id)
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *CatalogService) AddCategory(ctx context.Context, name string) (core.Category, error) {
	return add(ctx, s, s.categories(), name)
}

func (s *CatalogService) RenameCategory(ctx context.Context, id, name string) (core.Category, error) {
	return rename(ctx, s, s.categories(), id, name)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	return remove(ctx, s, s.categories(), id)
}

func (s *CatalogService) ListTags(ctx context.Context) ([]core.Tag, error) {
	return s.repo.ListTags(ctx)
}

func (s *CatalogService) AddTag(ctx context.Context, name string) (core.Tag, error) {
	return add(ctx, s, s.tags(), name)
}

func (s *CatalogService) RenameTag(ctx context.Context, id, name string) (core.Tag, error) {
	return rename(ctx, s, s.tags(), id, name)
}

func (s *CatalogService) DeleteTag(ctx context.Context, id string) error {
	return remove(ctx, s, s.tags(), id)
}

func (s *CatalogService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.repo.ListAccounts(ctx)
}

func (s *CatalogService) AddAccount(ctx context.Context, name string) (core.Account, error) {
	return add(ctx, s, s.accounts(), name)
}

func (s *CatalogService) RenameAccount(ctx context.Context, id, name string) (core.Account, error) {
	return rename(ctx, s, s.accounts(), id, name)
}

func (s *CatalogService) DeleteAccount(ctx context.Context, id string) error {
	return remove(ctx, s, s.accounts(), id)
}
