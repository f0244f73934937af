package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gastos/internal/cache"
	"gastos/internal/core"
	"gastos/internal/home"
	"gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/storage"
)

// SnapshotReader is the read side of the repository.
type SnapshotReader interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListTags(ctx context.Context) ([]core.Tag, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
}

// HomeState is the user-controlled part of the home screen.
type HomeState struct {
	SearchTerm string     `json:"search_term"`
	Month      core.Month `json:"month"`
}

// HomeService owns a home.Engine and serializes every access to it.
// Stateless queries for arbitrary month and term are answered from a cache
// that is emptied on every refresh.
type HomeService struct {
	mu      sync.Mutex
	engine  *home.Engine
	reader  SnapshotReader
	cache   cache.Cache[home.Projection]
	clock   func() time.Time
	metrics *metrics.Metrics
	gen     uint64 // bumped by every refresh
}

func NewHomeService(reader SnapshotReader, engine *home.Engine, c cache.Cache[home.Projection], m *metrics.Metrics) *HomeService {
	s := &HomeService{
		engine:  engine,
		reader:  reader,
		cache:   c,
		clock:   time.Now,
		metrics: m,
	}
	engine.Subscribe(func(p home.Projection) {
		m.SetProjection(p.Total, p.Count, len(p.Sections))
	})
	return s
}

// Refresh fetches the four collections concurrently and hands them to the
// engine in one step. On error the previous state is kept.
func (s *HomeService) Refresh(ctx context.Context) error {
	start := time.Now()
	snap, err := s.fetch(ctx)
	s.metrics.ObserveRefresh(time.Since(start), err)
	if err != nil {
		return fmt.Errorf("refresh home: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Refresh(snap)
	s.gen++
	if s.cache != nil {
		s.cache.Clear()
	}

	p := s.engine.Projection()
	slog.DebugContext(ctx, "Home refreshed",
		log.FieldComponent, log.ComponentHome,
		log.FieldOperation, log.OpRefresh,
		log.FieldCount, len(snap.Expenses),
		log.FieldMonth, p.Month.String(),
		log.FieldSections, len(p.Sections),
		log.FieldTotal, p.Total.String(),
		"duration", time.Since(start))
	return nil
}

func (s *HomeService) fetch(ctx context.Context) (home.Snapshot, error) {
	var snap home.Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Expenses, err = s.reader.ListExpenses(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Categories, err = s.reader.ListCategories(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Tags, err = s.reader.ListTags(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Accounts, err = s.reader.ListAccounts(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return home.Snapshot{}, err
	}
	return snap, nil
}

// Run refreshes after every change until ctx ends or changes is closed.
// Changes that piled up during a refresh are folded into the next one.
func (s *HomeService) Run(ctx context.Context, changes <-chan storage.Change) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			s.metrics.Change(string(c.Entity), string(c.Op))
			for drained := false; !drained; {
				select {
				case c, ok = <-changes:
					if !ok {
						drained = true
						break
					}
					s.metrics.Change(string(c.Entity), string(c.Op))
				default:
					drained = true
				}
			}
			if err := s.Refresh(ctx); err != nil {
				slog.ErrorContext(ctx, "Failed to refresh home after change",
					"entity", c.Entity, "op", c.Op, "id", c.ID, "error", err)
			}
			if !ok {
				return nil
			}
		}
	}
}

// Projection returns the engine's current projection.
func (s *HomeService) Projection() home.Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Projection()
}

func (s *HomeService) State() HomeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return HomeState{SearchTerm: s.engine.SearchTerm(), Month: s.engine.SelectedMonth()}
}

func (s *HomeService) Catalog() home.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Catalog()
}

func (s *HomeService) SetSearchTerm(term string) home.Projection {
	return s.apply(func(e *home.Engine) { e.SetSearchTerm(term) })
}

func (s *HomeService) ClearSearchTerm() home.Projection {
	return s.apply(func(e *home.Engine) { e.ClearSearchTerm() })
}

func (s *HomeService) SetSelectedMonth(date time.Time) home.Projection {
	return s.apply(func(e *home.Engine) { e.SetSelectedMonth(date) })
}

func (s *HomeService) ShiftSelectedMonth(years, months int) home.Projection {
	return s.apply(func(e *home.Engine) { e.ShiftSelectedMonth(years, months) })
}

func (s *HomeService) SelectMonth(month time.Month) home.Projection {
	return s.apply(func(e *home.Engine) { e.SelectMonth(month) })
}

func (s *HomeService) apply(fn func(*home.Engine)) home.Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.engine)
	return s.engine.Projection()
}

// Query computes the projection for month and term without touching the
// engine's selection.
func (s *HomeService) Query(month core.Month, term string) home.Projection {
	key := month.String() + "\x00" + term
	if s.cache != nil {
		if p, ok := s.cache.Get(key); ok {
			s.metrics.CacheLookup(true)
			return p
		}
		s.metrics.CacheLookup(false)
	}

	s.mu.Lock()
	in := s.engine.Input(s.clock())
	gen := s.gen
	s.mu.Unlock()

	in.Month = month
	in.SearchTerm = term
	p := home.Compute(in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil && gen == s.gen {
		s.cache.Set(key, p)
	}
	return p
}
