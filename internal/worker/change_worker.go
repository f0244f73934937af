// Package worker reacts to change events published by other gastos
// processes.
package worker

import (
	"context"
	"fmt"
	"time"

	"gastos/internal/core"
	"gastos/internal/home"
	"gastos/internal/log"
	"gastos/internal/storage"
)

// HomeReader is the part of the home service the worker uses.
type HomeReader interface {
	Refresh(ctx context.Context) error
	Query(month core.Month, term string) home.Projection
	Catalog() home.Catalog
}

// Summary is the current month as seen after the last change.
type Summary struct {
	Projection home.Projection
	Categories []core.CategoryAmount
}

// ChangeWorker refreshes its home view on every change and reports the
// current month's total with a per-category breakdown.
type ChangeWorker struct {
	home   HomeReader
	loc    *time.Location
	clock  func() time.Time
	logger *log.Logger
	report *log.StructuredLogger
}

func NewChangeWorker(h HomeReader, loc *time.Location, logger *log.Logger) *ChangeWorker {
	if loc == nil {
		loc = time.Local
	}
	logger = logger.WithComponent(log.ComponentWorker)
	return &ChangeWorker{
		home:   h,
		loc:    loc,
		clock:  time.Now,
		logger: logger,
		report: log.NewStructuredLogger(logger),
	}
}

// HandleChange is an amqp change handler. A failed refresh is returned so
// that the message is requeued.
func (w *ChangeWorker) HandleChange(ctx context.Context, c storage.Change) error {
	w.logger.DebugContext(ctx, "Processing change",
		log.FieldEntity, string(c.Entity),
		log.FieldEntityID, c.ID,
		log.FieldOperation, string(c.Op))

	if err := w.home.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh after %s %s: %w", c.Op, c.Entity, err)
	}

	s := w.Summary()
	p := s.Projection
	w.report.LogProjection(ctx, "Current month updated",
		p.Month.String(), p.SearchTerm, len(p.Sections), p.Count, p.Total.String())
	for _, ca := range s.Categories {
		w.logger.InfoContext(ctx, "Category total",
			"category", categoryLabel(ca),
			log.FieldTotal, ca.Amount.String())
	}
	return nil
}

// Summary computes the current month without any search term.
func (w *ChangeWorker) Summary() Summary {
	p := w.home.Query(core.MonthOf(w.clock().In(w.loc)), "")
	return Summary{
		Projection: p,
		Categories: core.SumByCategory(p.Expenses(), w.home.Catalog().Categories),
	}
}

func categoryLabel(ca core.CategoryAmount) string {
	if ca.Name != "" {
		return ca.Name
	}
	if id, ok := ca.CategoryID.Get(); ok {
		return id
	}
	return "uncategorized"
}
