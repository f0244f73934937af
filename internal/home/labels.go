package home

import (
	"time"

	"gastos/internal/core"
)

// Labeler renders the display label of a day section. Equal days must map
// to equal labels; labels are never used as keys.
type Labeler interface {
	Label(d core.Day) string
}

// FullDateLayout mirrors a full date style, e.g. "Tuesday, March 5, 2024".
const FullDateLayout = "Monday, January 2, 2006"

// LayoutLabeler formats days with a time layout.
type LayoutLabeler struct {
	Layout string
}

func (l LayoutLabeler) Label(d core.Day) string {
	layout := l.Layout
	if layout == "" {
		layout = FullDateLayout
	}
	return d.Midnight(time.UTC).Format(layout)
}

// LabelerFunc adapts a function to Labeler.
type LabelerFunc func(core.Day) string

func (f LabelerFunc) Label(d core.Day) string { return f(d) }
