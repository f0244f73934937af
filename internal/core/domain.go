package core

import (
	"errors"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

type (
	// Expense is a single recorded transaction. Optional fields stay None
	// until the user fills them in; consumers decide the fallback.
	Expense struct {
		ID         string
		Title      Optional[string]
		Amount     decimal.Decimal
		Date       Optional[time.Time]
		CategoryID Optional[string]
		AccountID  Optional[string]
		TagIDs     []string // set semantics, see NormalizeTags
	}

	Category struct {
		ID   string
		Name Optional[string]
	}

	Account struct {
		ID   string
		Name Optional[string]
	}

	Tag struct {
		ID   string
		Name Optional[string]
	}
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNameTaken     = errors.New("name already exists")
	ErrEmptyName     = errors.New("empty name")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyID       = errors.New("empty id")
	ErrTitleTooLong  = errors.New("title too long (max 200 characters)")
)

const maxTitleLen = 200

// TitleOrEmpty returns the title, or "" when none was recorded.
func (e Expense) TitleOrEmpty() string {
	return e.Title.OrElse("")
}

// HasTag reports whether the expense carries the tag.
func (e Expense) HasTag(tagID string) bool {
	return slices.Contains(e.TagIDs, tagID)
}

// ToggleTag adds the tag when missing and removes it when present.
func (e *Expense) ToggleTag(tagID string) {
	if e.HasTag(tagID) {
		e.TagIDs = slices.DeleteFunc(e.TagIDs, func(id string) bool { return id == tagID })
		return
	}
	e.TagIDs = NormalizeTags(append(e.TagIDs, tagID))
}

// Clone returns a copy that shares no slices with e.
func (e Expense) Clone() Expense {
	e.TagIDs = slices.Clone(e.TagIDs)
	return e
}

// NormalizeTags drops blanks and duplicates and sorts the ids so that
// equal sets compare equal.
func NormalizeTags(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, id)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Validate only checks what storage needs; amounts of any sign and missing
// titles or dates are accepted.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if t, ok := e.Title.Get(); ok && utf8.RuneCountInString(t) > maxTitleLen {
		return ErrTitleTooLong
	}
	return nil
}
