package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gastos/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// errValidation marks malformed requests.
var errValidation = errors.New("invalid request")

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errValidation, fmt.Sprintf(format, args...))
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return validationError("decode body: %v", err)
	}
	return nil
}

// ExpenseRequest is the body of expense create and update requests.
// Absent optional fields stay None.
type ExpenseRequest struct {
	Title      *string  `json:"title"`
	Amount     string   `json:"amount"`
	Date       *string  `json:"date"`
	CategoryID *string  `json:"category_id"`
	AccountID  *string  `json:"account_id"`
	TagIDs     []string `json:"tag_ids"`
}

// Expense converts the request. Dates are RFC 3339 timestamps or plain
// YYYY-MM-DD days taken at midnight in loc.
func (req ExpenseRequest) Expense(id string, loc *time.Location) (core.Expense, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("amount %q: %w", req.Amount, err)
	}

	if req.Title != nil {
		title := sanitizeInput(*req.Title)
		req.Title = &title
	}
	e := core.Expense{
		ID:         id,
		Title:      core.FromPtr(req.Title),
		Amount:     amount,
		CategoryID: optionalID(req.CategoryID),
		AccountID:  optionalID(req.AccountID),
		TagIDs:     core.NormalizeTags(req.TagIDs),
	}
	if req.Date != nil {
		at, err := parseDate(*req.Date, loc)
		if err != nil {
			return core.Expense{}, err
		}
		e.Date = core.Some(at)
	}
	return e, nil
}

// NameRequest is the body of catalog create and rename requests.
type NameRequest struct {
	Name string `json:"name"`
}

// ShiftRequest moves the selected month by whole years and months.
type ShiftRequest struct {
	Years  int `json:"years"`
	Months int `json:"months"`
}

// HomeStateRequest updates the engine state. Set fields are applied in
// field order: search term, month, shift, month of year.
type HomeStateRequest struct {
	SearchTerm  *string       `json:"search_term"`
	ClearSearch bool          `json:"clear_search"`
	Month       *string       `json:"month"`
	Shift       *ShiftRequest `json:"shift"`
	MonthOfYear *int          `json:"month_of_year"`
}

func (req HomeStateRequest) validate() error {
	if req.SearchTerm != nil && req.ClearSearch {
		return validationError("search_term and clear_search are exclusive")
	}
	if req.MonthOfYear != nil && (*req.MonthOfYear < 1 || *req.MonthOfYear > 12) {
		return validationError("month_of_year %d out of range", *req.MonthOfYear)
	}
	return nil
}

// parseDate accepts RFC 3339 or YYYY-MM-DD.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, validationError("date %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

// parseMonthParam reads "month" as YYYY-MM, defaulting to the month of now.
func parseMonthParam(r *http.Request, now time.Time) (core.Month, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return core.MonthOf(now), nil
	}
	return parseMonthValue(v)
}

func parseMonthValue(v string) (core.Month, error) {
	m, err := core.ParseMonth(strings.TrimSpace(v))
	if err != nil || !m.Valid() {
		return core.Month{}, validationError("month %q: want YYYY-MM", v)
	}
	return m, nil
}

func optionalID(p *string) core.Optional[string] {
	if p == nil {
		return core.None[string]()
	}
	id := strings.TrimSpace(*p)
	if id == "" {
		return core.None[string]()
	}
	return core.Some(id)
}
