package http

import (
	"net/http"
	"time"
)

// handleHome answers GET /api/home?month=YYYY-MM&q=term without changing
// the engine state. The month defaults to the selected one.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	selected := s.deps.Home.State().Month
	month, err := parseMonthParam(r, selected.First(s.deps.Location))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	p := s.deps.Home.Query(month, r.URL.Query().Get("q"))
	s.requests.LogProjection(r.Context(), "Home projection served",
		p.Month.String(), p.SearchTerm, len(p.Sections), p.Count, p.Total.String())
	NewJSONResponse().Data(newProjectionView(p)).Write(w)
}

func (s *Server) handleHomeState(w http.ResponseWriter, r *http.Request) {
	s.writeHomeState(w)
}

// handleUpdateHomeState applies a HomeStateRequest and returns the new
// state with its projection.
func (s *Server) handleUpdateHomeState(w http.ResponseWriter, r *http.Request) {
	var req HomeStateRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := req.validate(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var selected time.Time
	if req.Month != nil {
		m, err := parseMonthValue(*req.Month)
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		selected = m.First(s.deps.Location)
	}

	home := s.deps.Home
	switch {
	case req.ClearSearch:
		home.ClearSearchTerm()
	case req.SearchTerm != nil:
		home.SetSearchTerm(*req.SearchTerm)
	}
	if req.Month != nil {
		home.SetSelectedMonth(selected)
	}
	if req.Shift != nil {
		home.ShiftSelectedMonth(req.Shift.Years, req.Shift.Months)
	}
	if req.MonthOfYear != nil {
		home.SelectMonth(time.Month(*req.MonthOfYear))
	}

	s.writeHomeState(w)
}

func (s *Server) writeHomeState(w http.ResponseWriter) {
	home := s.deps.Home
	view := newHomeStateView(home.State(), home.Projection(), home.Catalog())
	NewJSONResponse().Data(view).Write(w)
}
