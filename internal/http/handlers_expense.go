package http

import (
	"net/http"

	"gastos/internal/log"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	exp, err := req.Expense("", s.deps.Location)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}

	created, err := s.deps.Expenses.Create(r.Context(), exp)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense saved",
		log.FieldEntity, "expense",
		log.FieldEntityID, created.ID,
		log.FieldOperation, log.OpCreate)

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+created.ID).
		Data(newExpenseView(created)).
		Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	exp, err := s.deps.Expenses.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(newExpenseView(exp)).Write(w)
}

// handleUpdateExpense replaces the expense. Fields missing from the body
// are cleared, then the editor defaults apply.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	exp, err := req.Expense(r.PathValue("id"), s.deps.Location)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}

	updated, err := s.deps.Expenses.Update(r.Context(), exp)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(newExpenseView(updated)).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Expenses.Delete(r.Context(), r.PathValue("id")); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleToggleTag(w http.ResponseWriter, r *http.Request) {
	exp, err := s.deps.Expenses.ToggleTag(r.Context(), r.PathValue("id"), r.PathValue("tagID"))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(newExpenseView(exp)).Write(w)
}
