package http

import (
	"net/http"

	"projex/internal/core"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	expenses, err := s.deps.Queries.ListExpenses(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().List(nonNil(expenses), len(expenses)).Write(w, r)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	expenseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.deps.Queries.GetExpense(r.Context(), id, expenseID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(e).Write(w, r)
}

func (s *Server) handleProjectExpenses(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	projectID, err := pathID(r, "projectId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := ParseExpenseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := s.deps.Queries.GetProjectExpenses(r.Context(), id, projectID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().List(nonNil(expenses), len(expenses)).Write(w, r)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	var in core.ExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Category = sanitizeInput(in.Category)
	in.Description = sanitizeInput(in.Description)
	in.ReceiptURL = sanitizeInput(in.ReceiptURL)

	e, err := s.deps.Expenses.CreateExpense(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(e).Write(w, r)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	expenseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch core.ExpensePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	sanitizePtr(patch.Category)
	sanitizePtr(patch.Description)
	sanitizePtr(patch.ReceiptURL)

	e, err := s.deps.Expenses.UpdateExpense(r.Context(), id, expenseID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(e).Write(w, r)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	expenseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Expenses.DeleteExpense(r.Context(), id, expenseID); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(struct{}{}).Write(w, r)
}
