package http

import (
	"net/http"

	"projex/internal/core"
)

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	stats, err := s.deps.Reports.DashboardStats(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(stats).Write(w, r)
}

func (s *Server) handleProjectStatus(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	dist, err := s.deps.Reports.ProjectStatusDistribution(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(nonNil(dist)).Write(w, r)
}

func (s *Server) handleGlobalSummary(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	summary, err := s.deps.Reports.GlobalExpenseSummary(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(summary).Write(w, r)
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	projectID, err := pathID(r, "projectId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	dr, err := ParseDateRange(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.deps.Reports.ExpenseSummaryByCategory(r.Context(), id, projectID, dr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(summary).Write(w, r)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	projectID, err := pathID(r, "projectId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	year, err := ParseYear(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	months, err := s.deps.Reports.MonthlyExpenses(r.Context(), id, projectID, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(months).Write(w, r)
}

func (s *Server) handleAnnual(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	projectID, err := pathID(r, "projectId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	years, err := ParseYears(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	totals, err := s.deps.Reports.AnnualExpenses(r.Context(), id, projectID, years)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(totals).Write(w, r)
}
