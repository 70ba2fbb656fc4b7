package http

import (
	"net/http"
	"strings"

	"bookkeeper/internal/core"
	"bookkeeper/internal/export"
)

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	totals, err := s.reports.Totals(r.Context(), ownerFrom(r.Context()), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, totals)
}

func (s *Server) handleCategorySummaries(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	summaries, err := s.reports.CategorySummaries(r.Context(), ownerFrom(r.Context()), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if wantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="category-summary.csv"`)
		if err := export.WriteCategorySummariesCSV(w, summaries); err != nil {
			writeError(w, r, err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, summaries)
}

func (s *Server) handleMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := core.ParseDate(strings.TrimSpace(q.Get("start")))
	if err != nil {
		writeError(w, r, core.NewValidationError("start", "invalid date, want YYYY-MM-DD"))
		return
	}
	end, err := core.ParseDate(strings.TrimSpace(q.Get("end")))
	if err != nil {
		writeError(w, r, core.NewValidationError("end", "invalid date, want YYYY-MM-DD"))
		return
	}

	trend, err := s.reports.MonthlyTrend(r.Context(), ownerFrom(r.Context()), start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, trend)
}
