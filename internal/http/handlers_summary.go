package http

import (
	"html/template"
	"net/http"

	"expensetrack/internal/core"
	"expensetrack/internal/export"
	"expensetrack/internal/filter"
	applog "expensetrack/internal/log"
	"expensetrack/internal/report"
	"expensetrack/internal/services"
)

type link struct {
	Label  string
	Icon   string
	Query  template.URL
	Active bool
}

type summaryData struct {
	Selector   filter.Selector
	Query      template.URL
	Modes      []link
	Categories []link
	View       *services.SummaryView
}

func (s *Server) summaryData(r *http.Request) (summaryData, error) {
	sel, err := filter.FromQuery(r.URL.Query(), s.now(), s.svc.Location())
	if err != nil {
		return summaryData{}, err
	}
	view := s.svc.Summary(r.Context(), sel)

	modes := make([]link, 0, len(filter.TimeModes))
	defaults := filter.DefaultSelectorValues(s.now().In(s.svc.Location()))
	for _, m := range filter.TimeModes {
		target := defaults.Selector(m)
		target.Categories = sel.Categories
		modes = append(modes, link{
			Label:  m.String(),
			Query:  template.URL(target.Query().Encode()),
			Active: m == sel.Mode,
		})
	}

	cats := []link{{
		Label:  filter.AllCategories,
		Icon:   categoryIcon(core.Other),
		Query:  template.URL(sel.Toggle(filter.AllCategories).Query().Encode()),
		Active: len(sel.Categories) == 0,
	}}
	for _, c := range core.Categories {
		cats = append(cats, link{
			Label:  string(c),
			Icon:   categoryIcon(c),
			Query:  template.URL(sel.Toggle(c).Query().Encode()),
			Active: sel.Selected(c),
		})
	}

	return summaryData{
		Selector:   sel,
		Query:      template.URL(sel.Query().Encode()),
		Modes:      modes,
		Categories: cats,
		View:       view,
	}, nil
}

func (s *Server) handleSummaryPage(w http.ResponseWriter, r *http.Request) {
	s.serveSummary(w, r, "summary.html")
}

func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	s.serveSummary(w, r, "summary_panel")
}

func (s *Server) serveSummary(w http.ResponseWriter, r *http.Request, name string) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	data, err := s.summaryData(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	s.writePage(w, r, name, data)
}

type selectorJSON struct {
	Mode       string          `json:"mode"`
	Day        string          `json:"date,omitempty"`
	WeekStart  string          `json:"start,omitempty"`
	WeekEnd    string          `json:"end,omitempty"`
	Month      string          `json:"month,omitempty"`
	Categories []core.Category `json:"categories"`
}

type categoryJSON struct {
	Category core.Category `json:"category"`
	Total    core.Amount   `json:"total"`
	Count    int           `json:"count"`
}

type summaryJSON struct {
	Selector   selectorJSON   `json:"selector"`
	Total      core.Amount    `json:"total"`
	Count      int            `json:"count"`
	Categories []categoryJSON `json:"categories"`
}

func toSelectorJSON(sel filter.Selector) selectorJSON {
	out := selectorJSON{Mode: sel.Mode.Param(), Categories: sel.Categories}
	switch sel.Mode {
	case filter.Daily:
		out.Day = sel.Day
	case filter.Weekly:
		out.WeekStart, out.WeekEnd = sel.WeekStart, sel.WeekEnd
	case filter.Monthly:
		out.Month = sel.Month
	}
	if out.Categories == nil {
		out.Categories = []core.Category{}
	}
	return out
}

// apiView resolves the selector of an API request, writing a 400 on failure.
func (s *Server) apiView(w http.ResponseWriter, r *http.Request) (*services.SummaryView, bool) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return nil, false
	}
	sel, err := filter.FromQuery(r.URL.Query(), s.now(), s.svc.Location())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return nil, false
	}
	return s.svc.Summary(r.Context(), sel), true
}

// handleAPIExpenses lists every expense, or the filtered list when any
// selector parameter is present.
func (s *Server) handleAPIExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("mode") && !q.Has("category") {
		if resp := RequireMethod(r, http.MethodGet); resp != nil {
			resp.Write(w)
			return
		}
		expenses := s.svc.List(r.Context())
		if expenses == nil {
			expenses = []core.Expense{}
		}
		writeJSON(w, http.StatusOK, expenses)
		return
	}
	view, ok := s.apiView(w, r)
	if !ok {
		return
	}
	expenses := view.Expenses
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	view, ok := s.apiView(w, r)
	if !ok {
		return
	}
	out := summaryJSON{
		Selector:   toSelectorJSON(view.Selector),
		Total:      view.Summary.Total,
		Count:      view.Summary.Count,
		Categories: make([]categoryJSON, 0, len(view.Summary.Categories)),
	}
	for _, g := range view.Summary.Categories {
		out.Categories = append(out.Categories, categoryJSON{Category: g.Category, Total: g.Total, Count: g.Count})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPIBreakdown(w http.ResponseWriter, r *http.Request) {
	view, ok := s.apiView(w, r)
	if !ok {
		return
	}
	out := view.Breakdown
	if out == nil {
		out = []report.Slice{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	view, ok := s.apiView(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)
	if err := export.WriteExpenses(w, view.Expenses); err != nil {
		// Headers are already sent; only the log can tell.
		s.log(r.Context()).WithComponent(applog.ComponentExport).ErrorContext(r.Context(), "CSV export failed",
			applog.FieldOperation, applog.OpExport, applog.FieldError, err)
	}
}
