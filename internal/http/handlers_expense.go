package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"expensetrack/internal/core"
	applog "expensetrack/internal/log"
	"expensetrack/internal/report"
	"expensetrack/internal/services"
)

type expenseListData struct {
	Groups     []report.DayGroup
	Categories []core.Category
	Total      core.Amount
	Count      int
}

type indexData struct {
	Today string
	List  expenseListData
}

func (s *Server) expenseList(r *http.Request) expenseListData {
	ctx := r.Context()
	groups := s.svc.DayGroups(ctx, s.now().In(s.svc.Location()))
	total, count := core.Sum(), 0
	for _, g := range groups {
		total = total.Add(g.Total)
		count += g.Count
	}
	return expenseListData{
		Groups:     groups,
		Categories: core.Categories,
		Total:      total,
		Count:      count,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	s.writePage(w, r, "index.html", indexData{
		Today: core.FormatDateOnly(s.now().In(s.svc.Location())),
		List:  s.expenseList(r),
	})
}

func (s *Server) handleExpensesPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	s.writePage(w, r, "expense_list", s.expenseList(r))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Malformed request body").Write(w)
		return
	}
	input, err := ParseExpenseInput(p, false)
	if err != nil {
		s.writeValidationError(w, p, err)
		return
	}

	created, err := s.svc.Create(ctx, input)
	if err != nil {
		s.log(ctx).WarnContext(ctx, "Rejected expense", applog.FieldOperation, applog.OpCreate,
			applog.FieldError, err, "error_type", applog.ErrorTypeValidation)
		s.writeValidationError(w, p, err)
		return
	}

	if p.IsJSON() {
		writeJSON(w, http.StatusCreated, created)
		return
	}
	s.respondMutation(w, r, NewHTMXResponse().
		TriggerExpenseCreated(created.ID).
		TriggerFormReset().
		TriggerSummaryRefresh().
		TriggerSuccessNotification("Expense added"))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Malformed request body").Write(w)
		return
	}
	input, err := ParseExpenseInput(p, true)
	if err != nil {
		s.writeValidationError(w, p, err)
		return
	}

	updated, err := s.svc.Update(ctx, input)
	switch {
	case errors.Is(err, services.ErrExpenseNotFound):
		s.writeNotFound(w, p)
		return
	case err != nil:
		s.log(ctx).WarnContext(ctx, "Rejected expense", applog.FieldOperation, applog.OpUpdate,
			applog.FieldExpenseID, input.ID, applog.FieldError, err, "error_type", applog.ErrorTypeValidation)
		s.writeValidationError(w, p, err)
		return
	}

	if p.IsJSON() {
		writeJSON(w, http.StatusOK, updated)
		return
	}
	s.respondMutation(w, r, NewHTMXResponse().
		TriggerExpenseUpdated(updated.ID).
		TriggerSummaryRefresh().
		TriggerSuccessNotification("Expense updated"))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	// hx-delete sends parameters in the query string, forms in the body.
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Malformed request body").Write(w)
		return
	}
	rawID := r.URL.Query().Get("id")
	if rawID == "" {
		rawID = p.Get("id")
	}
	id, err := parseID(rawID)
	if err != nil {
		s.writeValidationError(w, p, err)
		return
	}

	if err := s.svc.Delete(ctx, id); err != nil {
		if errors.Is(err, services.ErrExpenseNotFound) {
			s.writeNotFound(w, p)
			return
		}
		s.log(ctx).ErrorContext(ctx, "Delete failed", applog.FieldExpenseID, id, applog.FieldError, err)
		InternalServerError("Delete failed").Write(w)
		return
	}

	if p.IsJSON() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.respondMutation(w, r, NewHTMXResponse().
		TriggerExpenseDeleted(id).
		TriggerSummaryRefresh().
		TriggerSuccessNotification("Expense deleted"))
}

// respondMutation answers HTMX requests with the refreshed list and plain
// form posts with a redirect back to the list.
func (s *Server) respondMutation(w http.ResponseWriter, r *http.Request, resp *HTMXResponseBuilder) {
	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	body, err := s.render(r.Context(), "expense_list", s.expenseList(r))
	if err != nil {
		InternalServerError("Rendering failed").Write(w)
		return
	}
	resp.BodyHTML(body).Write(w)
}

func (s *Server) writeValidationError(w http.ResponseWriter, p *RequestBodyParser, err error) {
	msg := validationMessage(err)
	if p.IsJSON() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": msg})
		return
	}
	UnprocessableEntityError(msg).TriggerErrorNotification(msg).Write(w)
}

func (s *Server) writeNotFound(w http.ResponseWriter, p *RequestBodyParser) {
	const msg = "Expense not found"
	if p.IsJSON() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": msg})
		return
	}
	NotFoundError(msg).TriggerErrorNotification(msg).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
