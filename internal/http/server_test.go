package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"expensetrack/internal/core"
	applog "expensetrack/internal/log"
	"expensetrack/internal/middleware/trace"
	"expensetrack/internal/services"
	"expensetrack/internal/storage"
)

var fixedNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...Option) (*Server, *services.ExpenseService) {
	t.Helper()
	store := storage.NewExpenseStore(storage.NewMemoryKV(), storage.WithLogger(applog.Discard()))
	svc := services.NewExpenseService(store,
		services.WithLocation(time.UTC),
		services.WithLogger(applog.Discard()))

	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(applog.Discard()),
		WithRateLimit(1000),
	}
	srv, err := NewServer(":0", svc, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, svc
}

func do(t *testing.T, srv *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, r)
	return rr
}

var htmx = map[string]string{"HX-Request": "true"}

func seed(t *testing.T, svc *services.ExpenseService, expenses ...core.Expense) []core.Expense {
	t.Helper()
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		created, err := svc.Create(context.Background(), e)
		if err != nil {
			t.Fatalf("seed %+v: %v", e, err)
		}
		out = append(out, created)
	}
	return out
}

func exp(title, amount string, cat core.Category, date string) core.Expense {
	return core.Expense{Title: title, Amount: core.MustAmount(amount), Category: cat, Date: date}
}

func TestIndexAndHealth(t *testing.T) {
	srv, svc := newTestServer(t)
	seed(t, svc, exp("Coffee", "3", core.Food, "2024-06-10"), exp("Bus", "2", core.Travel, "2024-06-09"))

	rr := do(t, srv, http.MethodGet, "/", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Add Expense", "Coffee", "Today", "Yesterday", "10/06/2024", "₹3.00"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}
	if rr.Header().Get(trace.HeaderRequestID) == "" {
		t.Error("request id header missing")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, "", nil); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	if rr := do(t, srv, http.MethodGet, "/nope", "", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/static/app.css", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
}

func TestReadinessCheckFailure(t *testing.T) {
	srv, _ := newTestServer(t, WithReadinessCheck("store", func(context.Context) error {
		return errors.New("down")
	}))
	rr := do(t, srv, http.MethodGet, "/readyz", "", nil)
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "store") {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestCreateExpenseValidationAndSuccess(t *testing.T) {
	srv, svc := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/expenses", "title=&amount=1&category=Food&date=2024-06-10", htmx)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty title status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Title is required") || !strings.Contains(rr.Header().Get("HX-Trigger"), EventNotification) {
		t.Fatalf("unexpected rejection: %q %q", rr.Body.String(), rr.Header().Get("HX-Trigger"))
	}

	rr = do(t, srv, http.MethodPost, "/expenses", "title=Lunch&amount=abc&category=Food&date=2024-06-10", htmx)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad amount status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/expenses", "title=Lunch&amount=12,50&category=food&date=2024-06-10", htmx)
	if rr.Code != http.StatusOK {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Lunch") || !strings.Contains(rr.Body.String(), "₹12.50") {
		t.Fatalf("list partial missing new expense: %s", rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, ev := range []string{EventExpenseCreated, EventFormReset, EventSummaryRefresh} {
		if !strings.Contains(trigger, ev) {
			t.Errorf("HX-Trigger missing %s: %s", ev, trigger)
		}
	}

	rr = do(t, srv, http.MethodPost, "/expenses", "title=Taxi&amount=8&category=Travel&date=2024-06-09", nil)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("plain form post status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}

	if got := len(svc.List(context.Background())); got != 2 {
		t.Fatalf("stored %d expenses, want 2", got)
	}
	if got := svc.List(context.Background())[0].Title; got != "Taxi" {
		t.Fatalf("newest expense should be first, got %q", got)
	}

	if rr := do(t, srv, http.MethodGet, "/expenses", "", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /expenses status=%d", rr.Code)
	}
}

func TestCreateExpenseJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/expenses", `{"title":"Book","amount":20,"category":"Education","date":"2024-06-01"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created core.Expense
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == 0 || created.Category != core.Education || created.Amount.String() != "20.00" {
		t.Fatalf("unexpected expense %+v", created)
	}

	rr = do(t, srv, http.MethodPost, "/expenses", `{"title":"","amount":20,"category":"Education","date":"2024-06-01"}`, nil)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), `"error"`) {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodPost, "/expenses", `{"title":`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed json status=%d", rr.Code)
	}
}

func TestUpdateExpense(t *testing.T) {
	srv, svc := newTestServer(t)
	e := seed(t, svc, exp("Bus", "2", core.Travel, "2024-06-10"))[0]
	id := strconv.FormatInt(e.ID, 10)

	rr := do(t, srv, http.MethodPost, "/expenses/update", "id="+id+"&title=Train&amount=5&category=Travel&date=2024-06-09", htmx)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), EventExpenseUpdated) {
		t.Fatalf("missing update trigger: %s", rr.Header().Get("HX-Trigger"))
	}
	got, err := svc.Get(context.Background(), e.ID)
	if err != nil || got.Title != "Train" || got.Date != "2024-06-09" || got.Amount.String() != "5.00" {
		t.Fatalf("expense not replaced: %+v (%v)", got, err)
	}

	rr = do(t, srv, http.MethodPost, "/expenses/update", "id=999&title=x&amount=1&category=Food&date=2024-06-09", htmx)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown id status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodPost, "/expenses/update", "title=x&amount=1&category=Food&date=2024-06-09", htmx)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing id status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodPost, "/expenses/update", "id="+id+"&title=x&amount=1&category=&date=2024-06-09", htmx)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty category status=%d", rr.Code)
	}
}

func TestDeleteExpense(t *testing.T) {
	srv, svc := newTestServer(t)
	e := seed(t, svc, exp("Bus", "2", core.Travel, "2024-06-10"), exp("Tea", "1", core.Food, "2024-06-10"))[0]
	id := strconv.FormatInt(e.ID, 10)

	rr := do(t, srv, http.MethodDelete, "/expenses/delete?id="+id, "", htmx)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), ">Bus<") {
		t.Fatal("deleted expense still listed")
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), EventExpenseDeleted) {
		t.Fatalf("missing delete trigger: %s", rr.Header().Get("HX-Trigger"))
	}
	if _, err := svc.Get(context.Background(), e.ID); !errors.Is(err, services.ErrExpenseNotFound) {
		t.Fatalf("expense still stored: %v", err)
	}

	if rr := do(t, srv, http.MethodDelete, "/expenses/delete?id="+id, "", htmx); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/expenses/delete", "id=abc", htmx); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad id status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/expenses/delete?id="+id, "", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET delete status=%d", rr.Code)
	}
}

func seedSummary(t *testing.T, svc *services.ExpenseService) {
	t.Helper()
	seed(t, svc,
		exp("Rent", "500", core.Rent, "2024-06-01"),
		exp("Pizza", "12", core.Food, "2024-06-10"),
		exp("Flight", "300", core.Travel, "2024-07-01"),
	)
}

func TestAPISummary(t *testing.T) {
	srv, svc := newTestServer(t)
	seedSummary(t, svc)

	rr := do(t, srv, http.MethodGet, "/api/summary?mode=monthly&month=2024-06", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got struct {
		Selector struct {
			Mode  string `json:"mode"`
			Month string `json:"month"`
		} `json:"selector"`
		Total      float64 `json:"total"`
		Count      int     `json:"count"`
		Categories []struct {
			Category string  `json:"category"`
			Total    float64 `json:"total"`
			Count    int     `json:"count"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Selector.Mode != "monthly" || got.Selector.Month != "2024-06" {
		t.Errorf("selector = %+v", got.Selector)
	}
	if got.Total != 512 || got.Count != 2 || len(got.Categories) != 2 {
		t.Fatalf("unexpected summary %+v", got)
	}

	rr = do(t, srv, http.MethodGet, "/api/summary?mode=all&category=Travel", "", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 300 || got.Count != 1 {
		t.Fatalf("category filter ignored: %+v", got)
	}

	if rr := do(t, srv, http.MethodGet, "/api/summary?mode=yearly", "", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad mode status=%d", rr.Code)
	}
}

func TestAPIExpensesAndBreakdown(t *testing.T) {
	srv, svc := newTestServer(t)
	seedSummary(t, svc)

	var all []core.Expense
	rr := do(t, srv, http.MethodGet, "/api/expenses", "", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &all); err != nil || len(all) != 3 {
		t.Fatalf("list = %d (%v)", len(all), err)
	}

	var daily []core.Expense
	rr = do(t, srv, http.MethodGet, "/api/expenses?mode=daily&date=2024-06-10", "", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &daily); err != nil || len(daily) != 1 || daily[0].Title != "Pizza" {
		t.Fatalf("daily list = %+v (%v)", daily, err)
	}

	var slices []struct {
		Category string  `json:"category"`
		Percent  float64 `json:"percent"`
		Color    string  `json:"color"`
	}
	rr = do(t, srv, http.MethodGet, "/api/breakdown?mode=monthly&month=2024-06", "", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &slices); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(slices) != 2 || slices[0].Percent != 97.7 || slices[1].Percent != 2.3 || slices[0].Color == slices[1].Color {
		t.Fatalf("unexpected breakdown %+v", slices)
	}

	rr = do(t, srv, http.MethodGet, "/api/breakdown?mode=daily&date=2023-01-01", "", nil)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("empty breakdown should be [], got %s", rr.Body.String())
	}
}

func TestSummaryPages(t *testing.T) {
	srv, svc := newTestServer(t)
	seedSummary(t, svc)

	rr := do(t, srv, http.MethodGet, "/summary", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d", rr.Code)
	}
	// Daily on the clock's date by default.
	if !strings.Contains(rr.Body.String(), "Pizza") || strings.Contains(rr.Body.String(), "Flight") {
		t.Fatalf("default daily window not applied")
	}

	q := url.Values{"mode": {"monthly"}, "month": {"2024-06"}, "category": {"Rent"}}
	rr = do(t, srv, http.MethodGet, "/ui/summary?"+q.Encode(), "", htmx)
	body := rr.Body.String()
	if rr.Code != http.StatusOK || strings.Contains(body, "<html") {
		t.Fatalf("partial status=%d", rr.Code)
	}
	for _, want := range []string{"Rent", "₹500.00", "01/06/2024", "Total Spent"} {
		if !strings.Contains(body, want) {
			t.Errorf("partial missing %q", want)
		}
	}
	if strings.Contains(body, "Pizza") {
		t.Error("category selection ignored")
	}

	rr = do(t, srv, http.MethodGet, "/ui/summary?mode=daily&date=2023-01-01", "", htmx)
	if !strings.Contains(rr.Body.String(), "No expenses to summarize yet.") {
		t.Error("empty summary message missing")
	}
}

func TestExportCSV(t *testing.T) {
	srv, svc := newTestServer(t)
	seedSummary(t, svc)

	rr := do(t, srv, http.MethodGet, "/export.csv?mode=monthly&month=2024-07", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("Content-Type = %q", ct)
	}
	body := rr.Body.Bytes()
	if !bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatal("missing BOM")
	}
	if !bytes.Contains(body, []byte("Flight;300.00;Travel")) || bytes.Contains(body, []byte("Rent")) {
		t.Fatalf("unexpected export:\n%s", body)
	}
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, WithRateLimit(1))

	if rr := do(t, srv, http.MethodGet, "/api/expenses", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("first request status=%d", rr.Code)
	}
	rr := do(t, srv, http.MethodGet, "/api/expenses", "", nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status=%d", rr.Code)
	}
	// Health probes bypass the limiter.
	if rr := do(t, srv, http.MethodGet, "/healthz", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
}
