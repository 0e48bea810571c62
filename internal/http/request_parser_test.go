package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"expensetrack/internal/core"
)

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantJSON bool
		want     map[string]string
	}{
		{
			name: "form encoded",
			body: "title=Lunch&amount=12%2C50&category=food",
			want: map[string]string{"title": "Lunch", "amount": "12,50", "category": "food"},
		},
		{
			name:     "json with number",
			body:     `{"title":" Taxi ","amount":7.5,"id":3}`,
			wantJSON: true,
			want:     map[string]string{"title": "Taxi", "amount": "7.5", "id": "3", "missing": ""},
		},
		{
			name: "control characters stripped",
			body: "title=" + url.QueryEscape("Tea\x00\x07"),
			want: map[string]string{"title": "Tea"},
		},
		{
			name: "empty body",
			body: "",
			want: map[string]string{"title": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(tt.body))
			p := NewRequestBodyParser(r)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
			for k, v := range tt.want {
				if got := p.Get(k); got != v {
					t.Errorf("Get(%q) = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestRequestBodyParser_MalformedJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(`{"title":`))
	if err := NewRequestBodyParser(r).Parse(); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func parserFor(t *testing.T, body string) *RequestBodyParser {
	t.Helper()
	p := NewRequestBodyParser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return p
}

func TestParseExpenseInput(t *testing.T) {
	e, err := ParseExpenseInput(parserFor(t, "title=Lunch&amount=12,345&category=FOOD&date=2024-06-10"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Title != "Lunch" || e.Amount.String() != "12.35" || e.Category != core.Food || e.Date != "2024-06-10" {
		t.Fatalf("unexpected expense %+v", e)
	}

	// New expenses never fail parsing; bad fields are left to validation
	// and a stray id is ignored.
	e, err = ParseExpenseInput(parserFor(t, "id=abc&title=x&amount=abc&category=Food&date=2024-06-10"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID != 0 {
		t.Fatalf("id should be ignored, got %d", e.ID)
	}
	if e.Amount.Valid {
		t.Fatal("non-numeric amount should be invalid")
	}
	if err := e.Validate(); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("Validate() = %v, want ErrInvalidAmount", err)
	}

	for _, body := range []string{"title=x", "id=abc", "id=-4", "id=0"} {
		if _, err := ParseExpenseInput(parserFor(t, body), true); !errors.Is(err, errInvalidID) {
			t.Errorf("%s: error = %v, want errInvalidID", body, err)
		}
	}
	e, err = ParseExpenseInput(parserFor(t, "id=42&title=x"), true)
	if err != nil || e.ID != 42 {
		t.Fatalf("expected id 42, got %d (%v)", e.ID, err)
	}
}

func TestValidationMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{core.ErrEmptyTitle, "Title is required"},
		{core.ErrInvalidAmount, "Amount must be a non-negative number"},
		{core.ErrEmptyCategory, "Category is required"},
		{core.ErrInvalidDate, "Date must be a valid YYYY-MM-DD date"},
		{errInvalidID, "Invalid expense id"},
		{errors.New("other"), "Invalid request"},
	}
	for _, tt := range tests {
		if got := validationMessage(tt.err); got != tt.want {
			t.Errorf("validationMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRequireMethod(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if RequirePOST(r) == nil {
		t.Fatal("GET should not satisfy RequirePOST")
	}
	w := httptest.NewRecorder()
	RequireDeleteOrPOST(r).Write(w)
	if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != "DELETE, POST" {
		t.Fatalf("status = %d, Allow = %q", w.Code, w.Header().Get("Allow"))
	}
	if RequireDeleteOrPOST(httptest.NewRequest(http.MethodDelete, "/", nil)) != nil {
		t.Fatal("DELETE should satisfy RequireDeleteOrPOST")
	}
}

func TestFormatAmountAndIcon(t *testing.T) {
	if got := formatAmount(core.MustAmount("12.5")); got != "₹12.50" {
		t.Errorf("formatAmount = %q", got)
	}
	if got := formatAmount(core.Amount{}); got != "₹NaN" {
		t.Errorf("formatAmount(invalid) = %q", got)
	}
	if categoryIcon(core.Food) == categoryIcon("Groceries") {
		t.Error("known categories have their own icon")
	}
	if categoryIcon("Groceries") != categoryIcon(core.Other) {
		t.Error("unknown labels share the default icon")
	}
}
