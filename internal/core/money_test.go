package core

import (
	"encoding/json"
	"testing"
)

func TestParseAmountInput(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.50", true},
		{"0", "0.00", true},
		{"-1", "", false},
		{"+1", "", false},
		{"1e3", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmountInput(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestAmountAddPropagatesInvalid(t *testing.T) {
	a := MustAmount("10.50")
	b := MustAmount("2.25")
	if got := a.Add(b).String(); got != "12.75" {
		t.Fatalf("expected 12.75, got %s", got)
	}
	if got := a.Add(Amount{}); got.Valid {
		t.Fatalf("expected invalid sum, got %s", got)
	}
	if got := Sum(); !got.Valid || got.String() != "0.00" {
		t.Fatalf("empty sum should be 0.00, got %s", got)
	}
	if got := Sum(a, Amount{}, b).String(); got != "NaN" {
		t.Fatalf("expected NaN, got %s", got)
	}
}

func TestAmountJSONCoercion(t *testing.T) {
	var items []struct {
		Amount Amount `json:"amount"`
	}
	data := `[{"amount": 12.5}, {"amount": "7.25"}, {"amount": "abc"}, {"amount": null}, {}]`
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []string{"12.50", "7.25", "NaN", "NaN", "NaN"}
	for i, w := range want {
		if got := items[i].Amount.String(); got != w {
			t.Fatalf("item %d: expected %s, got %s", i, w, got)
		}
	}

	out, err := json.Marshal(items[:3])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `[{"amount":12.5},{"amount":7.25},{"amount":null}]` {
		t.Fatalf("unexpected encoding: %s", out)
	}
}
