package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"NaN", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseSignedAmount(t *testing.T) {
	got, err := ParseSignedAmount("-12,5")
	if err != nil || !got.Equal(decimal.RequireFromString("-12.5")) {
		t.Fatalf("expected -12.5, got %s (err=%v)", got, err)
	}
	if _, err := ParseSignedAmount("Inf"); err == nil {
		t.Fatalf("expected error for Inf")
	}
}

func TestRoundToCurrency(t *testing.T) {
	tests := []struct {
		amount string
		code   string
		want   string
	}{
		{"10.005", "EUR", "10.01"},
		{"10.004", "EUR", "10"},
		{"1234.5", "JPY", "1235"},
		{"1.2345", "KWD", "1.235"},
	}
	for _, tt := range tests {
		got := RoundToCurrency(decimal.RequireFromString(tt.amount), tt.code)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("RoundToCurrency(%s, %s) = %s, want %s", tt.amount, tt.code, got, tt.want)
		}
	}
}

func TestValidateCurrency(t *testing.T) {
	if err := ValidateCurrency("eur"); err != nil {
		t.Fatalf("lower case code should be accepted, got %v", err)
	}
	if err := ValidateCurrency("KES"); err != nil {
		t.Fatalf("KES should be known, got %v", err)
	}
	if err := ValidateCurrency("ZZZZ"); err == nil {
		t.Fatalf("expected error for unknown code")
	}
}
