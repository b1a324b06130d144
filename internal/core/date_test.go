package core

import "testing"

func TestDateArithmetic(t *testing.T) {
	tests := []struct {
		name string
		got  Date
		want Date
	}{
		{"leap february", NewDate(2024, 2, 10).EndOfMonth(), NewDate(2024, 2, 29)},
		{"plain february", NewDate(2023, 2, 10).EndOfMonth(), NewDate(2023, 2, 28)},
		{"december", NewDate(2024, 12, 5).EndOfMonth(), NewDate(2024, 12, 31)},
		{"end of year", NewDate(2024, 2, 10).EndOfYear(), NewDate(2024, 12, 31)},
		{"start of month", NewDate(2024, 2, 10).StartOfMonth(), NewDate(2024, 2, 1)},
		{"add days across month", NewDate(2024, 1, 28).AddDays(6), NewDate(2024, 2, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.Equal(tt.want) {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil || !d.Equal(NewDate(2024, 2, 29)) {
		t.Fatalf("got %s, %v", d, err)
	}
	if _, err := ParseDate("2023-02-29"); err == nil {
		t.Fatalf("expected error for invalid day")
	}
	if _, err := ParseDate("29/02/2024"); err == nil {
		t.Fatalf("expected error for wrong layout")
	}
}

func TestDateRangeContains(t *testing.T) {
	r := DateRange{From: NewDate(2024, 1, 1), To: NewDate(2024, 1, 31)}
	if !r.Contains(NewDate(2024, 1, 1)) || !r.Contains(NewDate(2024, 1, 31)) {
		t.Fatalf("bounds must be inclusive")
	}
	if r.Contains(NewDate(2023, 12, 31)) || r.Contains(NewDate(2024, 2, 1)) {
		t.Fatalf("outside dates must be excluded")
	}
	if !(DateRange{}).Contains(NewDate(1990, 5, 5)) {
		t.Fatalf("open range should contain everything")
	}
}
