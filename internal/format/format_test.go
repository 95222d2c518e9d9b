package format

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/trip-dashboard/internal/trips"
)

func TestEUR(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234.56", "€1,234.56"},
		{"0", "€0.00"},
		{"12.5", "€12.50"},
		{"-12.5", "-€12.50"},
		{"1000000", "€1,000,000.00"},
		{"2.345", "€2.35"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := EUR(decimal.RequireFromString(tt.in)); got != tt.want {
				t.Errorf("EUR(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDay(t *testing.T) {
	if got := Day("2024-01-15"); got != "Mon, Jan 15, 2024" {
		t.Errorf("unexpected label %q", got)
	}
	if got := Day("not-a-date"); got != "not-a-date" {
		t.Errorf("invalid keys should pass through, got %q", got)
	}
}

func TestTransactions(t *testing.T) {
	got := Transactions([]trips.Transaction{
		{Type: "Fare", EUR: decimal.NewFromInt(10)},
		{Type: "Tip", EUR: decimal.NewFromInt(2)},
	})
	if got != "Fare: €10.00 · Tip: €2.00" {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestCount(t *testing.T) {
	if got := Count(12345); got != "12,345" {
		t.Errorf("unexpected count %q", got)
	}
}
