package validation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/trip-dashboard/internal/csvparser"
)

func header() []string {
	return append([]string(nil), csvparser.ExpectedHeader...)
}

func row(date, tm, pickup, dropoff, local, eur string) []string {
	return []string{date, tm, "Ann", "Lee", "E1", "UberX", "Madrid", pickup, dropoff, "Fare", local, eur}
}

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name     string
		row      []string
		errors   int
		warnings int
		column   string
	}{
		{
			name: "clean row",
			row:  row("01/15/2024", "2:30PM", "A", "B", "10.00", "10.00"),
		},
		{
			name:   "missing pickup",
			row:    row("01/15/2024", "2:30PM", "", "B", "10.00", "10.00"),
			errors: 1,
			column: "Pickup Address",
		},
		{
			name:   "impossible date",
			row:    row("02/30/2024", "2:30PM", "A", "B", "10.00", "10.00"),
			errors: 1,
			column: "Request Date (UTC)",
		},
		{
			name:     "unsortable time",
			row:      row("01/15/2024", "14h30", "A", "B", "10.00", "10.00"),
			warnings: 1,
			column:   "Request Time (UTC)",
		},
		{
			name:     "currency symbols are fine but text is not",
			row:      row("01/15/2024", "2:30PM", "A", "B", "€1,234.50", "n/a"),
			warnings: 1,
			column:   "Transaction Amount EUR",
		},
		{
			name:   "short row",
			row:    []string{"01/15/2024", "2:30PM"},
			errors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := ValidateRow(5, tt.row)
			var errs, warns int
			for _, f := range findings {
				if f.Row != 5 {
					t.Errorf("got row %d, want 5", f.Row)
				}
				if f.Severity == SeverityError {
					errs++
				} else {
					warns++
				}
			}
			if errs != tt.errors || warns != tt.warnings {
				t.Fatalf("got %d errors and %d warnings, want %d and %d: %v", errs, warns, tt.errors, tt.warnings, findings)
			}
			if tt.column != "" && findings[0].Column != tt.column {
				t.Errorf("got column %q, want %q", findings[0].Column, tt.column)
			}
		})
	}
}

func TestValidateRows(t *testing.T) {
	rows := [][]string{
		{"Business account report"},
		header(),
		row("01/15/2024", "2:30PM", "A", "B", "10.00", "10.00"),
		row("", "2:30PM", "A", "B", "10.00", "10.00"),
		row("01/16/2024", "9:00 am", "C", "D", "", "5"),
	}

	result, err := ValidateRows(rows)
	if err != nil {
		t.Fatalf("ValidateRows failed: %v", err)
	}
	if result.HeaderRow != 2 || result.RowsChecked != 3 || result.ValidRows != 2 {
		t.Errorf("unexpected counts %+v", result)
	}
	if result.IsValid() {
		t.Error("a row with an empty date should make the file invalid")
	}
	if len(result.Errors) != 1 || result.Errors[0].Row != 4 {
		t.Errorf("unexpected errors %v", result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0].Message, "empty") {
		t.Errorf("unexpected warnings %v", result.Warnings)
	}
}

func TestValidateRowsWithoutHeader(t *testing.T) {
	_, err := ValidateRows([][]string{{"a", "b"}})
	if !errors.Is(err, csvparser.ErrHeaderNotFound) {
		t.Errorf("got %v, want ErrHeaderNotFound", err)
	}
}

func TestWriteErrorLog(t *testing.T) {
	result, err := ValidateRows([][]string{
		header(),
		row("13/01/2024", "2:30PM", "A", "B", "10.00", "10.00"),
	})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "validation.log")
	if err := WriteErrorLog("trips.csv", result, path); err != nil {
		t.Fatalf("WriteErrorLog failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	log := string(data)
	for _, want := range []string{"File:           trips.csv", "Errors:         1", `row 2, Request Date (UTC)`} {
		if !strings.Contains(log, want) {
			t.Errorf("log is missing %q:\n%s", want, log)
		}
	}
}
