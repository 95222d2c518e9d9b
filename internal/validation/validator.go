// =============================================================================
// Trip Dashboard - Row Validation Module
// =============================================================================
//
// This module checks the data rows of a trip export and reports, row by row,
// what the normalizer will do with them. The normalizer itself only counts
// skipped rows; this module says which rows and why.
//
// SEVERITIES:
//   - error   : The row is skipped (missing field, impossible date, too few
//               cells).
//   - warning : The row is kept but something is off (a time that cannot be
//               sorted, an amount that is read as 0 or only partly read).
//
// ROW NUMBERS:
//   Row numbers count the non-empty parsed rows of the file, starting at 1,
//   so the header row of a file without a preamble is row 1.
//
// =============================================================================

package validation

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ginjaninja78/trip-dashboard/internal/csvparser"
	"github.com/ginjaninja78/trip-dashboard/internal/trips"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Severity says whether a finding drops the row.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError is one finding on one row.
type ValidationError struct {
	// Row is the 1-based parsed row number.
	Row int

	// Column is the header name of the offending cell. Empty for findings
	// about the whole row.
	Column string

	// Value is the raw cell value.
	Value string

	// Message describes the problem.
	Message string

	Severity Severity
}

// Error returns the finding as a single line.
func (e *ValidationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d, %s: %s (value: %q)", e.Row, e.Column, e.Message, e.Value)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult collects the findings of one file.
type ValidationResult struct {
	// HeaderRow is the 1-based row number of the header.
	HeaderRow int

	// RowsChecked counts the rows after the header.
	RowsChecked int

	// ValidRows counts rows without an error. Rows with only warnings are
	// valid.
	ValidRows int

	Errors   []*ValidationError
	Warnings []*ValidationError
}

// IsValid reports whether no row will be skipped.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

var (
	numberPattern = regexp.MustCompile(`^-?(?:\d+(?:\.\d*)?|\.\d+)$`)
	amountStrip   = regexp.MustCompile(`[^0-9.\-]`)
)

// ValidateRows checks every row that follows the trip header.
//
// PARAMETERS:
//   - rows: All parsed rows of the file, preamble included, as returned by
//     csvparser.Parse or the XLSX reader.
//
// RETURNS:
//   - The findings, in row order.
//   - csvparser.ErrHeaderNotFound if the file has no trip header.
func ValidateRows(rows [][]string) (*ValidationResult, error) {
	headerIndex, err := csvparser.FindHeader(rows)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{HeaderRow: headerIndex + 1}
	for i := headerIndex + 1; i < len(rows); i++ {
		result.RowsChecked++
		findings := ValidateRow(i+1, rows[i])

		dropped := false
		for _, f := range findings {
			if f.Severity == SeverityError {
				result.Errors = append(result.Errors, f)
				dropped = true
			} else {
				result.Warnings = append(result.Warnings, f)
			}
		}
		if !dropped {
			result.ValidRows++
		}
	}
	return result, nil
}

// ValidateRow checks a single data row.
func ValidateRow(rowNumber int, row []string) []*ValidationError {
	header := csvparser.ExpectedHeader
	if len(row) < len(header) {
		return []*ValidationError{{
			Row:      rowNumber,
			Message:  fmt.Sprintf("row has %d of %d cells and is ignored", len(row), len(header)),
			Severity: SeverityError,
		}}
	}

	var findings []*ValidationError
	add := func(col int, severity Severity, format string, args ...any) {
		findings = append(findings, &ValidationError{
			Row:      rowNumber,
			Column:   header[col],
			Value:    row[col],
			Message:  fmt.Sprintf(format, args...),
			Severity: severity,
		})
	}

	for _, col := range []int{colDate, colTime, colPickup, colDropoff} {
		if row[col] == "" {
			add(col, SeverityError, "required field is empty")
		}
	}

	if row[colDate] != "" {
		if _, ok := trips.ParseUSDate(row[colDate]); !ok {
			add(colDate, SeverityError, "date is not a valid MM/DD/YYYY date")
		}
	}
	if row[colTime] != "" {
		if _, _, ok := trips.ParseTime(row[colTime]); !ok {
			add(colTime, SeverityWarning, "time is not H:MM AM/PM; the trip sorts last")
		}
	}

	for _, col := range []int{colLocalAmount, colEURAmount} {
		if msg := validateAmount(row[col]); msg != "" {
			add(col, SeverityWarning, "%s", msg)
		}
	}
	return findings
}

// =============================================================================
// FIELD VALIDATORS
// =============================================================================

// Column positions within a data row, matching csvparser.ExpectedHeader.
const (
	colDate        = 0
	colTime        = 1
	colPickup      = 7
	colDropoff     = 8
	colLocalAmount = 10
	colEURAmount   = 11
)

// validateAmount returns an empty string when the amount reads cleanly.
func validateAmount(raw string) string {
	if raw == "" {
		return "amount is empty and counts as 0"
	}
	cleaned := amountStrip.ReplaceAllString(raw, "")
	if numberPattern.MatchString(cleaned) {
		return ""
	}
	return fmt.Sprintf("amount is not a plain number and is read as %s", trips.ParseAmount(raw).String())
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats findings for display, one per line.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return ""
	}

	var b strings.Builder
	for _, err := range errors {
		fmt.Fprintf(&b, "  [%s] %s\n", err.Severity, err.Error())
	}
	return b.String()
}

// WriteErrorLog writes the result of a file to an error log.
//
// PARAMETERS:
//   - source: The validated file, printed in the log header.
//   - result: The validation result.
//   - filePath: The log file to create.
func WriteErrorLog(source string, result *ValidationResult, filePath string) error {
	var b strings.Builder
	b.WriteString("Trip Dashboard - Validation Log\n")
	b.WriteString("================================================================================\n\n")
	fmt.Fprintf(&b, "File:           %s\n", source)
	fmt.Fprintf(&b, "Header Row:     %d\n", result.HeaderRow)
	fmt.Fprintf(&b, "Rows Checked:   %d\n", result.RowsChecked)
	fmt.Fprintf(&b, "Valid Rows:     %d\n", result.ValidRows)
	fmt.Fprintf(&b, "Errors:         %d\n", len(result.Errors))
	fmt.Fprintf(&b, "Warnings:       %d\n\n", len(result.Warnings))

	if len(result.Errors) > 0 {
		b.WriteString("Errors (rows skipped):\n")
		b.WriteString(FormatErrors(result.Errors))
		b.WriteString("\n")
	}
	if len(result.Warnings) > 0 {
		b.WriteString("Warnings:\n")
		b.WriteString(FormatErrors(result.Warnings))
	}

	if err := os.WriteFile(filePath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write validation log: %w", err)
	}
	return nil
}
