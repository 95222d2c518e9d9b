// =============================================================================
// Trip Dashboard - CSV Parser Module
// =============================================================================
//
// This module turns the raw text of a ride-service transaction export into
// rows of string cells and locates the data rows that follow the expected
// column header.
//
// PARSING RULES:
//   - A leading UTF-8 byte-order mark is stripped
//   - Cells may be wrapped in double quotes; quoted cells may contain commas
//     and line breaks
//   - A doubled quote inside a quoted cell ("") is a literal quote
//   - Both \n and \r\n terminate a row
//   - Every cell is trimmed of surrounding whitespace
//   - Rows whose cells are all empty are dropped
//
// The parser is permissive: malformed quoting never raises an error, and an
// unterminated quote consumes the rest of the input into the current cell.
//
// =============================================================================

package csvparser

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// =============================================================================
// EXPECTED HEADER
// =============================================================================

// ExpectedHeader is the fixed column header of a transaction export. Rows
// before it (titles, preamble) are ignored.
var ExpectedHeader = []string{
	"Request Date (UTC)",
	"Request Time (UTC)",
	"First Name",
	"Last Name",
	"Employee ID",
	"Service",
	"City",
	"Pickup Address",
	"Drop-off Address",
	"Transaction Type",
	"Transaction Amount (Local Currency)",
	"Transaction Amount EUR",
}

// ErrHeaderNotFound is returned when no row matches ExpectedHeader.
var ErrHeaderNotFound = errors.New("could not find the trip transactions header in this file")

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse splits CSV text into rows of trimmed cells.
//
// PARAMETERS:
//   - text: The full CSV document.
//
// RETURNS:
//   - The non-empty rows in document order. Parse never fails.
func Parse(text string) [][]string {
	input := strings.TrimPrefix(text, "\ufeff")

	var (
		rows     [][]string
		row      []string
		cell     strings.Builder
		inQuotes bool
	)

	endCell := func() {
		row = append(row, strings.TrimSpace(cell.String()))
		cell.Reset()
	}

	for i := 0; i < len(input); i++ {
		c := input[i]

		switch {
		case c == '"':
			if inQuotes && i+1 < len(input) && input[i+1] == '"' {
				cell.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes

		case c == ',' && !inQuotes:
			endCell()

		case (c == '\n' || c == '\r') && !inQuotes:
			if c == '\r' && i+1 < len(input) && input[i+1] == '\n' {
				i++
			}
			endCell()
			rows = append(rows, row)
			row = nil

		default:
			cell.WriteByte(c)
		}
	}

	if cell.Len() > 0 || len(row) > 0 {
		endCell()
		rows = append(rows, row)
	}

	nonEmpty := rows[:0]
	for _, r := range rows {
		if !isRowEmpty(r) {
			nonEmpty = append(nonEmpty, r)
		}
	}
	return nonEmpty
}

// ParseReader reads the whole document from r and parses it.
func ParseReader(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return Parse(string(data)), nil
}

// =============================================================================
// HEADER LOCATOR
// =============================================================================

// FindDataRows returns the rows that follow the first row matching
// ExpectedHeader.
//
// PARAMETERS:
//   - rows: Parsed rows, for example from Parse or the XLSX reader.
//
// RETURNS:
//   - Every later row with at least len(ExpectedHeader) cells. Extra trailing
//     cells are kept but ignored downstream.
//   - ErrHeaderNotFound if no row carries the header.
func FindDataRows(rows [][]string) ([][]string, error) {
	headerIndex, err := FindHeader(rows)
	if err != nil {
		return nil, err
	}

	var data [][]string
	for _, row := range rows[headerIndex+1:] {
		if len(row) >= len(ExpectedHeader) {
			data = append(data, row)
		}
	}
	return data, nil
}

// FindHeader returns the index of the first row matching ExpectedHeader, or
// ErrHeaderNotFound.
func FindHeader(rows [][]string) (int, error) {
	for i, row := range rows {
		if isHeaderRow(row) {
			return i, nil
		}
	}
	return -1, ErrHeaderNotFound
}

// isHeaderRow reports whether the first cells of row equal ExpectedHeader.
func isHeaderRow(row []string) bool {
	if len(row) < len(ExpectedHeader) {
		return false
	}
	for i, column := range ExpectedHeader {
		if row[i] != column {
			return false
		}
	}
	return true
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
