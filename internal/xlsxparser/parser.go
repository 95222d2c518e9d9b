// =============================================================================
// Trip Dashboard - XLSX Parser
// =============================================================================
//
// This module reads trip exports saved as Excel workbooks. The rows of the
// first visible sheet are returned in the same shape the CSV parser produces,
// so the Header Locator and the Normalizer handle both inputs the same way.
//
// CELL HANDLING:
//   - Cells are read as their formatted display text
//   - Every cell is trimmed of surrounding whitespace
//   - Rows whose cells are all empty are dropped
//   - Trailing empty cells are not padded; short rows stay short
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheets is returned for a workbook without worksheets.
var ErrNoSheets = errors.New("workbook has no sheets")

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a workbook from disk.
//
// PARAMETERS:
//   - path: The path to the XLSX file.
//
// RETURNS:
//   - The non-empty rows of the first visible sheet.
//   - An error if the file cannot be opened or read.
func Parse(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readFirstSheet(f)
}

// ParseReader reads a workbook from a stream, such as an uploaded file.
func ParseReader(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readFirstSheet(f)
}

// readFirstSheet collects the rows of the first visible sheet.
func readFirstSheet(f *excelize.File) ([][]string, error) {
	sheetName := firstVisibleSheet(f)
	if sheetName == "" {
		return nil, ErrNoSheets
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheetName, err)
	}

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if isRowEmpty(row) {
			continue
		}
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = strings.TrimSpace(cell)
		}
		out = append(out, cells)
	}
	return out, nil
}

// firstVisibleSheet returns the first sheet not marked hidden, falling back
// to the first sheet of the workbook.
func firstVisibleSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	for _, name := range sheets {
		visible, err := f.GetSheetVisible(name)
		if err == nil && visible {
			return name
		}
	}
	if len(sheets) > 0 {
		return sheets[0]
	}
	return ""
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
