// =============================================================================
// Trip Dashboard - Converter Module
// =============================================================================
//
// This module contains the ingestion pipeline. It turns one uploaded export
// into the day collection the dashboard renders.
//
// CONVERSION PIPELINE:
//   1. Detect the input format (CSV text or XLSX workbook)
//   2. Parse the input into raw rows
//   3. Locate the transaction header and collect the data rows
//   4. Normalize rows into trips, merging transactions of the same trip
//   5. Group trips by day and compute the KPIs
//
// Input errors (no header, no trips) abort the conversion and are reported
// with a short user-facing message. Row-level problems never abort it; they
// are counted in the normalization report.
//
// =============================================================================

package converter

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/trip-dashboard/internal/csvparser"
	"github.com/ginjaninja78/trip-dashboard/internal/logger"
	"github.com/ginjaninja78/trip-dashboard/internal/trips"
	"github.com/ginjaninja78/trip-dashboard/internal/xlsxparser"
)

// ErrNoTrips is returned when the header was found but no data row produced
// a trip.
var ErrNoTrips = errors.New("no trip rows were found")

// =============================================================================
// INPUT FORMAT
// =============================================================================

// Format identifies how an input file is parsed.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// zipMagic starts every XLSX workbook.
var zipMagic = []byte("PK\x03\x04")

// DetectFormat picks the parser for a file from its extension, falling back
// to the first bytes of its content.
func DetectFormat(name string, head []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".txt":
		return FormatCSV
	}
	if bytes.HasPrefix(head, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of converting a single file.
type Result struct {
	// Source is the name of the input file.
	Source string

	// Format is the detected input format.
	Format Format

	// Days holds the trips grouped by date, newest first.
	Days []*trips.Day

	// KPIs summarise every day.
	KPIs trips.KPIs

	// Report counts merged and dropped rows.
	Report trips.Report

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the conversion.
type ProcessingStats struct {
	// RowsParsed is the number of non-empty rows in the input.
	RowsParsed int

	// DataRows is the number of rows after the header.
	DataRows int

	// TripsCreated is the number of trips after merging.
	TripsCreated int

	// ProcessingTime is the time taken to convert the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs the ingestion pipeline.
type Converter struct {
	logger *slog.Logger
}

// New creates a new Converter. A nil logger discards output.
func New(l *slog.Logger) *Converter {
	return &Converter{logger: logger.OrDiscard(l)}
}

// =============================================================================
// MAIN PROCESSING FUNCTIONS
// =============================================================================

// ReadRows detects the format of one input and parses it into raw rows,
// preamble included.
func ReadRows(name string, r io.Reader) ([][]string, Format, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zipMagic))
	format := DetectFormat(name, head)

	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatXLSX:
		rows, err = xlsxparser.ParseReader(br)
	default:
		rows, err = csvparser.ParseReader(br)
	}
	if err != nil {
		return nil, format, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return rows, format, nil
}

// ReadFileRows is ReadRows for the file at path.
func ReadFileRows(path string) ([][]string, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	return ReadRows(filepath.Base(path), f)
}

// ConvertFile converts the file at path.
func (c *Converter) ConvertFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	return c.Convert(filepath.Base(path), f)
}

// Convert runs the pipeline on one input.
//
// PARAMETERS:
//   - name: The file name, used for format detection and reporting.
//   - r: The file content.
//
// RETURNS:
//   - The converted result.
//   - csvparser.ErrHeaderNotFound or ErrNoTrips for input errors, or a
//     wrapped read error.
func (c *Converter) Convert(name string, r io.Reader) (*Result, error) {
	startTime := time.Now()

	// =========================================================================
	// STEP 1-2: DETECT FORMAT AND PARSE RAW ROWS
	// =========================================================================

	rows, format, err := ReadRows(name, r)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Processing file", "file", name, "format", format)

	result := &Result{Source: name, Format: format}
	result.Stats.RowsParsed = len(rows)
	c.logger.Debug("Parsed rows", "rows", len(rows))

	// =========================================================================
	// STEP 3: LOCATE HEADER
	// =========================================================================

	dataRows, err := csvparser.FindDataRows(rows)
	if err != nil {
		return nil, err
	}
	result.Stats.DataRows = len(dataRows)

	// =========================================================================
	// STEP 4: NORMALIZE TRIPS
	// =========================================================================

	normalized, report := trips.Normalize(dataRows)
	result.Report = report
	result.Stats.TripsCreated = len(normalized)

	if report.DroppedTotal() > 0 {
		c.logger.Debug("Dropped malformed rows",
			"missing_field", report.Dropped[trips.DropMissingField],
			"bad_date", report.Dropped[trips.DropBadDate],
			"short_row", report.Dropped[trips.DropShortRow],
		)
	}
	if len(normalized) == 0 {
		return nil, ErrNoTrips
	}

	// =========================================================================
	// STEP 5: GROUP BY DAY
	// =========================================================================

	result.Days = trips.GroupByDay(normalized)
	result.KPIs = trips.Summarize(result.Days)
	result.Stats.ProcessingTime = time.Since(startTime)

	c.logger.Info(result.KPIs.LoadStatus(), "file", name, "duration", result.Stats.ProcessingTime)
	return result, nil
}

// =============================================================================
// USER MESSAGES
// =============================================================================

// UserMessage returns the short message shown for an input error.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoTrips):
		return "No trip rows were found in this CSV."
	case errors.Is(err, csvparser.ErrHeaderNotFound):
		return "Could not find the trip transactions header in this file."
	case err != nil:
		return "Could not read this file."
	}
	return ""
}
