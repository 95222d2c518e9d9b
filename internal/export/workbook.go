// =============================================================================
// Trip Dashboard - Workbook Export
// =============================================================================
//
// This module writes the loaded trips to an Excel workbook.
//
// WORKBOOK LAYOUT:
//   - "Summary": the KPI block followed by one line per day
//   - One sheet per day, named by its date key (YYYY-MM-DD), holding the
//     numbered trip table in the same order as the dashboard
//
// Amounts are written as numbers with a euro number format so the workbook
// stays usable for further calculation.
//
// =============================================================================

package export

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/trip-dashboard/internal/config"
	"github.com/ginjaninja78/trip-dashboard/internal/format"
	"github.com/ginjaninja78/trip-dashboard/internal/logger"
	"github.com/ginjaninja78/trip-dashboard/internal/trips"
	"github.com/ginjaninja78/trip-dashboard/pkg/utils"
)

// SummarySheet is the name of the first sheet.
const SummarySheet = "Summary"

// eurFormat is the number format applied to EUR cells.
var eurFormat = "€#,##0.00"

// DayColumns are the headers of every day sheet.
var DayColumns = []string{
	"#", "Time (UTC)", "Service", "Passenger", "Employee ID", "City",
	"Pickup Address", "Drop-off Address", "Transactions",
	"Total (Local Currency)", "Total EUR",
}

// SummaryColumns are the headers of the day list on the summary sheet.
var SummaryColumns = []string{"Date", "Day", "Trips", "Fare EUR", "Tip EUR", "Total EUR"}

// =============================================================================
// EXPORTER
// =============================================================================

// Exporter writes workbooks into the configured output directory.
type Exporter struct {
	files      *utils.FileManager
	nameFormat string
	logger     *slog.Logger
}

// New creates an exporter from the export configuration.
func New(cfg config.ExportConfig, l *slog.Logger) *Exporter {
	return &Exporter{
		files:      utils.NewFileManager(cfg.OutputDir),
		nameFormat: cfg.FileNameFormat,
		logger:     logger.OrDiscard(l),
	}
}

// Export writes the days of one source file to a new workbook.
//
// PARAMETERS:
//   - source: The input file the days came from, available as {source}
//             in the file name format.
//   - days: The days to export, newest first.
//
// RETURNS:
//   - The path of the written workbook.
//   - An error if the workbook cannot be built or written.
func (e *Exporter) Export(source string, days []*trips.Day) (string, error) {
	path, err := e.files.OutputPath(e.nameFormat, map[string]string{"source": utils.SourceName(source)})
	if err != nil {
		return "", err
	}

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create workbook: %w", err)
	}
	if err := WriteWorkbook(out, days); err != nil {
		out.Close()
		os.Remove(path)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close workbook: %w", err)
	}

	e.logger.Info("Wrote workbook", "path", path, "days", len(days))
	return path, nil
}

// OutputDir returns the directory workbooks are written to.
func (e *Exporter) OutputDir() string {
	return e.files.OutputDir
}

// WriteWorkbook builds the workbook for days and writes it to w.
func WriteWorkbook(w io.Writer, days []*trips.Day) error {
	f, err := Build(days)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// =============================================================================
// WORKBOOK BUILDER
// =============================================================================

type styles struct {
	title  int
	header int
	eur    int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	if s.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		return s, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	}); err != nil {
		return s, err
	}
	if s.eur, err = f.NewStyle(&excelize.Style{CustomNumFmt: &eurFormat}); err != nil {
		return s, err
	}
	return s, nil
}

// Build creates the workbook in memory. The caller must close it.
func Build(days []*trips.Day) (*excelize.File, error) {
	f := excelize.NewFile()

	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create styles: %w", err)
	}

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if err := writeSummary(f, st, days); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write summary sheet: %w", err)
	}

	for _, day := range days {
		if _, err := f.NewSheet(day.DateKey); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to add sheet %s: %w", day.DateKey, err)
		}
		if err := writeDay(f, st, day); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write sheet %s: %w", day.DateKey, err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// writeSummary fills the summary sheet.
func writeSummary(f *excelize.File, st styles, days []*trips.Day) error {
	kpis := trips.Summarize(days)

	rows := [][]interface{}{
		{"Trip Dashboard Summary"},
		{},
		{"Days", kpis.Days},
		{"Trips", kpis.Trips},
		{"Total EUR", kpis.TotalEUR.InexactFloat64()},
		{"Average EUR per trip", kpis.AvgEUR.Round(2).InexactFloat64()},
		{},
		toRow(SummaryColumns),
	}
	for _, day := range days {
		b := day.Breakdown()
		rows = append(rows, []interface{}{
			day.DateKey,
			format.Day(day.DateKey),
			len(day.Trips),
			b.Fare.InexactFloat64(),
			b.Tip.InexactFloat64(),
			b.Total.InexactFloat64(),
		})
	}
	if err := setRows(f, SummarySheet, rows); err != nil {
		return err
	}

	headerRow := 8
	lastRow := headerRow + len(days)
	if err := f.SetCellStyle(SummarySheet, "A1", "A1", st.title); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "B5", "B6", st.eur); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, cell(1, headerRow), cell(len(SummaryColumns), headerRow), st.header); err != nil {
		return err
	}
	if len(days) > 0 {
		if err := f.SetCellStyle(SummarySheet, cell(4, headerRow+1), cell(6, lastRow), st.eur); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SummarySheet, "A", "A", 22); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "B", "F", 18)
}

// writeDay fills the trip table of one day.
func writeDay(f *excelize.File, st styles, day *trips.Day) error {
	sheet := day.DateKey
	rows := [][]interface{}{toRow(DayColumns)}
	for i, trip := range day.Trips {
		rows = append(rows, []interface{}{
			i + 1,
			trip.Time,
			trip.Service,
			trip.FirstName + " " + trip.LastName,
			trip.EmployeeID,
			trip.City,
			trip.Pickup,
			trip.Dropoff,
			format.Transactions(trip.Transactions),
			trip.TotalLocal.InexactFloat64(),
			trip.TotalEUR.InexactFloat64(),
		})
	}
	if err := setRows(f, sheet, rows); err != nil {
		return err
	}

	last := len(DayColumns)
	if err := f.SetCellStyle(sheet, cell(1, 1), cell(last, 1), st.header); err != nil {
		return err
	}
	if len(day.Trips) > 0 {
		if err := f.SetCellStyle(sheet, cell(last, 2), cell(last, len(day.Trips)+1), st.eur); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "G", "I", 40); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "F", 16)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := f.SetSheetRow(sheet, cell(1, i+1), &row); err != nil {
			return err
		}
	}
	return nil
}

func toRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

// cell returns the A1 reference of a 1-based column and row.
func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
