// =============================================================================
// Trip Dashboard - Export Command
// =============================================================================
//
// This file defines the 'export' command, which converts trip exports into
// XLSX workbooks: a summary sheet plus one sheet per day.
//
// COMMAND USAGE:
//   tripdash export --file <trips.csv|trips.xlsx|dir> [--out ./output]
//
// PROCESSING PIPELINE:
//   1. Discover the input files (a single file or every export in a directory)
//   2. For each file (concurrently):
//      a. Parse, normalize and group the trips
//      b. Build and write the workbook
//   3. Print one line per file and write an export summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/trip-dashboard/internal/export"
	"github.com/ginjaninja78/trip-dashboard/internal/format"
	"github.com/ginjaninja78/trip-dashboard/pkg/utils"
)

// exportFile is the input of the export command.
var exportFile string

// exportCmd represents the 'export' command.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write trip exports to XLSX workbooks",
	Long: `The export command converts one trip export, or every CSV and XLSX
export in a directory, into a workbook with a summary sheet and one sheet
per day.

Files are exported concurrently. A file that cannot be read is reported
and does not stop the others.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFile, "file", "f", "", "Trip export (CSV or XLSX) or a directory of exports")
	exportCmd.Flags().String("out", "", "Output directory (default from config, ./output)")
	exportCmd.MarkFlagRequired("file")
}

// exportResult is the outcome of exporting one input file.
type exportResult struct {
	input    string
	exported *utils.ExportedFileInfo
	err      error
}

// =============================================================================
// MAIN EXPORT FUNCTION
// =============================================================================

func runExport(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	summary := utils.ExportSummary{StartTime: time.Now()}

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	files, err := utils.DiscoverInputFiles(exportFile)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "No CSV or XLSX files found in %s.\n", exportFile)
		return nil
	}

	// =========================================================================
	// STEP 2: EXPORT FILES CONCURRENTLY
	// =========================================================================

	exporter := export.New(appConfig.Export, log)
	results := make(chan exportResult, len(files))

	var wg sync.WaitGroup
	for _, file := range files {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			results <- exportOne(exporter, path)
		}(file)
	}
	wg.Wait()
	close(results)

	// =========================================================================
	// STEP 3: COLLECT RESULTS AND WRITE SUMMARY
	// =========================================================================

	for result := range results {
		name := filepath.Base(result.input)
		if result.err != nil {
			summary.FailedFiles = append(summary.FailedFiles, utils.FailedFileInfo{
				InputFile:    result.input,
				ErrorMessage: result.err.Error(),
			})
			fmt.Fprintf(out, "  ✗ %s: %v\n", name, result.err)
			continue
		}
		summary.Exported = append(summary.Exported, *result.exported)
		fmt.Fprintf(out, "  ✓ %s -> %s\n", name, result.exported.OutputFile)
	}
	summary.EndTime = time.Now()

	fmt.Fprintln(out, "\n=== Export Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", len(files))
	fmt.Fprintf(out, "Exported:        %d\n", len(summary.Exported))
	fmt.Fprintf(out, "Failed:          %d\n", len(summary.FailedFiles))

	if len(summary.Exported) > 0 {
		path, err := utils.WriteSummaryLog(summary, exporter.OutputDir())
		if err != nil {
			log.Warn("Could not write export summary", "error", err)
		} else {
			fmt.Fprintf(out, "Summary:         %s\n", path)
		}
	}

	if len(summary.Exported) == 0 {
		return fmt.Errorf("no workbooks were written")
	}
	return nil
}

// exportOne converts and exports a single input file.
func exportOne(exporter *export.Exporter, path string) exportResult {
	result, err := convertInput(path)
	if err != nil {
		return exportResult{input: path, err: err}
	}

	outPath, err := exporter.Export(result.Source, result.Days)
	if err != nil {
		return exportResult{input: path, err: err}
	}

	return exportResult{
		input: path,
		exported: &utils.ExportedFileInfo{
			InputFile:   path,
			OutputFile:  outPath,
			Days:        len(result.Days),
			Trips:       result.KPIs.Trips,
			TotalEUR:    format.EUR(result.KPIs.TotalEUR),
			DroppedRows: result.Report.DroppedTotal(),
		},
	}
}
