// =============================================================================
// Trip Dashboard - Summary Command
// =============================================================================
//
// This file defines the 'summary' command, which loads one export (or every
// export in a directory) and prints the KPIs and the day list.
//
// COMMAND USAGE:
//   tripdash summary --file <trips.csv|trips.xlsx|dir>
//
// OUTPUT:
//   Loaded 12 trips across 4 day(s).
//   Total:   €321.40
//   Average: €26.78 per trip
//
//   DATE        DAY                TRIPS  TOTAL
//   2024-01-16  Tue, Jan 16, 2024  3      €88.10
//   ...
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/trip-dashboard/internal/converter"
	"github.com/ginjaninja78/trip-dashboard/internal/format"
	"github.com/ginjaninja78/trip-dashboard/internal/trips"
	"github.com/ginjaninja78/trip-dashboard/pkg/utils"
)

// summaryFile is the input of the summary command.
var summaryFile string

// summaryCmd represents the 'summary' command.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the KPIs and day list of a trip export",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := utils.DiscoverInputFiles(summaryFile)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no CSV or XLSX files found in %s", summaryFile)
		}

		for i, file := range files {
			if len(files) > 1 {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "=== %s ===\n", file)
			}
			result, err := convertInput(file)
			if err != nil {
				if len(files) == 1 {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  ✗ %v\n", err)
				continue
			}
			printSummary(cmd.OutOrStdout(), result)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().StringVarP(&summaryFile, "file", "f", "", "Trip export (CSV or XLSX) or a directory of exports")
	summaryCmd.MarkFlagRequired("file")
}

// printSummary writes the KPI block, the row report and the day list.
func printSummary(w io.Writer, result *converter.Result) {
	k := result.KPIs
	fmt.Fprintln(w, k.LoadStatus())
	fmt.Fprintf(w, "Total:   %s\n", format.EUR(k.TotalEUR))
	fmt.Fprintf(w, "Average: %s per trip\n", format.EUR(k.AvgEUR))

	report := result.Report
	if dropped := report.DroppedTotal(); dropped > 0 {
		fmt.Fprintf(w, "Skipped %d of %d data row(s): %d missing field(s), %d bad date(s), %d short row(s)\n",
			dropped, report.Rows,
			report.Dropped[trips.DropMissingField],
			report.Dropped[trips.DropBadDate],
			report.Dropped[trips.DropShortRow],
		)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDAY\tTRIPS\tFARES\tTIPS\tTOTAL")
	for _, day := range result.Days {
		b := day.Breakdown()
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			day.DateKey,
			format.Day(day.DateKey),
			len(day.Trips),
			format.EUR(b.Fare),
			format.EUR(b.Tip),
			format.EUR(b.Total),
		)
	}
	tw.Flush()
}
