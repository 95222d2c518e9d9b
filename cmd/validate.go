// =============================================================================
// Trip Dashboard - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which lists the rows of a trip
// export that will be skipped or read with a fallback, without loading it.
//
// COMMAND USAGE:
//   tripdash validate --file trips.csv [--log validation.log]
//
// EXIT STATUS:
//   Non-zero when the header is missing or any row will be skipped.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/trip-dashboard/internal/converter"
	"github.com/ginjaninja78/trip-dashboard/internal/csvparser"
	"github.com/ginjaninja78/trip-dashboard/internal/validation"
)

var (
	validateFile string
	validateLog  string
)

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report rows of a trip export that will be skipped",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, _, err := converter.ReadFileRows(validateFile)
		if err != nil {
			return err
		}

		result, err := validation.ValidateRows(rows)
		if errors.Is(err, csvparser.ErrHeaderNotFound) {
			return errors.New(converter.UserMessage(err))
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Header found on row %d; checked %d row(s), %d valid.\n",
			result.HeaderRow, result.RowsChecked, result.ValidRows)
		if len(result.Errors) > 0 {
			fmt.Fprintf(out, "\nSkipped rows:\n%s", validation.FormatErrors(result.Errors))
		}
		if len(result.Warnings) > 0 {
			fmt.Fprintf(out, "\nWarnings:\n%s", validation.FormatErrors(result.Warnings))
		}

		if validateLog != "" {
			if err := validation.WriteErrorLog(validateFile, result, validateLog); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nValidation log written to %s\n", validateLog)
		}

		if !result.IsValid() {
			return fmt.Errorf("%d row(s) will be skipped", len(result.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "Trip export (CSV or XLSX)")
	validateCmd.Flags().StringVar(&validateLog, "log", "", "Also write the findings to this file")
	validateCmd.MarkFlagRequired("file")
}
