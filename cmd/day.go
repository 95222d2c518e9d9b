// =============================================================================
// Trip Dashboard - Day Command
// =============================================================================
//
// This file defines the 'day' command, which renders one day the way the
// dashboard does: the numbered trip table, the geocoded routes and the
// plotted-vs-total status line.
//
// COMMAND USAGE:
//   tripdash day --file trips.csv [--date 2024-01-15] [--geojson routes.geojson] [--kml routes.kml]
//
// FLAGS:
//   --date     : The day to render (default: the most recent day)
//   --geojson  : Write the plotted routes as a GeoJSON FeatureCollection
//   --kml      : Write the plotted routes as a KML document
//   --workers  : Number of addresses geocoded concurrently
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/trip-dashboard/internal/dashboard"
	"github.com/ginjaninja78/trip-dashboard/internal/format"
	"github.com/ginjaninja78/trip-dashboard/internal/trips"
	"github.com/ginjaninja78/trip-dashboard/internal/xmlwriter"
)

var (
	dayFile    string
	dayDate    string
	dayGeoJSON string
	dayKML     string
)

// dayCmd represents the 'day' command.
var dayCmd = &cobra.Command{
	Use:   "day",
	Short: "Geocode and print the trips of one day",
	RunE:  runDay,
}

func init() {
	rootCmd.AddCommand(dayCmd)

	dayCmd.Flags().StringVarP(&dayFile, "file", "f", "", "Trip export (CSV or XLSX)")
	dayCmd.Flags().StringVar(&dayDate, "date", "", "Day to render as YYYY-MM-DD (default: most recent)")
	dayCmd.Flags().StringVar(&dayGeoJSON, "geojson", "", "Write the plotted routes to this GeoJSON file")
	dayCmd.Flags().StringVar(&dayKML, "kml", "", "Write the plotted routes to this KML file")
	dayCmd.Flags().Int("workers", 0, "Addresses geocoded concurrently (default from config)")
	dayCmd.MarkFlagRequired("file")
}

func runDay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	result, err := convertInput(dayFile)
	if err != nil {
		return err
	}

	dateKey := dayDate
	if dateKey == "" {
		dateKey = result.Days[0].DateKey
	}

	resolver, closeStore, err := openResolver(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	session := dashboard.NewSession(resolver, appConfig.Geocoder.Workers, log)
	session.Load(result.Source, result.Days)

	day, err := session.Day(dateKey)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%d trips, %s)\n\n", format.Day(day.DateKey), len(day.Trips), format.EUR(day.Totals.EUR))

	view, err := session.SelectDay(ctx, dateKey)
	if err != nil {
		return err
	}
	printTrips(out, day, view)
	fmt.Fprintf(out, "\n%s\n", view.Status)

	if dayGeoJSON != "" {
		if err := writeGeoJSON(dayGeoJSON, view); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d route(s) to %s\n", view.Plotted, dayGeoJSON)
	}
	if dayKML != "" {
		if err := writeKML(dayKML, view); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d route(s) to %s\n", view.Plotted, dayKML)
	}
	return nil
}

// printTrips writes the numbered trip table. Trips without a plotted route
// are marked with "-" in the MAP column.
func printTrips(w io.Writer, day *trips.Day, view *dashboard.MapView) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTIME\tSERVICE\tPICKUP\tDROP-OFF\tTRANSACTIONS\tTOTAL\tMAP")
	for i, trip := range day.Trips {
		plotted := "-"
		if _, ok := view.Route(trip.ID); ok {
			plotted = "✓"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			trip.Time,
			trip.Service,
			trip.Pickup,
			trip.Dropoff,
			format.Transactions(trip.Transactions),
			format.EUR(trip.TotalEUR),
			plotted,
		)
	}
	tw.Flush()
}

func writeGeoJSON(path string, view *dashboard.MapView) error {
	data, err := json.MarshalIndent(view.GeoJSON(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode routes: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeKML(path string, view *dashboard.MapView) error {
	data, err := xmlwriter.Generate(view)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
