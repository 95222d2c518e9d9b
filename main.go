// =============================================================================
// Trip Dashboard - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Trip Dashboard CLI. It delegates
// command execution to the cmd package.
//
// USAGE:
//   tripdash summary   - Print the KPIs and day list of a trip export
//   tripdash day       - Geocode and print the trips of one day
//   tripdash serve     - Serve the dashboard JSON API
//   tripdash export    - Write trip exports to XLSX workbooks
//   tripdash validate  - Report rows of a trip export that will be skipped
//   tripdash cache     - Inspect or clear the geocode cache
//   tripdash version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Parsing, trips, geocoding, dashboard state and the API
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/trip-dashboard/cmd"
)

func main() {
	cmd.Execute()
}
