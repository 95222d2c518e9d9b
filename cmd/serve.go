// =============================================================================
// Trip Dashboard - Serve Command
// =============================================================================
//
// This file defines the 'serve' command, which runs the dashboard JSON API.
// A file given with --file is loaded before the server starts; more exports
// can be uploaded through POST /api/upload.
//
// COMMAND USAGE:
//   tripdash serve [--file trips.csv] [--listen :8080]
//
// =============================================================================

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/trip-dashboard/internal/api"
	"github.com/ginjaninja78/trip-dashboard/internal/converter"
	"github.com/ginjaninja78/trip-dashboard/internal/dashboard"
)

var serveFile string

// serveCmd represents the 'serve' command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		resolver, closeStore, err := openResolver(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		session := dashboard.NewSession(resolver, appConfig.Geocoder.Workers, log)
		if serveFile != "" {
			result, err := convertInput(serveFile)
			if err != nil {
				return err
			}
			session.Load(result.Source, result.Days)
		}

		server := api.NewServer(api.Options{
			Session:        session,
			Converter:      converter.New(log),
			AllowedOrigins: appConfig.Server.AllowedOrigins,
			Logger:         log,
		})
		return server.ListenAndServe(ctx, appConfig.Server.ListenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFile, "file", "f", "", "Trip export to load at startup")
	serveCmd.Flags().String("listen", "", "HTTP listen address (default from config, :8080)")
	serveCmd.Flags().Int("workers", 0, "Addresses geocoded concurrently (default from config)")
}
