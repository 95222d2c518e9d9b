// =============================================================================
// Trip Dashboard - Cache Command
// =============================================================================
//
// This file defines the 'cache' command group, which inspects and clears the
// persisted geocode cache.
//
// COMMAND USAGE:
//   tripdash cache stats [--backend file]
//   tripdash cache clear [--backend file]
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCmd represents the 'cache' command group.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the geocode cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the number of cached geocode candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, closeStore, err := openResolver(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Backend:    %s\n", appConfig.Cache.Backend)
		fmt.Fprintf(out, "Namespace:  %s\n", appConfig.Cache.Namespace)
		fmt.Fprintf(out, "Candidates: %d\n", resolver.Len())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached geocode candidate",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		resolver, closeStore, err := openResolver(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		count := resolver.Len()
		if err := resolver.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear geocode cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached candidate(s) from %s.\n", count, appConfig.Cache.Backend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)

	cacheCmd.PersistentFlags().String("backend", "", "Cache backend: memory, file, redis, sqlite or postgres")
}
