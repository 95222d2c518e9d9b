package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/ginjaninja78/trip-dashboard/internal/converter"
	"github.com/ginjaninja78/trip-dashboard/internal/csvparser"
	"github.com/ginjaninja78/trip-dashboard/internal/geocode"
)

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// convertInput runs the ingestion pipeline on one file. Input errors are
// reduced to the short message shown to the user.
func convertInput(path string) (*converter.Result, error) {
	result, err := converter.New(log).ConvertFile(path)
	if err != nil {
		log.Debug("Conversion failed", "file", path, "error", err)
		if errors.Is(err, converter.ErrNoTrips) || errors.Is(err, csvparser.ErrHeaderNotFound) {
			return nil, errors.New(converter.UserMessage(err))
		}
		return nil, err
	}
	return result, nil
}

// openResolver builds the geocode resolver from the configuration. A cache
// backend that cannot be opened degrades to an in-memory cache.
//
// RETURNS:
//   - The resolver.
//   - A close function releasing the cache store.
func openResolver(ctx context.Context) (*geocode.Resolver, func(), error) {
	client, err := geocode.NewClientFromConfig(appConfig.Geocoder, log)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid geocoder configuration: %w", err)
	}

	store := openStore(ctx)
	resolver := geocode.NewResolver(ctx, geocode.ResolverOptions{
		Searcher:  client,
		Store:     store,
		Namespace: appConfig.Cache.Namespace,
		Logger:    log,
	})
	return resolver, func() { store.Close() }, nil
}

// openStore opens the configured cache store, falling back to memory.
func openStore(ctx context.Context) geocode.Store {
	store, err := geocode.OpenStore(ctx, appConfig.Cache)
	if err != nil {
		log.Debug("Geocode cache unavailable, using memory", "backend", appConfig.Cache.Backend, "error", err)
		return geocode.NewMemoryStore()
	}
	return store
}
