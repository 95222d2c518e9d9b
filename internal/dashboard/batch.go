// =============================================================================
// Trip Dashboard - Dashboard Module
// =============================================================================
//
// This package owns the state of one dashboard session: the loaded days, the
// selected day and the map view built for it.
//
// RENDER GENERATIONS:
//   Every day selection takes a new generation token. Geocoding for a day runs
//   in the background of that selection; before resolving each address and
//   before committing the finished view, the token is compared with the
//   current generation. A selection that has been superseded stops quietly
//   and never touches the session's view.
//
// =============================================================================

package dashboard

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/trip-dashboard/internal/geocode"
	"github.com/ginjaninja78/trip-dashboard/internal/logger"
	"github.com/ginjaninja78/trip-dashboard/internal/trips"
)

// DefaultWorkers is the batch geocoder pool size when none is configured.
const DefaultWorkers = 2

// =============================================================================
// RENDER GENERATIONS
// =============================================================================

// Generations hands out monotonically increasing render tokens.
type Generations struct {
	current atomic.Uint64
}

// Next starts a new generation and returns its token.
func (g *Generations) Next() uint64 {
	return g.current.Add(1)
}

// Current returns the newest token.
func (g *Generations) Current() uint64 {
	return g.current.Load()
}

// IsCurrent reports whether token is still the newest generation.
func (g *Generations) IsCurrent(token uint64) bool {
	return g.current.Load() == token
}

// =============================================================================
// BATCH GEOCODER
// =============================================================================

// AddressResolver resolves one address. *geocode.Resolver implements it.
type AddressResolver interface {
	Resolve(ctx context.Context, address, city string) (geocode.Coordinate, bool)
}

// Resolution is the outcome for one unique address of a day.
type Resolution struct {
	Coord geocode.Coordinate
	Found bool
}

// AddressKey is the normalised key of an (address, city) pair.
func AddressKey(address, city string) string {
	return strings.ToLower(strings.TrimSpace(address) + "||" + strings.TrimSpace(city))
}

type addressJob struct {
	key     string
	address string
	city    string
}

// BatchGeocoder resolves every unique address of a day with a fixed number
// of workers.
type BatchGeocoder struct {
	resolver    AddressResolver
	workers     int
	generations *Generations
	logger      *slog.Logger
}

// NewBatchGeocoder creates a batch geocoder checking tokens against gens.
func NewBatchGeocoder(resolver AddressResolver, workers int, gens *Generations, l *slog.Logger) *BatchGeocoder {
	if workers < 1 {
		workers = DefaultWorkers
	}
	if gens == nil {
		gens = &Generations{}
	}
	return &BatchGeocoder{
		resolver:    resolver,
		workers:     workers,
		generations: gens,
		logger:      logger.OrDiscard(l),
	}
}

// ResolveDay resolves the unique pickup and drop-off addresses of a day.
//
// PARAMETERS:
//   - day: The day whose trips are resolved.
//   - token: The render generation this batch belongs to.
//
// RETURNS:
//   - A map from AddressKey to Resolution, containing every unique address.
//   - completed is false when the generation moved on (or ctx was cancelled)
//     before the batch finished. The map is nil in that case.
//
// CONCURRENCY:
//   Workers claim the next unresolved index from a shared counter, so at
//   most `workers` addresses are being resolved at any moment regardless of
//   the size of the day.
func (b *BatchGeocoder) ResolveDay(ctx context.Context, day *trips.Day, token uint64) (map[string]Resolution, bool) {
	jobs := uniqueAddresses(day)
	results := make([]Resolution, len(jobs))

	var next atomic.Int64
	stale := func() bool {
		return !b.generations.IsCurrent(token) || ctx.Err() != nil
	}

	workers := min(b.workers, len(jobs))
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				if stale() {
					return nil
				}
				i := int(next.Add(1) - 1)
				if i >= len(jobs) {
					return nil
				}
				job := jobs[i]
				coord, found := b.resolver.Resolve(ctx, job.address, job.city)
				results[i] = Resolution{Coord: coord, Found: found}
			}
		})
	}
	g.Wait()

	if stale() {
		b.logger.Debug("Abandoned stale day geocoding", "day", day.DateKey, "token", token)
		return nil, false
	}

	resolved := make(map[string]Resolution, len(jobs))
	for i, job := range jobs {
		resolved[job.key] = results[i]
	}
	return resolved, true
}

// uniqueAddresses lists the day's addresses in trip order, pickup first.
func uniqueAddresses(day *trips.Day) []addressJob {
	seen := make(map[string]struct{})
	var jobs []addressJob
	add := func(address, city string) {
		key := AddressKey(address, city)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		jobs = append(jobs, addressJob{key: key, address: address, city: city})
	}
	for _, trip := range day.Trips {
		add(trip.Pickup, trip.City)
		add(trip.Dropoff, trip.City)
	}
	return jobs
}
