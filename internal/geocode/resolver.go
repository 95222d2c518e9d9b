package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/ginjaninja78/trip-dashboard/internal/config"
	"github.com/ginjaninja78/trip-dashboard/internal/logger"
)

// errKnownFailure short-circuits a candidate that already failed this session.
var errKnownFailure = errors.New("candidate previously failed")

// Searcher resolves a single query string. *Client implements it.
type Searcher interface {
	Search(ctx context.Context, query string) (Coordinate, error)
}

// Resolver turns addresses into coordinates using a candidate chain, a
// persistent coordinate cache, a session-scoped failed-query set and
// in-flight request sharing.
//
// A Resolver is safe for concurrent use. Construct one per session.
type Resolver struct {
	searcher  Searcher
	store     Store
	namespace string
	logger    *slog.Logger

	// cache maps candidate strings to Coordinate values and never expires.
	cache *gocache.Cache

	failedMu sync.RWMutex
	failed   map[string]struct{}

	inflight singleflight.Group

	// saveMu serialises snapshots so an older snapshot never overwrites a
	// newer one in the store.
	saveMu sync.Mutex
}

// ResolverOptions configures NewResolver.
type ResolverOptions struct {
	Searcher Searcher

	// Store persists the cache; nil keeps it in memory only.
	Store Store

	// Namespace is the store key. Default: config.DefaultNamespace.
	Namespace string

	Logger *slog.Logger
}

// NewResolver creates a resolver and loads the persisted cache. Missing or
// corrupt persisted data yields an empty cache.
func NewResolver(ctx context.Context, opts ResolverOptions) *Resolver {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = config.DefaultNamespace
	}
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}

	r := &Resolver{
		searcher:  opts.Searcher,
		store:     store,
		namespace: namespace,
		logger:    logger.OrDiscard(opts.Logger),
		cache:     gocache.New(gocache.NoExpiration, 0),
		failed:    make(map[string]struct{}),
	}
	r.load(ctx)
	return r
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolve returns a best-effort coordinate for an address. ok is false when
// no candidate could be resolved; that is an expected outcome.
//
// Network requests are detached from ctx cancellation: a request that has
// started always completes and populates the cache, even if the caller
// stopped waiting for it.
func (r *Resolver) Resolve(ctx context.Context, address, city string) (Coordinate, bool) {
	if strings.TrimSpace(address) == "" {
		return Coordinate{}, false
	}

	candidates := BuildCandidates(address, city)

	for _, candidate := range candidates {
		if coord, ok := r.Lookup(candidate); ok {
			return coord, true
		}
	}

	for _, candidate := range candidates {
		if r.IsFailed(candidate) {
			continue
		}

		v, err, shared := r.inflight.Do(candidate, func() (any, error) {
			return r.fetch(ctx, candidate)
		})
		if err != nil {
			continue
		}

		coord := v.(Coordinate)
		r.logger.Debug("Geocoded address", "address", address, "candidate", candidate, "shared", shared)
		r.remember(ctx, candidates, coord)
		return coord, true
	}

	r.logger.Debug("Could not geocode address", "address", address, "city", city, "candidates", len(candidates))
	return Coordinate{}, false
}

// fetch performs the network lookup for one candidate. It runs at most once
// at a time per candidate.
func (r *Resolver) fetch(ctx context.Context, candidate string) (Coordinate, error) {
	// Another caller may have settled this candidate between our checks and
	// the in-flight registration.
	if coord, ok := r.Lookup(candidate); ok {
		return coord, nil
	}
	if r.IsFailed(candidate) {
		return Coordinate{}, errKnownFailure
	}
	if r.searcher == nil {
		r.markFailed(candidate)
		return Coordinate{}, ErrNoResult
	}

	coord, err := r.searcher.Search(context.WithoutCancel(ctx), candidate)
	if err == nil && !coord.Valid() {
		err = ErrNoResult
	}
	if err != nil {
		r.markFailed(candidate)
		r.logger.Debug("Geocode candidate failed", "candidate", candidate, "error", err)
		return Coordinate{}, err
	}

	r.cache.Set(candidate, coord, gocache.NoExpiration)
	return coord, nil
}

// remember caches coord under every candidate and persists the cache.
func (r *Resolver) remember(ctx context.Context, candidates []string, coord Coordinate) {
	for _, candidate := range candidates {
		r.cache.Set(candidate, coord, gocache.NoExpiration)
	}
	if err := r.save(context.WithoutCancel(ctx)); err != nil {
		r.logger.Debug("Failed to persist geocode cache", "error", err)
	}
}

// =============================================================================
// CACHE ACCESS
// =============================================================================

// Lookup returns the cached coordinate for a candidate string.
func (r *Resolver) Lookup(candidate string) (Coordinate, bool) {
	v, ok := r.cache.Get(candidate)
	if !ok {
		return Coordinate{}, false
	}
	coord, ok := v.(Coordinate)
	return coord, ok
}

// Seed adds a candidate to the cache without touching the store.
func (r *Resolver) Seed(candidate string, coord Coordinate) {
	r.cache.Set(candidate, coord, gocache.NoExpiration)
}

// Len returns the number of cached candidates.
func (r *Resolver) Len() int {
	return r.cache.ItemCount()
}

// IsFailed reports whether a candidate already failed this session.
func (r *Resolver) IsFailed(candidate string) bool {
	r.failedMu.RLock()
	defer r.failedMu.RUnlock()
	_, ok := r.failed[candidate]
	return ok
}

// FailedCount returns the size of the failed-query set.
func (r *Resolver) FailedCount() int {
	r.failedMu.RLock()
	defer r.failedMu.RUnlock()
	return len(r.failed)
}

func (r *Resolver) markFailed(candidate string) {
	r.failedMu.Lock()
	defer r.failedMu.Unlock()
	r.failed[candidate] = struct{}{}
}

// Clear empties the in-memory cache and failed set and deletes the persisted
// cache.
func (r *Resolver) Clear(ctx context.Context) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.cache.Flush()

	r.failedMu.Lock()
	r.failed = make(map[string]struct{})
	r.failedMu.Unlock()

	if err := r.store.Delete(ctx, r.namespace); err != nil {
		return fmt.Errorf("failed to delete persisted cache: %w", err)
	}
	return nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Entry is one persisted [candidate, {lat, lon}] pair.
type Entry struct {
	Candidate string
	Coord     Coordinate
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Candidate, e.Coord})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("expected [candidate, coordinate], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Candidate); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &e.Coord)
}

// Snapshot returns the cached entries sorted by candidate.
func (r *Resolver) Snapshot() []Entry {
	items := r.cache.Items()
	entries := make([]Entry, 0, len(items))
	for candidate, item := range items {
		if coord, ok := item.Object.(Coordinate); ok {
			entries = append(entries, Entry{Candidate: candidate, Coord: coord})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Candidate < entries[j].Candidate
	})
	return entries
}

// save writes the whole cache to the store under the namespace key.
func (r *Resolver) save(ctx context.Context) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	data, err := json.Marshal(r.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode geocode cache: %w", err)
	}
	return r.store.Set(ctx, r.namespace, string(data))
}

// load reads the persisted cache. Errors are logged and otherwise ignored.
func (r *Resolver) load(ctx context.Context) {
	value, found, err := r.store.Get(ctx, r.namespace)
	if err != nil {
		r.logger.Debug("Failed to read geocode cache", "error", err)
		return
	}
	if !found || value == "" {
		return
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(value), &entries); err != nil {
		r.logger.Debug("Ignoring corrupt geocode cache", "error", err)
		return
	}

	for _, e := range entries {
		if e.Candidate != "" && e.Coord.Valid() {
			r.cache.Set(e.Candidate, e.Coord, gocache.NoExpiration)
		}
	}
	r.logger.Debug("Loaded geocode cache", "entries", r.cache.ItemCount())
}
