package geocode

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeSearcher answers from a fixed table and counts calls per query.
type fakeSearcher struct {
	mu      sync.Mutex
	results map[string]Coordinate
	calls   map[string]int
	total   atomic.Int32
	delay   time.Duration
}

func newFakeSearcher(results map[string]Coordinate) *fakeSearcher {
	return &fakeSearcher{results: results, calls: make(map[string]int)}
}

func (f *fakeSearcher) Search(ctx context.Context, query string) (Coordinate, error) {
	f.total.Add(1)
	f.mu.Lock()
	f.calls[query]++
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if c, ok := f.results[query]; ok {
		return c, nil
	}
	return Coordinate{}, ErrNoResult
}

func (f *fakeSearcher) callsFor(query string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[query]
}

var sol = Coordinate{Lat: 40.4169, Lon: -3.7035}

func TestResolveCacheHitSkipsNetwork(t *testing.T) {
	searcher := newFakeSearcher(nil)
	r := NewResolver(context.Background(), ResolverOptions{Searcher: searcher})
	r.Seed("Puerta del Sol", sol)

	got, ok := r.Resolve(context.Background(), "Puerta del Sol", "Madrid")
	if !ok || got != sol {
		t.Fatalf("expected cached coordinate, got %+v, %v", got, ok)
	}
	if searcher.total.Load() != 0 {
		t.Errorf("expected no network calls, got %d", searcher.total.Load())
	}
}

func TestResolveFallsBackAndCachesEveryCandidate(t *testing.T) {
	searcher := newFakeSearcher(map[string]Coordinate{"Caf Central, Madrid": sol})
	store := NewMemoryStore()
	r := NewResolver(context.Background(), ResolverOptions{Searcher: searcher, Store: store})

	address := "Café Central - Calle Mayor 5, Centro"
	got, ok := r.Resolve(context.Background(), address, "Madrid")
	if !ok || got != sol {
		t.Fatalf("expected fallback hit, got %+v, %v", got, ok)
	}

	candidates := BuildCandidates(address, "Madrid")
	for _, c := range candidates {
		if cached, ok := r.Lookup(c); !ok || cached != sol {
			t.Errorf("candidate %q was not cached", c)
		}
	}
	for _, c := range candidates[:3] {
		if !r.IsFailed(c) {
			t.Errorf("candidate %q should be marked failed", c)
		}
	}

	// A second resolve is served from the cache.
	before := searcher.total.Load()
	r.Resolve(context.Background(), address, "Madrid")
	if searcher.total.Load() != before {
		t.Error("second resolve should not hit the network")
	}

	raw, found, _ := store.Get(context.Background(), "uber-trip-geocode-cache")
	if !found {
		t.Fatal("expected the cache to be persisted")
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		t.Fatalf("persisted cache is not valid: %v", err)
	}
	if len(entries) != len(candidates) {
		t.Errorf("expected %d persisted entries, got %d", len(candidates), len(entries))
	}
}

func TestResolveSkipsKnownFailures(t *testing.T) {
	searcher := newFakeSearcher(nil)
	r := NewResolver(context.Background(), ResolverOptions{Searcher: searcher})

	if _, ok := r.Resolve(context.Background(), "Nowhere 1", "Atlantis"); ok {
		t.Fatal("expected no result")
	}
	first := searcher.total.Load()
	if first == 0 {
		t.Fatal("expected network calls on the first attempt")
	}

	r.Resolve(context.Background(), "Nowhere 1", "Atlantis")
	if searcher.total.Load() != first {
		t.Errorf("failed candidates were retried: %d calls, want %d", searcher.total.Load(), first)
	}
	if r.FailedCount() == 0 {
		t.Error("expected failed candidates to be recorded")
	}
}

func TestResolveEmptyAddress(t *testing.T) {
	searcher := newFakeSearcher(nil)
	r := NewResolver(context.Background(), ResolverOptions{Searcher: searcher})
	if _, ok := r.Resolve(context.Background(), "  ", "Madrid"); ok {
		t.Error("expected no result for an empty address")
	}
	if searcher.total.Load() != 0 {
		t.Error("empty address should not hit the network")
	}
}

func TestResolveConcurrentDeduplicates(t *testing.T) {
	searcher := newFakeSearcher(map[string]Coordinate{"Gran Via 1, Madrid": sol})
	searcher.delay = 50 * time.Millisecond
	r := NewResolver(context.Background(), ResolverOptions{Searcher: searcher})

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = r.Resolve(context.Background(), "Gran Via 1", "Madrid")
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		if !ok {
			t.Errorf("resolve %d found nothing", i)
		}
	}
	if n := searcher.callsFor("Gran Via 1, Madrid"); n != 1 {
		t.Errorf("expected exactly one request, got %d", n)
	}
}

func TestResolveSurvivesCallerCancellation(t *testing.T) {
	searcher := newFakeSearcher(map[string]Coordinate{"Sol, Madrid": sol})
	r := NewResolver(context.Background(), ResolverOptions{Searcher: searcher})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := r.Resolve(ctx, "Sol", "Madrid"); !ok {
		t.Fatal("expected the request to complete despite the cancelled context")
	}
	if _, ok := r.Lookup("Sol, Madrid"); !ok {
		t.Error("expected the result to be cached")
	}
}

func TestResolverLoadsPersistedCache(t *testing.T) {
	store := NewMemoryStore()
	store.Set(context.Background(), "custom-ns", `[["Sol, Madrid",{"lat":40.4169,"lon":-3.7035}],["bad",{"lat":999,"lon":0}]]`)

	r := NewResolver(context.Background(), ResolverOptions{Store: store, Namespace: "custom-ns"})
	if r.Len() != 1 {
		t.Fatalf("expected 1 valid entry, got %d", r.Len())
	}
	if got, ok := r.Resolve(context.Background(), "Sol", "Madrid"); !ok || got != sol {
		t.Errorf("expected persisted coordinate, got %+v, %v", got, ok)
	}
}

func TestResolverIgnoresCorruptCache(t *testing.T) {
	store := NewMemoryStore()
	store.Set(context.Background(), "uber-trip-geocode-cache", `{not json`)

	r := NewResolver(context.Background(), ResolverOptions{Store: store})
	if r.Len() != 0 {
		t.Errorf("expected an empty cache, got %d entries", r.Len())
	}
}

func TestResolverClear(t *testing.T) {
	store := NewMemoryStore()
	searcher := newFakeSearcher(map[string]Coordinate{"Sol, Madrid": sol})
	r := NewResolver(context.Background(), ResolverOptions{Searcher: searcher, Store: store})
	r.Resolve(context.Background(), "Sol", "Madrid")
	r.Resolve(context.Background(), "Nowhere", "")

	if err := r.Clear(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Len() != 0 || r.FailedCount() != 0 {
		t.Errorf("expected empty state, got %d cached %d failed", r.Len(), r.FailedCount())
	}
	if _, found, _ := store.Get(context.Background(), "uber-trip-geocode-cache"); found {
		t.Error("expected the persisted cache to be deleted")
	}
}

func TestSnapshotIsSorted(t *testing.T) {
	r := NewResolver(context.Background(), ResolverOptions{})
	r.Seed("b", sol)
	r.Seed("a", sol)
	r.Seed("c", sol)

	snap := r.Snapshot()
	if len(snap) != 3 || snap[0].Candidate != "a" || snap[2].Candidate != "c" {
		t.Errorf("unexpected snapshot order %+v", snap)
	}

	data, err := json.Marshal(snap[:1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `[["a",{"lat":40.4169,"lon":-3.7035}]]` {
		t.Errorf("unexpected encoding %s", data)
	}
}
