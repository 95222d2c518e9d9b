package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/trip-dashboard/internal/geocode"
	"github.com/ginjaninja78/trip-dashboard/internal/trips"
)

// fakeResolver resolves addresses from a table. Addresses containing "slow"
// block until release is closed.
type fakeResolver struct {
	coords  map[string]geocode.Coordinate
	delay   time.Duration
	release chan struct{}
	started chan struct{}

	once     sync.Once
	calls    atomic.Int64
	inFlight atomic.Int64
	maxSeen  atomic.Int64
}

func (f *fakeResolver) Resolve(ctx context.Context, address, city string) (geocode.Coordinate, bool) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxSeen.Load()
		if n <= max || f.maxSeen.CompareAndSwap(max, n) {
			break
		}
	}

	if strings.Contains(address, "slow") && f.release != nil {
		f.once.Do(func() { close(f.started) })
		<-f.release
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	c, ok := f.coords[address]
	return c, ok
}

func trip(id int, dateKey, tm, pickup, dropoff string) *trips.Trip {
	return &trips.Trip{
		ID:       id,
		DateKey:  dateKey,
		Time:     tm,
		City:     "Madrid",
		Pickup:   pickup,
		Dropoff:  dropoff,
		TotalEUR: decimal.NewFromInt(10),
	}
}

func TestGenerations(t *testing.T) {
	var g Generations
	first := g.Next()
	if !g.IsCurrent(first) {
		t.Fatal("fresh token should be current")
	}
	second := g.Next()
	if g.IsCurrent(first) || !g.IsCurrent(second) || g.Current() != second {
		t.Errorf("expected only the newest token to be current")
	}
}

func TestResolveDayDeduplicatesAddresses(t *testing.T) {
	res := &fakeResolver{coords: map[string]geocode.Coordinate{
		"A": {Lat: 40.1, Lon: -3.1},
		"B": {Lat: 40.2, Lon: -3.2},
	}}
	day := &trips.Day{DateKey: "2024-01-15", Trips: []*trips.Trip{
		trip(1, "2024-01-15", "08:00 AM", "A", "B"),
		trip(2, "2024-01-15", "09:00 AM", "b", " a "),
	}}

	gens := &Generations{}
	batch := NewBatchGeocoder(res, 4, gens, nil)
	resolved, completed := batch.ResolveDay(context.Background(), day, gens.Next())
	if !completed {
		t.Fatal("batch should complete")
	}
	if len(resolved) != 2 {
		t.Fatalf("expected 2 unique addresses, got %d", len(resolved))
	}
	if got := res.calls.Load(); got != 2 {
		t.Errorf("expected 2 resolver calls, got %d", got)
	}
	if r := resolved[AddressKey("A", "Madrid")]; !r.Found || r.Coord.Lat != 40.1 {
		t.Errorf("unexpected resolution %+v", r)
	}
}

func TestResolveDayRespectsWorkerLimit(t *testing.T) {
	res := &fakeResolver{coords: map[string]geocode.Coordinate{}, delay: 5 * time.Millisecond}
	day := &trips.Day{DateKey: "2024-01-15"}
	for i := 0; i < 12; i++ {
		day.Trips = append(day.Trips, trip(i+1, day.DateKey, "08:00 AM", fmt.Sprintf("P%d", i), fmt.Sprintf("D%d", i)))
	}

	gens := &Generations{}
	batch := NewBatchGeocoder(res, 3, gens, nil)
	resolved, completed := batch.ResolveDay(context.Background(), day, gens.Next())
	if !completed {
		t.Fatal("batch should complete")
	}
	if len(resolved) != 24 {
		t.Errorf("expected 24 resolutions, got %d", len(resolved))
	}
	if max := res.maxSeen.Load(); max > 3 {
		t.Errorf("expected at most 3 concurrent lookups, saw %d", max)
	}
}

func TestResolveDayStopsWhenSuperseded(t *testing.T) {
	res := &fakeResolver{coords: map[string]geocode.Coordinate{}}
	day := &trips.Day{DateKey: "2024-01-15", Trips: []*trips.Trip{
		trip(1, "2024-01-15", "08:00 AM", "A", "B"),
	}}

	gens := &Generations{}
	token := gens.Next()
	gens.Next()

	batch := NewBatchGeocoder(res, 2, gens, nil)
	if _, completed := batch.ResolveDay(context.Background(), day, token); completed {
		t.Fatal("stale batch should not complete")
	}
	if got := res.calls.Load(); got != 0 {
		t.Errorf("stale batch should not resolve anything, got %d calls", got)
	}
}

func TestBuildMapView(t *testing.T) {
	day := &trips.Day{DateKey: "2024-01-15", Trips: []*trips.Trip{
		trip(7, "2024-01-15", "08:00 AM", "A", "B"),
		trip(3, "2024-01-15", "09:00 AM", "B", "Nowhere"),
		trip(9, "2024-01-15", "10:00 AM", "C", "A"),
	}}
	resolved := map[string]Resolution{
		AddressKey("A", "Madrid"):       {Coord: geocode.Coordinate{Lat: 40.0, Lon: -3.0}, Found: true},
		AddressKey("B", "Madrid"):       {Coord: geocode.Coordinate{Lat: 41.0, Lon: -4.0}, Found: true},
		AddressKey("C", "Madrid"):       {Coord: geocode.Coordinate{Lat: 40.5, Lon: -3.5}, Found: true},
		AddressKey("Nowhere", "Madrid"): {Found: false},
	}

	view := BuildMapView(day, resolved, 1)
	if view.Plotted != 2 || view.Total != 3 {
		t.Fatalf("expected 2 of 3 plotted, got %d of %d", view.Plotted, view.Total)
	}
	if view.Status != "Showing 2 of 3 trip route(s) for Mon, Jan 15, 2024." {
		t.Errorf("unexpected status %q", view.Status)
	}

	first := view.Routes[0]
	if first.TripID != 7 || first.Number != 1 {
		t.Errorf("unexpected first route %+v", first)
	}
	if first.Midpoint.Lat != 40.5 || first.Midpoint.Lon != -3.5 {
		t.Errorf("unexpected midpoint %+v", first.Midpoint)
	}
	if first.From.Geohash == "" {
		t.Error("expected geohash on endpoints")
	}
	if view.Routes[1].Number != 3 {
		t.Errorf("trip numbers should follow day order, got %d", view.Routes[1].Number)
	}
	if view.Bounds.South != 40.0 || view.Bounds.North != 41.0 {
		t.Errorf("unexpected bounds %+v", view.Bounds)
	}

	route, kind, ok := view.Nearest(40.51, -3.49)
	if !ok || route.TripID != 9 || kind != "pickup" {
		t.Errorf("unexpected nearest route %d (%s)", route.TripID, kind)
	}

	fc := view.GeoJSON()
	if len(fc.Features) != 4 {
		t.Fatalf("expected a line and a label per route, got %d features", len(fc.Features))
	}
	line := fc.Features[0]
	coords := line.Geometry.Coordinates.([][2]float64)
	if line.Geometry.Type != "LineString" || coords[0] != [2]float64{-3.0, 40.0} {
		t.Errorf("unexpected line geometry %+v", line.Geometry)
	}
}

func TestBuildMapViewNothingPlotted(t *testing.T) {
	day := &trips.Day{DateKey: "2024-01-15", Trips: []*trips.Trip{
		trip(1, "2024-01-15", "08:00 AM", "A", "B"),
	}}
	view := BuildMapView(day, map[string]Resolution{}, 1)
	if view.Plotted != 0 || view.Status != StatusNothingPlotted {
		t.Errorf("unexpected view %+v", view)
	}
	if _, _, ok := view.Nearest(0, 0); ok {
		t.Error("empty view should have no nearest route")
	}
}

func TestSessionSelectDay(t *testing.T) {
	res := &fakeResolver{coords: map[string]geocode.Coordinate{
		"A": {Lat: 40.0, Lon: -3.0},
		"B": {Lat: 41.0, Lon: -4.0},
	}}
	s := NewSession(res, 2, nil)
	kpis := s.Load("trips.csv", []*trips.Day{
		{DateKey: "2024-01-15", Trips: []*trips.Trip{trip(1, "2024-01-15", "08:00 AM", "A", "B")}},
	})
	if kpis.Trips != 1 || kpis.Days != 1 {
		t.Fatalf("unexpected kpis %+v", kpis)
	}

	if _, err := s.SelectDay(context.Background(), "2023-01-01"); !errors.Is(err, ErrUnknownDay) {
		t.Errorf("expected ErrUnknownDay, got %v", err)
	}

	view, err := s.SelectDay(context.Background(), "2024-01-15")
	if err != nil {
		t.Fatalf("SelectDay failed: %v", err)
	}
	if view.Plotted != 1 {
		t.Errorf("expected 1 plotted route, got %d", view.Plotted)
	}
	current, ok := s.CurrentView()
	if !ok || current != view || s.Selected() != "2024-01-15" {
		t.Error("selected view should be committed")
	}

	s.Load("other.csv", nil)
	if _, ok := s.CurrentView(); ok {
		t.Error("loading new data should clear the view")
	}
}

func TestSessionStaleRenderDoesNotCommit(t *testing.T) {
	res := &fakeResolver{
		coords: map[string]geocode.Coordinate{
			"slow pickup": {Lat: 1, Lon: 1},
			"A":           {Lat: 40.0, Lon: -3.0},
			"B":           {Lat: 41.0, Lon: -4.0},
		},
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	s := NewSession(res, 1, nil)
	s.Load("trips.csv", []*trips.Day{
		{DateKey: "2024-01-16", Trips: []*trips.Trip{trip(1, "2024-01-16", "08:00 AM", "slow pickup", "B")}},
		{DateKey: "2024-01-15", Trips: []*trips.Trip{trip(2, "2024-01-15", "08:00 AM", "A", "B")}},
	})

	staleErr := make(chan error, 1)
	go func() {
		_, err := s.SelectDay(context.Background(), "2024-01-16")
		staleErr <- err
	}()
	<-res.started

	view, err := s.SelectDay(context.Background(), "2024-01-15")
	if err != nil {
		t.Fatalf("SelectDay failed: %v", err)
	}
	close(res.release)

	if err := <-staleErr; !errors.Is(err, ErrSuperseded) {
		t.Errorf("expected ErrSuperseded for the stale render, got %v", err)
	}
	current, ok := s.CurrentView()
	if !ok || current != view || current.DateKey != "2024-01-15" {
		t.Errorf("stale render replaced the current view")
	}
}

func TestSessionInvalidate(t *testing.T) {
	res := &fakeResolver{
		coords:  map[string]geocode.Coordinate{"slow": {Lat: 1, Lon: 1}},
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	s := NewSession(res, 1, nil)
	s.Load("trips.csv", []*trips.Day{
		{DateKey: "2024-01-15", Trips: []*trips.Trip{trip(1, "2024-01-15", "08:00 AM", "slow", "slow")}},
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.SelectDay(context.Background(), "2024-01-15")
		done <- err
	}()
	<-res.started
	s.Invalidate()
	close(res.release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("expected ErrSuperseded, got %v", err)
	}
	if _, ok := s.CurrentView(); ok {
		t.Error("invalidated render should not commit")
	}
}
