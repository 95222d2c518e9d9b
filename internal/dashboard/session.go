package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ginjaninja78/trip-dashboard/internal/logger"
	"github.com/ginjaninja78/trip-dashboard/internal/trips"
)

var (
	// ErrUnknownDay is returned when a date key matches no loaded day.
	ErrUnknownDay = errors.New("unknown day")

	// ErrSuperseded is returned when a newer selection or load replaced the
	// render before it could be committed. It is not a failure.
	ErrSuperseded = errors.New("render superseded by a newer selection")
)

// Session is the state of one dashboard: the loaded days and the map view of
// the selected day. It is safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	source   string
	days     []*trips.Day
	kpis     trips.KPIs
	selected string
	view     *MapView

	generations *Generations
	batch       *BatchGeocoder
	logger      *slog.Logger
}

// NewSession creates an empty session resolving addresses with resolver and
// a pool of workers.
func NewSession(resolver AddressResolver, workers int, l *slog.Logger) *Session {
	gens := &Generations{}
	l = logger.OrDiscard(l)
	return &Session{
		generations: gens,
		batch:       NewBatchGeocoder(resolver, workers, gens, l),
		logger:      l,
	}
}

// Load replaces the session's data wholesale. Any render still in progress
// is invalidated and the selection is cleared.
func (s *Session) Load(source string, days []*trips.Day) trips.KPIs {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generations.Next()
	s.source = source
	s.days = days
	s.kpis = trips.Summarize(days)
	s.selected = ""
	s.view = nil

	s.logger.Debug("Loaded trips into session", "source", source, "days", s.kpis.Days, "trips", s.kpis.Trips)
	return s.kpis
}

// Source returns the name of the loaded file.
func (s *Session) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Days returns the loaded days, newest first.
func (s *Session) Days() []*trips.Day {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.days
}

// KPIs returns the summary of the loaded days.
func (s *Session) KPIs() trips.KPIs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kpis
}

// Day returns the loaded day with the given key.
func (s *Session) Day(dateKey string) (*trips.Day, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day := trips.FindDay(s.days, dateKey)
	if day == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDay, dateKey)
	}
	return day, nil
}

// Selected returns the date key of the current selection, if any.
func (s *Session) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SelectDay makes a day the current selection and renders its map.
//
// PARAMETERS:
//   - ctx: Bounds how long the caller waits. Address lookups that already
//     started keep running so their results still reach the cache.
//   - dateKey: The day to select.
//
// RETURNS:
//   - The committed map view.
//   - ErrUnknownDay when no such day is loaded.
//   - ErrSuperseded when another selection or load happened first. The
//     session's view is left untouched in that case.
func (s *Session) SelectDay(ctx context.Context, dateKey string) (*MapView, error) {
	s.mu.Lock()
	day := trips.FindDay(s.days, dateKey)
	if day == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownDay, dateKey)
	}
	token := s.generations.Next()
	s.selected = dateKey
	s.view = nil
	s.mu.Unlock()

	resolved, completed := s.batch.ResolveDay(ctx, day, token)
	if !completed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrSuperseded
	}
	view := BuildMapView(day, resolved, token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.generations.IsCurrent(token) {
		s.logger.Debug("Dropped stale map view", "day", dateKey, "token", token)
		return nil, ErrSuperseded
	}
	s.view = view

	s.logger.Debug("Committed map view", "day", dateKey, "plotted", view.Plotted, "total", view.Total)
	return view, nil
}

// CurrentView returns the committed view of the selected day.
func (s *Session) CurrentView() (*MapView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view, s.view != nil
}

// Invalidate abandons any render in progress without changing the data.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations.Next()
}
