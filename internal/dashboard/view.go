package dashboard

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/trip-dashboard/internal/format"
	"github.com/ginjaninja78/trip-dashboard/internal/geocode"
	"github.com/ginjaninja78/trip-dashboard/internal/spatial"
	"github.com/ginjaninja78/trip-dashboard/internal/trips"
)

// StatusNothingPlotted is the map status when no trip could be plotted.
const StatusNothingPlotted = "Could not geocode enough addresses to plot this day."

// Endpoint is one resolved end of a route.
type Endpoint struct {
	geocode.Coordinate
	Geohash string `json:"geohash"`
}

func newEndpoint(c geocode.Coordinate) Endpoint {
	return Endpoint{Coordinate: c, Geohash: spatial.Geohash(c.Lat, c.Lon)}
}

// Route is the straight segment from pickup to drop-off of one trip.
type Route struct {
	TripID   int                `json:"tripId"`
	Number   int                `json:"number"`
	Time     string             `json:"time"`
	Service  string             `json:"service"`
	Pickup   string             `json:"pickup"`
	Dropoff  string             `json:"dropoff"`
	TotalEUR decimal.Decimal    `json:"totalEur"`
	From     Endpoint           `json:"from"`
	To       Endpoint           `json:"to"`
	Midpoint geocode.Coordinate `json:"midpoint"`
}

// MapView is the committed map of one day.
type MapView struct {
	DateKey string         `json:"dateKey"`
	Label   string         `json:"label"`
	Token   uint64         `json:"-"`
	Routes  []Route        `json:"routes"`
	Plotted int            `json:"plotted"`
	Total   int            `json:"total"`
	Bounds  spatial.Bounds `json:"bounds"`
	Status  string         `json:"status"`

	index *spatial.RouteIndex
}

// BuildMapView turns a day and its address resolutions into a map view.
// A trip is plotted only when both its pickup and drop-off resolved.
func BuildMapView(day *trips.Day, resolved map[string]Resolution, token uint64) *MapView {
	view := &MapView{
		DateKey: day.DateKey,
		Label:   format.Day(day.DateKey),
		Token:   token,
		Routes:  []Route{},
		Total:   len(day.Trips),
		index:   spatial.NewRouteIndex(),
	}

	for i, trip := range day.Trips {
		from, okFrom := resolved[AddressKey(trip.Pickup, trip.City)]
		to, okTo := resolved[AddressKey(trip.Dropoff, trip.City)]
		if !okFrom || !okTo || !from.Found || !to.Found {
			continue
		}

		view.Routes = append(view.Routes, Route{
			TripID:   trip.ID,
			Number:   i + 1,
			Time:     trip.Time,
			Service:  trip.Service,
			Pickup:   trip.Pickup,
			Dropoff:  trip.Dropoff,
			TotalEUR: trip.TotalEUR,
			From:     newEndpoint(from.Coord),
			To:       newEndpoint(to.Coord),
			Midpoint: geocode.Coordinate{
				Lat: (from.Coord.Lat + to.Coord.Lat) / 2,
				Lon: (from.Coord.Lon + to.Coord.Lon) / 2,
			},
		})
		view.Bounds.Extend(from.Coord.Lat, from.Coord.Lon)
		view.Bounds.Extend(to.Coord.Lat, to.Coord.Lon)
		view.index.Add(trip.ID, "pickup", from.Coord.Lat, from.Coord.Lon)
		view.index.Add(trip.ID, "dropoff", to.Coord.Lat, to.Coord.Lon)
	}

	view.Plotted = len(view.Routes)
	if view.Plotted == 0 {
		view.Status = StatusNothingPlotted
	} else {
		view.Status = fmt.Sprintf("Showing %d of %d trip route(s) for %s.", view.Plotted, view.Total, view.Label)
	}
	return view
}

// Route returns the plotted route of a trip.
func (v *MapView) Route(tripID int) (Route, bool) {
	for _, r := range v.Routes {
		if r.TripID == tripID {
			return r, true
		}
	}
	return Route{}, false
}

// Nearest returns the plotted route with an endpoint closest to the point,
// and which endpoint ("pickup" or "dropoff") matched.
func (v *MapView) Nearest(lat, lon float64) (Route, string, bool) {
	if v.index == nil {
		return Route{}, "", false
	}
	endpoint, ok := v.index.Nearest(lat, lon)
	if !ok {
		return Route{}, "", false
	}
	route, ok := v.Route(endpoint.TripID)
	return route, endpoint.Kind, ok
}

// =============================================================================
// GEOJSON
// =============================================================================

// FeatureCollection is the GeoJSON form of a map view.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one GeoJSON feature.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry holds GeoJSON coordinates in [lon, lat] order.
type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// GeoJSON renders each route as a LineString and each number label as a Point
// at the route midpoint.
func (v *MapView) GeoJSON() FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
	for _, r := range v.Routes {
		props := map[string]any{
			"tripId":   r.TripID,
			"number":   r.Number,
			"time":     r.Time,
			"service":  r.Service,
			"pickup":   r.Pickup,
			"dropoff":  r.Dropoff,
			"totalEur": format.EUR(r.TotalEUR),
		}
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type: "LineString",
				Coordinates: [][2]float64{
					{r.From.Lon, r.From.Lat},
					{r.To.Lon, r.To.Lat},
				},
			},
			Properties: withKind(props, "route"),
		})
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: [2]float64{r.Midpoint.Lon, r.Midpoint.Lat},
			},
			Properties: withKind(props, "label"),
		})
	}
	return fc
}

func withKind(props map[string]any, kind string) map[string]any {
	out := make(map[string]any, len(props)+1)
	for k, v := range props {
		out[k] = v
	}
	out["kind"] = kind
	return out
}
