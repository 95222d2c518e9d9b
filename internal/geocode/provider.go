package geocode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/ginjaninja78/trip-dashboard/internal/config"
)

// ErrNoResult is returned when the service answered but found nothing usable.
var ErrNoResult = errors.New("no geocoding result")

// Provider adapts the client to one geocoding service's query parameters and
// response shape.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// Query returns the URL parameters for a search.
	Query(q string) url.Values

	// Parse extracts the result coordinates from a response body.
	Parse(body []byte) ([]Coordinate, error)
}

// ProviderFor returns the provider registered under name.
func ProviderFor(name string) (Provider, error) {
	switch strings.ToLower(name) {
	case config.ProviderNominatim, "":
		return Nominatim{}, nil
	case config.ProviderPhoton:
		return Photon{}, nil
	default:
		return nil, fmt.Errorf("unknown geocoding provider %q", name)
	}
}

// =============================================================================
// NOMINATIM
// =============================================================================

// Nominatim parses the flat JSON array returned by Nominatim's /search.
type Nominatim struct{}

func (Nominatim) Name() string { return config.ProviderNominatim }

func (Nominatim) Query(q string) url.Values {
	return url.Values{
		"q":      {q},
		"limit":  {"1"},
		"format": {"jsonv2"},
	}
}

func (Nominatim) Parse(body []byte) ([]Coordinate, error) {
	var results []struct {
		Lat *flexFloat `json:"lat"`
		Lon *flexFloat `json:"lon"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	coords := make([]Coordinate, 0, len(results))
	for _, r := range results {
		if r.Lat == nil || r.Lon == nil {
			continue
		}
		coords = append(coords, Coordinate{Lat: float64(*r.Lat), Lon: float64(*r.Lon)})
	}
	return coords, nil
}

// =============================================================================
// PHOTON
// =============================================================================

// Photon parses the GeoJSON feature collection returned by Photon's /api.
type Photon struct{}

func (Photon) Name() string { return config.ProviderPhoton }

func (Photon) Query(q string) url.Values {
	return url.Values{
		"q":     {q},
		"limit": {"1"},
	}
}

func (Photon) Parse(body []byte) ([]Coordinate, error) {
	var collection struct {
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &collection); err != nil {
		return nil, fmt.Errorf("failed to decode photon response: %w", err)
	}

	coords := make([]Coordinate, 0, len(collection.Features))
	for _, f := range collection.Features {
		c := f.Geometry.Coordinates
		if len(c) < 2 {
			continue
		}
		// GeoJSON positions are [lon, lat].
		coords = append(coords, Coordinate{Lat: c[1], Lon: c[0]})
	}
	return coords, nil
}

// flexFloat decodes a number given either as a JSON number or a string.
// Unreadable values decode to NaN so the coordinate fails validation.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}

	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		v = math.NaN()
	}
	*f = flexFloat(v)
	return nil
}
