// =============================================================================
// Trip Dashboard - Geocode Module
// =============================================================================
//
// This package resolves free-text pickup and drop-off addresses to
// coordinates through an external geocoding service.
//
// RESOLUTION CHAIN:
//   1. Build candidate queries from most to least specific
//   2. Return the first candidate already in the coordinate cache
//   3. Otherwise query candidates in order, skipping known failures and
//      sharing in-flight requests for the same candidate
//   4. Cache the winning coordinate under every candidate and persist it
//
// Not finding an address is an expected outcome, never an error.
//
// =============================================================================

package geocode

import (
	"math"
	"strings"
)

// maxCommaPrefixes bounds how many comma-separated parts of the street
// segment are turned into fallback queries.
const maxCommaPrefixes = 4

// Coordinate is a resolved latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both values are finite and within range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// BuildCandidates returns the ordered, de-duplicated query strings for an
// address, most specific first.
//
// EXAMPLE:
//
//	BuildCandidates("Café Central - Calle Mayor 5, Centro", "Madrid")
//
//	"Café Central - Calle Mayor 5, Centro, Madrid"
//	"Caf Central - Calle Mayor 5, Centro, Madrid"
//	"Caf Central - Calle Mayor 5, Centro"
//	"Caf Central, Madrid"
//	"Caf Central"
//
// Candidates are compared ignoring case and runs of whitespace; empty
// candidates are dropped.
func BuildCandidates(address, city string) []string {
	addressPart := strings.TrimSpace(address)
	cityPart := strings.TrimSpace(city)
	ascii := toASCII(addressPart)

	candidates := []string{
		joinNonEmpty(addressPart, cityPart),
		joinNonEmpty(ascii, cityPart),
		ascii,
	}

	firstSegment := firstDashSegment(ascii)
	for _, prefix := range commaPrefixes(firstSegment) {
		candidates = append(candidates, joinNonEmpty(prefix, cityPart))
	}
	candidates = append(candidates, firstSegment)

	return uniqueNonEmpty(candidates)
}

// toASCII replaces every character outside printable ASCII with a space and
// collapses whitespace.
func toASCII(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7E {
			return ' '
		}
		return r
	}, s)
	return collapseSpace(mapped)
}

// firstDashSegment returns the first non-empty part of s split on " - ".
func firstDashSegment(s string) string {
	for _, part := range strings.Split(s, " - ") {
		if part = strings.TrimSpace(part); part != "" {
			return part
		}
	}
	return ""
}

// commaPrefixes returns cumulative prefixes of the comma-separated parts of
// s, longest first, using at most maxCommaPrefixes parts.
func commaPrefixes(s string) []string {
	var parts []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > maxCommaPrefixes {
		parts = parts[:maxCommaPrefixes]
	}

	prefixes := make([]string, 0, len(parts))
	for n := len(parts); n > 0; n-- {
		prefixes = append(prefixes, strings.Join(parts[:n], ", "))
	}
	return prefixes
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, ", ")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		normalized := collapseSpace(value)
		if normalized == "" {
			continue
		}
		key := strings.ToLower(normalized)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
