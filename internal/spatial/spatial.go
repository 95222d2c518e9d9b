// Package spatial holds the geometry helpers behind the day map: geohash
// cells for client-side clustering, map bounds and a nearest-endpoint index
// used to highlight the trip closest to a point on the map.
package spatial

import (
	"math"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/mmcloughlin/geohash"
)

// GeohashPrecision gives cells of roughly 150 m, enough to tell a pickup
// from a drop-off across the street.
const GeohashPrecision = 7

// pointTolerance is the half side length of the box stored for a point.
const pointTolerance = 1e-9

// Geohash encodes a coordinate at GeohashPrecision.
func Geohash(lat, lon float64) string {
	return geohash.EncodeWithPrecision(lat, lon, GeohashPrecision)
}

// Neighbors returns the eight cells surrounding a geohash.
func Neighbors(hash string) []string {
	return geohash.Neighbors(hash)
}

// =============================================================================
// BOUNDS
// =============================================================================

// Bounds is a south-west / north-east box. The zero value is empty.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
	set   bool
}

// Extend grows the box to include a point.
func (b *Bounds) Extend(lat, lon float64) {
	if !b.set {
		*b = Bounds{South: lat, North: lat, West: lon, East: lon, set: true}
		return
	}
	b.South = math.Min(b.South, lat)
	b.North = math.Max(b.North, lat)
	b.West = math.Min(b.West, lon)
	b.East = math.Max(b.East, lon)
}

// Empty reports whether no point was added.
func (b Bounds) Empty() bool { return !b.set }

// Center returns the middle of the box.
func (b Bounds) Center() (lat, lon float64) {
	return (b.South + b.North) / 2, (b.West + b.East) / 2
}

// =============================================================================
// ROUTE INDEX
// =============================================================================

// Endpoint is one end of a plotted trip route.
type Endpoint struct {
	TripID int
	Kind   string
	Lat    float64
	Lon    float64
}

func (e *Endpoint) Bounds() rtreego.Rect {
	return rtreego.Point{e.Lat, e.Lon}.ToRect(pointTolerance)
}

// RouteIndex finds the route endpoint nearest to a map point. It is safe
// for concurrent use.
type RouteIndex struct {
	mu   sync.RWMutex
	tree *rtreego.Rtree
}

// NewRouteIndex creates an empty index.
func NewRouteIndex() *RouteIndex {
	return &RouteIndex{tree: rtreego.NewTree(2, 25, 50)}
}

// Add indexes one endpoint of a trip.
func (ix *RouteIndex) Add(tripID int, kind string, lat, lon float64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.tree.Insert(&Endpoint{TripID: tripID, Kind: kind, Lat: lat, Lon: lon})
}

// Len returns the number of indexed endpoints.
func (ix *RouteIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.tree.Size()
}

// Nearest returns the endpoint closest to the point, measured in degrees.
func (ix *RouteIndex) Nearest(lat, lon float64) (Endpoint, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.tree.Size() == 0 {
		return Endpoint{}, false
	}
	nearest, ok := ix.tree.NearestNeighbor(rtreego.Point{lat, lon}).(*Endpoint)
	if !ok || nearest == nil {
		return Endpoint{}, false
	}
	return *nearest, true
}
