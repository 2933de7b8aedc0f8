// Package geo provides the geographic primitives for the pursuit engine:
// great-circle distance, geofence polygon tests and point sampling.
// This package is PURE and must NOT import any infrastructure packages.
package geo

import (
	"math"
	"math/rand"
)

// EarthRadiusMeters is the equatorial radius of the Earth.
const EarthRadiusMeters = 6378137.0

// metersPerDegreeLat is the length of one degree of latitude on the
// equatorial sphere (pi * R / 180).
const metersPerDegreeLat = math.Pi * EarthRadiusMeters / 180.0

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polygon is an ordered ring of vertices. The ring is implicitly closed:
// the last vertex connects back to the first.
type Polygon []Point

// Box is the axis-aligned bounding box of a polygon.
type Box struct {
	LatMin, LatMax float64
	LngMin, LngMax float64
}

func toRad(deg float64) float64 { return deg * math.Pi / 180.0 }

func hav(x float64) float64 {
	s := math.Sin(x / 2)
	return s * s
}

// Distance returns the great-circle distance between two points in meters,
// using the haversine formula.
func Distance(a, b Point) float64 {
	aLat, bLat := toRad(a.Lat), toRad(b.Lat)
	aLng, bLng := toRad(a.Lng), toRad(b.Lng)

	ht := hav(bLat-aLat) + math.Cos(aLat)*math.Cos(bLat)*hav(bLng-aLng)
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(ht))
}

// Contains reports whether p lies inside the polygon, using the standard
// ray-casting parity test over the closed ring. A point exactly on the lower
// endpoint of an edge counts as inside; the opposite endpoint does not.
func (pg Polygon) Contains(p Point) bool {
	inside := false
	for i, j := 0, len(pg)-1; i < len(pg); j, i = i, i+1 {
		xi, yi := pg[i].Lat, pg[i].Lng
		xj, yj := pg[j].Lat, pg[j].Lng

		if (yi > p.Lng) != (yj > p.Lng) &&
			p.Lat > (xj-xi)*(p.Lng-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// DistanceToBoundary returns the distance in meters from p to the nearest
// polygon edge. Each edge is treated as an infinite line: p is projected
// perpendicularly onto it and the great-circle distance to the projection is
// taken. The minimum over all edges is returned.
func (pg Polygon) DistanceToBoundary(p Point) float64 {
	min := math.Inf(1)
	for i, j := 0, len(pg)-1; i < len(pg); j, i = i, i+1 {
		a, b := pg[j], pg[i]

		dLat := b.Lat - a.Lat
		dLng := b.Lng - a.Lng
		norm := dLat*dLat + dLng*dLng
		if norm == 0 {
			// Degenerate edge, measure to the vertex itself.
			if d := Distance(p, a); d < min {
				min = d
			}
			continue
		}

		t := ((p.Lat-a.Lat)*dLat + (p.Lng-a.Lng)*dLng) / norm
		foot := Point{Lat: a.Lat + t*dLat, Lng: a.Lng + t*dLng}
		if d := Distance(p, foot); d < min {
			min = d
		}
	}
	return min
}

// BoundingBox returns the axis-aligned lat/lng ranges of the polygon.
func (pg Polygon) BoundingBox() Box {
	box := Box{
		LatMin: math.Inf(1), LatMax: math.Inf(-1),
		LngMin: math.Inf(1), LngMax: math.Inf(-1),
	}
	for _, v := range pg {
		box.LatMin = math.Min(box.LatMin, v.Lat)
		box.LatMax = math.Max(box.LatMax, v.Lat)
		box.LngMin = math.Min(box.LngMin, v.Lng)
		box.LngMax = math.Max(box.LngMax, v.Lng)
	}
	return box
}

// AreaSquareMeters returns the approximate enclosed area using the shoelace
// formula over an equirectangular projection centered on the polygon's mean
// latitude. Accurate enough for play areas of a few kilometers.
func (pg Polygon) AreaSquareMeters() float64 {
	if len(pg) < 3 {
		return 0
	}

	var latSum float64
	for _, v := range pg {
		latSum += v.Lat
	}
	meanLat := toRad(latSum / float64(len(pg)))
	mPerDegLng := metersPerDegreeLat * math.Cos(meanLat)

	var total float64
	for i := range pg {
		j := (i + 1) % len(pg)
		xi, yi := pg[i].Lng*mPerDegLng, pg[i].Lat*metersPerDegreeLat
		xj, yj := pg[j].Lng*mPerDegLng, pg[j].Lat*metersPerDegreeLat
		total += xi*yj - xj*yi
	}
	return math.Abs(total) / 2
}

// Valid reports whether the polygon has at least three vertices and a
// non-zero area.
func (pg Polygon) Valid() bool {
	return len(pg) >= 3 && pg.AreaSquareMeters() > 0
}

// PointAtOffset returns the point reached by travelling the given number of
// meters from center at the given bearing (radians, 0 = east,
// counter-clockwise).
func PointAtOffset(center Point, bearing, meters float64) Point {
	dLat := math.Sin(bearing) * meters / metersPerDegreeLat
	dLng := math.Cos(bearing) * meters / (metersPerDegreeLat * math.Cos(toRad(center.Lat)))
	return Point{Lat: center.Lat + dLat, Lng: center.Lng + dLng}
}

// maxRejectionAttempts bounds the uniform rejection samplers so a degenerate
// polygon cannot spin forever.
const maxRejectionAttempts = 10000

// RandomPointIn returns a uniformly random point inside the polygon, found by
// rejection sampling over its bounding box. ok is false if no in-polygon
// point was found within the attempt budget.
func RandomPointIn(rng *rand.Rand, pg Polygon) (p Point, ok bool) {
	box := pg.BoundingBox()
	for i := 0; i < maxRejectionAttempts; i++ {
		candidate := Point{
			Lat: box.LatMin + rng.Float64()*(box.LatMax-box.LatMin),
			Lng: box.LngMin + rng.Float64()*(box.LngMax-box.LngMin),
		}
		if pg.Contains(candidate) {
			return candidate, true
		}
	}
	return Point{}, false
}

// RandomPointNear returns a random point within radius meters of center that
// lies inside the polygon, by rejection sampling random bearing/distance
// offsets. ok is false if the attempt budget is exhausted.
func RandomPointNear(rng *rand.Rand, center Point, radius float64, pg Polygon) (p Point, ok bool) {
	for i := 0; i < maxRejectionAttempts; i++ {
		bearing := rng.Float64() * 2 * math.Pi
		dist := rng.Float64() * radius
		candidate := PointAtOffset(center, bearing, dist)
		if pg.Contains(candidate) {
			return candidate, true
		}
	}
	return Point{}, false
}
