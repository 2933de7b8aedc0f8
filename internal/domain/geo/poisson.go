package geo

import (
	"math"
	"math/rand"
)

// Poisson-disc sampling defaults. A 200m spacing gives a walkable scatter of
// item drops over a neighborhood-sized play area.
const (
	DefaultPoissonRadius   = 200.0
	DefaultPoissonAttempts = 10
)

// PoissonDiscSample generates a blue-noise point set inside the polygon with
// a minimum inter-point spacing of radius meters (Bridson's algorithm).
//
// A uniform grid with cell size radius/sqrt(2) holds at most one sample per
// cell, so a 5x5 cell neighborhood suffices for conflict checks. Candidates
// are drawn from the annulus [radius, 2*radius] around a random active
// sample; a sample retires after k failed candidates. Terminates when no
// active samples remain.
func PoissonDiscSample(rng *rand.Rand, pg Polygon, radius float64, k int) []Point {
	seed, ok := RandomPointIn(rng, pg)
	if !ok {
		return nil
	}

	box := pg.BoundingBox()
	meanLat := toRad((box.LatMin + box.LatMax) / 2)
	mPerDegLng := metersPerDegreeLat * math.Cos(meanLat)

	cell := radius / math.Sqrt2
	gridW := int(math.Ceil((box.LngMax-box.LngMin)*mPerDegLng/cell)) + 1
	gridH := int(math.Ceil((box.LatMax-box.LatMin)*metersPerDegreeLat/cell)) + 1

	gridPos := func(p Point) (int, int) {
		gx := int((p.Lng - box.LngMin) * mPerDegLng / cell)
		gy := int((p.Lat - box.LatMin) * metersPerDegreeLat / cell)
		return gx, gy
	}
	index := func(gx, gy int) int { return gx + gridW*gy }

	grid := make(map[int]Point)
	var active []int

	sx, sy := gridPos(seed)
	grid[index(sx, sy)] = seed
	active = append(active, index(sx, sy))

	for len(active) > 0 {
		pick := rng.Intn(len(active))
		origin := grid[active[pick]]

		placed := false
		for i := 0; i < k; i++ {
			bearing := rng.Float64() * 2 * math.Pi
			dist := radius + rng.Float64()*radius
			candidate := PointAtOffset(origin, bearing, dist)

			gx, gy := gridPos(candidate)
			if gx < 0 || gy < 0 || gx >= gridW || gy >= gridH {
				continue
			}
			if _, occupied := grid[index(gx, gy)]; occupied {
				continue
			}
			if !pg.Contains(candidate) {
				continue
			}
			if tooClose(grid, gridW, gridH, gx, gy, candidate, radius) {
				continue
			}

			grid[index(gx, gy)] = candidate
			active = append(active, index(gx, gy))
			placed = true
			break
		}

		if !placed {
			active[pick] = active[len(active)-1]
			active = active[:len(active)-1]
		}
	}

	points := make([]Point, 0, len(grid))
	for _, p := range grid {
		points = append(points, p)
	}
	return points
}

// tooClose checks the 5x5 cell neighborhood around (gx, gy) for an existing
// sample closer than radius to the candidate.
func tooClose(grid map[int]Point, gridW, gridH, gx, gy int, candidate Point, radius float64) bool {
	for dx := -2; dx <= 2; dx++ {
		for dy := -2; dy <= 2; dy++ {
			nx, ny := gx+dx, gy+dy
			if nx < 0 || ny < 0 || nx >= gridW || ny >= gridH {
				continue
			}
			neighbor, ok := grid[nx+gridW*ny]
			if !ok {
				continue
			}
			if Distance(candidate, neighbor) < radius {
				return true
			}
		}
	}
	return false
}
