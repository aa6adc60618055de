package geo

import (
	"math"
	"testing"
)

func TestDistanceZero(t *testing.T) {
	t.Parallel()

	p := Point{Latitude: 51.1605, Longitude: 71.4704}
	if d := Distance(p, p); d != 0 {
		t.Errorf("distance to self should be 0, got %f", d)
	}
}

func TestDistanceKnownPair(t *testing.T) {
	t.Parallel()

	// Astana city center to the airport, roughly 12.7 km.
	center := Point{Latitude: 51.1605, Longitude: 71.4704}
	airport := Point{Latitude: 51.0333, Longitude: 71.4669}

	d := Distance(center, airport)
	if d < 13500 || d > 14800 {
		t.Errorf("expected roughly 14 km, got %f m", d)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	t.Parallel()

	a := Point{Latitude: 43.238949, Longitude: 76.889709}
	b := Point{Latitude: 43.25, Longitude: 76.95}

	if da, db := Distance(a, b), Distance(b, a); math.Abs(da-db) > 1e-9 {
		t.Errorf("distance should be symmetric: %f vs %f", da, db)
	}
}

func TestWithinRadiusBoundary(t *testing.T) {
	t.Parallel()

	origin := Point{Latitude: 51.1605, Longitude: 71.4704}

	// One degree of latitude is ~111.32 km, so ~99 m north.
	near := Point{Latitude: origin.Latitude + 99.0/111320.0, Longitude: origin.Longitude}
	far := Point{Latitude: origin.Latitude + 101.0/111320.0, Longitude: origin.Longitude}

	if !WithinRadius(near, origin, 100) {
		t.Errorf("point %.1f m away should be inside a 100 m radius", Distance(near, origin))
	}
	if WithinRadius(far, origin, 100) {
		t.Errorf("point %.1f m away should be outside a 100 m radius", Distance(far, origin))
	}
}

func TestWithinRadiusExactBoundaryPasses(t *testing.T) {
	t.Parallel()

	origin := Point{Latitude: 51.1605, Longitude: 71.4704}
	probe := Point{Latitude: origin.Latitude + 100.0/111320.0, Longitude: origin.Longitude}

	d := Distance(probe, origin)
	if !WithinRadius(probe, origin, d) {
		t.Error("a point exactly on the radius should pass")
	}
}
