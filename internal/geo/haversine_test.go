package geo

import (
	"math"
	"testing"
)

func TestDistanceKnownPairs(t *testing.T) {
	tests := []struct {
		name        string
		lat1, lon1  float64
		lat2, lon2  float64
		expectedKm  float64
		toleranceKm float64
	}{
		{
			name: "meerut_to_delhi",
			lat1: 28.9845, lon1: 77.7064,
			lat2: 28.6139, lon2: 77.2090,
			expectedKm:  63.5,
			toleranceKm: 2.0,
		},
		{
			name: "across_restaurant_radius",
			lat1: 28.9845, lon1: 77.7064,
			lat2: 28.9935, lon2: 77.7064,
			expectedKm:  1.0,
			toleranceKm: 0.01,
		},
		{
			name: "antipodal_points",
			lat1: 0, lon1: 0,
			lat2: 0, lon2: 180,
			expectedKm:  math.Pi * 6371,
			toleranceKm: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.expectedKm) > tt.toleranceKm {
				t.Errorf("DistanceKm() = %f, expected %f +/- %f", got, tt.expectedKm, tt.toleranceKm)
			}
		})
	}
}

func TestDistanceSymmetric(t *testing.T) {
	pairs := [][4]float64{
		{28.9845, 77.7064, 28.6139, 77.2090},
		{0, 0, 45, 90},
		{-33.8688, 151.2093, 51.5074, -0.1278},
		{89.9, 0, -89.9, 180},
	}

	for _, p := range pairs {
		ab := DistanceKm(p[0], p[1], p[2], p[3])
		ba := DistanceKm(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("distance not symmetric: %f vs %f for %v", ab, ba, p)
		}
	}
}

func TestDistanceToSelfIsZero(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{28.9845, 77.7064},
		{-90, 0},
		{90, 180},
	}

	for _, p := range points {
		if d := DistanceKm(p[0], p[1], p[0], p[1]); d != 0 {
			t.Errorf("distance to self = %f, expected 0 for %v", d, p)
		}
	}
}

func TestDistanceMeters(t *testing.T) {
	km := DistanceKm(28.9845, 77.7064, 28.6139, 77.2090)
	m := DistanceMeters(28.9845, 77.7064, 28.6139, 77.2090)
	if math.Abs(m-km*1000) > 1e-9 {
		t.Errorf("DistanceMeters() = %f, expected %f", m, km*1000)
	}
}
