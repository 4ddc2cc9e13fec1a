package geo

import (
	"math"
	"testing"
)

func TestHaversineKmZeroDistance(t *testing.T) {
	t.Parallel()

	if got := HaversineKm(-0.1807, -78.4678, -0.1807, -78.4678); got != 0 {
		t.Fatalf("expected 0, got %f", got)
	}
}

func TestHaversineKmKnownDistance(t *testing.T) {
	t.Parallel()

	// Quito to Guayaquil, roughly 270 km great-circle
	got := HaversineKm(-0.1807, -78.4678, -2.1894, -79.8891)
	if math.Abs(got-271) > 5 {
		t.Fatalf("expected about 271 km, got %f", got)
	}
}

func TestHaversineKmSymmetric(t *testing.T) {
	t.Parallel()

	ab := HaversineKm(-0.18, -78.46, -0.22, -78.52)
	ba := HaversineKm(-0.22, -78.52, -0.18, -78.46)
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("distance not symmetric: %f vs %f", ab, ba)
	}
}
