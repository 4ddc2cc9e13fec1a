package delivery

import (
	"testing"

	"github.com/vaiven-app/vaiven-backend/pkg/config"
	"github.com/vaiven-app/vaiven-backend/pkg/types"
)

func estimateConfig() config.DeliveryConfig {
	return config.DeliveryConfig{
		BaseFeeCents:           250,
		PerKmFeeCents:          120,
		PerItemHandlingCents:   35,
		CourierSpeedKmh:        25,
		PerItemHandlingMinutes: 1.5,
	}
}

func TestCalculateEstimateDeterministic(t *testing.T) {
	t.Parallel()

	cfg := estimateConfig()
	origin := types.Coordinates{Lat: -0.1807, Lng: -78.4678}
	dest := types.Coordinates{Lat: -0.2299, Lng: -78.5249}

	first := CalculateEstimate(cfg, origin, dest, 3)
	second := CalculateEstimate(cfg, origin, dest, 3)
	if first != second {
		t.Fatalf("identical inputs diverged: %+v vs %+v", first, second)
	}
	if first.DistanceKm <= 0 {
		t.Fatalf("expected positive distance, got %f", first.DistanceKm)
	}
}

func TestCalculateEstimateZeroDistance(t *testing.T) {
	t.Parallel()

	cfg := estimateConfig()
	point := types.Coordinates{Lat: -0.18, Lng: -78.46}

	got := CalculateEstimate(cfg, point, point, 2)
	if got.DistanceKm != 0 {
		t.Fatalf("expected zero distance, got %f", got.DistanceKm)
	}
	if got.FeeCents != cfg.BaseFeeCents+2*cfg.PerItemHandlingCents {
		t.Fatalf("unexpected fee %d", got.FeeCents)
	}
	if got.EtaMinutes != 2*cfg.PerItemHandlingMinutes {
		t.Fatalf("unexpected eta %f", got.EtaMinutes)
	}
}

func TestCalculateEstimateMonotonicInDistance(t *testing.T) {
	t.Parallel()

	cfg := estimateConfig()
	origin := types.Coordinates{Lat: -0.18, Lng: -78.46}
	near := types.Coordinates{Lat: -0.19, Lng: -78.47}
	far := types.Coordinates{Lat: -0.35, Lng: -78.60}

	nearEst := CalculateEstimate(cfg, origin, near, 1)
	farEst := CalculateEstimate(cfg, origin, far, 1)
	if farEst.FeeCents <= nearEst.FeeCents {
		t.Fatalf("fee not monotonic in distance: %d <= %d", farEst.FeeCents, nearEst.FeeCents)
	}
	if farEst.EtaMinutes <= nearEst.EtaMinutes {
		t.Fatalf("eta not monotonic in distance: %f <= %f", farEst.EtaMinutes, nearEst.EtaMinutes)
	}
}

func TestCalculateEstimateMonotonicInItems(t *testing.T) {
	t.Parallel()

	cfg := estimateConfig()
	origin := types.Coordinates{Lat: -0.18, Lng: -78.46}
	dest := types.Coordinates{Lat: -0.22, Lng: -78.52}

	small := CalculateEstimate(cfg, origin, dest, 1)
	large := CalculateEstimate(cfg, origin, dest, 8)
	if large.FeeCents <= small.FeeCents {
		t.Fatalf("fee not monotonic in item count: %d <= %d", large.FeeCents, small.FeeCents)
	}
}

func TestCalculateEstimateItemCountFloor(t *testing.T) {
	t.Parallel()

	cfg := estimateConfig()
	origin := types.Coordinates{Lat: -0.18, Lng: -78.46}
	dest := types.Coordinates{Lat: -0.22, Lng: -78.52}

	zero := CalculateEstimate(cfg, origin, dest, 0)
	one := CalculateEstimate(cfg, origin, dest, 1)
	if zero != one {
		t.Fatalf("zero items should quote as one: %+v vs %+v", zero, one)
	}
}
