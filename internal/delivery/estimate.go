package delivery

import (
	"math"

	"github.com/vaiven-app/vaiven-backend/pkg/config"
	"github.com/vaiven-app/vaiven-backend/pkg/geo"
	"github.com/vaiven-app/vaiven-backend/pkg/types"
)

// Estimate is the quote for a prospective delivery. It carries no identity
// and commits nothing.
type Estimate struct {
	DistanceKm float64 `json:"distance_km"`
	EtaMinutes float64 `json:"eta_minutes"`
	FeeCents   int     `json:"fee_cents"`
}

// CalculateEstimate quotes a delivery from straight-line distance, a
// configured courier speed, and a fee model monotonic in both distance and
// item count. Pure: consults no mutable state, so the estimate endpoint can
// call it before any commitment exists.
func CalculateEstimate(cfg config.DeliveryConfig, origin, dest types.Coordinates, itemCount int) Estimate {
	if itemCount < 1 {
		itemCount = 1
	}

	distance := geo.HaversineKm(origin.Lat, origin.Lng, dest.Lat, dest.Lng)
	distance = math.Round(distance*100) / 100

	travelMinutes := 0.0
	if cfg.CourierSpeedKmh > 0 {
		travelMinutes = distance / cfg.CourierSpeedKmh * 60
	}
	eta := travelMinutes + float64(itemCount)*cfg.PerItemHandlingMinutes
	eta = math.Round(eta*10) / 10

	fee := cfg.BaseFeeCents +
		int(math.Ceil(distance*float64(cfg.PerKmFeeCents))) +
		itemCount*cfg.PerItemHandlingCents

	return Estimate{
		DistanceKm: distance,
		EtaMinutes: eta,
		FeeCents:   fee,
	}
}
