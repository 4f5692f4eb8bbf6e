package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
	"github.com/fieldserve/scheduling-backend/internal/infrastructure/config"
	"github.com/fieldserve/scheduling-backend/internal/service/availability"
)

// GeoClient estimates travel time via an external routing service. When the
// service is unreachable, times out, or returns garbage, the estimate falls
// back to straight-line distance at a configured average speed and is marked
// degraded. Estimation never fails a slot search.
type GeoClient struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	avgSpeed float64
	logger   *zap.Logger
}

// NewGeoClient creates a routing client with rate limiting.
func NewGeoClient(cfg config.GeoProviderConfig, logger *zap.Logger) *GeoClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(rps)
	}
	avgSpeed := cfg.AverageSpeedKmh
	if avgSpeed <= 0 {
		avgSpeed = 35
	}
	return &GeoClient{
		baseURL:  cfg.BaseURL,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		avgSpeed: avgSpeed,
		logger:   logger,
	}
}

type routeResponse struct {
	DurationSeconds float64 `json:"duration_seconds"`
	DistanceKm      float64 `json:"distance_km"`
}

// EstimateTravel returns the travel estimate between two points. The
// returned estimate is always usable; Degraded marks fallback values.
func (g *GeoClient) EstimateTravel(ctx context.Context, origin, dest schedule.GeoPoint) (availability.TravelEstimate, error) {
	if origin.IsZero() || dest.IsZero() {
		return availability.TravelEstimate{}, fmt.Errorf("missing coordinates")
	}
	if g.baseURL == "" {
		return g.fallback(origin, dest), nil
	}

	est, err := g.route(ctx, origin, dest)
	if err != nil {
		g.logger.Warn("routing provider unavailable, using straight-line estimate",
			zap.Error(err))
		return g.fallback(origin, dest), nil
	}
	return est, nil
}

func (g *GeoClient) route(ctx context.Context, origin, dest schedule.GeoPoint) (availability.TravelEstimate, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return availability.TravelEstimate{}, err
	}

	q := url.Values{}
	q.Set("from_lat", fmt.Sprintf("%f", origin.Latitude))
	q.Set("from_lon", fmt.Sprintf("%f", origin.Longitude))
	q.Set("to_lat", fmt.Sprintf("%f", dest.Latitude))
	q.Set("to_lon", fmt.Sprintf("%f", dest.Longitude))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/route?"+q.Encode(), nil)
	if err != nil {
		return availability.TravelEstimate{}, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return availability.TravelEstimate{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return availability.TravelEstimate{}, fmt.Errorf("routing provider returned %d", resp.StatusCode)
	}

	var body routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return availability.TravelEstimate{}, fmt.Errorf("decoding route response: %w", err)
	}
	if body.DurationSeconds <= 0 {
		return availability.TravelEstimate{}, fmt.Errorf("routing provider returned non-positive duration")
	}

	return availability.TravelEstimate{
		Duration:   time.Duration(body.DurationSeconds * float64(time.Second)),
		DistanceKm: body.DistanceKm,
	}, nil
}

// fallback estimates straight-line travel at the configured average speed.
func (g *GeoClient) fallback(origin, dest schedule.GeoPoint) availability.TravelEstimate {
	distance := origin.DistanceKm(dest)
	hours := distance / g.avgSpeed
	return availability.TravelEstimate{
		Duration:   time.Duration(hours * float64(time.Hour)),
		DistanceKm: distance,
		Degraded:   true,
	}
}
