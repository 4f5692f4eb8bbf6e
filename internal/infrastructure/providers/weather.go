package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
	"github.com/fieldserve/scheduling-backend/internal/infrastructure/config"
)

// WeatherClient classifies weather safety for a service window via an
// external forecast service. Any failure fails open to safe: weather data
// must never block a booking on its own.
type WeatherClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewWeatherClient creates a forecast client.
func NewWeatherClient(cfg config.WeatherProviderConfig, logger *zap.Logger) *WeatherClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type forecastResponse struct {
	Verdict string `json:"verdict"`
}

// Assess returns the safety verdict for working outdoors at the location
// during the window.
func (w *WeatherClient) Assess(ctx context.Context, loc schedule.Location, window schedule.TimeWindow) (schedule.WeatherSafetyVerdict, error) {
	if w.baseURL == "" || loc.Coordinate.IsZero() {
		return schedule.WeatherSafe, nil
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(loc.Coordinate.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(loc.Coordinate.Longitude, 'f', -1, 64))
	q.Set("start", strconv.FormatInt(window.Start.Unix(), 10))
	q.Set("end", strconv.FormatInt(window.End.Unix(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/forecast?"+q.Encode(), nil)
	if err != nil {
		return schedule.WeatherSafe, err
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return schedule.WeatherSafe, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return schedule.WeatherSafe, fmt.Errorf("forecast provider returned %d", resp.StatusCode)
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return schedule.WeatherSafe, fmt.Errorf("decoding forecast response: %w", err)
	}

	switch body.Verdict {
	case "unsafe":
		return schedule.WeatherUnsafe, nil
	case "caution":
		return schedule.WeatherCaution, nil
	case "safe":
		return schedule.WeatherSafe, nil
	default:
		return schedule.WeatherSafe, fmt.Errorf("unknown weather verdict %q", body.Verdict)
	}
}
