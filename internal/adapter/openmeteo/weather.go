// Package openmeteo fetches current weather, air quality, and river flood
// indicators from the Open-Meteo APIs.
package openmeteo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"

	"github.com/couchcryptid/geocontext-service/internal/cache"
	"github.com/couchcryptid/geocontext-service/internal/domain"
	"github.com/couchcryptid/geocontext-service/internal/observability"
	"github.com/couchcryptid/geocontext-service/internal/upstream"
)

const (
	// DefaultForecastURL is the Open-Meteo forecast endpoint.
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

	weatherSource = "open-meteo"
	weatherCache  = "weather"
)

// WeatherClient returns current weather and elevation for a point. Results,
// including failures, are cached per ~110 m cell.
type WeatherClient struct {
	api     *upstream.Client
	baseURL string
	cache   *cache.Cache[*domain.WeatherResult]
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWeatherClient creates a weather client backed by the given cache.
func NewWeatherClient(api *upstream.Client, baseURL string, c *cache.Cache[*domain.WeatherResult], logger *slog.Logger, metrics *observability.Metrics) *WeatherClient {
	if baseURL == "" {
		baseURL = DefaultForecastURL
	}
	return &WeatherClient{
		api:     api,
		baseURL: baseURL,
		cache:   c,
		logger:  logger,
		metrics: metrics,
	}
}

// WeatherKey rounds a coordinate to 3 decimals.
func WeatherKey(lat, lon float64) string {
	return fmt.Sprintf("%.3f,%.3f", lat, lon)
}

// Fetch returns the weather at a point, or nil when the provider failed. A
// nil result is cached for the TTL like any other.
func (c *WeatherClient) Fetch(ctx context.Context, lat, lon float64) *domain.WeatherResult {
	result, hit := c.cache.GetOrLoad(ctx, WeatherKey(lat, lon), func(ctx context.Context) (*domain.WeatherResult, bool) {
		r, err := c.fetch(ctx, lat, lon)
		if err != nil {
			c.logger.Warn("weather fetch failed", "lat", lat, "lon", lon, "error", err)
			return nil, ctx.Err() == nil
		}
		return r, true
	})
	c.metrics.CacheLookups.WithLabelValues(weatherCache, hitLabel(hit)).Inc()
	return result
}

func (c *WeatherClient) fetch(ctx context.Context, lat, lon float64) (*domain.WeatherResult, error) {
	params := url.Values{
		"latitude":           {formatCoord(lat)},
		"longitude":          {formatCoord(lon)},
		"current":            {"temperature_2m,wind_speed_10m,precipitation,weather_code"},
		"temperature_unit":   {"celsius"},
		"wind_speed_unit":    {"kmh"},
		"precipitation_unit": {"mm"},
		"timezone":           {"auto"},
	}

	var resp forecastResponse
	if err := c.api.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.toResult(), nil
}

type forecastResponse struct {
	Elevation *float64        `json:"elevation"`
	Current   *currentWeather `json:"current"`
}

type currentWeather struct {
	Time          *string  `json:"time"`
	Temperature2m *float64 `json:"temperature_2m"`
	WindSpeed10m  *float64 `json:"wind_speed_10m"`
	Precipitation *float64 `json:"precipitation"`
	WeatherCode   *float64 `json:"weather_code"`
}

func (r forecastResponse) toResult() *domain.WeatherResult {
	out := &domain.WeatherResult{ElevationM: finiteOrNil(r.Elevation)}
	if r.Current == nil {
		return out
	}

	w := &domain.WeatherInfo{
		TemperatureC:    finiteOrNil(r.Current.Temperature2m),
		WindKph:         finiteOrNil(r.Current.WindSpeed10m),
		PrecipitationMm: finiteOrNil(r.Current.Precipitation),
		TimeISO:         r.Current.Time,
		Source:          weatherSource,
	}
	if code := finiteOrNil(r.Current.WeatherCode); code != nil {
		n := int(*code)
		w.WeatherCode = &n
		w.Description = domain.DescribeWeatherCode(n)
	}
	out.Weather = w
	return out
}

func finiteOrNil(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// Indicator modes for the air quality and flood clients.
const (
	ModeData   = "data"
	ModeVisual = "visual"
	ModeOff    = "off"
)
