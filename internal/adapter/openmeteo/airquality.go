package openmeteo

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/couchcryptid/geocontext-service/internal/domain"
	"github.com/couchcryptid/geocontext-service/internal/upstream"
)

const (
	// DefaultAirQualityURL is the Open-Meteo air quality endpoint (CAMS).
	DefaultAirQualityURL = "https://air-quality-api.open-meteo.com/v1/air-quality"

	camsSource = "CAMS"
)

// AirQualityClient returns the CAMS air quality indicator for a point.
type AirQualityClient struct {
	api     *upstream.Client
	baseURL string
	mode    string
	logger  *slog.Logger
}

// NewAirQualityClient creates an air quality client in the given mode.
func NewAirQualityClient(api *upstream.Client, baseURL, mode string, logger *slog.Logger) *AirQualityClient {
	if baseURL == "" {
		baseURL = DefaultAirQualityURL
	}
	return &AirQualityClient{api: api, baseURL: baseURL, mode: mode, logger: logger}
}

// Fetch returns nil when the indicator is off, a visual-only indicator in
// visual mode, and otherwise current CAMS values or a not-ok indicator.
func (c *AirQualityClient) Fetch(ctx context.Context, lat, lon float64) *domain.AirQuality {
	switch c.mode {
	case ModeOff:
		return nil
	case ModeVisual:
		return &domain.AirQuality{OK: true, Status: domain.StatusVisual, Source: camsSource}
	}

	params := url.Values{
		"latitude":  {formatCoord(lat)},
		"longitude": {formatCoord(lon)},
		"current":   {"european_aqi,pm10,pm2_5,nitrogen_dioxide,ozone"},
		"timezone":  {"auto"},
	}

	var resp airQualityResponse
	if err := c.api.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &resp); err != nil {
		c.logger.Warn("air quality fetch failed", "lat", lat, "lon", lon, "error", err)
		return &domain.AirQuality{OK: false, Status: domain.StatusUnavailable, Source: camsSource, Details: "servicio no disponible"}
	}
	if resp.Current == nil || finiteOrNil(resp.Current.EuropeanAQI) == nil {
		return &domain.AirQuality{OK: false, Status: domain.StatusUnavailable, Source: camsSource, Details: "sin datos CAMS para el punto"}
	}

	cur := resp.Current
	aqi := finiteOrNil(cur.EuropeanAQI)
	return &domain.AirQuality{
		OK:          true,
		Status:      domain.StatusOK,
		Source:      camsSource,
		EuropeanAQI: aqi,
		PM10:        finiteOrNil(cur.PM10),
		PM25:        finiteOrNil(cur.PM25),
		NO2:         finiteOrNil(cur.NitrogenDioxide),
		O3:          finiteOrNil(cur.Ozone),
		Level:       aqiLevel(*aqi),
	}
}

// aqiLevel maps a European AQI value to its band.
func aqiLevel(aqi float64) string {
	switch {
	case aqi <= 20:
		return "buena"
	case aqi <= 40:
		return "aceptable"
	case aqi <= 60:
		return "moderada"
	case aqi <= 80:
		return "mala"
	case aqi <= 100:
		return "muy mala"
	default:
		return "extremadamente mala"
	}
}

type airQualityResponse struct {
	Current *struct {
		EuropeanAQI     *float64 `json:"european_aqi"`
		PM10            *float64 `json:"pm10"`
		PM25            *float64 `json:"pm2_5"`
		NitrogenDioxide *float64 `json:"nitrogen_dioxide"`
		Ozone           *float64 `json:"ozone"`
	} `json:"current"`
}
