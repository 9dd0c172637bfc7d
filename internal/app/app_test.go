package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geocontext-service/internal/config"
	"github.com/couchcryptid/geocontext-service/internal/domain"
	"github.com/couchcryptid/geocontext-service/internal/observability"
	"github.com/couchcryptid/geocontext-service/internal/pipeline"
	"github.com/couchcryptid/geocontext-service/internal/report"
)

func degradedConfig(url string) *config.Config {
	return &config.Config{
		DefaultRadiusM:     800,
		NominatimURL:       url + "/nominatim",
		NominatimUserAgent: "geocontext-test",
		NominatimTimeout:   time.Second,
		OpenMeteoURL:       url + "/forecast",
		OpenMeteoAirURL:    url + "/air",
		OpenMeteoFloodURL:  url + "/flood",
		WeatherTimeout:     time.Second,
		WeatherCacheTTL:    time.Minute,
		AirQualityMode:     config.ModeData,
		FloodMode:          config.ModeData,
		WikipediaURL:       url + "/wiki",
		WikipediaTimeout:   time.Second,
		KnowledgeCacheTTL:  time.Minute,
		OverpassURL:        url + "/overpass",
		OverpassTimeout:    time.Second,
		CacheMaxEntries:    10,
	}
}

// Every upstream failing must still yield a complete, degraded context and a
// valid fallback report.
func TestNew_DegradesWhenEveryUpstreamFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(degradedConfig(srv.URL), logger, observability.NewMetricsForTesting())
	require.Len(t, c.Caches, 2)

	lat, lon := 40.4168, -3.7038
	res, err := c.Pipeline.Build(context.Background(), pipeline.Request{Lat: &lat, Lon: &lon})
	require.NoError(t, err)

	data := res.Context
	assert.Positive(t, calls.Load())
	assert.Equal(t, 800, data.RadiusM)
	assert.Nil(t, data.Place)
	assert.Nil(t, data.Weather)
	assert.Nil(t, data.ElevationM)
	assert.Nil(t, data.LandCover)
	assert.Nil(t, data.Environment.IsCoastal)
	assert.True(t, domain.IsEmpty(data.Pois))
	require.NotNil(t, data.AirQuality)
	assert.False(t, data.AirQuality.OK)
	require.NotNil(t, data.FloodRisk)
	assert.False(t, data.FloodRisk.OK)

	out := c.Generator.Generate(context.Background(), data, res.PlaceName())
	assert.Equal(t, report.WarningAIUnavailable, out.Warning)
	require.NoError(t, report.Validate(out.Report))
}

func TestNew_BlankAddressMakesNoCalls(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(degradedConfig(srv.URL), logger, observability.NewMetricsForTesting())

	_, err := c.Pipeline.Build(context.Background(), pipeline.Request{Address: "   "})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, calls.Load())
}
