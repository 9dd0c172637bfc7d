//go:build smoke

package nominatim

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geocontext-service/internal/observability"
	"github.com/couchcryptid/geocontext-service/internal/upstream"
)

// These tests hit the public Nominatim instance and honor its 1 req/s policy.
// Run with: go test -tags=smoke ./internal/adapter/nominatim/ -v -count=1

func smokeClient() *Client {
	api := upstream.New(upstream.Config{
		Name:          "nominatim",
		Timeout:       10 * time.Second,
		UserAgent:     "geocontext-service-smoke/1.0",
		RatePerSecond: 1,
	}, observability.NewMetricsForTesting())
	return NewClient(api, DefaultBaseURL, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_Forward(t *testing.T) {
	place, err := smokeClient().Forward(context.Background(), "Madrid")
	require.NoError(t, err)
	require.NotNil(t, place)

	assert.InDelta(t, 40.42, place.Lat, 0.1)
	assert.InDelta(t, -3.70, place.Lon, 0.1)
	assert.Contains(t, place.DisplayName, "Madrid")
}

func TestSmoke_Reverse(t *testing.T) {
	place, err := smokeClient().Reverse(context.Background(), 40.4168, -3.7038)
	require.NoError(t, err)
	require.NotNil(t, place)

	assert.NotEmpty(t, place.DisplayName)
	assert.Equal(t, "Madrid", place.Municipality)
}
