package domain

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freezeClock(t *testing.T) {
	t.Helper()
	SetClock(clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { SetClock(nil) })
}

func TestCompare_FullHighlights(t *testing.T) {
	freezeClock(t)

	base := ContextData{
		Center:     madrid,
		PoiSummary: &PoiSummary{Total: 10},
		FloodRisk:  &FloodRisk{OK: true, Status: StatusOK, RiskLevel: "bajo"},
		AirQuality: &AirQuality{OK: true, Status: StatusOK},
		LandCover:  &LandCover{Code: "residential", Label: "Residencial"},
		Environment: Environment{
			NearestWaterways: []Waterway{{Name: "Manzanares", Type: "river", DistanceM: 850}},
			IsCoastal:        ptr(false),
		},
	}
	target := ContextData{
		Center:     barcelona,
		PoiSummary: &PoiSummary{Total: 14},
		FloodRisk:  &FloodRisk{OK: false, Status: StatusUnavailable, Details: "timeout"},
		AirQuality: &AirQuality{OK: true, Status: StatusVisual},
		Environment: Environment{
			NearestWaterways: []Waterway{{Type: "canal", DistanceM: 120}},
			IsCoastal:        ptr(true),
		},
	}

	s := Compare(base, target, "Madrid", "Barcelona")

	assert.Equal(t, "Madrid", s.Base.Name)
	assert.Equal(t, barcelona, s.Target.Center)
	assert.Equal(t, PoiTotals{Base: 10, Target: 14}, s.PoiTotals)
	assert.Equal(t, "2025-03-01T12:00:00Z", s.CreatedAt)
	require.NotNil(t, s.DistanceKm)
	assert.InDelta(t, 505, *s.DistanceKm, 5)

	require.Len(t, s.Highlights, 7)
	assert.True(t, strings.HasPrefix(s.Highlights[0], "Distancia entre puntos: "))
	assert.True(t, strings.HasSuffix(s.Highlights[0], " km"))
	assert.Equal(t, []string{
		"POIs totales: base 10 | comparado 14 (+4)",
		"Riesgo inundacion: base bajo | comparado sin datos (timeout)",
		"Calidad del aire: base CAMS ok | comparado CAMS visual",
		"Uso del suelo: base Residencial | comparado sin datos",
		"Agua cercana: base Manzanares (850 m) | comparado canal (120 m)",
		"Costa: base no | comparado si",
	}, s.Highlights[1:])
}

func TestCompare_MissingDataAndNegativeDelta(t *testing.T) {
	freezeClock(t)

	base := ContextData{Center: madrid, PoiSummary: &PoiSummary{Total: 5}}
	target := ContextData{
		Center:     madrid,
		Pois:       NewPoisByCategory(),
		FloodRisk:  &FloodRisk{OK: true, Status: StatusVisual},
		AirQuality: &AirQuality{OK: false, Status: StatusUnavailable},
	}
	target.Pois[CategoryCafes] = []PoiItem{{Name: "a"}, {Name: "b"}}

	s := Compare(base, target, "A", "B")

	require.Len(t, s.Highlights, 7)
	assert.Equal(t, "Distancia entre puntos: 0.00 km", s.Highlights[0])
	assert.Equal(t, "POIs totales: base 5 | comparado 2 (-3)", s.Highlights[1])
	assert.Equal(t, "Riesgo inundacion: base sin datos | comparado solo visual", s.Highlights[2])
	assert.Equal(t, "Calidad del aire: base sin datos | comparado no disponible", s.Highlights[3])
	assert.Equal(t, "Agua cercana: base sin datos | comparado sin datos", s.Highlights[5])
	assert.Equal(t, "Costa: base sin datos | comparado sin datos", s.Highlights[6])
}

func TestCompare_NonFiniteCenterOmitsDistance(t *testing.T) {
	freezeClock(t)

	base := ContextData{Center: Coordinate{Lat: math.NaN(), Lon: 0}}
	target := ContextData{Center: madrid}

	s := Compare(base, target, "A", "B")

	assert.Nil(t, s.DistanceKm)
	require.Len(t, s.Highlights, 6)
	assert.Equal(t, "POIs totales: base 0 | comparado 0 (0)", s.Highlights[0])
}

func TestDescribeWeatherCode(t *testing.T) {
	d := DescribeWeatherCode(0)
	require.NotNil(t, d)
	assert.Equal(t, "Despejado", *d)
	assert.Equal(t, "Tormenta", *DescribeWeatherCode(95))
	assert.Nil(t, DescribeWeatherCode(42))
}
