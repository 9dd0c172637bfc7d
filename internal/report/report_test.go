package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geocontext-service/internal/domain"
	"github.com/couchcryptid/geocontext-service/internal/observability"
)

const validReport = `{
  "descripcion_zona": "Barrio residencial junto al rio.",
  "infraestructura_cercana": "Dos cafeterias y una farmacia.",
  "riesgos": "Riesgo de inundacion bajo.",
  "usos_urbanos": "Residencial.",
  "recomendacion_final": "Zona adecuada para vivir.",
  "fuentes": ["OpenStreetMap"],
  "limitaciones": []
}`

type stubNarrator struct {
	content string
	err     error
	got     domain.NarrativeRequest
}

func (s *stubNarrator) Complete(_ context.Context, req domain.NarrativeRequest) (string, error) {
	s.got = req
	return s.content, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

func sampleContext() domain.ContextData {
	pois := domain.NewPoisByCategory()
	pois[domain.CategoryCafes] = []domain.PoiItem{
		{Name: "Cafe Central", DistanceM: 120, Type: "cafe", Source: "osm"},
		{Name: "La Taza", DistanceM: 340, Type: "cafe", Source: "osm"},
	}
	pois[domain.CategoryPharmacies] = []domain.PoiItem{
		{Name: "Farmacia Sol", DistanceM: 80, Type: "pharmacy", Source: "osm"},
	}
	return domain.ContextData{
		Center:  domain.Coordinate{Lat: 40.4168, Lon: -3.7038},
		RadiusM: 1000,
		Place:   &domain.ReversePlace{Name: "Puerta del Sol", Category: "place"},
		Pois:    pois,
		Environment: domain.Environment{
			NearestWaterways: []domain.Waterway{{Name: "Manzanares", Type: "river", DistanceM: 2100}},
			IsCoastal:        ptr(false),
		},
		FloodRisk:  &domain.FloodRisk{OK: true, Status: domain.StatusOK, Source: "GloFAS", RiskLevel: "bajo"},
		AirQuality: &domain.AirQuality{OK: true, Status: domain.StatusOK, Source: "CAMS", Level: "buena"},
		LandCover:  &domain.LandCover{Code: "residential", Label: "residencial", Source: "osm"},
		Weather: &domain.WeatherInfo{
			TemperatureC: ptr(21.5),
			Description:  ptr("Despejado"),
			Source:       "open-meteo",
		},
		ElevationM: ptr(657.0),
	}
}

func TestBuildMessages(t *testing.T) {
	data := sampleContext()

	msgs, err := BuildMessages(data, ptr("Puerta del Sol"))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "espanol")
	assert.Contains(t, msgs[0].Content, "limitaciones")
	assert.Equal(t, domain.RoleUser, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "Lugar: Puerta del Sol")
	assert.Contains(t, msgs[1].Content, `"radius_m":1000`)

	again, err := BuildMessages(data, ptr("Puerta del Sol"))
	require.NoError(t, err)
	assert.Equal(t, msgs, again)
}

func TestBuildMessages_Placeholder(t *testing.T) {
	for _, name := range []*string{nil, ptr(""), ptr("   ")} {
		msgs, err := BuildMessages(domain.ContextData{}, name)
		require.NoError(t, err)
		assert.Contains(t, msgs[1].Content, "Lugar: "+UnnamedPlace)
	}
}

func TestBuildMessages_UnencodableContext(t *testing.T) {
	_, err := BuildMessages(domain.ContextData{ElevationM: ptr(math.NaN())}, nil)
	assert.Error(t, err)
}

func TestParse_Valid(t *testing.T) {
	r, err := Parse(validReport)
	require.NoError(t, err)
	assert.Equal(t, "Residencial.", r.UsosUrbanos)
	assert.Equal(t, []string{"OpenStreetMap"}, r.Fuentes)
	assert.NotNil(t, r.Limitaciones)
	assert.Empty(t, r.Limitaciones)
}

func TestParse_CodeFence(t *testing.T) {
	for _, raw := range []string{
		"```json\n" + validReport + "\n```",
		"```\n" + validReport + "\n```",
		"  ```JSON\n" + validReport + "```  ",
	} {
		r, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, "Residencial.", r.UsosUrbanos)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", "   "},
		{"not json", "no puedo ayudar"},
		{"array", "[]"},
		{"null", "null"},
		{"unknown field", strings.Replace(validReport, `"limitaciones": []`, `"limitaciones": [], "extra": "x"`, 1)},
		{"wrong type", strings.Replace(validReport, `"riesgos": "Riesgo de inundacion bajo."`, `"riesgos": 3`, 1)},
		{"list wrong type", strings.Replace(validReport, `"fuentes": ["OpenStreetMap"]`, `"fuentes": "OpenStreetMap"`, 1)},
		{"blank string", strings.Replace(validReport, `"usos_urbanos": "Residencial."`, `"usos_urbanos": "  "`, 1)},
		{"missing field", strings.Replace(validReport, `"usos_urbanos": "Residencial.",`, ``, 1)},
		{"null list", strings.Replace(validReport, `"limitaciones": []`, `"limitaciones": null`, 1)},
		{"blank list item", strings.Replace(validReport, `"fuentes": ["OpenStreetMap"]`, `"fuentes": [""]`, 1)},
		{"trailing data", validReport + ` {"x": 1}`},
		{"upper-case keys", strings.NewReplacer(
			`"descripcion_zona"`, `"DESCRIPCION_ZONA"`,
			`"riesgos"`, `"RIESGOS"`,
		).Replace(validReport)},
		{"mixed-case key", strings.Replace(validReport, `"infraestructura_cercana"`, `"Infraestructura_Cercana"`, 1)},
		{"mis-cased duplicate", strings.Replace(validReport, `"limitaciones": []`, `"limitaciones": [], "Riesgos": "otro"`, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrSchemaViolation)

			var schemaErr *SchemaError
			assert.True(t, errors.As(err, &schemaErr))
		})
	}
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(domain.AiReport{Fuentes: []string{}, Limitaciones: []string{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "descripcion_zona")
	assert.Contains(t, err.Error(), "recomendacion_final")
}

func TestFallback_EmptyContextIsValid(t *testing.T) {
	r := Fallback(domain.ContextData{}, nil, nil)

	require.NoError(t, Validate(r))
	assert.Empty(t, r.Fuentes)
	assert.NotNil(t, r.Fuentes)
	assert.Contains(t, r.InfraestructuraCercana, "No se identificaron")
	assert.Equal(t, "No se dispone de datos de riesgo para esta zona.", r.Riesgos)
	assert.Contains(t, r.Limitaciones, "Sin datos meteorologicos.")
	assert.Contains(t, r.Limitaciones, "Condicion costera desconocida.")
}

func TestFallback_NonFiniteValuesStayValid(t *testing.T) {
	data := domain.ContextData{
		Center:     domain.Coordinate{Lat: math.NaN(), Lon: math.Inf(1)},
		ElevationM: ptr(math.NaN()),
		Weather:    &domain.WeatherInfo{TemperatureC: ptr(math.Inf(-1))},
	}
	r := Fallback(data, ptr(" "), []string{"", "  "})

	require.NoError(t, Validate(r))
	assert.Equal(t, "Zona en torno a el punto seleccionado.", r.DescripcionZona)
	assert.NotContains(t, r.Limitaciones, "")
}

func TestFallback_DescribesContext(t *testing.T) {
	r := Fallback(sampleContext(), ptr("Puerta del Sol"), []string{LimitationAIUnavailable})

	require.NoError(t, Validate(r))
	assert.Equal(t,
		"Zona en torno a Puerta del Sol (40.41680, -3.70380), analizada en un radio de 1000 m. "+
			"Tiempo actual: Despejado, 21.5 °C. Altitud aproximada: 657 m.",
		r.DescripcionZona)
	assert.Equal(t,
		"Se identificaron 3 puntos de interes: 2 cafeterias, 1 farmacias. El mas cercano es Farmacia Sol, a 80 m.",
		r.InfraestructuraCercana)
	assert.Equal(t, "Riesgo de inundacion fluvial: bajo. Calidad del aire (CAMS): buena.", r.Riesgos)
	assert.Equal(t, "Uso del suelo predominante: residencial. Agua cercana: Manzanares, a 2100 m.", r.UsosUrbanos)
	assert.Equal(t, []string{"OpenStreetMap", "Open-Meteo", "CAMS (Copernicus)", "GloFAS (Copernicus)"}, r.Fuentes)
	assert.Equal(t, []string{LimitationAIUnavailable}, r.Limitaciones)
}

func TestFallback_DegradedIndicators(t *testing.T) {
	data := domain.ContextData{
		FloodRisk:   &domain.FloodRisk{OK: false, Status: domain.StatusUnavailable, Details: "sin cauce modelado"},
		AirQuality:  &domain.AirQuality{OK: true, Status: domain.StatusVisual},
		Environment: domain.Environment{IsCoastal: ptr(true)},
	}
	r := Fallback(data, nil, nil)

	assert.Equal(t,
		"Riesgo de inundacion sin datos (sin cauce modelado). "+
			"Calidad del aire disponible solo como capa visual (CAMS). La zona es costera.",
		r.Riesgos)
	assert.Equal(t, []string{"CAMS (Copernicus)"}, r.Fuentes)
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name           string
		narrator       *stubNarrator
		wantWarning    string
		wantLimitation string
	}{
		{"valid", &stubNarrator{content: validReport}, "", ""},
		{"error", &stubNarrator{err: errors.New("timeout")}, WarningAIUnavailable, LimitationAIUnavailable},
		{"empty", &stubNarrator{content: "  \n"}, WarningAIUnavailable, LimitationAIUnavailable},
		{"invalid", &stubNarrator{content: `{"descripcion_zona": "x"}`}, WarningInvalidResponse, LimitationInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := observability.NewMetricsForTesting()
			g := NewGenerator(tt.narrator, testLogger(), m)

			out := g.Generate(context.Background(), sampleContext(), ptr("Puerta del Sol"))

			require.NoError(t, Validate(out.Report))
			assert.Equal(t, tt.wantWarning, out.Warning)
			assert.InDelta(t, Temperature, tt.narrator.got.Temperature, 1e-9)
			assert.True(t, tt.narrator.got.JSONOutput)
			assert.Len(t, tt.narrator.got.Messages, 2)

			if tt.wantWarning == "" {
				assert.Equal(t, "Zona adecuada para vivir.", out.Report.RecomendacionFinal)
				assert.InDelta(t, 1, testutil.ToFloat64(m.ReportOutcomes.WithLabelValues("ai")), 0)
				return
			}
			assert.Contains(t, out.Report.Limitaciones, tt.wantLimitation)
			assert.InDelta(t, 1, testutil.ToFloat64(m.ReportOutcomes.WithLabelValues(tt.wantWarning)), 0)
		})
	}
}

func TestGenerate_NoNarrator(t *testing.T) {
	g := NewGenerator(nil, testLogger(), observability.NewMetricsForTesting())

	out := g.Generate(context.Background(), domain.ContextData{}, nil)

	assert.Equal(t, WarningAIUnavailable, out.Warning)
	assert.Contains(t, out.Report.Limitaciones, LimitationAIUnavailable)
	require.NoError(t, Validate(out.Report))
}

func TestNewRecord(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 500, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	out := Outcome{Report: Fallback(domain.ContextData{}, nil, nil), Warning: WarningAIUnavailable}
	rec := NewRecord(sampleContext(), ptr("Puerta del Sol"), out)

	assert.Len(t, rec.ID, 36)
	require.NotNil(t, rec.Category)
	assert.Equal(t, "place", *rec.Category)
	assert.Equal(t, "Puerta del Sol", *rec.PlaceName)
	assert.InDelta(t, 40.4168, rec.Lat, 1e-9)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), rec.CreatedAt)
	assert.Equal(t, WarningAIUnavailable, rec.Warning)

	other := NewRecord(domain.ContextData{}, nil, out)
	assert.NotEqual(t, rec.ID, other.ID)
	assert.Nil(t, other.Category)
}
