package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/couchcryptid/geocontext-service/internal/domain"
)

// Limitations attached to fallback reports.
const (
	LimitationAIUnavailable   = "IA no disponible"
	LimitationInvalidResponse = "respuesta de IA invalida"
)

const fallbackRecommendation = "Contrastar esta informacion sobre el terreno antes de tomar decisiones; " +
	"el informe se genero automaticamente a partir de fuentes abiertas."

var categoryLabels = map[domain.Category]string{
	domain.CategoryRestaurants:  "restaurantes",
	domain.CategoryBarsAndClubs: "bares y locales nocturnos",
	domain.CategoryCafes:        "cafeterias",
	domain.CategoryPharmacies:   "farmacias",
	domain.CategoryHospitals:    "centros sanitarios",
	domain.CategorySchools:      "centros educativos",
	domain.CategorySupermarkets: "supermercados",
	domain.CategoryTransport:    "paradas de transporte",
	domain.CategoryHotels:       "alojamientos",
	domain.CategoryTourism:      "atracciones turisticas",
	domain.CategoryMuseums:      "museos",
	domain.CategoryViewpoints:   "miradores",
}

// Fallback builds a report from the context alone. It never fails and the
// result always passes Validate. Blank entries in extra are ignored.
func Fallback(data domain.ContextData, placeName *string, extra []string) domain.AiReport {
	limitations := make([]string, 0, len(extra)+5)
	for _, e := range extra {
		if e = strings.TrimSpace(e); e != "" {
			limitations = append(limitations, e)
		}
	}
	limitations = append(limitations, missingData(data)...)

	return domain.AiReport{
		DescripcionZona:        describeZone(data, placeName),
		InfraestructuraCercana: describeInfrastructure(data),
		Riesgos:                describeRisks(data),
		UsosUrbanos:            describeLandUse(data),
		RecomendacionFinal:     fallbackRecommendation,
		Fuentes:                sources(data),
		Limitaciones:           limitations,
	}
}

func describeZone(data domain.ContextData, placeName *string) string {
	var b strings.Builder
	name := "el punto seleccionado"
	if placeName != nil && strings.TrimSpace(*placeName) != "" {
		name = strings.TrimSpace(*placeName)
	}
	fmt.Fprintf(&b, "Zona en torno a %s", name)
	if data.Center.Valid() {
		fmt.Fprintf(&b, " (%.5f, %.5f)", data.Center.Lat, data.Center.Lon)
	}
	if data.RadiusM > 0 {
		fmt.Fprintf(&b, ", analizada en un radio de %d m", data.RadiusM)
	}
	b.WriteString(".")

	if w := data.Weather; w != nil {
		var parts []string
		if w.Description != nil && *w.Description != "" {
			parts = append(parts, *w.Description)
		}
		if finite(w.TemperatureC) {
			parts = append(parts, fmt.Sprintf("%.1f °C", *w.TemperatureC))
		}
		if len(parts) > 0 {
			fmt.Fprintf(&b, " Tiempo actual: %s.", strings.Join(parts, ", "))
		}
	}
	if finite(data.ElevationM) {
		fmt.Fprintf(&b, " Altitud aproximada: %.0f m.", *data.ElevationM)
	}
	return b.String()
}

func describeInfrastructure(data domain.ContextData) string {
	summary := domain.Summarize(data.Pois)
	if data.PoiSummary != nil {
		summary = *data.PoiSummary
	}
	if summary.Total == 0 {
		return "No se identificaron puntos de interes en el radio analizado."
	}

	var parts []string
	for _, c := range domain.Categories {
		if n := summary.Counts[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, categoryLabels[c]))
		}
	}
	text := fmt.Sprintf("Se identificaron %d puntos de interes", summary.Total)
	if len(parts) > 0 {
		text += ": " + strings.Join(parts, ", ")
	}
	text += "."

	if nearest, ok := nearestPoi(data.Pois); ok {
		text += fmt.Sprintf(" El mas cercano es %s, a %d m.", nearest.Name, nearest.DistanceM)
	}
	return text
}

func nearestPoi(pois domain.PoisByCategory) (domain.PoiItem, bool) {
	var best domain.PoiItem
	found := false
	for _, c := range domain.Categories {
		for _, item := range pois[c] {
			if strings.TrimSpace(item.Name) == "" {
				continue
			}
			if !found || item.DistanceM < best.DistanceM {
				best, found = item, true
			}
		}
	}
	return best, found
}

func describeRisks(data domain.ContextData) string {
	var parts []string

	if f := data.FloodRisk; f != nil {
		switch {
		case !f.OK && f.Details != "":
			parts = append(parts, fmt.Sprintf("Riesgo de inundacion sin datos (%s).", f.Details))
		case !f.OK:
			parts = append(parts, "Riesgo de inundacion sin datos.")
		case f.Status == domain.StatusVisual:
			parts = append(parts, "Riesgo de inundacion disponible solo como capa visual.")
		case f.RiskLevel != "":
			parts = append(parts, fmt.Sprintf("Riesgo de inundacion fluvial: %s.", f.RiskLevel))
		}
	}

	if a := data.AirQuality; a != nil {
		switch {
		case !a.OK:
			parts = append(parts, "Calidad del aire no disponible.")
		case a.Status == domain.StatusVisual:
			parts = append(parts, "Calidad del aire disponible solo como capa visual (CAMS).")
		case a.Level != "":
			parts = append(parts, fmt.Sprintf("Calidad del aire (CAMS): %s.", a.Level))
		default:
			parts = append(parts, "Calidad del aire disponible (CAMS).")
		}
	}

	if c := data.Environment.IsCoastal; c != nil && *c {
		parts = append(parts, "La zona es costera.")
	}

	if len(parts) == 0 {
		return "No se dispone de datos de riesgo para esta zona."
	}
	return strings.Join(parts, " ")
}

func describeLandUse(data domain.ContextData) string {
	text := "Uso del suelo no determinado."
	if lc := data.LandCover; lc != nil && strings.TrimSpace(lc.Label) != "" {
		text = fmt.Sprintf("Uso del suelo predominante: %s.", lc.Label)
	}
	if ws := data.Environment.NearestWaterways; len(ws) > 0 {
		if label := strings.TrimSpace(ws[0].Label()); label != "" {
			text += fmt.Sprintf(" Agua cercana: %s, a %d m.", label, ws[0].DistanceM)
		}
	}
	return text
}

func sources(data domain.ContextData) []string {
	out := []string{}
	if data.Place != nil || !domain.IsEmpty(data.Pois) || data.LandCover != nil ||
		len(data.Environment.NearestWaterways) > 0 {
		out = append(out, "OpenStreetMap")
	}
	if data.Weather != nil || data.ElevationM != nil {
		out = append(out, "Open-Meteo")
	}
	if a := data.AirQuality; a != nil && a.OK {
		out = append(out, "CAMS (Copernicus)")
	}
	if f := data.FloodRisk; f != nil && f.OK {
		out = append(out, "GloFAS (Copernicus)")
	}
	if len(data.Knowledge) > 0 {
		out = append(out, "Wikipedia")
	}
	return out
}

func missingData(data domain.ContextData) []string {
	var out []string
	if data.Weather == nil {
		out = append(out, "Sin datos meteorologicos.")
	}
	if data.FloodRisk == nil || !data.FloodRisk.OK {
		out = append(out, "Sin datos de riesgo de inundacion.")
	}
	if data.AirQuality == nil || !data.AirQuality.OK {
		out = append(out, "Sin datos de calidad del aire.")
	}
	if data.LandCover == nil {
		out = append(out, "Uso del suelo no disponible.")
	}
	if data.Environment.IsCoastal == nil {
		out = append(out, "Condicion costera desconocida.")
	}
	return out
}

func finite(f *float64) bool {
	return f != nil && !math.IsNaN(*f) && !math.IsInf(*f, 0)
}
