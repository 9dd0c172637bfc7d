package domain

import (
	"fmt"
	"math"
	"time"
)

const noData = "sin datos"

// Compare contrasts a base context with a target context. Highlights follow a
// fixed order; the distance line is present only when both centers are finite.
func Compare(base, target ContextData, baseName, targetName string) ComparisonSummary {
	baseTotal := poiTotal(base)
	targetTotal := poiTotal(target)

	s := ComparisonSummary{
		Base:      ComparisonSide{Name: baseName, Center: base.Center},
		Target:    ComparisonSide{Name: targetName, Center: target.Center},
		PoiTotals: PoiTotals{Base: baseTotal, Target: targetTotal},
		CreatedAt: clock.Now().UTC().Format(time.RFC3339),
	}

	highlights := make([]string, 0, 7)
	if d, ok := centerDistanceKm(base.Center, target.Center); ok {
		s.DistanceKm = &d
		highlights = append(highlights, fmt.Sprintf("Distancia entre puntos: %.2f km", d))
	}
	highlights = append(highlights,
		fmt.Sprintf("POIs totales: base %d | comparado %d (%s)", baseTotal, targetTotal, signedDelta(targetTotal-baseTotal)),
		pair("Riesgo inundacion", floodLabel(base.FloodRisk), floodLabel(target.FloodRisk)),
		pair("Calidad del aire", airLabel(base.AirQuality), airLabel(target.AirQuality)),
		pair("Uso del suelo", landCoverLabel(base.LandCover), landCoverLabel(target.LandCover)),
		pair("Agua cercana", waterLabel(base.Environment), waterLabel(target.Environment)),
		pair("Costa", coastLabel(base.Environment.IsCoastal), coastLabel(target.Environment.IsCoastal)),
	)
	s.Highlights = highlights
	return s
}

func pair(label, base, target string) string {
	return fmt.Sprintf("%s: base %s | comparado %s", label, base, target)
}

func poiTotal(c ContextData) int {
	if c.PoiSummary != nil {
		return c.PoiSummary.Total
	}
	return Summarize(c.Pois).Total
}

func centerDistanceKm(a, b Coordinate) (float64, bool) {
	if !isFinite(a.Lat) || !isFinite(a.Lon) || !isFinite(b.Lat) || !isFinite(b.Lon) {
		return 0, false
	}
	d := DistanceKm(a, b)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, false
	}
	return d, true
}

func signedDelta(d int) string {
	switch {
	case d > 0:
		return fmt.Sprintf("+%d", d)
	case d < 0:
		return fmt.Sprintf("%d", d)
	default:
		return "0"
	}
}

func floodLabel(f *FloodRisk) string {
	switch {
	case f == nil:
		return noData
	case !f.OK:
		if f.Details != "" {
			return fmt.Sprintf("%s (%s)", noData, f.Details)
		}
		return noData
	case f.Status == StatusVisual:
		return "solo visual"
	case f.RiskLevel != "":
		return f.RiskLevel
	default:
		return noData
	}
}

func airLabel(a *AirQuality) string {
	switch {
	case a == nil:
		return noData
	case !a.OK:
		return "no disponible"
	case a.Status == StatusVisual:
		return "CAMS visual"
	default:
		return "CAMS ok"
	}
}

func landCoverLabel(l *LandCover) string {
	switch {
	case l == nil:
		return noData
	case l.Label != "":
		return l.Label
	case l.Code != "":
		return l.Code
	default:
		return noData
	}
}

func waterLabel(e Environment) string {
	if len(e.NearestWaterways) == 0 {
		return noData
	}
	w := e.NearestWaterways[0]
	return fmt.Sprintf("%s (%d m)", w.Label(), w.DistanceM)
}

func coastLabel(v *bool) string {
	switch {
	case v == nil:
		return noData
	case *v:
		return "si"
	default:
		return "no"
	}
}
