package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is finite and within range.
func (c Coordinate) Valid() bool {
	return isFinite(c.Lat) && isFinite(c.Lon) &&
		c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Validate returns ErrInvalidInput when the coordinate is out of range.
func (c Coordinate) Validate() error {
	if !c.Valid() {
		return fmt.Errorf("%w: coordinate (%v, %v) out of range", ErrInvalidInput, c.Lat, c.Lon)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Place is a forward-geocoding match.
type Place struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
}

// Coordinate returns the match position.
func (p Place) Coordinate() Coordinate {
	return Coordinate{Lat: p.Lat, Lon: p.Lon}
}

// Address is the structured address of a reverse-geocoding match.
type Address struct {
	Road        string `json:"road,omitempty"`
	HouseNumber string `json:"house_number,omitempty"`
	Suburb      string `json:"suburb,omitempty"`
	County      string `json:"county,omitempty"`
	State       string `json:"state,omitempty"`
	Postcode    string `json:"postcode,omitempty"`
	Country     string `json:"country,omitempty"`
}

// ReversePlace is a reverse-geocoding match.
type ReversePlace struct {
	Name         string  `json:"name"`
	DisplayName  string  `json:"display_name"`
	Category     string  `json:"category"`
	Type         string  `json:"type"`
	AddressLine  string  `json:"address_line"`
	Municipality string  `json:"municipality"`
	Address      Address `json:"address"`
}

// Label returns the most specific human name of the place.
func (p ReversePlace) Label() string {
	for _, s := range []string{p.Name, p.AddressLine, p.Municipality, p.DisplayName} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// WeatherInfo is the current weather at a point. Absent upstream values stay nil.
type WeatherInfo struct {
	TemperatureC    *float64 `json:"temperature_c"`
	WindKph         *float64 `json:"wind_kph"`
	PrecipitationMm *float64 `json:"precipitation_mm"`
	WeatherCode     *int     `json:"weather_code"`
	Description     *string  `json:"description"`
	TimeISO         *string  `json:"time_iso"`
	Source          string   `json:"source"`
}

// WeatherResult bundles current weather with the point elevation.
type WeatherResult struct {
	Weather    *WeatherInfo `json:"weather"`
	ElevationM *float64     `json:"elevation_m"`
}

// NearbyItem is an encyclopedic article geotagged near a point.
type NearbyItem struct {
	PageID      int64   `json:"pageid"`
	Title       string  `json:"title"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DistanceM   int     `json:"distance_m"`
	Type        string  `json:"type,omitempty"`
	Extract     string  `json:"extract,omitempty"`
	Description string  `json:"description,omitempty"`
	URL         string  `json:"url,omitempty"`
	Thumbnail   *string `json:"thumbnail"`
}

// Waterway is a water feature near the context center.
type Waterway struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	DistanceM int    `json:"distance_m"`
}

// Label returns the waterway name, or its type when unnamed.
func (w Waterway) Label() string {
	if strings.TrimSpace(w.Name) != "" {
		return w.Name
	}
	return w.Type
}

// Environment describes water and coast around the center. IsCoastal is nil
// when unknown.
type Environment struct {
	NearestWaterways []Waterway `json:"nearest_waterways"`
	IsCoastal        *bool      `json:"is_coastal"`
}

// Indicator statuses.
const (
	StatusOK          = "ok"
	StatusVisual      = "visual"
	StatusUnavailable = "unavailable"
)

// FloodRisk is the river flood indicator.
type FloodRisk struct {
	OK               bool     `json:"ok"`
	Status           string   `json:"status"`
	Source           string   `json:"source"`
	RiskLevel        string   `json:"risk_level,omitempty"`
	PeakDischargeM3s *float64 `json:"peak_discharge_m3s,omitempty"`
	MeanDischargeM3s *float64 `json:"mean_discharge_m3s,omitempty"`
	Details          string   `json:"details,omitempty"`
}

// AirQuality is the air quality indicator.
type AirQuality struct {
	OK          bool     `json:"ok"`
	Status      string   `json:"status"`
	Source      string   `json:"source"`
	EuropeanAQI *float64 `json:"european_aqi,omitempty"`
	PM10        *float64 `json:"pm10,omitempty"`
	PM25        *float64 `json:"pm2_5,omitempty"`
	NO2         *float64 `json:"no2,omitempty"`
	O3          *float64 `json:"o3,omitempty"`
	Level       string   `json:"level,omitempty"`
	Details     string   `json:"details,omitempty"`
}

// LandCover is the dominant land use at the center.
type LandCover struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Source string `json:"source"`
}

// PoiSummary holds per-bucket counts and their total.
type PoiSummary struct {
	Counts map[Category]int `json:"counts"`
	Total  int              `json:"total"`
}

// ContextData is everything known about the area around a center point.
type ContextData struct {
	Center      Coordinate     `json:"center"`
	RadiusM     int            `json:"radius_m"`
	Place       *ReversePlace  `json:"place,omitempty"`
	Pois        PoisByCategory `json:"pois"`
	PoiExtras   []ExternalPoi  `json:"poi_extras,omitempty"`
	PoiSummary  *PoiSummary    `json:"poi_summary"`
	Environment Environment    `json:"environment"`
	FloodRisk   *FloodRisk     `json:"flood_risk"`
	AirQuality  *AirQuality    `json:"air_quality"`
	LandCover   *LandCover     `json:"land_cover"`
	Weather     *WeatherInfo   `json:"weather"`
	ElevationM  *float64       `json:"elevation_m"`
	Knowledge   []NearbyItem   `json:"knowledge,omitempty"`
}

// AiReport is the structured narrative about a place. Every string is
// non-empty; the two lists may be empty but never null.
type AiReport struct {
	DescripcionZona        string   `json:"descripcion_zona" validate:"notblank"`
	InfraestructuraCercana string   `json:"infraestructura_cercana" validate:"notblank"`
	Riesgos                string   `json:"riesgos" validate:"notblank"`
	UsosUrbanos            string   `json:"usos_urbanos" validate:"notblank"`
	RecomendacionFinal     string   `json:"recomendacion_final" validate:"notblank"`
	Fuentes                []string `json:"fuentes" validate:"required,dive,notblank"`
	Limitaciones           []string `json:"limitaciones" validate:"required,dive,notblank"`
}

// ReportRecord is a persisted report.
type ReportRecord struct {
	ID        string    `json:"id"`
	PlaceName *string   `json:"place_name"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Category  *string   `json:"category"`
	Report    AiReport  `json:"report"`
	Warning   string    `json:"warning,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ComparisonSide identifies one of the two compared places.
type ComparisonSide struct {
	Name   string     `json:"name"`
	Center Coordinate `json:"center"`
}

// PoiTotals is the grand POI count on each side.
type PoiTotals struct {
	Base   int `json:"base"`
	Target int `json:"target"`
}

// ComparisonSummary contrasts two contexts.
type ComparisonSummary struct {
	Base       ComparisonSide `json:"base"`
	Target     ComparisonSide `json:"target"`
	DistanceKm *float64       `json:"distance_km"`
	PoiTotals  PoiTotals      `json:"poi_totals"`
	Highlights []string       `json:"highlights"`
	CreatedAt  string         `json:"created_at"`
}

// ExternalPoi is a POI as returned by an upstream source.
type ExternalPoi struct {
	Name      string          `json:"name"`
	Lat       *float64        `json:"lat,omitempty"`
	Lon       *float64        `json:"lon,omitempty"`
	DistanceM *float64        `json:"distance_m,omitempty"`
	Category  string          `json:"category,omitempty"`
	Kinds     []string        `json:"kinds,omitempty"`
	Source    string          `json:"source"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// PoiItem is a normalized POI inside a bucket.
type PoiItem struct {
	Name      string          `json:"name"`
	DistanceM int             `json:"distance_m"`
	Lat       float64         `json:"lat"`
	Lon       float64         `json:"lon"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Category  Category        `json:"category,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}
