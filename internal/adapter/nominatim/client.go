// Package nominatim implements domain.Geocoder against the OpenStreetMap
// Nominatim gazetteer.
package nominatim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/geocontext-service/internal/domain"
	"github.com/couchcryptid/geocontext-service/internal/upstream"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Client implements domain.Geocoder. Results are never cached and every call
// is a single attempt; upstream failures are reported as no match.
type Client struct {
	api     *upstream.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a Nominatim client. The upstream client carries the
// identifying User-Agent and the 1 req/s usage policy limit.
func NewClient(api *upstream.Client, baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		api:     api,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Forward returns the best match for a free-text query, or nil when nothing
// matched or the gazetteer could not be reached.
func (c *Client) Forward(ctx context.Context, query string) (*domain.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: blank address", domain.ErrInvalidInput)
	}

	params := url.Values{
		"format":          {"jsonv2"},
		"q":               {query},
		"limit":           {"1"},
		"addressdetails":  {"1"},
		"accept-language": {"es"},
	}

	var results []searchResult
	if err := c.api.GetJSON(ctx, c.baseURL+"/search?"+params.Encode(), &results); err != nil {
		c.logger.Warn("forward geocoding failed", "query", query, "error", err)
		return nil, nil
	}
	if len(results) == 0 {
		return nil, nil
	}

	place, err := results[0].toPlace()
	if err != nil {
		c.logger.Warn("forward geocoding returned unusable match", "query", query, "error", err)
		return nil, nil
	}
	return &place, nil
}

// Reverse returns the place at a coordinate, or nil when nothing matched or
// the gazetteer could not be reached.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*domain.ReversePlace, error) {
	if err := (domain.Coordinate{Lat: lat, Lon: lon}).Validate(); err != nil {
		return nil, err
	}

	params := url.Values{
		"format":          {"jsonv2"},
		"lat":             {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":             {strconv.FormatFloat(lon, 'f', -1, 64)},
		"addressdetails":  {"1"},
		"accept-language": {"es"},
	}

	var result reverseResult
	if err := c.api.GetJSON(ctx, c.baseURL+"/reverse?"+params.Encode(), &result); err != nil {
		c.logger.Warn("reverse geocoding failed", "lat", lat, "lon", lon, "error", err)
		return nil, nil
	}
	// Nominatim answers 200 with {"error": "Unable to geocode"} for open water.
	if result.Error != "" || result.DisplayName == "" {
		return nil, nil
	}

	place := result.toReversePlace()
	return &place, nil
}

// Nominatim jsonv2 response types.

type searchResult struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
	Type        string  `json:"type"`
	Class       string  `json:"class"`
	Category    string  `json:"category"`
}

var errMissingCoordinates = errors.New("missing coordinates")

func (r searchResult) toPlace() (domain.Place, error) {
	if r.Lat == "" || r.Lon == "" {
		return domain.Place{}, errMissingCoordinates
	}
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return domain.Place{}, fmt.Errorf("parse lat %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return domain.Place{}, fmt.Errorf("parse lon %q: %w", r.Lon, err)
	}
	category := r.Class
	if category == "" {
		category = r.Category
	}
	return domain.Place{
		Lat:         lat,
		Lon:         lon,
		DisplayName: r.DisplayName,
		Importance:  r.Importance,
		Type:        r.Type,
		Category:    category,
	}, nil
}

type reverseResult struct {
	Error       string            `json:"error"`
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Category    string            `json:"category"`
	Class       string            `json:"class"`
	Type        string            `json:"type"`
	Address     map[string]string `json:"address"`
}

// municipalityKeys are probed in order; the first non-empty wins.
var municipalityKeys = []string{"municipality", "city", "town", "village", "county"}

func (r reverseResult) toReversePlace() domain.ReversePlace {
	category := r.Category
	if category == "" {
		category = r.Class
	}

	addr := domain.Address{
		Road:        r.Address["road"],
		HouseNumber: r.Address["house_number"],
		Suburb:      r.Address["suburb"],
		County:      r.Address["county"],
		State:       r.Address["state"],
		Postcode:    r.Address["postcode"],
		Country:     r.Address["country"],
	}

	var municipality string
	for _, k := range municipalityKeys {
		if v := strings.TrimSpace(r.Address[k]); v != "" {
			municipality = v
			break
		}
	}

	return domain.ReversePlace{
		Name:         r.Name,
		DisplayName:  r.DisplayName,
		Category:     category,
		Type:         r.Type,
		AddressLine:  addressLine(addr),
		Municipality: municipality,
		Address:      addr,
	}
}

// addressLine renders "road number, suburb" from whatever parts are present.
func addressLine(a domain.Address) string {
	street := strings.TrimSpace(strings.TrimSpace(a.Road) + " " + strings.TrimSpace(a.HouseNumber))
	parts := make([]string, 0, 2)
	if street != "" {
		parts = append(parts, street)
	}
	if s := strings.TrimSpace(a.Suburb); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}
