// Package wikipedia finds geotagged encyclopedia articles near a point.
package wikipedia

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/geocontext-service/internal/cache"
	"github.com/couchcryptid/geocontext-service/internal/domain"
	"github.com/couchcryptid/geocontext-service/internal/observability"
	"github.com/couchcryptid/geocontext-service/internal/upstream"
)

const (
	// DefaultBaseURL is the Spanish Wikipedia action API.
	DefaultBaseURL = "https://es.wikipedia.org/w/api.php"

	// DefaultLimit is the number of articles returned when none is requested.
	DefaultLimit = 6

	minRadiusM = 300
	maxRadiusM = 10_000
	minLimit   = 1
	maxLimit   = 12

	knowledgeCache = "knowledge"
)

// Client implements the two-phase nearby lookup: a geosearch for candidate
// pages, then one batched detail query for all of them.
type Client struct {
	api     *upstream.Client
	baseURL string
	cache   *cache.Cache[[]domain.NearbyItem]
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewClient creates a knowledge client backed by the given cache.
func NewClient(api *upstream.Client, baseURL string, c *cache.Cache[[]domain.NearbyItem], logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		api:     api,
		baseURL: baseURL,
		cache:   c,
		logger:  logger,
		metrics: metrics,
	}
}

// ClampRadius bounds a search radius to [300, 10000] m.
func ClampRadius(radiusM int) int {
	return min(max(radiusM, minRadiusM), maxRadiusM)
}

// ClampLimit bounds a result limit to [1, 12]; zero selects the default.
func ClampLimit(limit int) int {
	if limit == 0 {
		limit = DefaultLimit
	}
	return min(max(limit, minLimit), maxLimit)
}

// Key is the cache key for a lookup; radius and limit must already be clamped.
func Key(lat, lon float64, radiusM, limit int) string {
	return fmt.Sprintf("%.4f,%.4f|%d|%d", lat, lon, radiusM, limit)
}

// Nearby returns up to limit articles within radiusM of the point, in
// provider order. The result is never nil; failures yield an empty list,
// which is cached like any other.
func (c *Client) Nearby(ctx context.Context, lat, lon float64, radiusM, limit int) []domain.NearbyItem {
	radiusM = ClampRadius(radiusM)
	limit = ClampLimit(limit)

	items, hit := c.cache.GetOrLoad(ctx, Key(lat, lon, radiusM, limit), func(ctx context.Context) ([]domain.NearbyItem, bool) {
		items, err := c.fetch(ctx, lat, lon, radiusM, limit)
		if err != nil {
			c.logger.Warn("knowledge fetch failed", "lat", lat, "lon", lon, "error", err)
			return []domain.NearbyItem{}, ctx.Err() == nil
		}
		return items, true
	})
	c.metrics.CacheLookups.WithLabelValues(knowledgeCache, hitLabel(hit)).Inc()
	if items == nil {
		return []domain.NearbyItem{}
	}
	return items
}

func (c *Client) fetch(ctx context.Context, lat, lon float64, radiusM, limit int) ([]domain.NearbyItem, error) {
	candidates, err := c.geosearch(ctx, lat, lon, radiusM, limit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []domain.NearbyItem{}, nil
	}

	center := domain.Coordinate{Lat: lat, Lon: lon}
	items := make([]domain.NearbyItem, 0, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, g := range candidates {
		var dist int
		var ok bool
		if g.Dist != nil {
			dist, ok = domain.RoundMeters(*g.Dist)
		}
		if !ok {
			dist, _ = domain.RoundMeters(domain.DistanceMeters(center, domain.Coordinate{Lat: g.Lat, Lon: g.Lon}))
		}
		items = append(items, domain.NearbyItem{
			PageID:    g.PageID,
			Title:     g.Title,
			Lat:       g.Lat,
			Lon:       g.Lon,
			DistanceM: dist,
			Type:      g.Type,
		})
		ids = append(ids, strconv.FormatInt(g.PageID, 10))
	}

	details, err := c.details(ctx, ids)
	if err != nil {
		// Candidates are still useful without extracts.
		c.logger.Warn("knowledge detail fetch failed", "pages", len(ids), "error", err)
		return items, nil
	}
	for i := range items {
		d, ok := details[strconv.FormatInt(items[i].PageID, 10)]
		if !ok {
			continue
		}
		items[i].Extract = strings.TrimSpace(d.Extract)
		items[i].Description = d.Description
		items[i].URL = d.FullURL
		if d.Thumbnail != nil && d.Thumbnail.Source != "" {
			src := d.Thumbnail.Source
			items[i].Thumbnail = &src
		}
	}
	return items, nil
}

func (c *Client) geosearch(ctx context.Context, lat, lon float64, radiusM, limit int) ([]geosearchResult, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"geosearch"},
		"gscoord":  {fmt.Sprintf("%s|%s", formatCoord(lat), formatCoord(lon))},
		"gsradius": {strconv.Itoa(radiusM)},
		"gslimit":  {strconv.Itoa(limit)},
		"gsprop":   {"type|name|country|region|globe"},
		"format":   {"json"},
	}

	var resp geosearchResponse
	if err := c.api.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Query == nil {
		return nil, nil
	}
	return resp.Query.GeoSearch, nil
}

func (c *Client) details(ctx context.Context, pageIDs []string) (map[string]pageDetail, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts|pageimages|description|info"},
		"inprop":      {"url"},
		"pageids":     {strings.Join(pageIDs, "|")},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"pithumbsize": {"240"},
		"format":      {"json"},
	}

	var resp detailResponse
	if err := c.api.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Query == nil {
		return map[string]pageDetail{}, nil
	}
	return resp.Query.Pages, nil
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

// MediaWiki response types.

type geosearchResponse struct {
	Query *struct {
		GeoSearch []geosearchResult `json:"geosearch"`
	} `json:"query"`
}

type geosearchResult struct {
	PageID int64    `json:"pageid"`
	Title  string   `json:"title"`
	Lat    float64  `json:"lat"`
	Lon    float64  `json:"lon"`
	Dist   *float64 `json:"dist"`
	Type   string   `json:"type"`
}

type detailResponse struct {
	Query *struct {
		Pages map[string]pageDetail `json:"pages"`
	} `json:"query"`
}

type pageDetail struct {
	PageID      int64  `json:"pageid"`
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	Description string `json:"description"`
	FullURL     string `json:"fullurl"`
	Thumbnail   *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
}
