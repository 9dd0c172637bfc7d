// Package overpass queries OpenStreetMap through the Overpass API for POIs,
// water features, and land use around a point.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/couchcryptid/geocontext-service/internal/domain"
	"github.com/couchcryptid/geocontext-service/internal/upstream"
)

const (
	// DefaultBaseURL is the main public Overpass instance.
	DefaultBaseURL = "https://overpass-api.de/api/interpreter"

	osmSource     = "osm"
	maxPois       = 200
	maxWaterways  = 3
	queryTimeoutS = 25
)

// Client runs Overpass QL queries. Every method degrades to an empty or nil
// result when the query fails.
type Client struct {
	api     *upstream.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient creates an Overpass client.
func NewClient(api *upstream.Client, baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{api: api, baseURL: baseURL, logger: logger}
}

// poiTagKeys are the OSM keys that make an element a POI, in lookup order.
var poiTagKeys = []string{"amenity", "shop", "tourism", "historic", "highway", "railway", "public_transport"}

// Pois returns OSM POIs within radiusM of center.
func (c *Client) Pois(ctx context.Context, center domain.Coordinate, radiusM int) []domain.ExternalPoi {
	bound := searchBound(center, radiusM)
	around := aroundFilter(center, radiusM)
	q := fmt.Sprintf(`[out:json][timeout:%d]%s;
(
  nwr["amenity"~"^(restaurant|fast_food|cafe|bar|pub|nightclub|pharmacy|hospital|clinic|school|college|university)$"]%s;
  nwr["shop"="supermarket"]%s;
  nwr["tourism"~"^(hotel|hostel|guest_house|museum|viewpoint|attraction)$"]%s;
  nwr["historic"="monument"]%s;
  node["highway"="bus_stop"]%s;
  nwr["railway"="station"]%s;
);
out tags center %d;`, queryTimeoutS, bboxSetting(bound), around, around, around, around, around, around, maxPois)

	elements, err := c.query(ctx, q)
	if err != nil {
		c.logger.Warn("overpass poi query failed", "lat", center.Lat, "lon", center.Lon, "error", err)
		return []domain.ExternalPoi{}
	}

	pois := make([]domain.ExternalPoi, 0, len(elements))
	for _, el := range elements {
		p, ok := el.toExternalPoi()
		if !ok {
			continue
		}
		if p.Lat != nil && !bound.Contains(orb.Point{*p.Lon, *p.Lat}) {
			continue
		}
		pois = append(pois, p)
	}
	return pois
}

// Environment returns the nearest water features and whether a coastline lies
// within radiusM. IsCoastal stays nil when the query fails.
func (c *Client) Environment(ctx context.Context, center domain.Coordinate, radiusM int) domain.Environment {
	around := aroundFilter(center, radiusM)
	q := fmt.Sprintf(`[out:json][timeout:%d]%s;
(
  way["waterway"~"^(river|stream|canal)$"]%s;
  way["natural"="water"]%s;
  way["natural"="coastline"]%s;
);
out tags geom;`, queryTimeoutS, bboxSetting(searchBound(center, radiusM)), around, around, around)

	env := domain.Environment{NearestWaterways: []domain.Waterway{}}
	elements, err := c.query(ctx, q)
	if err != nil {
		c.logger.Warn("overpass environment query failed", "lat", center.Lat, "lon", center.Lon, "error", err)
		return env
	}

	coastal := false
	nearest := map[string]domain.Waterway{}
	for _, el := range elements {
		if el.Tags["natural"] == "coastline" {
			coastal = true
			continue
		}
		d, ok := el.distanceFrom(center)
		if !ok {
			continue
		}
		dist, ok := domain.RoundMeters(d)
		if !ok {
			continue
		}
		w := domain.Waterway{
			Name:      el.Tags["name"],
			Type:      waterType(el.Tags),
			DistanceM: dist,
		}
		// Long rivers arrive as many ways; keep the closest segment.
		key := w.Name + "|" + w.Type
		if w.Name == "" {
			key = fmt.Sprintf("%s#%d", w.Type, el.ID)
		}
		if prev, seen := nearest[key]; !seen || w.DistanceM < prev.DistanceM {
			nearest[key] = w
		}
	}

	for _, w := range nearest {
		env.NearestWaterways = append(env.NearestWaterways, w)
	}
	sort.SliceStable(env.NearestWaterways, func(i, j int) bool {
		a, b := env.NearestWaterways[i], env.NearestWaterways[j]
		if a.DistanceM != b.DistanceM {
			return a.DistanceM < b.DistanceM
		}
		return a.Label() < b.Label()
	})
	if len(env.NearestWaterways) > maxWaterways {
		env.NearestWaterways = env.NearestWaterways[:maxWaterways]
	}
	env.IsCoastal = &coastal
	return env
}

// LandCover returns the landuse area containing center, or nil.
func (c *Client) LandCover(ctx context.Context, center domain.Coordinate) *domain.LandCover {
	q := fmt.Sprintf(`[out:json][timeout:%d];
is_in(%s,%s)->.a;
area.a["landuse"];
out tags;`, queryTimeoutS, formatCoord(center.Lat), formatCoord(center.Lon))

	elements, err := c.query(ctx, q)
	if err != nil {
		c.logger.Warn("overpass landuse query failed", "lat", center.Lat, "lon", center.Lon, "error", err)
		return nil
	}
	for _, el := range elements {
		if code := el.Tags["landuse"]; code != "" {
			return &domain.LandCover{Code: code, Label: LandUseLabel(code), Source: osmSource}
		}
	}
	return nil
}

func (c *Client) query(ctx context.Context, q string) ([]element, error) {
	var resp response
	if err := c.api.PostFormJSON(ctx, c.baseURL, url.Values{"data": {q}}, &resp); err != nil {
		return nil, err
	}
	return resp.Elements, nil
}

// searchBound is the box enclosing the search circle.
func searchBound(center domain.Coordinate, radiusM int) orb.Bound {
	return geo.NewBoundAroundPoint(orb.Point{center.Lon, center.Lat}, float64(radiusM))
}

func bboxSetting(b orb.Bound) string {
	return fmt.Sprintf("[bbox:%s,%s,%s,%s]",
		formatCoord(b.Min.Lat()), formatCoord(b.Min.Lon()), formatCoord(b.Max.Lat()), formatCoord(b.Max.Lon()))
}

func aroundFilter(center domain.Coordinate, radiusM int) string {
	return fmt.Sprintf("(around:%d,%s,%s)", radiusM, formatCoord(center.Lat), formatCoord(center.Lon))
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%.6f", v)
}

var landUseLabels = map[string]string{
	"residential":       "Residencial",
	"commercial":        "Comercial",
	"retail":            "Comercio minorista",
	"industrial":        "Industrial",
	"construction":      "En construccion",
	"farmland":          "Agricola",
	"farmyard":          "Agricola",
	"orchard":           "Huerto",
	"vineyard":          "Vinedo",
	"meadow":            "Pradera",
	"grass":             "Zona verde",
	"forest":            "Bosque",
	"cemetery":          "Cementerio",
	"military":          "Militar",
	"railway":           "Ferroviario",
	"recreation_ground": "Recreativo",
	"religious":         "Religioso",
	"education":         "Educativo",
}

// LandUseLabel returns the Spanish label for an OSM landuse value, or the
// value itself when unknown.
func LandUseLabel(code string) string {
	if l, ok := landUseLabels[code]; ok {
		return l
	}
	return code
}

func waterType(tags map[string]string) string {
	if w := tags["waterway"]; w != "" {
		return w
	}
	if w := tags["water"]; w != "" {
		return w
	}
	return "water"
}

// Overpass JSON response types.

type response struct {
	Elements []element `json:"elements"`
}

type latLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Lat      *float64          `json:"lat"`
	Lon      *float64          `json:"lon"`
	Center   *latLon           `json:"center"`
	Geometry []latLon          `json:"geometry"`
	Tags     map[string]string `json:"tags"`
}

func (e element) position() (float64, float64, bool) {
	if e.Lat != nil && e.Lon != nil {
		return *e.Lat, *e.Lon, true
	}
	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon, true
	}
	return 0, 0, false
}

// distanceFrom is the distance to the closest vertex, falling back to the
// element position.
func (e element) distanceFrom(center domain.Coordinate) (float64, bool) {
	if len(e.Geometry) > 0 {
		line := make(orb.LineString, 0, len(e.Geometry))
		for _, g := range e.Geometry {
			line = append(line, orb.Point{g.Lon, g.Lat})
		}
		best := math.Inf(1)
		for _, p := range line {
			d := domain.DistanceMeters(center, domain.Coordinate{Lat: p.Lat(), Lon: p.Lon()})
			best = math.Min(best, d)
		}
		return best, true
	}
	lat, lon, ok := e.position()
	if !ok {
		return 0, false
	}
	return domain.DistanceMeters(center, domain.Coordinate{Lat: lat, Lon: lon}), true
}

func (e element) toExternalPoi() (domain.ExternalPoi, bool) {
	var category, kind string
	for _, k := range poiTagKeys {
		if v := e.Tags[k]; v != "" {
			category, kind = k, v
			break
		}
	}
	if category == "" {
		return domain.ExternalPoi{}, false
	}

	raw, _ := json.Marshal(map[string]any{
		"osm_type": e.Type,
		"osm_id":   e.ID,
		"tags":     e.Tags,
	})
	p := domain.ExternalPoi{
		Name:     strings.TrimSpace(e.Tags["name"]),
		Category: category,
		Kinds:    []string{kind},
		Source:   osmSource,
		Raw:      raw,
	}
	if lat, lon, ok := e.position(); ok {
		p.Lat = &lat
		p.Lon = &lon
	}
	return p, true
}
