// Package pipeline assembles the context around a place from every upstream
// source.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/geocontext-service/internal/domain"
	"github.com/couchcryptid/geocontext-service/internal/observability"
)

// Radius limits for a context request, in meters.
const (
	DefaultRadiusM = 1000
	MaxRadiusM     = 10_000
)

// WeatherSource returns current weather and elevation, or nil.
type WeatherSource interface {
	Fetch(ctx context.Context, lat, lon float64) *domain.WeatherResult
}

// KnowledgeSource returns encyclopedic articles near a point.
type KnowledgeSource interface {
	Nearby(ctx context.Context, lat, lon float64, radiusM, limit int) []domain.NearbyItem
}

// MapSource returns map features around a point.
type MapSource interface {
	Pois(ctx context.Context, center domain.Coordinate, radiusM int) []domain.ExternalPoi
	Environment(ctx context.Context, center domain.Coordinate, radiusM int) domain.Environment
	LandCover(ctx context.Context, center domain.Coordinate) *domain.LandCover
}

// AirQualitySource returns the air quality indicator, or nil when disabled.
type AirQualitySource interface {
	Fetch(ctx context.Context, lat, lon float64) *domain.AirQuality
}

// FloodSource returns the flood indicator, or nil when disabled.
type FloodSource interface {
	Fetch(ctx context.Context, lat, lon float64) *domain.FloodRisk
}

// Sources are the collaborators of a ContextPipeline. Only Geocoder is
// required; any other nil source leaves its fields empty.
type Sources struct {
	Geocoder   domain.Geocoder
	Weather    WeatherSource
	Knowledge  KnowledgeSource
	Map        MapSource
	AirQuality AirQualitySource
	Flood      FloodSource
}

// Request selects the center either by free-text address or by coordinates.
type Request struct {
	Address string
	Lat     *float64
	Lon     *float64
	RadiusM int
}

// Result is an assembled context and the name it was resolved to.
type Result struct {
	Context domain.ContextData
	// Name is the display name of the center, empty when unknown.
	Name string
}

// PlaceName returns Name as a pointer, nil when empty.
func (r Result) PlaceName() *string {
	if r.Name == "" {
		return nil
	}
	name := r.Name
	return &name
}

// ContextPipeline builds contexts by fanning out to every source.
type ContextPipeline struct {
	src           Sources
	defaultRadius int
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// New creates a ContextPipeline. defaultRadiusM applies when a request has no
// radius; zero selects DefaultRadiusM.
func New(src Sources, defaultRadiusM int, logger *slog.Logger, metrics *observability.Metrics) *ContextPipeline {
	if defaultRadiusM <= 0 {
		defaultRadiusM = DefaultRadiusM
	}
	return &ContextPipeline{
		src:           src,
		defaultRadius: defaultRadiusM,
		logger:        logger,
		metrics:       metrics,
	}
}

// Build validates the request, resolves its center and assembles the
// context. It fails only with domain.ErrInvalidInput or domain.ErrNoResults;
// upstream failures leave the affected fields empty.
func (p *ContextPipeline) Build(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	res, err := p.build(ctx, req)
	switch {
	case err == nil:
		p.metrics.ContextBuilds.WithLabelValues("success").Inc()
		p.metrics.ContextDuration.Observe(time.Since(start).Seconds())
	case errors.Is(err, domain.ErrInvalidInput):
		p.metrics.ContextBuilds.WithLabelValues("invalid").Inc()
	case errors.Is(err, domain.ErrNoResults):
		p.metrics.ContextBuilds.WithLabelValues("no_results").Inc()
	default:
		p.metrics.ContextBuilds.WithLabelValues("error").Inc()
	}
	return res, err
}

// BuildPair builds two contexts concurrently.
func (p *ContextPipeline) BuildPair(ctx context.Context, base, target Request) (Result, Result, error) {
	var baseRes, targetRes Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		baseRes, err = p.Build(gctx, base)
		if err != nil {
			return fmt.Errorf("base: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		targetRes, err = p.Build(gctx, target)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, Result{}, err
	}
	return baseRes, targetRes, nil
}

// Compare builds both contexts and compares them.
func (p *ContextPipeline) Compare(ctx context.Context, base, target Request) (domain.ComparisonSummary, error) {
	b, t, err := p.BuildPair(ctx, base, target)
	if err != nil {
		return domain.ComparisonSummary{}, err
	}
	p.metrics.Comparisons.Inc()
	return domain.Compare(b.Context, t.Context, b.Name, t.Name), nil
}

func (p *ContextPipeline) build(ctx context.Context, req Request) (Result, error) {
	radius, err := p.radius(req.RadiusM)
	if err != nil {
		return Result{}, err
	}

	center, place, err := p.resolve(ctx, req)
	if err != nil {
		return Result{}, err
	}

	data := domain.ContextData{
		Center:  center,
		RadiusM: radius,
		Place:   place,
	}
	p.collect(ctx, &data)

	res := Result{Context: data}
	if place != nil {
		res.Name = place.Label()
	}
	return res, nil
}

func (p *ContextPipeline) radius(r int) (int, error) {
	switch {
	case r == 0:
		return p.defaultRadius, nil
	case r < 0 || r > MaxRadiusM:
		return 0, fmt.Errorf("%w: radius %d m outside (0, %d]", domain.ErrInvalidInput, r, MaxRadiusM)
	default:
		return r, nil
	}
}

// resolve turns the request into a center. An address is geocoded forward and
// its match becomes the place; coordinates are geocoded in reverse.
func (p *ContextPipeline) resolve(ctx context.Context, req Request) (domain.Coordinate, *domain.ReversePlace, error) {
	if req.Address != "" || (req.Lat == nil && req.Lon == nil) {
		query := strings.TrimSpace(req.Address)
		if query == "" {
			return domain.Coordinate{}, nil, fmt.Errorf("%w: address or coordinates required", domain.ErrInvalidInput)
		}
		match, err := p.src.Geocoder.Forward(ctx, query)
		if err != nil {
			return domain.Coordinate{}, nil, err
		}
		if match == nil {
			return domain.Coordinate{}, nil, fmt.Errorf("%w: %q", domain.ErrNoResults, query)
		}
		center := match.Coordinate()
		if err := center.Validate(); err != nil {
			return domain.Coordinate{}, nil, fmt.Errorf("%w: %q", domain.ErrNoResults, query)
		}
		return center, &domain.ReversePlace{
			DisplayName: match.DisplayName,
			Category:    match.Category,
			Type:        match.Type,
		}, nil
	}

	if req.Lat == nil || req.Lon == nil {
		return domain.Coordinate{}, nil, fmt.Errorf("%w: lat and lon must be given together", domain.ErrInvalidInput)
	}
	center := domain.Coordinate{Lat: *req.Lat, Lon: *req.Lon}
	if err := center.Validate(); err != nil {
		return domain.Coordinate{}, nil, err
	}

	place, err := p.src.Geocoder.Reverse(ctx, center.Lat, center.Lon)
	if err != nil {
		// Coordinates stand on their own; a missing label is not fatal.
		p.logger.Warn("reverse geocoding failed", "lat", center.Lat, "lon", center.Lon, "error", err)
		place = nil
	}
	return center, place, nil
}

// collect fans out to every configured source and fills data. Sources never
// fail; each degrades to an empty value on its own.
func (p *ContextPipeline) collect(ctx context.Context, data *domain.ContextData) {
	var (
		weather   *domain.WeatherResult
		knowledge []domain.NearbyItem
		rawPois   []domain.ExternalPoi
	)
	center, radius := data.Center, data.RadiusM

	var g errgroup.Group
	if s := p.src.Weather; s != nil {
		g.Go(func() error {
			weather = s.Fetch(ctx, center.Lat, center.Lon)
			return nil
		})
	}
	if s := p.src.Knowledge; s != nil {
		g.Go(func() error {
			knowledge = s.Nearby(ctx, center.Lat, center.Lon, radius, 0)
			return nil
		})
	}
	if s := p.src.Map; s != nil {
		g.Go(func() error {
			rawPois = s.Pois(ctx, center, radius)
			return nil
		})
		g.Go(func() error {
			data.Environment = s.Environment(ctx, center, radius)
			return nil
		})
		g.Go(func() error {
			data.LandCover = s.LandCover(ctx, center)
			return nil
		})
	}
	if s := p.src.AirQuality; s != nil {
		g.Go(func() error {
			data.AirQuality = s.Fetch(ctx, center.Lat, center.Lon)
			return nil
		})
	}
	if s := p.src.Flood; s != nil {
		g.Go(func() error {
			data.FloodRisk = s.Fetch(ctx, center.Lat, center.Lon)
			return nil
		})
	}
	_ = g.Wait()

	if weather != nil {
		data.Weather = weather.Weather
		data.ElevationM = weather.ElevationM
	}
	if data.Environment.NearestWaterways == nil {
		data.Environment.NearestWaterways = []domain.Waterway{}
	}

	pois, extras := domain.Categorize(&center, rawPois)
	landmarks, landmarkExtras := domain.Categorize(&center, domain.LandmarkPois(knowledge))
	data.Pois = domain.Merge(pois, landmarks)
	data.PoiExtras = append(extras, landmarkExtras...)
	summary := domain.Summarize(data.Pois)
	data.PoiSummary = &summary
	data.Knowledge = knowledge
}
