// Package app wires configuration into the context pipeline and its
// upstream providers.
package app

import (
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/geocontext-service/internal/adapter/llm"
	"github.com/couchcryptid/geocontext-service/internal/adapter/nominatim"
	"github.com/couchcryptid/geocontext-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/geocontext-service/internal/adapter/overpass"
	"github.com/couchcryptid/geocontext-service/internal/adapter/wikipedia"
	"github.com/couchcryptid/geocontext-service/internal/cache"
	"github.com/couchcryptid/geocontext-service/internal/config"
	"github.com/couchcryptid/geocontext-service/internal/domain"
	"github.com/couchcryptid/geocontext-service/internal/observability"
	"github.com/couchcryptid/geocontext-service/internal/pipeline"
	"github.com/couchcryptid/geocontext-service/internal/report"
	"github.com/couchcryptid/geocontext-service/internal/upstream"
)

// Components are the long-lived services built from configuration.
type Components struct {
	Pipeline  *pipeline.ContextPipeline
	Generator *report.Generator
	// Caches are swept by the cache janitor.
	Caches []cache.Sweeper
}

// New builds every provider client and the pipeline on top of them.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Components {
	clock := clockwork.NewRealClock()
	weatherCache := cache.New[*domain.WeatherResult]("weather", cfg.WeatherCacheTTL, cfg.CacheMaxEntries, clock)
	knowledgeCache := cache.New[[]domain.NearbyItem]("knowledge", cfg.KnowledgeCacheTTL, cfg.CacheMaxEntries, clock)

	userAgent := cfg.NominatimUserAgent
	gazetteer := upstream.New(upstream.Config{
		Name:          "nominatim",
		Timeout:       cfg.NominatimTimeout,
		UserAgent:     userAgent,
		RatePerSecond: cfg.NominatimRPS,
	}, metrics)
	forecast := upstream.New(upstream.Config{Name: "open-meteo", Timeout: cfg.WeatherTimeout, UserAgent: userAgent}, metrics)
	air := upstream.New(upstream.Config{Name: "cams", Timeout: cfg.WeatherTimeout, UserAgent: userAgent}, metrics)
	flood := upstream.New(upstream.Config{Name: "glofas", Timeout: cfg.WeatherTimeout, UserAgent: userAgent}, metrics)
	wiki := upstream.New(upstream.Config{Name: "wikipedia", Timeout: cfg.WikipediaTimeout, UserAgent: userAgent}, metrics)
	osm := upstream.New(upstream.Config{Name: "overpass", Timeout: cfg.OverpassTimeout, UserAgent: userAgent}, metrics)

	src := pipeline.Sources{
		Geocoder:   nominatim.NewClient(gazetteer, cfg.NominatimURL, logger),
		Weather:    openmeteo.NewWeatherClient(forecast, cfg.OpenMeteoURL, weatherCache, logger, metrics),
		Knowledge:  wikipedia.NewClient(wiki, cfg.WikipediaURL, knowledgeCache, logger, metrics),
		Map:        overpass.NewClient(osm, cfg.OverpassURL, logger),
		AirQuality: openmeteo.NewAirQualityClient(air, cfg.OpenMeteoAirURL, cfg.AirQualityMode, logger),
		Flood:      openmeteo.NewFloodClient(flood, cfg.OpenMeteoFloodURL, cfg.FloodMode, logger),
	}

	var narrator report.Narrator
	if cfg.LLMEnabled {
		api := upstream.New(upstream.Config{Name: "llm", Timeout: cfg.LLMTimeout}, metrics)
		narrator = llm.NewClient(api, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
		logger.Info("narrative reports enabled", "model", cfg.LLMModel)
	} else {
		logger.Info("narrative reports disabled, using fallback reports")
	}

	return &Components{
		Pipeline:  pipeline.New(src, cfg.DefaultRadiusM, logger, metrics),
		Generator: report.NewGenerator(narrator, logger, metrics),
		Caches:    []cache.Sweeper{weatherCache, knowledgeCache},
	}
}
