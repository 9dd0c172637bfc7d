package report

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/geocontext-service/internal/domain"
	"github.com/couchcryptid/geocontext-service/internal/observability"
)

// Warnings surfaced alongside a fallback report.
const (
	WarningAIUnavailable   = "ai_unavailable"
	WarningInvalidResponse = "ai_invalid_response"
)

// Narrator produces text from a prompt.
type Narrator interface {
	Complete(ctx context.Context, req domain.NarrativeRequest) (string, error)
}

// Outcome is a generated report and an optional warning.
type Outcome struct {
	Report  domain.AiReport `json:"report"`
	Warning string          `json:"warning,omitempty"`
}

// Generator asks a Narrator for a report and falls back when it cannot.
type Generator struct {
	narrator Narrator
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewGenerator creates a Generator. A nil narrator makes every report a
// fallback report.
func NewGenerator(narrator Narrator, logger *slog.Logger, metrics *observability.Metrics) *Generator {
	return &Generator{narrator: narrator, logger: logger, metrics: metrics}
}

// Generate returns a schema-valid report for the context. It never fails.
func (g *Generator) Generate(ctx context.Context, data domain.ContextData, placeName *string) Outcome {
	if g.narrator == nil {
		return g.fallback(data, placeName, LimitationAIUnavailable, WarningAIUnavailable)
	}

	msgs, err := BuildMessages(data, placeName)
	if err != nil {
		g.logger.Warn("build report prompt", "error", err)
		return g.fallback(data, placeName, LimitationAIUnavailable, WarningAIUnavailable)
	}

	raw, err := g.narrator.Complete(ctx, domain.NarrativeRequest{
		Messages:    msgs,
		Temperature: Temperature,
		JSONOutput:  true,
	})
	if err != nil || strings.TrimSpace(raw) == "" {
		if err != nil {
			g.logger.Warn("narrative unavailable", "error", err)
		}
		return g.fallback(data, placeName, LimitationAIUnavailable, WarningAIUnavailable)
	}

	r, err := Parse(raw)
	if err != nil {
		g.logger.Warn("narrative rejected", "error", err)
		return g.fallback(data, placeName, LimitationInvalidResponse, WarningInvalidResponse)
	}

	g.metrics.ReportOutcomes.WithLabelValues("ai").Inc()
	return Outcome{Report: r}
}

func (g *Generator) fallback(data domain.ContextData, placeName *string, limitation, warning string) Outcome {
	g.metrics.ReportOutcomes.WithLabelValues(warning).Inc()
	return Outcome{
		Report:  Fallback(data, placeName, []string{limitation}),
		Warning: warning,
	}
}

// NewRecord wraps an outcome into a record ready to persist.
func NewRecord(data domain.ContextData, placeName *string, out Outcome) domain.ReportRecord {
	rec := domain.ReportRecord{
		ID:        uuid.NewString(),
		PlaceName: placeName,
		Lat:       data.Center.Lat,
		Lon:       data.Center.Lon,
		Report:    out.Report,
		Warning:   out.Warning,
		CreatedAt: domain.Now().UTC().Truncate(time.Second),
	}
	if data.Place != nil && data.Place.Category != "" {
		category := data.Place.Category
		rec.Category = &category
	}
	return rec
}
