package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/geocontext-service/internal/domain"
	"github.com/couchcryptid/geocontext-service/internal/pipeline"
	"github.com/couchcryptid/geocontext-service/internal/report"
)

// ContextBuilder assembles and compares contexts.
type ContextBuilder interface {
	Build(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
	Compare(ctx context.Context, base, target pipeline.Request) (domain.ComparisonSummary, error)
}

// ReportGenerator turns a context into a report. It never fails.
type ReportGenerator interface {
	Generate(ctx context.Context, data domain.ContextData, placeName *string) report.Outcome
}

// ReportStore persists reports.
type ReportStore interface {
	Insert(ctx context.Context, rec domain.ReportRecord) error
	Recent(ctx context.Context, limit int) ([]domain.ReportRecord, error)
}

// ReportPublisher emits stored reports.
type ReportPublisher interface {
	Publish(ctx context.Context, rec domain.ReportRecord)
}

type handler struct {
	contexts  ContextBuilder
	reports   ReportGenerator
	store     ReportStore
	publisher ReportPublisher
	logger    *slog.Logger
}

func (h *handler) register(r *gin.RouterGroup) {
	r.GET("/context", h.getContext)
	r.GET("/context/geojson", h.getContextGeoJSON)
	r.GET("/compare", h.getCompare)
	r.POST("/reports", h.postReport)
	if h.store != nil {
		r.GET("/reports", h.listReports)
	}
}

type contextQuery struct {
	Address string   `form:"address"`
	Lat     *float64 `form:"lat" binding:"omitempty,min=-90,max=90"`
	Lon     *float64 `form:"lon" binding:"omitempty,min=-180,max=180"`
	RadiusM int      `form:"radius_m" binding:"omitempty,min=1,max=10000"`
}

func (q contextQuery) request() pipeline.Request {
	return pipeline.Request{Address: q.Address, Lat: q.Lat, Lon: q.Lon, RadiusM: q.RadiusM}
}

type compareQuery struct {
	Base      string   `form:"base"`
	Target    string   `form:"target"`
	BaseLat   *float64 `form:"base_lat" binding:"omitempty,min=-90,max=90"`
	BaseLon   *float64 `form:"base_lon" binding:"omitempty,min=-180,max=180"`
	TargetLat *float64 `form:"target_lat" binding:"omitempty,min=-90,max=90"`
	TargetLon *float64 `form:"target_lon" binding:"omitempty,min=-180,max=180"`
	RadiusM   int      `form:"radius_m" binding:"omitempty,min=1,max=10000"`
}

type reportRequest struct {
	Address   string   `json:"address"`
	Lat       *float64 `json:"lat" binding:"omitempty,min=-90,max=90"`
	Lon       *float64 `json:"lon" binding:"omitempty,min=-180,max=180"`
	RadiusM   int      `json:"radius_m" binding:"omitempty,min=1,max=10000"`
	PlaceName *string  `json:"place_name" binding:"omitempty,max=200"`
}

type listQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

type contextResponse struct {
	Name    string             `json:"name,omitempty"`
	Context domain.ContextData `json:"context"`
}

type reportResponse struct {
	domain.ReportRecord
	Stored bool `json:"stored"`
}

func (h *handler) getContext(c *gin.Context) {
	var q contextQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.contexts.Build(c.Request.Context(), q.request())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contextResponse{Name: res.Name, Context: res.Context})
}

func (h *handler) getContextGeoJSON(c *gin.Context) {
	var q contextQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.contexts.Build(c.Request.Context(), q.request())
	if err != nil {
		h.writeError(c, err)
		return
	}
	body, err := featureCollection(res).MarshalJSON()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", body)
}

func (h *handler) getCompare(c *gin.Context) {
	var q compareQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	base := pipeline.Request{Address: q.Base, Lat: q.BaseLat, Lon: q.BaseLon, RadiusM: q.RadiusM}
	target := pipeline.Request{Address: q.Target, Lat: q.TargetLat, Lon: q.TargetLon, RadiusM: q.RadiusM}

	summary, err := h.contexts.Compare(c.Request.Context(), base, target)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *handler) postReport(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	res, err := h.contexts.Build(ctx, pipeline.Request{
		Address: req.Address, Lat: req.Lat, Lon: req.Lon, RadiusM: req.RadiusM,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	name := res.PlaceName()
	if req.PlaceName != nil && strings.TrimSpace(*req.PlaceName) != "" {
		trimmed := strings.TrimSpace(*req.PlaceName)
		name = &trimmed
	}
	rec := report.NewRecord(res.Context, name, h.reports.Generate(ctx, res.Context, name))

	if h.store == nil {
		c.JSON(http.StatusOK, reportResponse{ReportRecord: rec})
		return
	}
	if err := h.store.Insert(ctx, rec); err != nil {
		h.logger.Error("store report failed", "id", rec.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store report"})
		return
	}
	if h.publisher != nil {
		h.publisher.Publish(ctx, rec)
	}
	c.JSON(http.StatusCreated, reportResponse{ReportRecord: rec, Stored: true})
}

func (h *handler) listReports(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	recs, err := h.store.Recent(c.Request.Context(), q.Limit)
	if err != nil {
		h.logger.Error("list reports failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": recs})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (h *handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNoResults):
		c.JSON(http.StatusNotFound, gin.H{"error": "no results"})
	default:
		h.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
