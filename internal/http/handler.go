package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"transit-analytics/internal/http/middleware"
	"transit-analytics/internal/model"
	"transit-analytics/internal/service"
)

type Handler struct {
	analytics *service.AnalyticsService
	log       zerolog.Logger
}

func NewHandler(analytics *service.AnalyticsService, log zerolog.Logger) *Handler {
	return &Handler{analytics: analytics, log: log}
}

func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/analytics")

	api.GET("/overview", h.getOverview)
	api.GET("/rankings/:entity", h.getRanking)
	api.GET("/stops/per-line", h.getStopsPerLine)
	api.GET("/efficiency/lines", h.getLineEfficiency)

	occurrences := api.Group("/occurrences")
	occurrences.GET("/by-entity/:entity", h.getOccurrencesByEntity)
	occurrences.GET("/justifications", h.getJustificationRanking)
	occurrences.GET("/trend", h.getOccurrenceTrend)
	occurrences.GET("/day-type", h.getOccurrencesByDayType)

	operators := api.Group("/operators/:entity")
	operators.GET("/comparison", h.getOperatorComparison)
	operators.GET("/lines", h.getLinesPerOperator)

	failures := api.Group("/failures")
	failures.GET("/companies", h.getFailureRates)
	failures.GET("/justifications", h.getFailureJustifications)
	failures.GET("/vehicle-age", h.getVehicleAgeFailures)
	failures.GET("/lines", h.getLinesByFailures)

	api.GET("/dashboards/:entity/:id", h.getDashboard)
	api.GET("/geo/:kind/:ref", h.getFeatureCollection)
	api.GET("/options/:entity", h.listOptions)
}

func (h *Handler) getOverview(c *gin.Context) {
	rng, ok := h.parseRange(c)
	if !ok {
		return
	}
	overview, err := h.analytics.Overview(c.Request.Context(), rng)
	h.respond(c, overview, err)
}

func (h *Handler) getRanking(c *gin.Context) {
	entity, ok := h.parseEntity(c)
	if !ok {
		return
	}
	rng, limit, ok := h.parseRangeAndLimit(c)
	if !ok {
		return
	}
	ranking, err := h.analytics.Rank(c.Request.Context(), entity, model.NormalizeMetric(c.Query("metric")), rng, limit)
	h.respond(c, ranking, err)
}

func (h *Handler) getStopsPerLine(c *gin.Context) {
	limit, ok := h.parseLimit(c)
	if !ok {
		return
	}
	ranking, err := h.analytics.RankStopsPerLine(c.Request.Context(), limit)
	h.respond(c, ranking, err)
}

func (h *Handler) getLineEfficiency(c *gin.Context) {
	rng, ok := h.parseRange(c)
	if !ok {
		return
	}
	lines, err := h.analytics.LineEfficiency(c.Request.Context(), rng)
	h.respond(c, lines, err)
}

func (h *Handler) getOccurrencesByEntity(c *gin.Context) {
	entity, ok := h.parseEntity(c)
	if !ok {
		return
	}
	rng, limit, ok := h.parseRangeAndLimit(c)
	if !ok {
		return
	}
	ranking, err := h.analytics.RankOccurrencesByEntity(c.Request.Context(), entity, rng, limit)
	h.respond(c, ranking, err)
}

func (h *Handler) getJustificationRanking(c *gin.Context) {
	rng, limit, ok := h.parseRangeAndLimit(c)
	if !ok {
		return
	}
	ranking, err := h.analytics.RankJustifications(c.Request.Context(), rng, limit)
	h.respond(c, ranking, err)
}

func (h *Handler) getOccurrenceTrend(c *gin.Context) {
	h.chart(c, h.analytics.OccurrenceTrend)
}

func (h *Handler) getOccurrencesByDayType(c *gin.Context) {
	h.chart(c, h.analytics.OccurrencesByDayType)
}

func (h *Handler) getFailureJustifications(c *gin.Context) {
	h.chart(c, h.analytics.FailureJustifications)
}

func (h *Handler) chart(c *gin.Context, load func(context.Context, model.DateRange) ([]model.ChartPoint, error)) {
	rng, ok := h.parseRange(c)
	if !ok {
		return
	}
	points, err := load(c.Request.Context(), rng)
	h.respond(c, points, err)
}

func (h *Handler) getOperatorComparison(c *gin.Context) {
	entity, ok := h.parseEntity(c)
	if !ok {
		return
	}
	rng, ok := h.parseRange(c)
	if !ok {
		return
	}
	rows, err := h.analytics.CompareOperators(c.Request.Context(), entity, rng)
	h.respond(c, rows, err)
}

func (h *Handler) getLinesPerOperator(c *gin.Context) {
	entity, ok := h.parseEntity(c)
	if !ok {
		return
	}
	rng, ok := h.parseRange(c)
	if !ok {
		return
	}
	ranking, err := h.analytics.LinesPerOperator(c.Request.Context(), entity, rng)
	h.respond(c, ranking, err)
}

func (h *Handler) getFailureRates(c *gin.Context) {
	rng, ok := h.parseRange(c)
	if !ok {
		return
	}
	rows, err := h.analytics.FailureRates(c.Request.Context(), rng)
	h.respond(c, rows, err)
}

func (h *Handler) getVehicleAgeFailures(c *gin.Context) {
	rng, ok := h.parseRange(c)
	if !ok {
		return
	}
	rows, err := h.analytics.VehicleAgeFailures(c.Request.Context(), rng)
	h.respond(c, rows, err)
}

func (h *Handler) getLinesByFailures(c *gin.Context) {
	rng, limit, ok := h.parseRangeAndLimit(c)
	if !ok {
		return
	}
	ranking, err := h.analytics.LinesByFailures(c.Request.Context(), rng, limit)
	h.respond(c, ranking, err)
}

func (h *Handler) getDashboard(c *gin.Context) {
	entity, ok := h.parseEntity(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid id"))
		return
	}
	rng, ok := h.parseRange(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var dashboard any
	switch entity {
	case model.EntityLine:
		dashboard, err = h.analytics.LineDashboard(ctx, id, rng)
	case model.EntityVehicle:
		dashboard, err = h.analytics.VehicleDashboard(ctx, id, rng)
	case model.EntityCompany:
		dashboard, err = h.analytics.CompanyDashboard(ctx, id, rng)
	case model.EntityConcessionaire:
		dashboard, err = h.analytics.ConcessionaireDashboard(ctx, id, rng)
	case model.EntityNeighborhood:
		dashboard, err = h.analytics.NeighborhoodDashboard(ctx, id, rng)
	case model.EntityJustification:
		dashboard, err = h.analytics.JustificationDashboard(ctx, id, rng)
	}
	h.respond(c, dashboard, err)
}

// getFeatureCollection answers with a bare GeoJSON document so map clients
// can consume it directly.
func (h *Handler) getFeatureCollection(c *gin.Context) {
	kind := model.GeoKind(strings.ToLower(strings.TrimSpace(c.Param("kind"))))
	collection, err := h.analytics.FeatureCollection(c.Request.Context(), kind, c.Param("ref"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, collection)
}

func (h *Handler) listOptions(c *gin.Context) {
	entity, ok := h.parseEntity(c)
	if !ok {
		return
	}
	options, err := h.analytics.Options(c.Request.Context(), entity)
	h.respond(c, options, err)
}

func (h *Handler) parseEntity(c *gin.Context) (model.EntityType, bool) {
	entity, err := model.ParseEntityType(c.Param("entity"))
	if err != nil {
		h.handleError(c, err)
		return "", false
	}
	return entity, true
}

func (h *Handler) parseRange(c *gin.Context) (model.DateRange, bool) {
	rng, err := model.ParseDateRange(strings.TrimSpace(c.Query("from")), strings.TrimSpace(c.Query("to")))
	if err != nil {
		h.handleError(c, err)
		return model.DateRange{}, false
	}
	return rng, true
}

func (h *Handler) parseLimit(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return model.DefaultLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		h.handleError(c, fmt.Errorf("%w: limit must be an integer", model.ErrInvalidArgument))
		return 0, false
	}
	return limit, true
}

func (h *Handler) parseRangeAndLimit(c *gin.Context) (model.DateRange, int, bool) {
	rng, ok := h.parseRange(c)
	if !ok {
		return model.DateRange{}, 0, false
	}
	limit, ok := h.parseLimit(c)
	if !ok {
		return model.DateRange{}, 0, false
	}
	return rng, limit, true
}

func (h *Handler) respond(c *gin.Context, data any, err error) {
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(data))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidMetric), errors.Is(err, model.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	default:
		event := h.log.Error().Err(err).
			Str("request_id", middleware.RequestID(c)).
			Str("route", c.FullPath())
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			event = event.Str("sqlstate", pgErr.Code)
		}
		event.Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{"data": data}
}

func errorResponse(message string) gin.H {
	return gin.H{"error": message}
}
