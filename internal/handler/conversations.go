// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/capitalize-ai/supportbot-workspace/internal/analytics"
	"github.com/capitalize-ai/supportbot-workspace/internal/service"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
)

// AnalyticsHandler handles the analytics and insights endpoints.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	insights  *service.InsightsService
	logger    *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(svc *service.AnalyticsService, insights *service.InsightsService, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: svc,
		insights:  insights,
		logger:    log,
	}
}

// Lookups handles GET /api/v1/lookups
func (h *AnalyticsHandler) Lookups(w http.ResponseWriter, r *http.Request) {
	dir, err := h.analytics.Lookups(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "load lookups", err)
		return
	}
	writeJSON(w, http.StatusOK, dir)
}

// readFilter decodes and normalizes a filter body plus the export format.
func (h *AnalyticsHandler) readFilter(w http.ResponseWriter, r *http.Request) (analytics.Filter, string, bool) {
	var f analytics.Filter
	if !decodeJSON(w, r, &f) {
		return f, "", false
	}
	format, err := exportFormat(r)
	if err == nil {
		err = normalizeFilter(&f)
	}
	if err != nil {
		writeServiceError(w, h.logger, "read filter", err)
		return f, "", false
	}
	return f, format, true
}

// Conversations handles POST /api/v1/analytics/conversations
// Supports ?format=csv|xlsx and ?columns=a,b for exports.
func (h *AnalyticsHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	f, format, ok := h.readFilter(w, r)
	if !ok {
		return
	}

	rows, err := h.analytics.Conversations(r.Context(), f)
	if err != nil {
		writeServiceError(w, h.logger, "list conversations", err)
		return
	}

	if format != formatJSON {
		columns := analytics.SelectColumns(analytics.ConversationColumns(rows), columnsParam(r))
		writeTable(w, h.logger, analytics.ConversationTable(rows, columns), format, "conversas")
		return
	}

	records := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Fields())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": records,
		"total":         len(records),
	})
}

// Analysis handles POST /api/v1/analytics/analysis
// Supports ?format=csv|xlsx to export the message rows.
func (h *AnalyticsHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	f, format, ok := h.readFilter(w, r)
	if !ok {
		return
	}

	res, err := h.analytics.Analysis(r.Context(), f)
	if err != nil {
		writeServiceError(w, h.logger, "analyze conversations", err)
		return
	}

	if format != formatJSON {
		writeTable(w, h.logger, analytics.MessageTable(res.Messages), format, "analise")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// InsightsContext handles POST /api/v1/analytics/insights/context
func (h *AnalyticsHandler) InsightsContext(w http.ResponseWriter, r *http.Request) {
	var req service.InsightRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := normalizeFilter(&req.Filter); err != nil {
		writeServiceError(w, h.logger, "build insights context", err)
		return
	}

	built, err := h.analytics.InsightsContext(r.Context(), req.Filter, req.Limits)
	if err != nil {
		writeServiceError(w, h.logger, "build insights context", err)
		return
	}
	writeJSON(w, http.StatusOK, built)
}

// Insights handles POST /api/v1/analytics/insights
func (h *AnalyticsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	var req service.InsightRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := normalizeFilter(&req.Filter); err != nil {
		writeServiceError(w, h.logger, "run insights", err)
		return
	}

	res, err := h.insights.Run(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "run insights", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
