package handler

import (
	"net/http"

	"github.com/capitalize-ai/supportbot-workspace/internal/service"
)

// readRange reads ?from, ?to and ?inbox_ids.
func (h *AnalyticsHandler) readRange(w http.ResponseWriter, r *http.Request) (service.ReportRange, bool) {
	from, to, err := dayRange(r)
	if err != nil {
		writeServiceError(w, h.logger, "read range", err)
		return service.ReportRange{}, false
	}
	inboxes, err := int64List(r.URL.Query().Get("inbox_ids"))
	if err != nil {
		writeServiceError(w, h.logger, "read range", err)
		return service.ReportRange{}, false
	}
	return service.ReportRange{From: from, To: to, InboxIDs: inboxes}, true
}

// LiveReport handles GET /api/v1/reports/live
func (h *AnalyticsHandler) LiveReport(w http.ResponseWriter, r *http.Request) {
	live, err := h.analytics.LiveReport(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "load live report", err)
		return
	}
	writeJSON(w, http.StatusOK, live)
}

// ConversationsPerDay handles GET /api/v1/reports/conversations
func (h *AnalyticsHandler) ConversationsPerDay(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.readRange(w, r)
	if !ok {
		return
	}
	days, err := h.analytics.ConversationsPerDay(r.Context(), rng)
	if err != nil {
		writeServiceError(w, h.logger, "load conversations report", err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// Hourly handles GET /api/v1/reports/hourly
func (h *AnalyticsHandler) Hourly(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.readRange(w, r)
	if !ok {
		return
	}
	buckets, err := h.analytics.Hourly(r.Context(), rng)
	if err != nil {
		writeServiceError(w, h.logger, "load hourly report", err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}
