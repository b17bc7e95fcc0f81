package handler

import (
	"fmt"
	"net/http"

	"github.com/capitalize-ai/supportbot-workspace/internal/analytics"
	"github.com/capitalize-ai/supportbot-workspace/internal/service"
	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
)

// Messages handles POST /api/v1/analytics/messages
// Supports ?format=csv|xlsx and ?columns=a,b for exports.
func (h *AnalyticsHandler) Messages(w http.ResponseWriter, r *http.Request) {
	var q analytics.MessageQuery
	if !decodeJSON(w, r, &q) {
		return
	}
	format, err := exportFormat(r)
	if err != nil {
		writeServiceError(w, h.logger, "list messages", err)
		return
	}
	if q.Start.IsZero() || q.End.IsZero() {
		writeServiceError(w, h.logger, "list messages",
			fmt.Errorf("%w: start and end are required", service.ErrInvalidRequest))
		return
	}
	q.Start, q.End = timestamp.DayBounds(q.Start, q.End)

	listing, err := h.analytics.Messages(r.Context(), q)
	if err != nil {
		writeServiceError(w, h.logger, "list messages", err)
		return
	}

	if format != formatJSON {
		columns := analytics.SelectColumns(analytics.ListingColumns(listing.Records), columnsParam(r))
		writeTable(w, h.logger, analytics.RecordTable(listing.Records, columns), format, "mensagens")
		return
	}
	writeJSON(w, http.StatusOK, listing)
}
