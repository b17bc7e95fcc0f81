package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/supportbot-workspace/internal/analytics"
	"github.com/capitalize-ai/supportbot-workspace/internal/chatwoot"
	"github.com/capitalize-ai/supportbot-workspace/internal/service"
	"github.com/capitalize-ai/supportbot-workspace/internal/store"
	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidPeriod), errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, chatwoot.ErrUpstreamFetch), errors.Is(err, service.ErrUpstreamLLM):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs err and writes it with the mapped status. Internal
// errors are not echoed to the client.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error(op+" failed", zap.Int("status", status), zap.Error(err))
	}
	if status == http.StatusInternalServerError {
		writeError(w, status, op+" failed")
		return
	}
	writeError(w, status, err.Error())
}

// decodeJSON reads a JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// idParam parses the {id} route parameter.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// dayRange reads the from and to query parameters (YYYY-MM-DD or DD/MM/YYYY).
// Both default to today.
func dayRange(r *http.Request) (time.Time, time.Time, error) {
	today := time.Now().In(timestamp.Local())
	from, to := today, today
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		d, err := timestamp.ParseDay(v)
		if err != nil {
			return from, to, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
		}
		from = d
	}
	if v := q.Get("to"); v != "" {
		d, err := timestamp.ParseDay(v)
		if err != nil {
			return from, to, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
		}
		to = d
	}
	return from, to, nil
}

// int64List parses a comma separated list of ids.
func int64List(value string) ([]int64, error) {
	var out []int64
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid id %q", service.ErrInvalidRequest, item)
		}
		out = append(out, id)
	}
	return out, nil
}

// columnsParam reads the comma separated columns query parameter.
func columnsParam(r *http.Request) []string {
	var out []string
	for _, c := range strings.Split(r.URL.Query().Get("columns"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// normalizeFilter expands the filter period to whole local days.
func normalizeFilter(f *analytics.Filter) error {
	if f.Start.IsZero() || f.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", service.ErrInvalidRequest)
	}
	f.Start, f.End = timestamp.DayBounds(f.Start, f.End)
	return nil
}

const (
	formatJSON = "json"
	formatCSV  = "csv"
	formatXLSX = "xlsx"
)

// exportFormat reads ?format, defaulting to JSON.
func exportFormat(r *http.Request) (string, error) {
	switch f := strings.ToLower(r.URL.Query().Get("format")); f {
	case "", formatJSON:
		return formatJSON, nil
	case formatCSV, formatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", service.ErrInvalidRequest, f)
	}
}

// writeTable streams t as a CSV or XLSX attachment named name.
func writeTable(w http.ResponseWriter, log *logger.Logger, t analytics.Table, format, name string) {
	var err error
	switch format {
	case formatXLSX:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, name))
		err = t.WriteXLSX(w, name)
	default:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, name))
		err = t.WriteCSV(w)
	}
	if err != nil {
		log.Error("failed to write export", zap.String("format", format), zap.Error(err))
	}
}
