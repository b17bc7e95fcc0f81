package chatwoot

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
)

// ReportPoint is one bucket of a time-series report.
type ReportPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// ReportQuery selects a conversations_count series.
type ReportQuery struct {
	Since time.Time
	Until time.Time
	// Type is account, inbox, agent or team. Defaults to account.
	Type string
	// ID scopes inbox, agent and team reports.
	ID int64
	// GroupBy is day or hour. Defaults to day.
	GroupBy string
	// TimezoneOffset is the offset in hours applied to buckets.
	TimezoneOffset float64
}

// LiveConversationMetrics returns the account's current open, unattended,
// unassigned and pending counters as reported by the helpdesk.
func (c *Client) LiveConversationMetrics(ctx context.Context) (map[string]any, error) {
	const op = "live conversation metrics"
	resp, err := c.getOnce(ctx, c.reportsPath("/live_reports/conversation_metrics"), nil, 15*time.Second)
	if err != nil {
		return nil, &FetchError{Op: op, Err: err}
	}
	if err := checkStatus(op, resp); err != nil {
		return nil, err
	}
	body, err := decode(resp)
	if err != nil {
		return nil, &FetchError{Op: op, Err: err}
	}
	m, _ := body.(map[string]any)
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// GroupedConversationMetrics returns live metrics grouped by team or assignee.
func (c *Client) GroupedConversationMetrics(ctx context.Context, groupBy string) ([]model.Record, error) {
	const op = "grouped conversation metrics"
	resp, err := c.getOnce(ctx, c.reportsPath("/live_reports/grouped_conversation_metrics"),
		map[string]string{"group_by": groupBy}, 15*time.Second)
	if err != nil {
		return nil, &FetchError{Op: op, Err: err}
	}
	if err := checkStatus(op, resp); err != nil {
		return nil, err
	}
	body, err := decode(resp)
	if err != nil {
		return nil, &FetchError{Op: op, Err: err}
	}
	items := objects(body)
	out := make([]model.Record, 0, len(items))
	for _, item := range items {
		out = append(out, model.Record(item))
	}
	return out, nil
}

// ConversationReports returns the conversations_count series for q.
func (c *Client) ConversationReports(ctx context.Context, q ReportQuery) ([]ReportPoint, error) {
	const op = "conversation reports"
	reportType := q.Type
	if reportType == "" {
		reportType = "account"
	}
	groupBy := q.GroupBy
	if groupBy == "" {
		groupBy = "day"
	}
	params := map[string]string{
		"metric":          "conversations_count",
		"since":           strconv.FormatInt(q.Since.Unix(), 10),
		"until":           strconv.FormatInt(q.Until.Unix(), 10),
		"type":            reportType,
		"group_by":        groupBy,
		"timezone_offset": strconv.FormatFloat(q.TimezoneOffset, 'f', -1, 64),
	}
	if q.ID != 0 {
		params["id"] = strconv.FormatInt(q.ID, 10)
	}

	resp, err := c.getOnce(ctx, c.reportsPath("/reports"), params, 20*time.Second)
	if err != nil {
		return nil, &FetchError{Op: op, Err: err}
	}
	if err := checkStatus(op, resp); err != nil {
		return nil, err
	}
	body, err := decode(resp)
	if err != nil {
		return nil, &FetchError{Op: op, Err: err}
	}

	var out []ReportPoint
	for _, item := range objects(body) {
		r := model.Record(item)
		ts, ok := model.ToInt(r.Get("timestamp"))
		if !ok {
			continue
		}
		v, _ := toFloat(r.Get("value"))
		out = append(out, ReportPoint{Timestamp: ts, Value: v})
	}
	return out, nil
}

// MergeReports sums several series bucket by bucket, ordered by timestamp.
func MergeReports(series ...[]ReportPoint) []ReportPoint {
	merged := make(map[int64]float64)
	for _, s := range series {
		for _, p := range s {
			merged[p.Timestamp] += p.Value
		}
	}
	out := make([]ReportPoint, 0, len(merged))
	for ts, v := range merged {
		out = append(out, ReportPoint{Timestamp: ts, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		if i, ok := model.ToInt(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}
