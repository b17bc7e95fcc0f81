package service

import (
	"context"
	"time"

	"github.com/capitalize-ai/supportbot-workspace/internal/analytics"
	"github.com/capitalize-ai/supportbot-workspace/internal/chatwoot"
	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
)

// LiveReport is the account's current workload.
type LiveReport struct {
	Metrics        map[string]any `json:"metrics"`
	TeamMetrics    []model.Record `json:"team_metrics"`
	AgentMetrics   []model.Record `json:"agent_metrics"`
	TeamsInService int            `json:"teams_in_service"`
}

// ReportRange selects whole local days and, optionally, inboxes. No inboxes
// means the whole account.
type ReportRange struct {
	From     time.Time
	To       time.Time
	InboxIDs []int64
}

func (r ReportRange) bounds() (time.Time, time.Time, error) {
	start, end := timestamp.DayBounds(r.From, r.To)
	if start.After(end) {
		return start, end, ErrInvalidPeriod
	}
	return start, end, nil
}

// days is the number of local calendar days covered.
func (r ReportRange) days() int {
	start, end := timestamp.DayBounds(r.From, r.To)
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// DayCount is the number of conversations opened on one local day.
type DayCount struct {
	Date          string `json:"data"`
	Conversations int    `json:"conversas"`
}

// LiveReport returns the live metrics plus the same metrics grouped by team
// and by assignee.
func (s *AnalyticsService) LiveReport(ctx context.Context) (*LiveReport, error) {
	desk, err := s.helpdesks.Open(ctx)
	if err != nil {
		return nil, err
	}
	metrics, err := desk.LiveConversationMetrics(ctx)
	if err != nil {
		return nil, err
	}
	teams, err := desk.GroupedConversationMetrics(ctx, "team_id")
	if err != nil {
		return nil, err
	}
	agents, err := desk.GroupedConversationMetrics(ctx, "assignee_id")
	if err != nil {
		return nil, err
	}
	inService := make(map[string]struct{})
	for _, t := range teams {
		if id := model.Text(t.Get("team_id")); id != "" {
			inService[id] = struct{}{}
		}
	}
	return &LiveReport{
		Metrics:        metrics,
		TeamMetrics:    teams,
		AgentMetrics:   agents,
		TeamsInService: len(inService),
	}, nil
}

// series fetches the conversations_count report for r, summing one series
// per selected inbox.
func (s *AnalyticsService) series(ctx context.Context, r ReportRange, groupBy string) ([]chatwoot.ReportPoint, error) {
	start, end, err := r.bounds()
	if err != nil {
		return nil, err
	}
	desk, err := s.helpdesks.Open(ctx)
	if err != nil {
		return nil, err
	}
	_, offset := time.Now().In(timestamp.Local()).Zone()
	base := chatwoot.ReportQuery{
		Since:          start,
		Until:          end,
		GroupBy:        groupBy,
		TimezoneOffset: float64(offset) / 3600,
	}
	if len(r.InboxIDs) == 0 {
		base.Type = "account"
		return desk.ConversationReports(ctx, base)
	}
	all := make([][]chatwoot.ReportPoint, 0, len(r.InboxIDs))
	for _, id := range r.InboxIDs {
		q := base
		q.Type = "inbox"
		q.ID = id
		points, err := desk.ConversationReports(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, points)
	}
	return chatwoot.MergeReports(all...), nil
}

// ConversationsPerDay returns one count per local day of r, zero-filled.
func (s *AnalyticsService) ConversationsPerDay(ctx context.Context, r ReportRange) ([]DayCount, error) {
	points, err := s.series(ctx, r, "day")
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(points))
	for _, p := range points {
		day := time.Unix(p.Timestamp, 0).In(timestamp.Local()).Format(timestamp.DateLayout)
		counts[day] = int(p.Value)
	}
	start, end := timestamp.DayBounds(r.From, r.To)
	var out []DayCount
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(timestamp.DateLayout)
		out = append(out, DayCount{Date: key, Conversations: counts[key]})
	}
	return out, nil
}

// Hourly returns the conversations-per-hour breakdown of r.
func (s *AnalyticsService) Hourly(ctx context.Context, r ReportRange) ([]analytics.HourBucket, error) {
	points, err := s.series(ctx, r, "hour")
	if err != nil {
		return nil, err
	}
	return analytics.HourlyBreakdown(points, r.days()), nil
}
