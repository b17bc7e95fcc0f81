package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/capitalize-ai/supportbot-workspace/internal/analytics"
	"github.com/capitalize-ai/supportbot-workspace/internal/chatwoot"
	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
	"github.com/capitalize-ai/supportbot-workspace/pkg/tracing"
)

// AnalyticsService lists, aggregates and exports helpdesk conversations.
type AnalyticsService struct {
	helpdesks  HelpdeskOpener
	classifier *analytics.Classifier
	aggOpts    []analytics.AggregatorOption
	logger     *logger.Logger
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(helpdesks HelpdeskOpener, classifier *analytics.Classifier, log *logger.Logger, opts ...analytics.AggregatorOption) *AnalyticsService {
	log = log.Named("analytics")
	return &AnalyticsService{
		helpdesks:  helpdesks,
		classifier: classifier,
		aggOpts:    append([]analytics.AggregatorOption{analytics.WithAggregatorLogger(log)}, opts...),
		logger:     log,
	}
}

// Lookups returns the inboxes, agents and teams of the account, sorted by
// name.
func (s *AnalyticsService) Lookups(ctx context.Context) (*chatwoot.Directory, error) {
	desk, err := s.helpdesks.Open(ctx)
	if err != nil {
		return nil, err
	}
	return directory(ctx, desk)
}

func directory(ctx context.Context, desk Helpdesk) (*chatwoot.Directory, error) {
	inboxes, err := desk.Inboxes(ctx)
	if err != nil {
		return nil, err
	}
	agents, err := desk.Agents(ctx)
	if err != nil {
		return nil, err
	}
	teams, err := desk.Teams(ctx)
	if err != nil {
		return nil, err
	}
	return &chatwoot.Directory{
		Inboxes: chatwoot.SortByName(inboxes),
		Agents:  chatwoot.SortByName(agents),
		Teams:   chatwoot.SortByName(teams),
	}, nil
}

type snapshot struct {
	desk       Helpdesk
	convs      []model.Conversation
	inboxNames map[int64]string
}

// load validates the period, then lists conversations active since f.Start
// and the inbox names used to label rows.
func (s *AnalyticsService) load(ctx context.Context, f analytics.Filter) (*snapshot, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	desk, err := s.helpdesks.Open(ctx)
	if err != nil {
		return nil, err
	}
	convs, err := desk.ListConversations(ctx, chatwoot.ConversationQuery{Since: f.Start, Status: f.Status})
	if err != nil {
		return nil, err
	}
	inboxes, err := desk.Inboxes(ctx)
	if err != nil {
		return nil, err
	}
	dir := chatwoot.Directory{Inboxes: inboxes}
	s.logger.Debug("conversations loaded", zap.Int("count", len(convs)))
	return &snapshot{desk: desk, convs: convs, inboxNames: dir.InboxNames()}, nil
}

// Conversations returns the conversations created inside the period that
// match f.
func (s *AnalyticsService) Conversations(ctx context.Context, f analytics.Filter) ([]analytics.ConversationRow, error) {
	snap, err := s.load(ctx, f)
	if err != nil {
		return nil, err
	}
	rows, _ := analytics.Collect(snap.convs, f, snap.inboxNames, true)
	return rows, nil
}

// Analysis aggregates the messages of the conversations matching f.
func (s *AnalyticsService) Analysis(ctx context.Context, f analytics.Filter) (*analytics.Result, error) {
	ctx, span := tracing.Tracer("analytics").Start(ctx, "analytics.analysis")
	defer span.End()

	snap, err := s.load(ctx, f)
	if err != nil {
		return nil, err
	}
	res, err := analytics.NewAggregator(snap.desk, s.classifier, s.aggOpts...).Aggregate(ctx, snap.convs, f, snap.inboxNames)
	if err != nil {
		return nil, fmt.Errorf("aggregate conversations: %w", err)
	}
	span.SetAttributes(
		attribute.Int("conversations.total", res.TotalConversations),
		attribute.Int("conversations.failed", len(res.FailedConversations)),
	)
	if len(res.FailedConversations) > 0 {
		s.logger.Warn("analysis finished with failed conversations", zap.Int("failed", len(res.FailedConversations)))
	}
	return res, nil
}

// Messages lists the messages sent inside the period by the conversations
// matching q.
func (s *AnalyticsService) Messages(ctx context.Context, q analytics.MessageQuery) (*analytics.MessageListing, error) {
	snap, err := s.load(ctx, analytics.Filter{Start: q.Start, End: q.End})
	if err != nil {
		return nil, err
	}
	listing, err := analytics.NewAggregator(snap.desk, s.classifier, s.aggOpts...).ListMessages(ctx, snap.convs, q, snap.inboxNames)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return listing, nil
}

// InsightsContext aggregates f and renders the bounded text sent to the LLM.
func (s *AnalyticsService) InsightsContext(ctx context.Context, f analytics.Filter, limits analytics.ContextLimits) (*analytics.InsightsContext, error) {
	snap, err := s.load(ctx, f)
	if err != nil {
		return nil, err
	}
	res, err := analytics.NewAggregator(snap.desk, s.classifier, s.aggOpts...).Aggregate(ctx, snap.convs, f, snap.inboxNames)
	if err != nil {
		return nil, fmt.Errorf("aggregate conversations: %w", err)
	}
	built := analytics.BuildContext(res, f, snap.inboxNames, limits)
	return &built, nil
}
