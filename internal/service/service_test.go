package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/supportbot-workspace/internal/analytics"
	"github.com/capitalize-ai/supportbot-workspace/internal/chatwoot"
	"github.com/capitalize-ai/supportbot-workspace/internal/llm"
	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/store"
	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
)

type fakeDesk struct {
	convs    []model.Conversation
	messages map[int64][]model.Message
	inboxes  []chatwoot.Entry
	agents   []chatwoot.Entry
	teams    []chatwoot.Entry
	live     map[string]any
	grouped  map[string][]model.Record
	reports  map[int64][]chatwoot.ReportPoint
	queries  []chatwoot.ReportQuery
}

func (d *fakeDesk) ListMessages(_ context.Context, id int64, _ time.Time) ([]model.Message, error) {
	return d.messages[id], nil
}

func (d *fakeDesk) ListConversations(context.Context, chatwoot.ConversationQuery) ([]model.Conversation, error) {
	return d.convs, nil
}

func (d *fakeDesk) Inboxes(context.Context) ([]chatwoot.Entry, error) { return d.inboxes, nil }
func (d *fakeDesk) Agents(context.Context) ([]chatwoot.Entry, error)  { return d.agents, nil }
func (d *fakeDesk) Teams(context.Context) ([]chatwoot.Entry, error)   { return d.teams, nil }

func (d *fakeDesk) LiveConversationMetrics(context.Context) (map[string]any, error) {
	return d.live, nil
}

func (d *fakeDesk) GroupedConversationMetrics(_ context.Context, groupBy string) ([]model.Record, error) {
	return d.grouped[groupBy], nil
}

func (d *fakeDesk) ConversationReports(_ context.Context, q chatwoot.ReportQuery) ([]chatwoot.ReportPoint, error) {
	d.queries = append(d.queries, q)
	return d.reports[q.ID], nil
}

type fakeOpener struct {
	desk  *fakeDesk
	err   error
	opens int
}

func (o *fakeOpener) Open(context.Context) (Helpdesk, error) {
	o.opens++
	if o.err != nil {
		return nil, o.err
	}
	return o.desk, nil
}

func localDay(d, hour int) time.Time {
	return time.Date(2024, time.March, d, hour, 0, 0, 0, timestamp.Local())
}

func conversation(id int, created time.Time) model.Conversation {
	return model.NewConversation(model.Record{
		"id":         float64(id),
		"inbox_id":   float64(7),
		"status":     "open",
		"created_at": float64(created.Unix()),
		"meta": map[string]any{
			"sender": map[string]any{"name": "Joana", "phone_number": "+5511988887777"},
		},
	})
}

func message(id int, messageType float64, sent time.Time, senderType string) model.Message {
	raw := model.Record{
		"id":           float64(id),
		"message_type": messageType,
		"created_at":   float64(sent.Unix()),
		"content":      "olá",
		"status":       "sent",
	}
	if senderType != "" {
		raw["sender_type"] = senderType
	}
	return model.NewMessage(raw)
}

func testDesk() *fakeDesk {
	return &fakeDesk{
		convs: []model.Conversation{
			conversation(1, localDay(4, 9)),
			conversation(2, localDay(1, 9)),
		},
		messages: map[int64][]model.Message{
			1: {
				message(10, 0, localDay(4, 9), ""),
				message(11, 1, localDay(4, 10), "agentbot"),
			},
			2: {message(20, 0, localDay(1, 9), "")},
		},
		inboxes: []chatwoot.Entry{{ID: 8, Name: "WhatsApp"}, {ID: 7, Name: "Site"}},
		agents:  []chatwoot.Entry{{ID: 2, Name: "Bruno"}, {ID: 1, Name: "Ana"}},
		teams:   []chatwoot.Entry{{ID: 3, Name: "Vendas"}},
	}
}

func newTestAnalytics(opener HelpdeskOpener) *AnalyticsService {
	noPause := analytics.WithPauseFunc(func(context.Context, time.Duration) error { return nil })
	return NewAnalyticsService(opener, analytics.NewClassifier(nil, nil), logger.NewNop(), noPause)
}

func TestAnalytics_LookupsAreSorted(t *testing.T) {
	svc := newTestAnalytics(&fakeOpener{desk: testDesk()})

	dir, err := svc.Lookups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Site", dir.Inboxes[0].Name)
	assert.Equal(t, "Ana", dir.Agents[0].Name)
	assert.Len(t, dir.Teams, 1)
}

func TestAnalytics_ConversationsKeepsCreatedRange(t *testing.T) {
	svc := newTestAnalytics(&fakeOpener{desk: testDesk()})

	rows, err := svc.Conversations(context.Background(), analytics.NewFilter(localDay(3, 0), localDay(5, 0)))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Conversation.ID)
}

func TestAnalytics_InvalidPeriodSkipsHelpdesk(t *testing.T) {
	opener := &fakeOpener{desk: testDesk()}
	svc := newTestAnalytics(opener)

	_, err := svc.Conversations(context.Background(), analytics.NewFilter(localDay(5, 0), localDay(3, 0)))
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	assert.Zero(t, opener.opens)
}

func TestAnalytics_NotConfigured(t *testing.T) {
	svc := newTestAnalytics(&fakeOpener{err: ErrNotConfigured})

	_, err := svc.Analysis(context.Background(), analytics.NewFilter(localDay(3, 0), localDay(5, 0)))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAnalytics_Analysis(t *testing.T) {
	svc := newTestAnalytics(&fakeOpener{desk: testDesk()})

	res, err := svc.Analysis(context.Background(), analytics.NewFilter(localDay(3, 0), localDay(5, 0)))
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalConversations)
	assert.Equal(t, 1, res.Received)
	assert.Equal(t, 1, res.Sent)
	assert.Empty(t, res.FailedConversations)
}

func TestReports_ConversationsPerDayZeroFills(t *testing.T) {
	desk := testDesk()
	desk.reports = map[int64][]chatwoot.ReportPoint{
		0: {{Timestamp: localDay(2, 0).Unix(), Value: 4}},
	}
	svc := newTestAnalytics(&fakeOpener{desk: desk})

	days, err := svc.ConversationsPerDay(context.Background(), ReportRange{From: localDay(1, 0), To: localDay(3, 0)})
	require.NoError(t, err)
	assert.Equal(t, []DayCount{
		{Date: "01/03/2024", Conversations: 0},
		{Date: "02/03/2024", Conversations: 4},
		{Date: "03/03/2024", Conversations: 0},
	}, days)
	require.Len(t, desk.queries, 1)
	assert.Equal(t, "account", desk.queries[0].Type)
	assert.Equal(t, "day", desk.queries[0].GroupBy)
}

func TestReports_InboxSeriesAreMerged(t *testing.T) {
	desk := testDesk()
	ts := localDay(2, 0).Unix()
	desk.reports = map[int64][]chatwoot.ReportPoint{
		7: {{Timestamp: ts, Value: 2}},
		8: {{Timestamp: ts, Value: 3}},
	}
	svc := newTestAnalytics(&fakeOpener{desk: desk})

	days, err := svc.ConversationsPerDay(context.Background(), ReportRange{
		From: localDay(2, 0), To: localDay(2, 0), InboxIDs: []int64{7, 8},
	})
	require.NoError(t, err)
	assert.Equal(t, []DayCount{{Date: "02/03/2024", Conversations: 5}}, days)
	require.Len(t, desk.queries, 2)
	assert.Equal(t, "inbox", desk.queries[1].Type)
}

func TestReports_HourlyAndInvalidRange(t *testing.T) {
	desk := testDesk()
	desk.reports = map[int64][]chatwoot.ReportPoint{
		0: {{Timestamp: localDay(2, 10).Unix(), Value: 6}},
	}
	svc := newTestAnalytics(&fakeOpener{desk: desk})

	buckets, err := svc.Hourly(context.Background(), ReportRange{From: localDay(1, 0), To: localDay(2, 0)})
	require.NoError(t, err)
	assert.NotEmpty(t, buckets)
	assert.Equal(t, "hour", desk.queries[0].GroupBy)

	_, err = svc.Hourly(context.Background(), ReportRange{From: localDay(3, 0), To: localDay(2, 0)})
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestReports_LiveCountsTeamsInService(t *testing.T) {
	desk := testDesk()
	desk.live = map[string]any{"open": float64(3)}
	desk.grouped = map[string][]model.Record{
		"team_id":     {{"team_id": float64(1)}, {"team_id": float64(2)}, {"team_id": nil}},
		"assignee_id": {{"assignee_id": float64(9)}},
	}
	svc := newTestAnalytics(&fakeOpener{desk: desk})

	live, err := svc.LiveReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, live.TeamsInService)
	assert.Len(t, live.AgentMetrics, 1)
	assert.Equal(t, float64(3), live.Metrics["open"])
}

type fakeLLM struct {
	reply string
	err   error
	reqs  []*llm.CompletionRequest
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{
		Content: f.reply,
		Model:   req.Model,
		Usage:   &llm.Usage{InputTokens: 1000, OutputTokens: 1000, TotalTokens: 2000},
	}, nil
}

type staticSettings struct{ s *model.Settings }

func (s staticSettings) LoadOrDefault(context.Context) (*model.Settings, error) { return s.s, nil }

type promptMap map[int64]*model.InsightPrompt

func (p promptMap) Get(_ context.Context, id int64) (*model.InsightPrompt, error) {
	if prompt, ok := p[id]; ok {
		return prompt, nil
	}
	return nil, store.ErrNotFound
}

func newTestInsights(client *fakeLLM, llmErr error) *InsightsService {
	settings := model.DefaultSettings()
	settings.Model = "gpt-5-mini"
	cfg := &settings
	prompts := promptMap{1: {ID: 1, Name: "Resumo", PromptText: "Resuma as conversas."}}
	factory := func(*model.Settings) (llm.Client, error) {
		if llmErr != nil {
			return nil, llmErr
		}
		return client, nil
	}
	return NewInsightsService(newTestAnalytics(&fakeOpener{desk: testDesk()}), prompts, staticSettings{cfg}, factory, logger.NewNop())
}

func TestInsights_RunRendersMarkdown(t *testing.T) {
	client := &fakeLLM{reply: "## Destaques\n\n- **Tempo** de resposta bom"}
	svc := newTestInsights(client, nil)

	res, err := svc.Run(context.Background(), InsightRequest{
		Filter:   analytics.NewFilter(localDay(3, 0), localDay(5, 0)),
		PromptID: 1,
		Limits:   analytics.DefaultContextLimits(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Resumo", res.PromptName)
	assert.Contains(t, res.HTML, "<h2>Destaques</h2>")
	assert.Contains(t, res.HTML, "<strong>Tempo</strong>")
	require.NotNil(t, res.CostEstimatedUSD)
	assert.Greater(t, *res.CostEstimatedUSD, 0.0)

	require.Len(t, client.reqs, 1)
	msgs := client.reqs[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, "Resuma as conversas.", msgs[0].Content)
	assert.Equal(t, res.Context.Text, msgs[1].Content)
}

func TestInsights_Errors(t *testing.T) {
	f := analytics.NewFilter(localDay(3, 0), localDay(5, 0))

	_, err := newTestInsights(&fakeLLM{}, nil).Run(context.Background(), InsightRequest{Filter: f, PromptText: "  "})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = newTestInsights(&fakeLLM{}, nil).Run(context.Background(), InsightRequest{Filter: f, PromptID: 99})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = newTestInsights(nil, ErrNotConfigured).Run(context.Background(), InsightRequest{Filter: f, PromptText: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	upstream := errors.New("boom")
	_, err = newTestInsights(&fakeLLM{err: upstream}, nil).Run(context.Background(), InsightRequest{Filter: f, PromptText: "x"})
	assert.ErrorIs(t, err, ErrUpstreamLLM)
	assert.ErrorIs(t, err, upstream)
}

type fakeValidator struct {
	modelErr, storeErr error
}

func (v fakeValidator) CheckModel(context.Context, string) error       { return v.modelErr }
func (v fakeValidator) CheckVectorStore(context.Context, string) error { return v.storeErr }

type fakePinger struct {
	status int
	err    error
}

func (p fakePinger) Ping(context.Context) (int, error) { return p.status, p.err }

func newTestSettingsService(t *testing.T, v llm.Validator, p Pinger) (*SettingsService, *int) {
	t.Helper()
	db := store.NewTestDB(t)
	invalidations := 0
	validator := func() (llm.Validator, error) {
		if v == nil {
			return nil, ErrNotConfigured
		}
		return v, nil
	}
	helpdesk := func(*model.Settings) (Pinger, error) {
		if p == nil {
			return nil, ErrNotConfigured
		}
		return p, nil
	}
	svc := NewSettingsService(store.NewSettingsRepo(db.DB), validator, helpdesk, func() { invalidations++ }, logger.NewNop())
	return svc, &invalidations
}

func TestSettings_SaveNormalizes(t *testing.T) {
	svc, invalidations := newTestSettingsService(t, nil, nil)
	ctx := context.Background()

	s := model.DefaultSettings()
	s.Provider = " Anthropic "
	s.ChatwootURL = "https://chat.example.com/ "
	require.NoError(t, svc.Save(ctx, &s))
	assert.Equal(t, 1, *invalidations)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderAnthropic, got.Provider)
	assert.Equal(t, "https://chat.example.com", got.ChatwootURL)

	require.NoError(t, svc.SetBotEnabled(ctx, false))
	got, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.False(t, got.BotEnabled)
}

func TestSettings_SaveRejectsBadInput(t *testing.T) {
	svc, invalidations := newTestSettingsService(t, nil, nil)

	s := model.DefaultSettings()
	s.Provider = "gemini"
	assert.ErrorIs(t, svc.Save(context.Background(), &s), ErrInvalidRequest)

	s = model.DefaultSettings()
	s.Schedule["2"] = model.DaySchedule{Enabled: true, Start: 18, End: 9}
	assert.ErrorIs(t, svc.Save(context.Background(), &s), ErrInvalidRequest)
	assert.Zero(t, *invalidations)
}

func TestSettings_Validate(t *testing.T) {
	s := model.DefaultSettings()
	s.Provider = model.ProviderOpenAI
	s.Model = "gpt-5-mini"
	s.VectorStoreID = "vs_123"

	svc, _ := newTestSettingsService(t, fakeValidator{storeErr: errors.New("404")}, fakePinger{status: 200})
	results := svc.Validate(context.Background(), &s)
	require.Len(t, results, 3)
	assert.Equal(t, ValidationResult{"Modelo LLM", StatusSuccess, "Consegui acessar o modelo 'gpt-5-mini'."}, results[0])
	assert.Equal(t, "Vector Store", results[1].Name)
	assert.Equal(t, StatusError, results[1].Status)
	assert.Equal(t, ValidationResult{"Chatwoot API", StatusSuccess, "Chatwoot respondeu 200."}, results[2])
}

func TestSettings_ValidateWarnings(t *testing.T) {
	s := model.DefaultSettings()
	s.Provider = model.ProviderAnthropic

	svc, _ := newTestSettingsService(t, nil, nil)
	results := svc.Validate(context.Background(), &s)
	require.Len(t, results, 2)
	assert.Equal(t, StatusWarning, results[0].Status)
	assert.Contains(t, results[0].Message, "anthropic")
	assert.Equal(t, StatusWarning, results[1].Status)

	s.Provider = model.ProviderOpenAI
	s.Model = "modelo-sem-preco"
	upstream := &chatwoot.FetchError{Op: "ping", StatusCode: 401, Body: "unauthorized"}
	svc, _ = newTestSettingsService(t, nil, fakePinger{err: upstream})
	results = svc.Validate(context.Background(), &s)
	require.Len(t, results, 3)
	assert.Contains(t, results[0].Message, "não possui preço cadastrado")
	assert.Contains(t, results[1].Message, "OPENAI_API_KEY")
	assert.Equal(t, ValidationResult{"Chatwoot API", StatusError, "Chatwoot respondeu 401: unauthorized"}, results[2])
}
