package analytics

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
)

type fakeFetcher struct {
	mu       sync.Mutex
	messages map[int64][]model.Message
	fail     map[int64]error
	calls    []int64
}

func (f *fakeFetcher) ListMessages(_ context.Context, id int64, _ time.Time) ([]model.Message, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	return f.messages[id], nil
}

func newMsg(id int, messageType any, sent time.Time, extra map[string]any) model.Message {
	raw := map[string]any{
		"id":           float64(id),
		"message_type": messageType,
		"created_at":   epoch(sent),
		"content":      "mensagem",
		"status":       "sent",
	}
	for k, v := range extra {
		raw[k] = v
	}
	return model.NewMessage(model.Record(raw))
}

func noPause(context.Context, time.Duration) error { return nil }

func newTestAggregator(fetcher MessageFetcher, opts ...AggregatorOption) *Aggregator {
	base := []AggregatorOption{
		WithPauseFunc(noPause),
		WithAggregatorLogger(logger.NewNop()),
	}
	return NewAggregator(fetcher, NewClassifier(nil, nil), append(base, opts...)...)
}

func botAndAgentDataset() ([]model.Conversation, *fakeFetcher) {
	convs := []model.Conversation{
		newConv(1, epoch(day(1, 9)), nil),
		newConv(2, epoch(day(1, 8)), map[string]any{
			"meta": map[string]any{"sender": map[string]any{"name": "Pedro", "phone_number": "+5531777770000"}},
		}),
	}
	fetcher := &fakeFetcher{messages: map[int64][]model.Message{
		1: {
			newMsg(10, float64(0), day(1, 9), nil),
			newMsg(11, float64(1), day(1, 10), map[string]any{"sender_type": "agentbot"}),
			newMsg(12, float64(1), day(1, 11), map[string]any{"sender_type": "user", "sender": map[string]any{"name": "Ana"}}),
		},
		2: {
			newMsg(20, float64(0), day(1, 8), nil),
			newMsg(21, float64(1), day(1, 9), map[string]any{"sender_type": "agentbot"}),
		},
	}}
	return convs, fetcher
}

func conversationIDs(res *Result) []int64 {
	var ids []int64
	for _, r := range res.Conversations {
		ids = append(ids, r.Conversation.ID)
	}
	return ids
}

func TestAggregate_RepeatedListingEntries(t *testing.T) {
	convs, fetcher := botAndAgentDataset()
	f := NewFilter(day(1, 0), day(2, 0))

	want, err := newTestAggregator(fetcher).Aggregate(context.Background(), convs, f, nil)
	require.NoError(t, err)

	_, fetcher = botAndAgentDataset()
	repeated := append(append([]model.Conversation{}, convs...), convs[0])
	got, err := newTestAggregator(fetcher).Aggregate(context.Background(), repeated, f, nil)
	require.NoError(t, err)

	assert.Equal(t, want.TotalConversations, got.TotalConversations)
	assert.Equal(t, 2, got.TotalConversations)
	assert.Equal(t, want.Received, got.Received)
	assert.Equal(t, want.Sent, got.Sent)
	assert.Len(t, got.Messages, len(want.Messages))
	assert.ElementsMatch(t, []int64{1, 2}, fetcher.calls)
}

func TestAggregate_ConversationTypeScenario(t *testing.T) {
	convs, fetcher := botAndAgentDataset()
	agg := newTestAggregator(fetcher)

	f := NewFilter(day(1, 0), day(2, 0))
	f.ConversationType = TypeBot
	res, err := agg.Aggregate(context.Background(), convs, f, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, conversationIDs(res))
	assert.Equal(t, 2, res.TotalConversations)
	assert.Equal(t, 2, res.Received)
	assert.Equal(t, 2, res.Sent, "agent reply is not part of the bot view")

	f.ConversationType = TypeAgent
	res, err = agg.Aggregate(context.Background(), convs, f, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, conversationIDs(res))
	assert.Equal(t, 1, res.Received)
	assert.Equal(t, 1, res.Sent)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, LabelCustomer, res.Messages[0].Author)
	assert.Equal(t, "Ana", res.Messages[1].Author)

	f.ConversationType = TypeAll
	res, err = agg.Aggregate(context.Background(), convs, f, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalConversations)
	assert.Equal(t, 2, res.Received)
	assert.Equal(t, 3, res.Sent)
	assert.Equal(t, 5, res.TotalMessages)
	assert.Equal(t, 2, res.UniqueContacts)
}

func TestAggregate_PrivateAndUnknownDirection(t *testing.T) {
	convs := []model.Conversation{newConv(1, epoch(day(1, 9)), nil)}
	fetcher := &fakeFetcher{messages: map[int64][]model.Message{
		1: {
			newMsg(1, float64(0), day(1, 9), map[string]any{"private": "true"}),
			newMsg(2, float64(1), day(1, 10), map[string]any{"private": true, "sender_type": "user"}),
			newMsg(3, float64(1), day(1, 11), map[string]any{"private": "false", "sender_type": "user"}),
			newMsg(4, float64(2), day(1, 12), nil),
		},
	}}

	res, err := newTestAggregator(fetcher).Aggregate(context.Background(), convs, NewFilter(day(1, 0), day(1, 0)), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Private)
	assert.Equal(t, 1, res.PrivateConversations)
	assert.Equal(t, 1, res.Received)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 4, res.TotalMessages)
	require.Len(t, res.Messages, 4)
	assert.Equal(t, DirectionUnknown, res.Messages[3].Direction)
}

func TestAggregate_UnparseableCreatedAtCountsButHasNoRows(t *testing.T) {
	convs := []model.Conversation{
		newConv(1, epoch(day(1, 9)), nil),
		newConv(2, "ontem", nil),
	}
	fetcher := &fakeFetcher{messages: map[int64][]model.Message{
		1: {newMsg(10, float64(0), day(1, 9), nil)},
		2: {newMsg(20, float64(0), day(1, 10), nil)},
	}}

	res, err := newTestAggregator(fetcher).Aggregate(context.Background(), convs, NewFilter(day(1, 0), day(1, 0)), nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, conversationIDs(res))
	assert.Equal(t, 2, res.Received)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, int64(1), res.Messages[0].ConversationID)
	assert.ElementsMatch(t, []int64{1, 2}, fetcher.calls)
}

func TestAggregate_MessageWindowAndStatuses(t *testing.T) {
	convs := []model.Conversation{newConv(1, epoch(day(1, 9)), nil)}
	fetcher := &fakeFetcher{messages: map[int64][]model.Message{
		1: {
			newMsg(1, float64(0), day(1, 9), map[string]any{"status": "read"}),
			newMsg(2, float64(0), day(1, 10), map[string]any{"status": "failed"}),
			newMsg(3, float64(0), day(3, 10), map[string]any{"status": "read"}),
			newMsg(4, float64(0), day(1, 11), map[string]any{"status": nil, "delivery_status": "read"}),
		},
	}}
	f := NewFilter(day(1, 0), day(1, 0))
	f.MessageStatuses = []string{"read"}

	res, err := newTestAggregator(fetcher).Aggregate(context.Background(), convs, f, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Received)

	f.MessageStatuses = []string{StatusAll, "read"}
	res, err = newTestAggregator(fetcher).Aggregate(context.Background(), convs, f, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Received, "Todos disables the status filter")
}

func TestAggregate_FailedConversationIsSkipped(t *testing.T) {
	convs, fetcher := botAndAgentDataset()
	fetcher.fail = map[int64]error{2: errors.New("boom")}

	res, err := newTestAggregator(fetcher).Aggregate(context.Background(), convs, NewFilter(day(1, 0), day(1, 0)), nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, res.FailedConversations)
	assert.Equal(t, 1, res.Received)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 2, res.TotalConversations, "strict rows stay when type is Todos")
}

func TestAggregate_SortedAndIdempotent(t *testing.T) {
	convs := []model.Conversation{
		newConv(30, epoch(day(1, 12)), nil),
		newConv(4, epoch(day(1, 8)), nil),
		newConv(12, epoch(day(1, 8)), nil),
	}
	fetcher := &fakeFetcher{messages: map[int64][]model.Message{
		30: {newMsg(3, float64(1), day(1, 14), nil), newMsg(2, float64(0), day(1, 13), nil)},
		4:  {newMsg(5, float64(0), day(1, 9), nil)},
		12: {newMsg(8, float64(0), day(1, 10), nil), newMsg(9, float64(0), day(1, 9), nil)},
	}}
	agg := newTestAggregator(fetcher)
	f := NewFilter(day(1, 0), day(1, 0))

	first, err := agg.Aggregate(context.Background(), convs, f, nil)
	require.NoError(t, err)
	second, err := agg.Aggregate(context.Background(), convs, f, nil)
	require.NoError(t, err)

	var order []int64
	for _, m := range first.Messages {
		order = append(order, m.ConversationID)
	}
	// Same start instant: "12" sorts before "4" as text.
	assert.Equal(t, []int64{12, 12, 4, 30, 30}, order)
	assert.True(t, first.Messages[0].SentAt.Before(first.Messages[1].SentAt))
	assert.True(t, first.Messages[3].SentAt.Before(first.Messages[4].SentAt))

	var a, b bytes.Buffer
	require.NoError(t, MessageTable(first.Messages).WriteCSV(&a))
	require.NoError(t, MessageTable(second.Messages).WriteCSV(&b))
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, first.Summary, second.Summary)
}

func TestAggregate_BatchesWithPause(t *testing.T) {
	var convs []model.Conversation
	messages := map[int64][]model.Message{}
	for i := 1; i <= 7; i++ {
		convs = append(convs, newConv(i, epoch(day(1, 9)), nil))
		messages[int64(i)] = []model.Message{newMsg(i*10, float64(0), day(1, 10), nil)}
	}
	fetcher := &fakeFetcher{messages: messages}

	var mu sync.Mutex
	var pauses []time.Duration
	agg := newTestAggregator(fetcher, WithPauseFunc(func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		pauses = append(pauses, d)
		return nil
	}))

	res, err := agg.Aggregate(context.Background(), convs, NewFilter(day(1, 0), day(1, 0)), nil)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Received)
	assert.Len(t, fetcher.calls, 7)

	// Three workers give batches of six, so one pause separates two batches.
	require.Len(t, pauses, 1)
	assert.GreaterOrEqual(t, pauses[0], 400*time.Millisecond)
	assert.Less(t, pauses[0], 600*time.Millisecond)
}

func TestAggregate_CancelledContext(t *testing.T) {
	convs, fetcher := botAndAgentDataset()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestAggregator(fetcher).Aggregate(ctx, convs, NewFilter(day(1, 0), day(1, 0)), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregate_NoStrictRowsSkipsFetch(t *testing.T) {
	convs, fetcher := botAndAgentDataset()

	res, err := newTestAggregator(fetcher).Aggregate(context.Background(), convs, NewFilter(day(10, 0), day(11, 0)), nil)
	require.NoError(t, err)
	assert.Zero(t, res.TotalConversations)
	assert.Empty(t, fetcher.calls)
}
