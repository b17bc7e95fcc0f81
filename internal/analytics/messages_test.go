package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
)

func audioMsg(id int, content string, transcription string) model.Message {
	att := map[string]any{"file_type": "audio", "data_url": "https://cdn.example.com/a.ogg"}
	if transcription != "" {
		att["meta"] = map[string]any{"transcription": transcription}
	}
	return newMsg(id, float64(0), day(1, 9), map[string]any{
		"content":     content,
		"attachments": []any{att},
	})
}

func TestListMessages_AudioAndTranscription(t *testing.T) {
	convs := []model.Conversation{newConv(1, epoch(day(1, 9)), nil)}
	fetcher := &fakeFetcher{messages: map[int64][]model.Message{
		1: {
			audioMsg(1, "", "quero cancelar"),
			audioMsg(2, "segue áudio", "bom dia"),
			newMsg(3, float64(1), day(1, 10), nil),
			newMsg(4, float64(0), day(5, 10), nil),
			model.NewMessage(model.Record{"id": float64(5), "message_type": float64(0), "content": "sem data"}),
		},
	}}
	agg := newTestAggregator(fetcher)
	q := MessageQuery{Start: day(1, 0), End: day(1, 23)}

	listing, err := agg.ListMessages(context.Background(), convs, q, map[int64]string{10: "WhatsApp"})
	require.NoError(t, err)
	require.Len(t, listing.Records, 3, "out-of-range and undated messages are dropped")

	first := listing.Records[0]
	assert.Equal(t, "[transc.]: quero cancelar", first["content"])
	assert.Equal(t, "audio", first["midia"])
	assert.Equal(t, "WhatsApp", first["inbox_id"])
	assert.Equal(t, int64(1), first["conversation_id"])
	assert.Equal(t, "segue áudio\n[transc.]: bom dia", listing.Records[1]["content"])
	assert.Equal(t, "", listing.Records[2]["midia"])

	q.Audio = AudioOnly
	listing, err = agg.ListMessages(context.Background(), convs, q, nil)
	require.NoError(t, err)
	assert.Len(t, listing.Records, 2)

	q.Audio = AudioNone
	listing, err = agg.ListMessages(context.Background(), convs, q, nil)
	require.NoError(t, err)
	require.Len(t, listing.Records, 1)
	assert.Equal(t, "10", listing.Records[0]["inbox_id"])
}

func TestListMessages_NonTemporalFiltersOnly(t *testing.T) {
	convs := []model.Conversation{
		newConv(1, epoch(day(20, 9)), nil),
		newConv(2, epoch(day(1, 9)), map[string]any{"inbox_id": float64(11)}),
	}
	fetcher := &fakeFetcher{messages: map[int64][]model.Message{
		1: {newMsg(1, float64(0), day(1, 9), map[string]any{"status": "read"})},
		2: {newMsg(2, float64(0), day(1, 9), nil)},
	}}
	q := MessageQuery{Start: day(1, 0), End: day(1, 23), InboxIDs: []int64{10}, Status: "read"}

	listing, err := newTestAggregator(fetcher).ListMessages(context.Background(), convs, q, nil)
	require.NoError(t, err)
	require.Len(t, listing.Records, 1)
	assert.Equal(t, int64(1), listing.Records[0]["conversation_id"], "conversation creation date does not restrict the listing")
	assert.Equal(t, []int64{1}, fetcher.calls)
}

func TestListingColumns(t *testing.T) {
	cols := ListingColumns([]map[string]any{
		{"zeta": 1, "content": "a", "conversation_id": 1},
		{"alpha": 2, "midia": ""},
	})
	assert.Equal(t, []string{"conversation_id", "midia", "content", "alpha", "zeta"}, cols)
	assert.Equal(t, []string{"zeta", "content"}, SelectColumns(cols, []string{"zeta", " content ", "nope"}))
	assert.Equal(t, cols, SelectColumns(cols, []string{"nope"}))
}
