package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewOpenAIClient("sk-test", srv.URL+"/v1")
	require.NoError(t, err)
	return c
}

func TestOpenAIClient_ChatCompletion(t *testing.T) {
	var got map[string]any
	c := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"gpt-4.1-mini","choices":[{"index":0,"message":{"role":"assistant","content":" Olá! "},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	})

	resp, err := c.Complete(context.Background(), &CompletionRequest{
		Model:       "gpt-4.1-mini",
		Messages:    []ChatMessage{{Role: RoleSystem, Content: "Seja breve."}, {Role: RoleUser, Content: "Oi"}},
		Temperature: TemperatureFor("gpt-4.1-mini"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Olá!", resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	assert.InDelta(t, 0.3, got["temperature"], 1e-6)
	assert.Len(t, got["messages"], 2)
}

func TestOpenAIClient_EmptyChoice(t *testing.T) {
	c := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  "}}]}`))
	})
	_, err := c.Complete(context.Background(), &CompletionRequest{Messages: []ChatMessage{{Role: RoleUser, Content: "Oi"}}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIClient_ResponsesWithFileSearch(t *testing.T) {
	var got map[string]any
	c := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"gpt-5-mini","output":[{"type":"file_search_call"},{"type":"message","content":[{"type":"output_text","text":"Segue o horário."}]}],"usage":{"input_tokens":100,"output_tokens":20,"total_tokens":120}}`))
	})

	resp, err := c.Complete(context.Background(), &CompletionRequest{
		Model:         "gpt-5-mini",
		Messages:      []ChatMessage{{Role: RoleUser, Content: "Qual o horário?"}},
		Temperature:   TemperatureFor("gpt-5-mini"),
		VectorStoreID: "vs_123",
	})
	require.NoError(t, err)
	assert.Equal(t, "Segue o horário.", resp.Content)
	assert.Equal(t, 120, resp.Usage.TotalTokens)

	_, hasTemperature := got["temperature"]
	assert.False(t, hasTemperature, "gpt-5 models reject temperature")
	tools := got["tools"].([]any)
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]any)
	assert.Equal(t, "file_search", tool["type"])
	assert.Equal(t, []any{"vs_123"}, tool["vector_store_ids"])
}

func TestResponsesText_ObjectValue(t *testing.T) {
	var r responsesResponse
	require.NoError(t, json.Unmarshal([]byte(`{"output":[{"content":[{"text":{"value":" ok "}}]}]}`), &r))
	assert.Equal(t, "ok", r.text())

	r = responsesResponse{OutputText: "direct"}
	assert.Equal(t, "direct", r.text())
}

func TestOpenAIClient_Moderate(t *testing.T) {
	c := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/moderations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"modr-1","model":"omni-moderation-latest","results":[{"flagged":true,"categories":{"violence":true}}]}`))
	})

	res, err := c.Moderate(context.Background(), "texto")
	require.NoError(t, err)
	assert.True(t, res.Flagged)
	assert.Equal(t, []string{"violence"}, res.Categories)
	assert.Contains(t, res.Details(), `"source":"vendor"`)
}

func TestOpenAIClient_Checks(t *testing.T) {
	c := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/models/gpt-4o":
			w.Write([]byte(`{"id":"gpt-4o","object":"model"}`))
		case "/v1/vector_stores/vs_ok":
			assert.Equal(t, "assistants=v2", r.Header.Get("OpenAI-Beta"))
			w.Write([]byte(`{"id":"vs_ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"message":"not found"}}`))
		}
	})
	ctx := context.Background()

	assert.NoError(t, c.CheckModel(ctx, "gpt-4o"))
	assert.Error(t, c.CheckModel(ctx, "gpt-unknown"))
	assert.NoError(t, c.CheckVectorStore(ctx, "vs_ok"))
	err := c.CheckVectorStore(ctx, "vs_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(ProviderOpenAI, Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewClient("mistral", Config{OpenAIAPIKey: "k"})
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	c, err := NewClient(ProviderAnthropic, Config{AnthropicAPIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())
}

func TestTemperatureFor(t *testing.T) {
	assert.Nil(t, TemperatureFor("GPT-5-mini"))
	require.NotNil(t, TemperatureFor("gpt-4o"))
	assert.Equal(t, 0.3, *TemperatureFor("gpt-4o"))
}

func TestEstimateCost(t *testing.T) {
	cost, ok := EstimateCost("GPT-4.1-mini", &Usage{InputTokens: 1000, OutputTokens: 500})
	require.True(t, ok)
	assert.InDelta(t, 0.0012, cost, 1e-9)

	cost, ok = EstimateCost("gpt-4o-mini", &Usage{InputTokens: 7, OutputTokens: 3})
	require.True(t, ok)
	assert.Equal(t, 0.000003, cost)

	_, ok = EstimateCost("unknown", &Usage{InputTokens: 1})
	assert.False(t, ok)
	_, ok = EstimateCost("gpt-4o", nil)
	assert.False(t, ok)
}

func TestCustomTermHit(t *testing.T) {
	term, ok := CustomTermHit("Isso é um GOLPE!", []string{" ", "fraude", "golpe"})
	assert.True(t, ok)
	assert.Equal(t, "golpe", term)

	_, ok = CustomTermHit("tudo certo", []string{"golpe"})
	assert.False(t, ok)
	_, ok = CustomTermHit("", []string{"golpe"})
	assert.False(t, ok)
}

func TestFoldSystem(t *testing.T) {
	turns := foldSystem([]ChatMessage{
		{Role: RoleSystem, Content: "Regras"},
		{Role: RoleUser, Content: "Oi"},
		{Role: RoleAssistant, Content: "Olá"},
		{Role: RoleUser, Content: "Tchau"},
	})
	require.Len(t, turns, 3)
	assert.Equal(t, "Regras\n\nOi", turns[0].Content)
	assert.Equal(t, "Tchau", turns[2].Content)

	turns = foldSystem([]ChatMessage{{Role: RoleSystem, Content: "Só regras"}})
	assert.Equal(t, []ChatMessage{{Role: RoleUser, Content: "Só regras"}}, turns)
}
