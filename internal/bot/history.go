package bot

import (
	"sync"

	"github.com/capitalize-ai/supportbot-workspace/internal/llm"
)

// DefaultHistoryTurns bounds the remembered user and assistant turns per
// conversation.
const DefaultHistoryTurns = 40

// History keeps the chat transcript of each conversation in memory. The
// system prompt fixed on the first turn stays at the head of the transcript
// until the process restarts.
type History struct {
	maxTurns int

	mu    sync.Mutex
	convs map[string][]llm.ChatMessage
}

// NewHistory creates a history bounded to maxTurns non-system messages.
func NewHistory(maxTurns int) *History {
	if maxTurns <= 0 {
		maxTurns = DefaultHistoryTurns
	}
	return &History{maxTurns: maxTurns, convs: make(map[string][]llm.ChatMessage)}
}

// Begin returns a copy of the transcript for conversationID with the user
// turn appended, starting it with systemPrompt when it is new. The turn is
// recorded.
func (h *History) Begin(conversationID, systemPrompt, userTurn string) []llm.ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs, ok := h.convs[conversationID]
	if !ok {
		msgs = []llm.ChatMessage{{Role: llm.RoleSystem, Content: systemPrompt}}
	}
	msgs = h.trim(append(msgs, llm.ChatMessage{Role: llm.RoleUser, Content: userTurn}))
	h.convs[conversationID] = msgs
	return append([]llm.ChatMessage(nil), msgs...)
}

// Reply records the assistant answer.
func (h *History) Reply(conversationID, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs := append(h.convs[conversationID], llm.ChatMessage{Role: llm.RoleAssistant, Content: content})
	h.convs[conversationID] = h.trim(msgs)
}

// Len returns the number of messages stored for a conversation.
func (h *History) Len(conversationID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.convs[conversationID])
}

func (h *History) trim(msgs []llm.ChatMessage) []llm.ChatMessage {
	if len(msgs) == 0 || msgs[0].Role != llm.RoleSystem || len(msgs)-1 <= h.maxTurns {
		return msgs
	}
	drop := len(msgs) - 1 - h.maxTurns
	out := make([]llm.ChatMessage, 0, h.maxTurns+1)
	out = append(out, msgs[0])
	return append(out, msgs[1+drop:]...)
}
