package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &Logger{Logger: zap.New(core)}, logs
}

func TestWithConversation(t *testing.T) {
	log, logs := observed()

	log.WithConversation("42", "").Info("reply sent")
	log.WithConversation("42", "7").Info("reply sent")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{"conversation_id": "42"}, entries[0].ContextMap())
	assert.Equal(t, map[string]interface{}{"conversation_id": "42", "inbox_id": "7"}, entries[1].ContextMap())
}

func TestWithRequestOmitsAnonymousSubject(t *testing.T) {
	log, logs := observed()

	log.WithRequest("abc", "").Info("request")
	log.WithRequest("abc", "dashboard").Info("request")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0].ContextMap(), "subject")
	assert.Equal(t, "dashboard", entries[1].ContextMap()["subject"])
}

func TestNewFallsBackToInfo(t *testing.T) {
	log, err := New("chatty")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
}

func TestSetGlobal(t *testing.T) {
	prev := Global()
	defer SetGlobal(prev)

	nop := NewNop()
	SetGlobal(nop)
	assert.Same(t, nop, Global())
}
