package nats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
)

func TestReplySubject(t *testing.T) {
	assert.Equal(t, "bot.replies.42", ReplySubject("42"))
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, Config{URL: "nats://127.0.0.1:1"}, logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to NATS")
}

func TestConnect_BadTLSFiles(t *testing.T) {
	_, err := Connect(context.Background(), Config{
		URL:      "nats://127.0.0.1:1",
		CAFile:   "/nonexistent/ca.pem",
		CertFile: "/nonexistent/cert.pem",
		KeyFile:  "/nonexistent/key.pem",
	}, logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to NATS")
}

func TestConfigTLS(t *testing.T) {
	assert.False(t, Config{CAFile: "ca.pem", CertFile: "cert.pem"}.tls())
	assert.True(t, Config{CAFile: "ca.pem", CertFile: "cert.pem", KeyFile: "key.pem"}.tls())
}

func TestClientPingWithoutConnection(t *testing.T) {
	c := &Client{logger: logger.NewNop()}
	assert.Error(t, c.Ping(context.Background()))
	c.Close()
}
