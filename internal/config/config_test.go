package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"Galo Bot", []string{"Galo Bot"}},
		{"a; b ,c", []string{"a", "b", "c"}},
		{" ; ,", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseList(tt.in), tt.in)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.ServerPort)
	assert.Empty(t, cfg.AllowedInboxIDs, "every inbox is served unless restricted")
	assert.Equal(t, 5*time.Minute, cfg.DirectoryCacheTTL)
	assert.Equal(t, "America/Sao_Paulo", cfg.Timezone)
	assert.Equal(t, 4, cfg.ReplyWorkers)
}

func TestLoad_AllowedInboxIDs(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("ALLOWED_INBOX_IDS", "88473; 12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"88473", "12"}, cfg.AllowedInboxIDs)
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	content := "OPENAI_API_KEY=from-file\nBOT_SENDER_NAMES=Galo Bot;Assistente\nCHATWOOT_URL=https://chat.example.com/\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Setenv("ENV_FILE", envFile)
	t.Setenv("OPENAI_API_KEY", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.OpenAIAPIKey)
	assert.Equal(t, []string{"Galo Bot", "Assistente"}, cfg.BotSenderNames)
	assert.Equal(t, "https://chat.example.com", cfg.ChatwootURL)
}
