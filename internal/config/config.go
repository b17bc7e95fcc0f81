// Package config provides environment configuration for the workspace binaries.
package config

import (
	"errors"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Storage
	DatabasePath string

	// JWT settings
	JWTSecret     string
	JWTExpiration time.Duration

	// LLM settings
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string

	// Helpdesk fallbacks used when the settings row is empty
	ChatwootURL       string
	ChatwootToken     string
	ChatwootAccountID string

	// Analytics
	BotSenderNames    []string
	BotSenderIDs      []string
	DirectoryCacheTTL time.Duration
	Timezone          string

	// Webhook bot
	AllowedInboxIDs []string
	DedupTTL        time.Duration
	ReplyWorkers    int
	BrazilHolidays  bool

	// Optional infrastructure
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string
	RedisURL     string

	// HTTP surface
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSOrigins       []string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from the environment, with an optional dotenv file
// (ENV_FILE, default ".env") supplying values that are not already set.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}
	v.AutomaticEnv()

	return &Config{
		// Server
		ServerPort:         v.GetString("PORT"),
		ServerReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
		ServerWriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),

		// Storage
		DatabasePath: v.GetString("DATABASE_PATH"),

		// JWT
		JWTSecret:     v.GetString("JWT_SECRET"),
		JWTExpiration: v.GetDuration("JWT_EXPIRATION"),

		// LLM
		OpenAIAPIKey:    v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:   v.GetString("OPENAI_BASE_URL"),
		AnthropicAPIKey: v.GetString("ANTHROPIC_API_KEY"),

		// Helpdesk
		ChatwootURL:       strings.TrimRight(v.GetString("CHATWOOT_URL"), "/"),
		ChatwootToken:     v.GetString("CHATWOOT_API_TOKEN"),
		ChatwootAccountID: v.GetString("CHATWOOT_ACCOUNT_ID"),

		// Analytics
		BotSenderNames:    ParseList(v.GetString("BOT_SENDER_NAMES")),
		BotSenderIDs:      ParseList(v.GetString("BOT_SENDER_IDS")),
		DirectoryCacheTTL: v.GetDuration("DIRECTORY_CACHE_TTL"),
		Timezone:          v.GetString("TIMEZONE"),

		// Webhook bot
		AllowedInboxIDs: ParseList(v.GetString("ALLOWED_INBOX_IDS")),
		DedupTTL:        v.GetDuration("DEDUP_TTL"),
		ReplyWorkers:    v.GetInt("REPLY_WORKERS"),
		BrazilHolidays:  v.GetBool("BUSINESS_HOLIDAYS_BR"),

		// Infrastructure
		NATSURL:      v.GetString("NATS_URL"),
		NATSCAFile:   v.GetString("NATS_CA_FILE"),
		NATSCertFile: v.GetString("NATS_CERT_FILE"),
		NATSKeyFile:  v.GetString("NATS_KEY_FILE"),
		NATSToken:    v.GetString("NATS_TOKEN"),
		RedisURL:     v.GetString("REDIS_URL"),

		// Rate limiting
		RateLimitRequests: v.GetInt("RATE_LIMIT_REQUESTS"),
		RateLimitWindow:   v.GetDuration("RATE_LIMIT_WINDOW"),
		CORSOrigins:       ParseList(v.GetString("CORS_ORIGINS")),

		// Logging
		LogLevel: v.GetString("LOG_LEVEL"),

		// Tracing
		TracingEndpoint: v.GetString("TRACING_ENDPOINT"),
		TracingEnabled:  v.GetBool("TRACING_ENABLED"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8000")
	v.SetDefault("SERVER_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 300*time.Second)
	v.SetDefault("DATABASE_PATH", "data/raw/bot_config.db")
	v.SetDefault("JWT_SECRET", "development-secret-change-in-production")
	v.SetDefault("JWT_EXPIRATION", 12*time.Hour)
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("DIRECTORY_CACHE_TTL", 5*time.Minute)
	v.SetDefault("TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("DEDUP_TTL", 24*time.Hour)
	v.SetDefault("REPLY_WORKERS", 4)
	v.SetDefault("BUSINESS_HOLIDAYS_BR", false)
	v.SetDefault("RATE_LIMIT_REQUESTS", 60)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TRACING_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_ENABLED", false)

	// Keys without defaults still need registering so AutomaticEnv resolves them.
	for _, key := range []string{
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY",
		"CHATWOOT_URL", "CHATWOOT_API_TOKEN", "CHATWOOT_ACCOUNT_ID",
		"BOT_SENDER_NAMES", "BOT_SENDER_IDS",
		"NATS_URL", "NATS_CA_FILE", "NATS_CERT_FILE", "NATS_KEY_FILE", "NATS_TOKEN",
		"REDIS_URL", "CORS_ORIGINS", "ALLOWED_INBOX_IDS",
	} {
		v.SetDefault(key, "")
	}
}

var listSeparator = regexp.MustCompile(`[;,]`)

// ParseList splits a ";" or "," separated value, dropping blanks.
func ParseList(value string) []string {
	var out []string
	for _, item := range listSeparator.Split(value, -1) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
