package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/supportbot-workspace/internal/chatwoot"
	"github.com/capitalize-ai/supportbot-workspace/internal/llm"
	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
)

// Validation statuses.
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
)

// ValidationResult is one check run after saving settings.
type ValidationResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SettingsStore persists the settings row.
type SettingsStore interface {
	SettingsLoader
	Save(ctx context.Context, s *model.Settings) error
	SetBotEnabled(ctx context.Context, enabled bool) error
}

// Pinger checks that the helpdesk answers.
type Pinger interface {
	Ping(ctx context.Context) (int, error)
}

// SettingsService reads, saves and validates the bot settings.
type SettingsService struct {
	store      SettingsStore
	validator  func() (llm.Validator, error)
	helpdesk   func(s *model.Settings) (Pinger, error)
	invalidate func()
	logger     *logger.Logger
}

// NewSettingsService creates a new settings service. validator builds the
// OpenAI checker; helpdesk builds a client for the settings being validated;
// invalidate, when set, drops cached helpdesk lookups after a save.
func NewSettingsService(store SettingsStore, validator func() (llm.Validator, error), helpdesk func(*model.Settings) (Pinger, error), invalidate func(), log *logger.Logger) *SettingsService {
	return &SettingsService{
		store:      store,
		validator:  validator,
		helpdesk:   helpdesk,
		invalidate: invalidate,
		logger:     log.Named("settings"),
	}
}

// Get returns the stored settings or the defaults.
func (s *SettingsService) Get(ctx context.Context) (*model.Settings, error) {
	return s.store.LoadOrDefault(ctx)
}

// Save normalizes and stores settings.
func (s *SettingsService) Save(ctx context.Context, settings *model.Settings) error {
	settings.Provider = strings.ToLower(strings.TrimSpace(settings.Provider))
	if settings.Provider == "" {
		settings.Provider = model.ProviderOpenAI
	}
	if settings.Provider != model.ProviderOpenAI && settings.Provider != model.ProviderAnthropic {
		return fmt.Errorf("%w: provider %q", ErrInvalidRequest, settings.Provider)
	}
	settings.ChatwootURL = strings.TrimRight(strings.TrimSpace(settings.ChatwootURL), "/")
	for key, day := range settings.Schedule {
		if day.Start < 0 || day.End > 24 || (day.Enabled && day.Start >= day.End) {
			return fmt.Errorf("%w: horário inválido para o dia %s", ErrInvalidRequest, key)
		}
	}

	if err := s.store.Save(ctx, settings); err != nil {
		return err
	}
	if s.invalidate != nil {
		s.invalidate()
	}
	s.logger.Info("settings saved",
		zap.String("provider", settings.Provider),
		zap.String("model", settings.Model),
		zap.Bool("bot_enabled", settings.BotEnabled),
	)
	return nil
}

// SetBotEnabled switches the webhook bot on or off.
func (s *SettingsService) SetBotEnabled(ctx context.Context, enabled bool) error {
	if err := s.store.SetBotEnabled(ctx, enabled); err != nil {
		return err
	}
	s.logger.Info("bot toggled", zap.Bool("enabled", enabled))
	return nil
}

// Validate checks the model, vector store and helpdesk of settings. Checks
// never fail the call; problems are reported as results.
func (s *SettingsService) Validate(ctx context.Context, settings *model.Settings) []ValidationResult {
	results := s.validateModel(ctx, settings)
	return append(results, s.validateHelpdesk(ctx, settings))
}

func (s *SettingsService) validateModel(ctx context.Context, settings *model.Settings) []ValidationResult {
	const name = "Modelo LLM"
	if settings.Provider != model.ProviderOpenAI {
		return []ValidationResult{{name, StatusWarning,
			fmt.Sprintf("Validação automática só disponível para provider 'openai' (selecionado: %s).", settings.Provider)}}
	}

	var results []ValidationResult
	if _, ok := llm.PriceFor(settings.Model); !ok {
		results = append(results, ValidationResult{name, StatusError,
			fmt.Sprintf("Modelo '%s' não possui preço cadastrado. Atualize o modelo ou cadastre o preço.", settings.Model)})
	}

	v, err := s.validator()
	if err != nil {
		return append(results, ValidationResult{name, StatusError, "OPENAI_API_KEY não encontrada (.env ou ambiente)."})
	}

	checkCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	if err := v.CheckModel(checkCtx, settings.Model); err != nil {
		results = append(results, ValidationResult{name, StatusError,
			fmt.Sprintf("Não consegui acessar o modelo '%s': %v", settings.Model, err)})
	} else {
		results = append(results, ValidationResult{name, StatusSuccess,
			fmt.Sprintf("Consegui acessar o modelo '%s'.", settings.Model)})
	}

	const vs = "Vector Store"
	if settings.VectorStoreID == "" {
		return append(results, ValidationResult{vs, StatusWarning, "Nenhum vector store configurado para validar."})
	}
	if err := v.CheckVectorStore(checkCtx, settings.VectorStoreID); err != nil {
		return append(results, ValidationResult{vs, StatusError,
			fmt.Sprintf("Erro ao acessar vector store '%s': %v", settings.VectorStoreID, err)})
	}
	return append(results, ValidationResult{vs, StatusSuccess,
		fmt.Sprintf("Vector store '%s' acessível.", settings.VectorStoreID)})
}

func (s *SettingsService) validateHelpdesk(ctx context.Context, settings *model.Settings) ValidationResult {
	const name = "Chatwoot API"
	desk, err := s.helpdesk(settings)
	if err != nil {
		return ValidationResult{name, StatusWarning,
			"Preencha CHATWOOT_URL, CHATWOOT_API_TOKEN e CHATWOOT_ACCOUNT_ID para validar."}
	}
	status, err := desk.Ping(ctx)
	if err != nil {
		var fe *chatwoot.FetchError
		if errors.As(err, &fe) && fe.StatusCode > 0 {
			return ValidationResult{name, StatusError, fmt.Sprintf("Chatwoot respondeu %d: %s", fe.StatusCode, fe.Body)}
		}
		return ValidationResult{name, StatusError, fmt.Sprintf("Falha ao chamar Chatwoot: %v", err)}
	}
	return ValidationResult{name, StatusSuccess, fmt.Sprintf("Chatwoot respondeu %d.", status)}
}
