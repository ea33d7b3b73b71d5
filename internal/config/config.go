package config

import (
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type SessionStore string

const (
	StoreFile   SessionStore = "file"
	StoreSQLite SessionStore = "sqlite"
)

type Config struct {
	// Relay tier
	RelayEnabled bool          `env:"RELAY_ENABLED" envDefault:"false"`
	RelayURL     string        `env:"RELAY_URL" envDefault:"http://localhost:8080/api/chat"`
	RelayTimeout time.Duration `env:"RELAY_TIMEOUT" envDefault:"30s"`

	// Direct-provider tier
	DirectProvider LLMProvider   `env:"DIRECT_PROVIDER" envDefault:"openai"`
	DirectAPIKey   string        `env:"GROQ_API_KEY"`
	LLMBaseURL     string        `env:"LLM_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"llama-3.1-8b-instant"`
	Temperature    float32       `env:"LLM_TEMPERATURE" envDefault:"0.9"`
	MaxReplyTokens int           `env:"LLM_MAX_TOKENS" envDefault:"150"`
	DirectTimeout  time.Duration `env:"DIRECT_TIMEOUT" envDefault:"30s"`
	HistoryWindow  int           `env:"HISTORY_WINDOW" envDefault:"5"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `env:"YANDEX_FOLDER_ID"`

	KnowledgeBasePath string `env:"KNOWLEDGE_BASE_PATH" envDefault:"data/knowledge_base.yaml"`

	// Session log
	SessionStore     SessionStore `env:"SESSION_STORE" envDefault:"file"`
	SessionLogPath   string       `env:"SESSION_LOG_PATH" envDefault:"logs/sessions.jsonl"`
	SessionDBPath    string       `env:"SESSION_DB_PATH" envDefault:"data/sessions.db"`
	SessionRetention int          `env:"SESSION_RETENTION" envDefault:"1000"`

	// Relay server
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"*"`
	StatsToken    string `env:"STATS_TOKEN"`
	AnalyticsURL  string `env:"ANALYTICS_URL"`
	LocationURL   string `env:"LOCATION_URL" envDefault:"https://ipapi.co/json/"`

	// Reports
	ReportSchedule   string `env:"REPORT_SCHEDULE" envDefault:"0 21 * * *"`
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	AdminChatID      int64  `env:"ADMIN_CHAT_ID"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DirectProvider {
	case ProviderOpenAI, ProviderYandex:
	default:
		return errors.Errorf("unknown DIRECT_PROVIDER %q", c.DirectProvider)
	}
	switch c.SessionStore {
	case StoreFile, StoreSQLite:
	default:
		return errors.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}
	if c.HistoryWindow <= 0 {
		return errors.Errorf("HISTORY_WINDOW must be positive, got %d", c.HistoryWindow)
	}
	if c.RelayTimeout <= 0 || c.DirectTimeout <= 0 {
		return errors.New("tier timeouts must be positive")
	}
	return nil
}

// DirectConfigured reports whether the selected provider has a usable credential.
func (c *Config) DirectConfigured() bool {
	switch c.DirectProvider {
	case ProviderYandex:
		return c.YandexOAuthToken != "" && c.YandexFolderID != ""
	default:
		return c.DirectAPIKey != ""
	}
}
