package llm

import (
	"net/http"

	"github.com/pkg/errors"

	"career-twin/internal/config"
)

// ErrNoCredential means the selected provider has no usable credential.
var ErrNoCredential = errors.New("llm: provider credential not configured")

// Factory creates provider clients with consistent logic
type Factory struct {
	Provider           config.LLMProvider
	APIKey             string
	BaseURL            string
	Model              string
	Temperature        float32
	MaxTokens          int
	OpenRouterReferrer string
	OpenRouterTitle    string
	YandexOAuthToken   string
	YandexFolderID     string
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		Provider:           cfg.DirectProvider,
		APIKey:             cfg.DirectAPIKey,
		BaseURL:            cfg.LLMBaseURL,
		Model:              cfg.LLMModel,
		Temperature:        cfg.Temperature,
		MaxTokens:          cfg.MaxReplyTokens,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
	}
}

// CreateClient builds the configured provider client. It returns
// ErrNoCredential without any network call when the credential is missing.
func (f *Factory) CreateClient(httpClient *http.Client) (Client, error) {
	switch f.Provider {
	case config.ProviderOpenAI, "":
		if f.APIKey == "" {
			return nil, ErrNoCredential
		}
		return NewOpenAI(OpenAIOptions{
			APIKey:      f.APIKey,
			BaseURL:     f.BaseURL,
			Model:       f.Model,
			Temperature: f.Temperature,
			MaxTokens:   f.MaxTokens,
			Referrer:    f.OpenRouterReferrer,
			Title:       f.OpenRouterTitle,
			HTTPClient:  httpClient,
		}), nil
	case config.ProviderYandex:
		if f.YandexOAuthToken == "" || f.YandexFolderID == "" {
			return nil, ErrNoCredential
		}
		c, err := NewYandex(f.YandexOAuthToken, f.YandexFolderID)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, errors.Errorf("unknown llm provider: %s", f.Provider)
	}
}
