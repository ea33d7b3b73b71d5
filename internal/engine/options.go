package engine

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"career-twin/internal/config"
	"career-twin/internal/knowledge"
	"career-twin/internal/llm"
	"career-twin/internal/rules"
	"career-twin/internal/tier"
)

// Options selects and tunes the remote tiers.
type Options struct {
	RelayEnabled  bool
	RelayEndpoint string
	RelayTimeout  time.Duration

	DirectProvider config.LLMProvider
	DirectAPIKey   string
	DirectBaseURL  string
	Model          string
	Temperature    float32
	MaxReplyTokens int
	DirectTimeout  time.Duration

	OpenRouterReferrer string
	OpenRouterTitle    string
	YandexOAuthToken   string
	YandexFolderID     string

	HistoryWindow int

	// HTTPClient is shared by both tiers; nil uses a default client.
	HTTPClient *http.Client
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RelayEnabled:       cfg.RelayEnabled,
		RelayEndpoint:      cfg.RelayURL,
		RelayTimeout:       cfg.RelayTimeout,
		DirectProvider:     cfg.DirectProvider,
		DirectAPIKey:       cfg.DirectAPIKey,
		DirectBaseURL:      cfg.LLMBaseURL,
		Model:              cfg.LLMModel,
		Temperature:        cfg.Temperature,
		MaxReplyTokens:     cfg.MaxReplyTokens,
		DirectTimeout:      cfg.DirectTimeout,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
		HistoryWindow:      cfg.HistoryWindow,
	}
}

// Build assembles the rule table from kb and the tier chain from opts.
// Tiers without credentials are left out, so an unconfigured deployment
// never touches the network.
func Build(opts Options, kb *knowledge.KnowledgeBase) (*Engine, error) {
	table, err := rules.NewTable(kb)
	if err != nil {
		return nil, errors.Wrap(err, "build rule table")
	}

	var tiers []tier.Tier
	if opts.RelayEnabled && opts.RelayEndpoint != "" {
		tiers = append(tiers, tier.NewRelay(opts.RelayEndpoint, opts.RelayTimeout, opts.HTTPClient))
	}

	factory := &llm.Factory{
		Provider:           opts.DirectProvider,
		APIKey:             opts.DirectAPIKey,
		BaseURL:            opts.DirectBaseURL,
		Model:              opts.Model,
		Temperature:        opts.Temperature,
		MaxTokens:          opts.MaxReplyTokens,
		OpenRouterReferrer: opts.OpenRouterReferrer,
		OpenRouterTitle:    opts.OpenRouterTitle,
		YandexOAuthToken:   opts.YandexOAuthToken,
		YandexFolderID:     opts.YandexFolderID,
	}
	client, err := factory.CreateClient(opts.HTTPClient)
	switch {
	case errors.Is(err, llm.ErrNoCredential):
		log.Info().Str("provider", string(opts.DirectProvider)).Msg("direct tier disabled: no credential")
	case err != nil && opts.DirectProvider == config.ProviderYandex:
		// IAM exchange failed; keep serving from the other tiers.
		log.Warn().Err(err).Msg("direct tier disabled")
	case err != nil:
		return nil, err
	default:
		tiers = append(tiers, tier.NewDirect(client, opts.DirectTimeout))
	}

	e := New(table, kb.SystemPrompt(), opts.HistoryWindow, tiers...)
	log.Info().Interface("tiers", e.Tiers()).Int("history_window", e.window).Msg("resolution engine ready")
	return e, nil
}
