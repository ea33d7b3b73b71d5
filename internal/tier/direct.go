package tier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"career-twin/internal/conversation"
	"career-twin/internal/llm"
)

const rateLimitCode = "rate_limit_exceeded"

// Direct calls an LLM provider with a client-held credential. A nil client
// means no credential was configured.
type Direct struct {
	client  llm.Client
	timeout time.Duration
}

func NewDirect(client llm.Client, timeout time.Duration) *Direct {
	return &Direct{client: client, timeout: timeout}
}

func (d *Direct) Name() Source { return SourceDirect }

func (d *Direct) Attempt(ctx context.Context, p Prompt) (string, error) {
	if d.client == nil {
		return "", fail(SourceDirect, KindNotConfigured, 0, "no provider credential", nil)
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	resp, err := d.client.Generate(ctx, Messages(p))
	if err != nil {
		return "", classifyProviderError(err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", fail(SourceDirect, KindMalformedBody, 0, "empty completion", llm.ErrEmptyResponse)
	}
	return resp.Content, nil
}

// Messages maps the prompt onto role-tagged chat messages: the system
// instruction followed by the window, which already ends with the utterance.
func Messages(p Prompt) []llm.Message {
	turns := p.turns()
	out := make([]llm.Message, 0, len(turns)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: p.System})
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == conversation.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: t.Text})
	}
	return out
}

// classifyProviderError recognizes a rate limit by any of the HTTP status,
// the vendor error code or the message text.
func classifyProviderError(err error) *Failure {
	if errors.Is(err, llm.ErrEmptyResponse) {
		return fail(SourceDirect, KindMalformedBody, 0, "empty completion", err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fail(SourceDirect, KindNetwork, 0, "timed out", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			fmt.Sprint(apiErr.Code) == rateLimitCode ||
			apiErr.Type == rateLimitCode ||
			mentionsRateLimit(apiErr.Message) {
			return fail(SourceDirect, KindRateLimited, apiErr.HTTPStatusCode, apiErr.Message, err)
		}
		if apiErr.HTTPStatusCode != 0 {
			return fail(SourceDirect, KindHTTPStatus, apiErr.HTTPStatusCode, apiErr.Message, err)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fail(SourceDirect, KindRateLimited, reqErr.HTTPStatusCode, err.Error(), err)
		}
		if reqErr.HTTPStatusCode == http.StatusNotFound {
			return fail(SourceDirect, KindNotConfigured, reqErr.HTTPStatusCode, err.Error(), err)
		}
		if reqErr.HTTPStatusCode != 0 {
			return fail(SourceDirect, KindHTTPStatus, reqErr.HTTPStatusCode, err.Error(), err)
		}
	}

	if mentionsRateLimit(err.Error()) {
		return fail(SourceDirect, KindRateLimited, 0, err.Error(), err)
	}
	return fail(SourceDirect, KindNetwork, 0, err.Error(), err)
}

func mentionsRateLimit(s string) bool {
	return strings.Contains(strings.ToLower(s), "rate limit")
}
