package tier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const maxRelayBody = 1 << 20

// Relay posts the rendered prompt to a first-party HTTP relay that holds
// the provider credential.
type Relay struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

func NewRelay(endpoint string, timeout time.Duration, client *http.Client) *Relay {
	if client == nil {
		client = &http.Client{}
	}
	return &Relay{endpoint: endpoint, timeout: timeout, client: client}
}

func (r *Relay) Name() Source { return SourceRelay }

type relayRequest struct {
	Message string `json:"message"`
}

// relayResponse accepts both reply shapes the relay may answer with.
type relayResponse struct {
	Error      json.RawMessage `json:"error"`
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (r *Relay) Attempt(ctx context.Context, p Prompt) (string, error) {
	if r.endpoint == "" {
		return "", fail(SourceRelay, KindNotConfigured, 0, "no relay endpoint", nil)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(relayRequest{Message: p.Render()})
	if err != nil {
		return "", fail(SourceRelay, KindMalformedBody, 0, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fail(SourceRelay, KindNotConfigured, 0, "bad relay endpoint", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fail(SourceRelay, KindNetwork, 0, err.Error(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBody))
	if err != nil {
		return "", fail(SourceRelay, KindNetwork, resp.StatusCode, "read body", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return "", fail(SourceRelay, KindNotConfigured, resp.StatusCode, "relay endpoint not found", nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fail(SourceRelay, KindHTTPStatus, resp.StatusCode, snippet(body), nil)
	}
	if !isJSON(resp.Header.Get("Content-Type")) {
		return "", fail(SourceRelay, KindMalformedBody, resp.StatusCode,
			fmt.Sprintf("unexpected content type %q", resp.Header.Get("Content-Type")), nil)
	}

	var out relayResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fail(SourceRelay, KindMalformedBody, resp.StatusCode, "decode body", err)
	}
	if len(out.Error) > 0 && string(out.Error) != "null" {
		return "", fail(SourceRelay, KindMalformedBody, resp.StatusCode, "relay error: "+snippet(out.Error), nil)
	}

	var text string
	switch {
	case len(out.Candidates) > 0 && len(out.Candidates[0].Content.Parts) > 0:
		text = out.Candidates[0].Content.Parts[0].Text
	case len(out.Choices) > 0:
		text = out.Choices[0].Message.Content
	}
	if strings.TrimSpace(text) == "" {
		return "", fail(SourceRelay, KindMalformedBody, resp.StatusCode, "no reply field in body", nil)
	}
	return text, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
