package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Sink receives finished session summaries.
type Sink interface {
	Send(ctx context.Context, s Summary) error
}

// HTTPSink posts summaries as JSON to an analytics endpoint.
type HTTPSink struct {
	url    string
	client *http.Client
}

func NewHTTPSink(url string, client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSink{url: url, client: client}
}

func (h *HTTPSink) Send(ctx context.Context, s Summary) error {
	body, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshal session summary")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build analytics request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post analytics")
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("analytics endpoint answered %d", resp.StatusCode)
	}
	return nil
}

// Appender is the subset of a session store a StoreSink needs.
type Appender interface {
	AppendSession(ctx context.Context, s Summary) error
}

// StoreSink writes summaries straight into a local store.
type StoreSink struct {
	store Appender
}

func NewStoreSink(store Appender) *StoreSink { return &StoreSink{store: store} }

func (s *StoreSink) Send(ctx context.Context, sum Summary) error {
	return s.store.AppendSession(ctx, sum)
}

// Flush hands the summary to every sink. A failing sink is logged and does
// not stop the others; the summary is returned either way.
func Flush(ctx context.Context, t *Tracker, sinks ...Sink) Summary {
	sum := t.Summary()
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		if err := sink.Send(ctx, sum); err != nil {
			log.Warn().Err(err).Str("session_id", sum.SessionID).Msg("failed to send session analytics")
			continue
		}
		log.Debug().Str("session_id", sum.SessionID).Msg("session analytics sent")
	}
	return sum
}
