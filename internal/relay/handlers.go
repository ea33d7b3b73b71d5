package relay

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"career-twin/internal/analytics"
	"career-twin/internal/llm"
	"career-twin/internal/session"
)

type chatRequest struct {
	Message string `json:"message"`
}

type part struct {
	Text string `json:"text"`
}

type candidate struct {
	Content struct {
		Parts []part `json:"parts"`
	} `json:"content"`
}

type chatResponse struct {
	Candidates []candidate `json:"candidates"`
}

func newChatResponse(text string) chatResponse {
	var c candidate
	c.Content.Parts = []part{{Text: text}}
	return chatResponse{Candidates: []candidate{c}}
}

// handleChat forwards the rendered prompt as a single user message and
// answers in the candidates shape.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "No message provided"})
		return
	}
	if s.llm == nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "API key not configured on the relay server"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), upstreamTimeout)
	defer cancel()
	resp, err := s.llm.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: req.Message}})
	if err != nil {
		status, body := upstreamError(err)
		log.Warn().Err(err).Int("status", status).Msg("relay upstream call failed")
		writeJSON(w, status, body)
		return
	}

	log.Debug().Str("model", resp.Model).Int("total_tokens", resp.TotalTokens).Msg("relay completion")
	writeJSON(w, http.StatusOK, newChatResponse(resp.Content))
}

// upstreamError passes the provider's status through where there is one.
func upstreamError(err error) (int, errorBody) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, errorBody{Error: "API request failed", Status: apiErr.HTTPStatusCode, Details: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, errorBody{Error: "API request failed", Status: reqErr.HTTPStatusCode, Details: string(reqErr.Body)}
	}
	if errors.Is(err, llm.ErrEmptyResponse) {
		return http.StatusBadGateway, errorBody{Error: "API request failed", Status: http.StatusBadGateway, Details: "empty completion"}
	}
	return http.StatusInternalServerError, errorBody{Error: "Connection error", Details: err.Error()}
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Analytics storage not configured"})
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON"})
		return
	}
	var probe map[string]json.RawMessage
	var sum session.Summary
	if json.Unmarshal(raw, &probe) != nil || len(probe) == 0 || json.Unmarshal(raw, &sum) != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON"})
		return
	}

	if err := s.store.AppendSession(r.Context(), sum); err != nil {
		log.Error().Err(err).Str("session_id", sum.SessionID).Msg("failed to store session")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to store analytics"})
		return
	}
	log.Info().
		Str("session_id", sum.SessionID).
		Int("messages", sum.Summary.TotalMessages).
		Int64("duration_s", sum.Duration).
		Msg("session analytics stored")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Analytics logged successfully"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.opts.StatsToken != "" {
		token := r.Header.Get("X-Stats-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.StatsToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
			return
		}
	}
	if s.store == nil {
		writeJSON(w, http.StatusOK, analytics.Aggregate(nil))
		return
	}

	entries, err := s.store.LoadSessions(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to load sessions")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to load analytics"})
		return
	}
	writeJSON(w, http.StatusOK, analytics.Aggregate(entries))
}

// handleLocation proxies the geolocation service so the widget needs no
// third-party CORS or token.
func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.opts.LocationURL == "" {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Location lookup disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), locationTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.LocationURL, nil)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Connection error", Details: err.Error()})
		return
	}
	resp, err := s.client.Do(req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Connection error", Details: err.Error()})
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		writeJSON(w, resp.StatusCode, errorBody{Error: "Geo lookup failed", Status: resp.StatusCode})
		return
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "Connection error", Details: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
