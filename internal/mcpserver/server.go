package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"career-twin/internal/conversation"
	"career-twin/internal/engine"
)

const (
	serverName    = "career-twin"
	serverVersion = "1.0.0"
)

type AskParams struct {
	Question string `json:"question" mcp:"the visitor's question about the profile"`
	Reset    bool   `json:"reset,omitempty" mcp:"start a new conversation before asking"`
}

type QuickQuestionsParams struct {
	Turns int `json:"turns,omitempty" mcp:"number of turns in the conversation so far; 0 for the opening set"`
}

// Tools exposes the engine over MCP. A stdio server has a single client,
// so it keeps a single conversation and serializes resolutions on it.
type Tools struct {
	engine *engine.Engine

	mu   sync.Mutex
	conv *conversation.Context
}

func NewTools(e *engine.Engine) *Tools {
	return &Tools{engine: e, conv: conversation.New()}
}

func (t *Tools) Ask(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[AskParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if strings.TrimSpace(args.Question) == "" {
		return &mcp.CallToolResultFor[any]{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: "question is required"}},
		}, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if args.Reset {
		t.conv.Clear()
	}

	var res engine.ReplyResult
	if t.isQuick(args.Question) {
		res = t.engine.ResolveQuick(t.conv, args.Question)
	} else {
		res = t.engine.Resolve(ctx, t.conv, args.Question)
	}
	log.Debug().Str("source", string(res.Source)).Int("turns", t.conv.Len()).Msg("ask_profile answered")

	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: res.Text},
			&mcp.TextContent{Text: fmt.Sprintf("source: %s", res.Source)},
		},
	}, nil
}

func (t *Tools) QuickQuestions(_ context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[QuickQuestionsParams]) (*mcp.CallToolResultFor[any], error) {
	qs := t.engine.QuickQuestionsAt(params.Arguments.Turns)
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: strings.Join(qs, "\n")}},
	}, nil
}

func (t *Tools) isQuick(question string) bool {
	for _, q := range t.engine.QuickQuestionsAt(t.conv.Len()) {
		if q == question {
			return true
		}
	}
	return false
}

// NewServer registers the tools on a fresh MCP server.
func NewServer(t *Tools) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_profile",
		Description: "Asks the career assistant a question about the profile and returns its reply and the tier that produced it",
	}, t.Ask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "quick_questions",
		Description: "Lists the suggested quick questions for a conversation of the given length",
	}, t.QuickQuestions)

	return server
}

// Serve runs the server on stdin/stdout until ctx ends or the client leaves.
func Serve(ctx context.Context, t *Tools) error {
	log.Info().Msg("career-twin MCP server starting on stdio")
	return NewServer(t).Run(ctx, mcp.NewStdioTransport())
}
