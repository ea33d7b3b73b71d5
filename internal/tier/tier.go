package tier

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"career-twin/internal/conversation"
)

// Source names the tier that produced a reply.
type Source string

const (
	SourceRelay      Source = "relay"
	SourceDirect     Source = "direct"
	SourceRuleEngine Source = "ruleEngine"
)

// Kind classifies a tier failure.
type Kind string

const (
	KindNetwork       Kind = "network"
	KindHTTPStatus    Kind = "httpStatus"
	KindMalformedBody Kind = "malformedBody"
	KindRateLimited   Kind = "rateLimited"
	KindNotConfigured Kind = "notConfigured"
)

// Failure is the only error a tier returns. Code carries the HTTP status
// when one was received.
type Failure struct {
	Tier   Source
	Kind   Kind
	Code   int
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s tier: %s", f.Tier, f.Kind)
	if f.Code != 0 {
		fmt.Fprintf(&b, "(%d)", f.Code)
	}
	if f.Detail != "" {
		b.WriteString(": ")
		b.WriteString(f.Detail)
	}
	return b.String()
}

func (f *Failure) Unwrap() error { return f.Err }

func fail(src Source, kind Kind, code int, detail string, err error) *Failure {
	return &Failure{Tier: src, Kind: kind, Code: code, Detail: detail, Err: err}
}

// AsFailure extracts the Failure from err, treating anything else as a
// network failure of src.
func AsFailure(src Source, err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return fail(src, KindNetwork, 0, err.Error(), err)
}

// Tier is one remote attempt in the fallback chain. Attempt makes a single
// try, bounds its own wait and never retries.
type Tier interface {
	Name() Source
	Attempt(ctx context.Context, p Prompt) (string, error)
}

// Prompt is what a remote tier needs to answer one utterance. Window is the
// recent conversation, ending with the utterance itself.
type Prompt struct {
	System    string
	Window    []conversation.Turn
	Utterance string
}

// Render flattens the prompt into the single string the relay expects.
func (p Prompt) Render() string {
	var b strings.Builder
	b.WriteString(p.System)
	b.WriteString("\n\nCONVERSATION SO FAR:\n")
	for _, t := range p.turns() {
		who := "Visitor"
		if t.Role == conversation.RoleAssistant {
			who = "You"
		}
		fmt.Fprintf(&b, "%s: %s\n", who, t.Text)
	}
	b.WriteString("\nRespond naturally and conversationally to the visitor's latest message. Keep it SHORT (1-2 sentences max), friendly, and engaging!")
	return b.String()
}

// turns is Window with the utterance appended when the window does not
// already end with it.
func (p Prompt) turns() []conversation.Turn {
	out := append([]conversation.Turn{}, p.Window...)
	if n := len(out); n == 0 || out[n-1].Role != conversation.RoleUser || out[n-1].Text != p.Utterance {
		out = append(out, conversation.Turn{Role: conversation.RoleUser, Text: p.Utterance})
	}
	return out
}
