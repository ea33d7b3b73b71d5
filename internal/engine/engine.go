package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"career-twin/internal/conversation"
	"career-twin/internal/rules"
	"career-twin/internal/tier"
)

const defaultHistoryWindow = 5

// ReplyResult is the outcome of one resolution. Text is never empty.
type ReplyResult struct {
	Text   string      `json:"text"`
	Source tier.Source `json:"source"`
	// Rule names the matching rule when Source is the rule engine.
	Rule string `json:"rule,omitempty"`
}

// Engine resolves an utterance by trying each remote tier in order and
// falling back to the rule table, which always answers.
type Engine struct {
	tiers  []tier.Tier
	table  *rules.Table
	system string
	window int
}

// New builds an engine over an explicit tier chain. A non-positive window
// uses the default of five turns.
func New(table *rules.Table, systemPrompt string, window int, tiers ...tier.Tier) *Engine {
	if window <= 0 {
		window = defaultHistoryWindow
	}
	return &Engine{tiers: tiers, table: table, system: systemPrompt, window: window}
}

// Tiers lists the configured remote tiers in attempt order.
func (e *Engine) Tiers() []tier.Source {
	out := make([]tier.Source, 0, len(e.tiers))
	for _, t := range e.tiers {
		out = append(out, t.Name())
	}
	return out
}

// Resolve appends the utterance to conv, produces a reply and appends it
// too. Caller cancellation does not abort tier attempts; each tier bounds
// its own wait. Callers must serialize resolutions on the same conv.
func (e *Engine) Resolve(ctx context.Context, conv *conversation.Context, utterance string) ReplyResult {
	if conv == nil {
		conv = conversation.New()
	}
	conv.AppendUser(utterance)

	p := tier.Prompt{
		System:    e.system,
		Window:    conv.RecentWindow(e.window),
		Utterance: utterance,
	}
	detached := context.WithoutCancel(ctx)

	var (
		res ReplyResult
		ok  bool
	)
	for _, t := range e.tiers {
		text, err := attempt(detached, t, p)
		if err != nil {
			f := tier.AsFailure(t.Name(), err)
			log.Warn().
				Str("tier", string(t.Name())).
				Str("kind", string(f.Kind)).
				Int("status", f.Code).
				Str("detail", f.Detail).
				Msg("tier failed, falling back")
			continue
		}
		res, ok = ReplyResult{Text: text, Source: t.Name()}, true
		break
	}
	if !ok {
		m := e.table.Match(utterance)
		res = ReplyResult{Text: m.Reply, Source: tier.SourceRuleEngine, Rule: m.Rule}
	}

	conv.AppendAssistant(res.Text)
	log.Debug().Str("source", string(res.Source)).Str("rule", res.Rule).Int("turns", conv.Len()).Msg("resolved")
	return res
}

// ResolveQuick answers a quick-question button from the rule table without
// any network call and records both turns.
func (e *Engine) ResolveQuick(conv *conversation.Context, question string) ReplyResult {
	if conv == nil {
		conv = conversation.New()
	}
	conv.AppendUser(question)
	m := e.table.Match(question)
	conv.AppendAssistant(m.Reply)
	return ReplyResult{Text: m.Reply, Source: tier.SourceRuleEngine, Rule: m.Rule}
}

// QuickQuestions returns the button set for the current length of conv.
func (e *Engine) QuickQuestions(conv *conversation.Context) []string {
	n := 0
	if conv != nil {
		n = conv.Len()
	}
	return e.table.QuickQuestions(n)
}

func (e *Engine) QuickQuestionsAt(turns int) []string {
	return e.table.QuickQuestions(turns)
}

// attempt runs one tier, turning a panic or a blank reply into a failure.
func attempt(ctx context.Context, t tier.Tier, p tier.Prompt) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &tier.Failure{Tier: t.Name(), Kind: tier.KindNetwork, Detail: fmt.Sprintf("panic: %v", r)}
		}
	}()
	text, err = t.Attempt(ctx, p)
	if err == nil && strings.TrimSpace(text) == "" {
		err = &tier.Failure{Tier: t.Name(), Kind: tier.KindMalformedBody, Detail: "empty reply"}
	}
	return text, err
}
