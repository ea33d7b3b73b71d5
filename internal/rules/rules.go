package rules

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"career-twin/internal/knowledge"
)

type Kind string

const (
	KindExact                 Kind = "exact"
	KindAllKeywords           Kind = "allKeywords"
	KindAnyKeywordCombination Kind = "anyKeywordCombination"
	KindRegex                 Kind = "regex"
)

// Stage groups rules by precedence. Stages are evaluated in declaration order.
type Stage string

const (
	StageQuickQuestion Stage = "quick-question"
	StageLengthGuard   Stage = "length-guard"
	StageGreeting      Stage = "greeting"
	StageCompound      Stage = "compound"
	StageCategory      Stage = "category"
	StageOffTopic      Stage = "off-topic"
	StageVague         Stage = "vague"
	StageGratitude     Stage = "gratitude"
	StageDefault       Stage = "default"
)

const minInputLen = 3

// Rule is one ordered entry of the table.
type Rule struct {
	Name  string
	Stage Stage
	Kind  Kind
	Reply string
	test  func(input string) bool
}

func (r Rule) Matches(input string) bool { return r.test(input) }

// Match is the outcome of matching one utterance.
type Match struct {
	Rule  string
	Stage Stage
	Reply string
}

// Table maps arbitrary text to a canned reply. It never fails: every input
// yields exactly one non-empty reply.
type Table struct {
	quick      map[string]string
	questions  questionSets
	rules      []Rule
	shortReply string
	fallback   string
}

// NewTable renders all replies against kb and builds the ordered rule list.
func NewTable(kb *knowledge.KnowledgeBase) (*Table, error) {
	data := newReplyData(kb)
	r, err := renderReplies(data)
	if err != nil {
		return nil, err
	}
	qs, err := renderQuestions(data)
	if err != nil {
		return nil, err
	}
	t := &Table{
		quick:      make(map[string]string),
		questions:  qs,
		rules:      buildRules(r, data),
		shortReply: r.short,
		fallback:   r.fallback,
	}
	for q, answer := range quickAnswers(qs, r) {
		t.quick[normalizeQuestion(q)] = answer
	}
	return t, nil
}

// Match applies the rules in precedence order: exact quick question,
// length guard, then the ordered rule list, then the default reply.
func (t *Table) Match(text string) Match {
	input := normalize(text)

	if reply, ok := t.quick[normalizeQuestion(input)]; ok {
		return Match{Rule: "quick-question", Stage: StageQuickQuestion, Reply: reply}
	}
	if utf8.RuneCountInString(input) < minInputLen {
		return Match{Rule: "too-short", Stage: StageLengthGuard, Reply: t.shortReply}
	}
	for _, r := range t.rules {
		if r.test(input) {
			return Match{Rule: r.Name, Stage: r.Stage, Reply: r.Reply}
		}
	}
	return Match{Rule: "default", Stage: StageDefault, Reply: t.fallback}
}

// Respond is Match without provenance.
func (t *Table) Respond(text string) string { return t.Match(text).Reply }

// Rules returns the ordered rule list after the quick-question lookup and
// the length guard.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var apostrophes = strings.NewReplacer("'", "", "’", "", "`", "")

// normalizeQuestion lets "whats his process?" hit "What's his process?".
func normalizeQuestion(s string) string {
	return apostrophes.Replace(normalize(s))
}

func allKeywords(words ...string) func(string) bool {
	return func(in string) bool {
		for _, w := range words {
			if !strings.Contains(in, w) {
				return false
			}
		}
		return true
	}
}

// keywordCombination requires every word of required and at least one of anyOf.
func keywordCombination(required []string, anyOf ...string) func(string) bool {
	all := allKeywords(required...)
	return func(in string) bool {
		if !all(in) {
			return false
		}
		for _, w := range anyOf {
			if w != "" && strings.Contains(in, w) {
				return true
			}
		}
		return false
	}
}

func matchRegex(pattern string) func(string) bool {
	re := regexp.MustCompile(pattern)
	return re.MatchString
}
