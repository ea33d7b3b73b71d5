package conversation

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message of a widget session.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Context is the ordered message log of a single session. It is owned by
// the caller and is not safe for concurrent use: one resolution at a time.
// Role alternation is not enforced.
type Context struct {
	turns []Turn
	now   func() time.Time
}

func New() *Context {
	return &Context{now: time.Now}
}

// NewWithClock is New with an injectable clock for deterministic timestamps.
func NewWithClock(now func() time.Time) *Context {
	return &Context{now: now}
}

func (c *Context) Append(t Turn) {
	c.turns = append(c.turns, t)
}

func (c *Context) AppendUser(text string) {
	c.Append(Turn{Role: RoleUser, Text: text, Timestamp: c.clock()})
}

func (c *Context) AppendAssistant(text string) {
	c.Append(Turn{Role: RoleAssistant, Text: text, Timestamp: c.clock()})
}

// RecentWindow returns the last n turns in chronological order, or all of
// them when fewer exist. The result is a copy.
func (c *Context) RecentWindow(n int) []Turn {
	if n <= 0 {
		return []Turn{}
	}
	start := len(c.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(c.turns)-start)
	copy(out, c.turns[start:])
	return out
}

func (c *Context) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Context) Len() int { return len(c.turns) }

// Clear drops the whole history ("new conversation").
func (c *Context) Clear() {
	c.turns = nil
}

func (c *Context) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}
