package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type InteractionType string

const (
	InteractionChatOpened    InteractionType = "chat_opened"
	InteractionMessage       InteractionType = "message"
	InteractionQuickQuestion InteractionType = "quick_question"
)

// Interaction is one tracked event of a widget session.
type Interaction struct {
	Type            InteractionType `json:"type"`
	Message         string          `json:"message,omitempty"`
	Question        string          `json:"question,omitempty"`
	IsQuickQuestion bool            `json:"isQuickQuestion,omitempty"`
	MessageNumber   int             `json:"messageNumber,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// UserInfo describes the visitor's client. Location fields are filled only
// when a geolocation lookup succeeded.
type UserInfo struct {
	UserAgent      string `json:"userAgent,omitempty"`
	Language       string `json:"language,omitempty"`
	Platform       string `json:"platform,omitempty"`
	ScreenWidth    int    `json:"screenWidth,omitempty"`
	ScreenHeight   int    `json:"screenHeight,omitempty"`
	ViewportWidth  int    `json:"viewportWidth,omitempty"`
	ViewportHeight int    `json:"viewportHeight,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
	Country        string `json:"country,omitempty"`
	City           string `json:"city,omitempty"`
	Region         string `json:"region,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
}

// Counts is the per-session rollup the stats dashboard sums up.
type Counts struct {
	TotalMessages  int  `json:"totalMessages"`
	QuickQuestions int  `json:"quickQuestions"`
	CustomMessages int  `json:"customMessages"`
	ChatOpened     bool `json:"chatOpened"`
}

// Summary is the document a session hands to analytics when it ends.
// Duration is in whole seconds.
type Summary struct {
	SessionID    string        `json:"sessionId"`
	StartTime    time.Time     `json:"startTime"`
	Duration     int64         `json:"duration"`
	MessageCount int           `json:"messageCount"`
	UserInfo     UserInfo      `json:"userInfo"`
	Interactions []Interaction `json:"interactions"`
	Summary      Counts        `json:"summary"`
}

// Tracker records the interactions of one widget session. It is safe for
// concurrent use.
type Tracker struct {
	mu           sync.Mutex
	id           string
	start        time.Time
	now          func() time.Time
	info         UserInfo
	interactions []Interaction
	messageCount int
}

func NewTracker(info UserInfo) *Tracker {
	return NewTrackerWithClock(info, time.Now)
}

func NewTrackerWithClock(info UserInfo, now func() time.Time) *Tracker {
	start := now()
	if info.Timestamp == "" {
		info.Timestamp = start.UTC().Format(time.RFC3339)
	}
	return &Tracker{
		id:    "session_" + uuid.NewString(),
		start: start,
		now:   now,
		info:  info,
	}
}

func (t *Tracker) ID() string { return t.id }

func (t *Tracker) TrackChatOpened() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interactions = append(t.interactions, Interaction{Type: InteractionChatOpened, Timestamp: t.now()})
}

// TrackMessage records a sent message, typed or clicked.
func (t *Tracker) TrackMessage(message string, isQuickQuestion bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageCount++
	t.interactions = append(t.interactions, Interaction{
		Type:            InteractionMessage,
		Message:         message,
		IsQuickQuestion: isQuickQuestion,
		MessageNumber:   t.messageCount,
		Timestamp:       t.now(),
	})
}

// TrackQuickQuestion records a quick-question button click. The message it
// sends is tracked separately with TrackMessage.
func (t *Tracker) TrackQuickQuestion(question string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interactions = append(t.interactions, Interaction{
		Type:      InteractionQuickQuestion,
		Question:  question,
		Timestamp: t.now(),
	})
}

// SetLocation merges a geolocation result into the user info.
func (t *Tracker) SetLocation(country, city, region, timezone string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.info.Country, t.info.City, t.info.Region = country, city, region
	if timezone != "" {
		t.info.Timezone = timezone
	}
}

func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	interactions := make([]Interaction, len(t.interactions))
	copy(interactions, t.interactions)

	counts := Counts{TotalMessages: t.messageCount}
	for _, in := range interactions {
		switch in.Type {
		case InteractionQuickQuestion:
			counts.QuickQuestions++
		case InteractionMessage:
			if !in.IsQuickQuestion {
				counts.CustomMessages++
			}
		case InteractionChatOpened:
			counts.ChatOpened = true
		}
	}

	return Summary{
		SessionID:    t.id,
		StartTime:    t.start,
		Duration:     int64(t.now().Sub(t.start) / time.Second),
		MessageCount: t.messageCount,
		UserInfo:     t.info,
		Interactions: interactions,
		Summary:      counts,
	}
}
