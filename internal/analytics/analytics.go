package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"career-twin/internal/session"
	"career-twin/internal/storage"
)

const (
	recentLimit    = 20
	popularLimit   = 10
	locationLimit  = 10
	unknownCountry = "Unknown"
)

type QuestionCount struct {
	Question string `json:"question"`
	Count    int    `json:"count"`
}

// LocationCount groups sessions by the visitor's timezone, which is the
// only location signal every client reports.
type LocationCount struct {
	Country string  `json:"country"`
	City    *string `json:"city"`
	Count   int     `json:"count"`
}

// Stats is the dashboard feed.
type Stats struct {
	Date                string            `json:"date,omitempty"`
	TotalSessions       int               `json:"totalSessions"`
	TotalMessages       int               `json:"totalMessages"`
	TotalQuickQuestions int               `json:"totalQuickQuestions"`
	TotalCustomMessages int               `json:"totalCustomMessages"`
	RecentSessions      []session.Summary `json:"recentSessions"`
	PopularQuestions    []QuestionCount   `json:"popularQuestions"`
	Locations           []LocationCount   `json:"locations"`
}

// Aggregate sums stored sessions. Entries are expected oldest first.
func Aggregate(entries []storage.Entry) *Stats {
	stats := &Stats{
		TotalSessions:    len(entries),
		RecentSessions:   []session.Summary{},
		PopularQuestions: []QuestionCount{},
		Locations:        []LocationCount{},
	}

	questions := map[string]int{}
	var questionOrder []string
	locations := map[string]*LocationCount{}
	var locationOrder []string

	for _, e := range entries {
		s := e.Data
		stats.TotalMessages += s.Summary.TotalMessages
		stats.TotalQuickQuestions += s.Summary.QuickQuestions
		stats.TotalCustomMessages += s.Summary.CustomMessages

		for _, in := range s.Interactions {
			if in.Type != session.InteractionQuickQuestion || in.Question == "" {
				continue
			}
			if _, seen := questions[in.Question]; !seen {
				questionOrder = append(questionOrder, in.Question)
			}
			questions[in.Question]++
		}

		country := s.UserInfo.Timezone
		if country == "" {
			country = unknownCountry
		}
		loc, ok := locations[country]
		if !ok {
			loc = &LocationCount{Country: country}
			locations[country] = loc
			locationOrder = append(locationOrder, country)
		}
		loc.Count++
		if loc.City == nil && s.UserInfo.City != "" {
			city := s.UserInfo.City
			loc.City = &city
		}
	}

	for _, q := range questionOrder {
		stats.PopularQuestions = append(stats.PopularQuestions, QuestionCount{Question: q, Count: questions[q]})
	}
	sort.SliceStable(stats.PopularQuestions, func(i, j int) bool {
		return stats.PopularQuestions[i].Count > stats.PopularQuestions[j].Count
	})
	if len(stats.PopularQuestions) > popularLimit {
		stats.PopularQuestions = stats.PopularQuestions[:popularLimit]
	}

	for _, c := range locationOrder {
		stats.Locations = append(stats.Locations, *locations[c])
	}
	sort.SliceStable(stats.Locations, func(i, j int) bool {
		return stats.Locations[i].Count > stats.Locations[j].Count
	})
	if len(stats.Locations) > locationLimit {
		stats.Locations = stats.Locations[:locationLimit]
	}

	for i := len(entries) - 1; i >= 0 && len(stats.RecentSessions) < recentLimit; i-- {
		stats.RecentSessions = append(stats.RecentSessions, entries[i].Data)
	}
	return stats
}

// AnalyzeDay aggregates only the entries received on targetDate's calendar
// day in its location.
func AnalyzeDay(entries []storage.Entry, targetDate time.Time) *Stats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	var day []storage.Entry
	for _, e := range entries {
		if e.Timestamp.Before(startOfDay) || !e.Timestamp.Before(endOfDay) {
			continue
		}
		day = append(day, e)
	}
	stats := Aggregate(day)
	stats.Date = startOfDay.Format("2006-01-02")
	return stats
}

// GenerateReportSummary renders the stats as a plain-text report.
func (s *Stats) GenerateReportSummary() string {
	var b strings.Builder
	if s.Date != "" {
		fmt.Fprintf(&b, "Career chat activity for %s:\n\n", s.Date)
	} else {
		b.WriteString("Career chat activity (all time):\n\n")
	}
	fmt.Fprintf(&b, "Sessions: %d\n", s.TotalSessions)
	fmt.Fprintf(&b, "Messages: %d (quick questions: %d, typed: %d)\n", s.TotalMessages, s.TotalQuickQuestions, s.TotalCustomMessages)

	if len(s.PopularQuestions) > 0 {
		b.WriteString("\nPopular quick questions:\n")
		for _, q := range s.PopularQuestions {
			fmt.Fprintf(&b, "- %s: %d\n", q.Question, q.Count)
		}
	}
	if len(s.Locations) > 0 {
		b.WriteString("\nVisitors by timezone:\n")
		for _, l := range s.Locations {
			fmt.Fprintf(&b, "- %s: %d\n", l.Country, l.Count)
		}
	}
	return b.String()
}

func (s *Stats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
