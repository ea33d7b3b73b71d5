package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"career-twin/internal/conversation"
	"career-twin/internal/engine"
	"career-twin/internal/session"
	"career-twin/internal/storage"
)

func newChatCmd(a *app) *cobra.Command {
	var (
		record bool
		locate bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Long: "Starts an interactive session. Type a question, or the number of a suggested " +
			"quick question. /new starts a new conversation, /quit ends the session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.buildEngine()
			if err != nil {
				return err
			}

			tracker := session.NewTracker(session.UserInfo{
				UserAgent: "twin-cli",
				Language:  os.Getenv("LANG"),
				Timezone:  time.Now().Location().String(),
			})
			if locate && a.cfg.LocationURL != "" {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				loc, err := session.FetchLocation(ctx, nil, a.cfg.LocationURL)
				cancel()
				if err != nil {
					log.Debug().Err(err).Msg("location lookup failed")
				}
				loc.Apply(tracker)
			}

			var sinks []session.Sink
			if a.cfg.AnalyticsURL != "" {
				sinks = append(sinks, session.NewHTTPSink(a.cfg.AnalyticsURL, nil))
			}
			if record {
				store, err := storage.Open(a.cfg)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				sinks = append(sinks, session.NewStoreSink(store))
			}

			runChat(cmd.Context(), e, tracker, cmd.InOrStdin(), cmd.OutOrStdout())

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			sum := session.Flush(ctx, tracker, sinks...)
			log.Info().
				Str("session_id", sum.SessionID).
				Int("messages", sum.Summary.TotalMessages).
				Int64("duration_s", sum.Duration).
				Msg("session ended")
			return nil
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "store the session summary in the local session store")
	cmd.Flags().BoolVar(&locate, "locate", false, "look up the approximate location through LOCATION_URL")
	return cmd
}

func runChat(ctx context.Context, e *engine.Engine, tracker *session.Tracker, in io.Reader, out io.Writer) {
	conv := conversation.New()
	tracker.TrackChatOpened()

	fmt.Fprintln(out, "Hi! Ask me anything about the profile. /new starts over, /quit leaves.")
	printQuickQuestions(out, e.QuickQuestions(conv))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/new":
			conv.Clear()
			fmt.Fprintln(out, "Started a new conversation.")
			printQuickQuestions(out, e.QuickQuestions(conv))
			continue
		}

		var res engine.ReplyResult
		if q, ok := pickQuickQuestion(line, e.QuickQuestions(conv)); ok {
			tracker.TrackQuickQuestion(q)
			tracker.TrackMessage(q, true)
			fmt.Fprintf(out, "you: %s\n", q)
			res = e.ResolveQuick(conv, q)
		} else {
			tracker.TrackMessage(line, false)
			res = e.Resolve(ctx, conv, line)
		}

		fmt.Fprintf(out, "%s\n", res.Text)
		log.Debug().Str("source", string(res.Source)).Str("rule", res.Rule).Msg("reply")
		printQuickQuestions(out, e.QuickQuestions(conv))
	}
}

// pickQuickQuestion accepts a 1-based index into the shown set.
func pickQuickQuestion(line string, shown []string) (string, bool) {
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(shown) {
		return "", false
	}
	return shown[n-1], true
}

func printQuickQuestions(out io.Writer, qs []string) {
	for i, q := range qs {
		fmt.Fprintf(out, "  [%d] %s\n", i+1, q)
	}
}
