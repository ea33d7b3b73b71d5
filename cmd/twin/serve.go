package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"career-twin/internal/analytics"
	"career-twin/internal/config"
	"career-twin/internal/llm"
	"career-twin/internal/notify"
	"career-twin/internal/relay"
	"career-twin/internal/scheduler"
	"career-twin/internal/storage"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server with the analytics endpoints and the report scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.HTTPAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address; overrides HTTP_ADDR")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, err := storage.Open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client, err := llm.NewFactory(cfg).CreateClient(nil)
	switch {
	case errors.Is(err, llm.ErrNoCredential):
		log.Warn().Msg("no provider credential; /api/chat will answer 500")
		client = nil
	case err != nil:
		return err
	}

	srv := relay.New(client, store, relay.Options{
		Addr:          cfg.HTTPAddr,
		AllowedOrigin: cfg.AllowedOrigin,
		StatsToken:    cfg.StatsToken,
		LocationURL:   cfg.LocationURL,
	})

	sched := scheduler.New()
	if err := sched.Add(scheduler.Job{
		Name: "daily-report",
		Spec: cfg.ReportSchedule,
		Run:  analytics.DailyReport(store, reportNotifier(cfg), time.Now),
	}); err != nil {
		return err
	}
	if cfg.SessionRetention > 0 {
		if err := sched.Add(scheduler.Job{
			Name: "compact-sessions",
			Spec: "@daily",
			Run:  analytics.Compaction(store, cfg.SessionRetention),
		}); err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("shutting down relay server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// reportNotifier falls back to the log when Telegram is not configured or
// the bot token is rejected.
func reportNotifier(cfg *config.Config) notify.Notifier {
	if cfg.TelegramBotToken == "" || cfg.AdminChatID == 0 {
		return notify.Log{}
	}
	tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.AdminChatID)
	if err != nil {
		log.Warn().Err(err).Msg("telegram notifier unavailable, reports go to the log")
		return notify.Log{}
	}
	return tg
}
