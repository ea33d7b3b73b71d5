package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"career-twin/internal/config"
	"career-twin/internal/engine"
	"career-twin/internal/knowledge"
	"career-twin/internal/logging"
	"career-twin/internal/mcpserver"
)

// Stdout carries the MCP protocol, so every log line goes to stderr.
func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env")
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}

	kb, err := knowledge.Load(cfg.KnowledgeBasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load knowledge base")
	}
	e, err := engine.Build(engine.OptionsFromConfig(cfg), kb)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build engine")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("profile", kb.PersonalInfo.Name).Interface("tiers", e.Tiers()).Msg("starting career twin MCP server")
	if err := mcpserver.Serve(ctx, mcpserver.NewTools(e)); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("mcp server stopped")
	}
}
