package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"career-twin/internal/config"
	"career-twin/internal/engine"
	"career-twin/internal/knowledge"
	"career-twin/internal/logging"
)

type app struct {
	cfg      *config.Config
	logLevel string
	kbPath   string
}

func (a *app) loadKnowledgeBase() (*knowledge.KnowledgeBase, error) {
	path := a.cfg.KnowledgeBasePath
	if a.kbPath != "" {
		path = a.kbPath
	}
	kb, err := knowledge.Load(path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", path).Str("name", kb.PersonalInfo.Name).Msg("knowledge base loaded")
	return kb, nil
}

func (a *app) buildEngine() (*engine.Engine, error) {
	kb, err := a.loadKnowledgeBase()
	if err != nil {
		return nil, err
	}
	return engine.Build(engine.OptionsFromConfig(a.cfg), kb)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "twin",
		Short:         "Career chat assistant: relay server, terminal chat and analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return errors.Wrap(err, "load .env")
			}
			cfg, err := config.New()
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
			}
			if err := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error); overrides LOG_LEVEL")
	root.PersistentFlags().StringVar(&a.kbPath, "knowledge-base", "", "path to the knowledge base; overrides KNOWLEDGE_BASE_PATH")

	root.AddCommand(
		newServeCmd(a),
		newChatCmd(a),
		newAskCmd(a),
		newStatsCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
