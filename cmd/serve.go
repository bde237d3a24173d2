package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/abhisek/tutord/internal/catalog"
	"github.com/abhisek/tutord/internal/config"
	"github.com/abhisek/tutord/internal/evaluator"
	"github.com/abhisek/tutord/internal/httpapi"
	"github.com/abhisek/tutord/internal/judge"
	"github.com/abhisek/tutord/internal/llm"
	"github.com/abhisek/tutord/internal/orchestrator"
	"github.com/abhisek/tutord/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tutoring HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.FromEnv()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}
		if dir, _ := cmd.Flags().GetString("catalog"); dir != "" {
			cfg.CatalogDir = dir
		}

		logger, err := newLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dbPath, err := resolveDBPath(cmd, cfg.DBPath)
		if err != nil {
			return err
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()

		cat, err := catalog.New(ctx, catalog.DirSource{Dir: cfg.CatalogDir})
		if err != nil {
			return fmt.Errorf("load catalog from %s: %w", cfg.CatalogDir, err)
		}
		logger.Info("catalog loaded",
			zap.String("dir", cfg.CatalogDir),
			zap.Int("items", cat.Len()))

		var j *judge.Judge
		provider, err := llm.NewProviderFromEnv(ctx, logger)
		if err != nil {
			logger.Warn("no LLM provider available, judge evaluation disabled", zap.Error(err))
		} else {
			j = judge.New(provider, judge.DefaultConfig())
		}

		eval := evaluator.DefaultCascade(j)
		orch := orchestrator.New(cat, st.Sessions(), st.Profiles(), eval, logger)
		srv := httpapi.New(orch, cat, logger)

		return srv.Run(ctx, cfg.Addr, cfg.ShutdownTimeout)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "HTTP listen address (overrides TUTORD_ADDR)")
	serveCmd.Flags().String("catalog", "", "Catalog directory (overrides TUTORD_CATALOG_DIR)")
}

// resolveDBPath returns the database path using --db flag (highest
// priority), then the config value, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, fromConfig string) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, nil
	}
	if fromConfig != "" {
		return fromConfig, nil
	}
	return store.DefaultDBPath()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
