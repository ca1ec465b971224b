package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/canvas/editor"
	"github.com/hazyhaar/canvas/store"
)

var (
	configPath string
	dbPath     string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "canvasd",
	Short: "Visual page editor engine",
	Long: `canvasd hosts canvas editing sessions over documents from a content
source. Each session keeps an undoable command history persisted in SQLite
and renders onto an in-memory or browser surface.

Quick start:
  canvasd import landing page.html      # store a document locally
  canvasd serve                         # HTTP API + MCP on :8090
  canvasd history landing               # inspect the command log`,
	Version:       editor.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(newLogger(logLevel))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides store.path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(serveCmd, mcpCmd, importCmd, documentsCmd, ingestCmd, historyCmd, undoCmd, redoCmd)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadConfig() (editor.Config, error) {
	cfg := editor.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = editor.LoadFile(configPath); err != nil {
			return editor.Config{}, err
		}
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	return cfg, nil
}

// openManager loads the configuration, opens the store and builds the
// session manager. The returned cleanup closes both.
func openManager(ctx context.Context) (*editor.Manager, editor.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, nil, err
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, cfg, nil, fmt.Errorf("open store: %w", err)
	}
	m, err := editor.NewManager(cfg, st, editor.WithLogger(slog.Default()))
	if err != nil {
		st.Close()
		return nil, cfg, nil, err
	}
	cleanup := func() {
		if err := m.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Error("canvasd: close sessions", "error", err)
		}
		st.Close()
	}
	return m, cfg, cleanup, nil
}
