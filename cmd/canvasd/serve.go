package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/canvas/editor"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and MCP endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		m, cfg, cleanup, err := openManager(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		addr := cfg.Listen
		if listenAddr != "" {
			addr = listenAddr
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           m.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("canvasd: server starting", "addr", addr, "surface", cfg.Surface.Kind)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-ctx.Done():
		}
		slog.Info("canvasd: shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("canvasd: shutdown", "error", err)
		}
		slog.Info("canvasd: server stopped")
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the editor tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		m, _, cleanup, err := openManager(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		srv := mcp.NewServer(&mcp.Implementation{Name: "canvas", Version: editor.Version}, nil)
		m.RegisterMCP(srv)
		slog.Info("canvasd: mcp stdio starting")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides listen)")
}
