// serve.go implements the "payd serve" command: the HTTP API server.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/payd-dev/payd/extension/all"
	"github.com/payd-dev/payd/internal/api"
	"github.com/payd-dev/payd/internal/auth"
	"github.com/payd-dev/payd/internal/billing"
	"github.com/payd-dev/payd/internal/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the payd API server",
	Long: `Starts the HTTP API on the configured listen address. Requires
auth.jwt_secret to be set in the configuration file.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.RequireSecret(); err != nil {
			return err
		}

		log := newLogger(cfg.LogLevel)

		st, err := store.Open(cfg.DatabasePath())
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Init(); err != nil {
			return fmt.Errorf("initialise database: %w", err)
		}

		reg := all.NewRegistry()
		tokens := auth.NewManager([]byte(cfg.Auth.JWTSecret), cfg.Issuer(), cfg.TokenTTL())
		bm := billing.New(st, reg, cfg, log)
		srv := api.NewServer(st, tokens, bm, reg, cfg, log)

		httpSrv := &http.Server{
			Addr:              cfg.ListenAddr(),
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("serving", "addr", cfg.ListenAddr(), "database", cfg.DatabasePath())
			errCh <- httpSrv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

// newLogger builds the process logger at the configured level.
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
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
