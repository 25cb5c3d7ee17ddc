package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/zenotes/internal/auth"
	"github.com/MarcoPoloResearchLab/zenotes/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errMissingSigningSecret = errors.New("auth.signing_secret is required to issue tokens")

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				return runServer(cmd.Context(), app)
			})
		},
	}
}

func runServer(ctx context.Context, app *application) error {
	deps := server.Dependencies{
		Repository: app.repository,
		Settings:   app.settings,
		Summarizer: app.summarizer,
		Logger:     app.logger,
	}
	if strings.TrimSpace(app.config.SigningSecret) != "" {
		tokenIssuer, err := newTokenIssuer(app)
		if err != nil {
			return err
		}
		deps.Tokens = tokenIssuer
	} else {
		app.logger.Warn("no signing secret configured; API is unauthenticated", zap.String("address", app.config.HTTPAddress))
	}

	handler, err := server.NewHTTPHandler(deps)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              app.config.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("server starting", zap.String("address", app.config.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func newTokenIssuer(app *application) (*auth.TokenIssuer, error) {
	if strings.TrimSpace(app.config.SigningSecret) == "" {
		return nil, errMissingSigningSecret
	}
	return auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(app.config.SigningSecret),
		Issuer:        auth.DefaultIssuer,
		Audience:      auth.DefaultAudience,
		TokenTTL:      app.config.TokenTTL,
	})
}

func newTokenCommand() *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the local API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), func(app *application) error {
				tokenIssuer, err := newTokenIssuer(app)
				if err != nil {
					return err
				}
				token, expiresIn, err := tokenIssuer.IssueToken(cmd.Context(), subject)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				fmt.Fprintf(cmd.ErrOrStderr(), "expires in %s\n", time.Duration(expiresIn)*time.Second)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "cli", "Token subject")
	return cmd
}
