// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// webapp connects many users' companies: /login starts an authorization,
// /callback completes it and /session, /refresh and /revoke manage the
// connected session identified by its state token.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"
	"github.com/intuit/oauth-goclient/oidc"
	"github.com/kelseyhightower/envconfig"
)

// config is read from INTUIT_* environment variables.
type config struct {
	ClientID     string        `envconfig:"CLIENT_ID" required:"true"`
	ClientSecret string        `envconfig:"CLIENT_SECRET" required:"true"`
	Environment  string        `envconfig:"ENVIRONMENT" default:"sandbox"`
	BaseURL      string        `envconfig:"BASE_URL" default:"http://localhost:8080"`
	Port         int           `envconfig:"PORT" default:"8080"`
	Scopes       []string      `envconfig:"SCOPES" default:"com.intuit.quickbooks.accounting,openid,email"`
	AttemptExp   time.Duration `envconfig:"ATTEMPT_EXP" default:"5m"`
}

func main() {
	var cfg config
	if err := envconfig.Process("intuit", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n\n", err)
		envconfig.Usage("intuit", &cfg)
		os.Exit(1)
	}
	logger := hclog.New(&hclog.LoggerOptions{Name: "intuit-webapp", Output: os.Stderr})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	pc, err := oidc.NewConfig(cfg.ClientID, oidc.ClientSecret(cfg.ClientSecret), cfg.BaseURL+"/callback", cfg.Environment, oidc.WithLogger(logger.Named("oidc")))
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}
	c, err := oidc.NewClient(ctx, pc)
	if err != nil {
		logger.Error("unable to create client", "error", err)
		os.Exit(1)
	}

	scopes := make([]oidc.Scope, 0, len(cfg.Scopes))
	for _, s := range cfg.Scopes {
		scopes = append(scopes, oidc.Scope(s))
	}
	sc := newSessionCache(cfg.AttemptExp)

	callbackHandler, err := CallbackHandler(ctx, c, sc, logger)
	if err != nil {
		logger.Error("unable to create callback", "error", err)
		os.Exit(1)
	}
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Get("/login", LoginHandler(c, sc, scopes, logger))
	r.Get("/callback", callbackHandler)
	r.Get("/session", SessionHandler(ctx, c, sc, logger))
	r.Post("/refresh", RefreshHandler(ctx, c, sc, logger))
	r.Post("/revoke", RevokeHandler(ctx, c, sc, logger))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("listening", "addr", srv.Addr, "login", cfg.BaseURL+"/login")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server closed with error", "error", err)
		os.Exit(1)
	}
}
