// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// cli runs the authorization code flow for a single user: it prints the auth
// URL, waits for the provider's redirect on a localhost listener and prints
// the resulting session, id_token claims and user info.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"
	"github.com/intuit/oauth-goclient/oidc"
	"github.com/intuit/oauth-goclient/oidc/callback"
	"github.com/kelseyhightower/envconfig"
)

// config is read from INTUIT_* environment variables.
type config struct {
	ClientID     string        `envconfig:"CLIENT_ID" required:"true"`
	ClientSecret string        `envconfig:"CLIENT_SECRET" required:"true"`
	Environment  string        `envconfig:"ENVIRONMENT" default:"sandbox"`
	Port         int           `envconfig:"PORT" default:"8080"`
	Scopes       []string      `envconfig:"SCOPES" default:"com.intuit.quickbooks.accounting,openid,profile,email"`
	AttemptExp   time.Duration `envconfig:"ATTEMPT_EXP" default:"2m"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	refresh := flag.Bool("refresh", false, "refresh the tokens once the code is exchanged")
	revoke := flag.Bool("revoke", false, "revoke the tokens before exiting")
	flag.Parse()

	var cfg config
	if err := envconfig.Process("intuit", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n\n", err)
		envconfig.Usage("intuit", &cfg)
		os.Exit(1)
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "intuit-cli",
		Level:  hclog.LevelFromString(cfg.LogLevel),
		Output: os.Stderr,
	})
	if err := run(cfg, logger, *refresh, *revoke); err != nil {
		logger.Error("authorization failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config, logger hclog.Logger, refresh, revoke bool) error {
	const op = "run"
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	redirectURL := fmt.Sprintf("http://localhost:%d/callback", cfg.Port)
	pc, err := oidc.NewConfig(cfg.ClientID, oidc.ClientSecret(cfg.ClientSecret), redirectURL, cfg.Environment, oidc.WithLogger(logger.Named("oidc")))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c, err := oidc.NewClient(ctx, pc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	scopes := make([]oidc.Scope, 0, len(cfg.Scopes))
	for _, s := range cfg.Scopes {
		scopes = append(scopes, oidc.Scope(strings.TrimSpace(s)))
	}
	s := &oidc.Session{}
	authURL, err := c.AuthURLForSession(s, scopes)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	doneCh, handler, err := callback.AuthCodeWithChannel(ctx, c, s, success, failed)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/callback", handler)

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	srv := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	srvCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(os.Stderr, "Complete the authorization in your browser:\n\n    %s\n\n", authURL)

	select {
	case err := <-srvCh:
		return fmt.Errorf("%s: server closed with error: %w", op, err)
	case <-ctx.Done():
		return fmt.Errorf("%s: interrupted", op)
	case <-time.After(cfg.AttemptExp):
		return fmt.Errorf("%s: timed out waiting for the provider's redirect", op)
	case resp := <-doneCh:
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", op, resp.Error)
		}
	}
	logger.Info("connected", "realm_id", s.RealmID, "expiry", s.Expiry)
	printSession(s)

	if s.IDToken != "" {
		var claims map[string]interface{}
		if err := s.IDToken.Claims(&claims); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		printJSON("id_token claims", claims)
	}
	// user info needs one of the openid scopes
	if info, err := c.UserInfoSession(ctx, s); err != nil {
		logger.Warn("unable to get user info", "error", err)
	} else {
		printJSON("user info", info)
	}
	if refresh {
		if err := c.RefreshSession(ctx, s); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		logger.Info("refreshed", "expiry", s.Expiry)
		printSession(s)
	}
	if revoke {
		if err := c.RevokeSession(ctx, s); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		logger.Info("revoked", "realm_id", s.RealmID)
	}
	return nil
}

func success(state string, s *oidc.Session, w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(successHTML))
}

func failed(state string, r *callback.AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
	switch {
	case r != nil:
		http.Error(w, fmt.Sprintf("authorization failed: %s: %s", r.Error, r.Description), http.StatusUnauthorized)
	case e != nil:
		http.Error(w, e.Error(), http.StatusInternalServerError)
	default:
		http.Error(w, "unknown callback error", http.StatusInternalServerError)
	}
}

// printableSession is needed because the token types redact themselves.
type printableSession struct {
	RealmID                string
	AccessToken            string
	RefreshToken           string
	IDToken                string
	TokenType              string
	ExpiresIn              int64
	XRefreshTokenExpiresIn int64
	Expiry                 time.Time
}

func printSession(s *oidc.Session) {
	printJSON("session", printableSession{
		RealmID:                s.RealmID,
		AccessToken:            string(s.AccessToken),
		RefreshToken:           string(s.RefreshToken),
		IDToken:                string(s.IDToken),
		TokenType:              s.TokenType,
		ExpiresIn:              s.ExpiresIn,
		XRefreshTokenExpiresIn: s.XRefreshTokenExpiresIn,
		Expiry:                 s.Expiry,
	})
}

func printJSON(label string, v interface{}) {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", label, err)
		return
	}
	fmt.Printf("%s:\n%s\n", label, b)
}

const successHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Connected</title>
</head>
<body>
  <p>Your company is connected. You can close this window and return to the terminal.</p>
</body>
</html>
`
