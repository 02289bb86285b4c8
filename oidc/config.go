// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/intuit/oauth-goclient/jwt"
	"github.com/intuit/oauth-goclient/oidc/internal/strutils"
	sdkhttp "github.com/intuit/oauth-goclient/sdk/http"
)

// Environment selects the provider's discovery document. Sandbox and
// Production are the provider's well-known environments, any other value is
// used as a discovery URL.
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

const (
	SandboxDiscoveryURL    = "https://developer.intuit.com/.well-known/openid_sandbox_configuration/"
	ProductionDiscoveryURL = "https://developer.intuit.com/.well-known/openid_configuration/"

	SandboxMigrationURL    = "https://developer-sandbox.api.intuit.com/v2/oauth2/tokens/migrate"
	ProductionMigrationURL = "https://developer.api.intuit.com/v2/oauth2/tokens/migrate"
)

// ParseEnvironment converts s into an Environment. "sandbox" and "sand" select
// Sandbox, "production" and "prod" select Production (case-insensitively).
// Anything else is kept as a custom discovery URL.
func ParseEnvironment(s string) (Environment, error) {
	const op = "oidc.ParseEnvironment"
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", fmt.Errorf("%s: environment is empty: %w", op, ErrInvalidParameter)
	case "sandbox", "sand":
		return Sandbox, nil
	case "production", "prod":
		return Production, nil
	default:
		return Environment(s), nil
	}
}

// DiscoveryURL returns the discovery document URL for the environment.
func (e Environment) DiscoveryURL() string {
	switch e {
	case Sandbox:
		return SandboxDiscoveryURL
	case Production:
		return ProductionDiscoveryURL
	default:
		return string(e)
	}
}

// MigrationURL returns the OAuth 1.0a migration endpoint. Only Production
// migrates against production, every other environment uses the sandbox.
func (e Environment) MigrationURL() string {
	if e == Production {
		return ProductionMigrationURL
	}
	return SandboxMigrationURL
}

// ClientSecret is an oauth client secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Config represents the configuration for the provider's OAuth 2.0 and
// OpenID Connect flows.
type Config struct {
	// ClientID is the app's client id.
	ClientID string

	// ClientSecret is the app's client secret.
	ClientSecret ClientSecret

	// RedirectURL is where the provider sends the user after they authorize
	// the app. It must match a redirect URI registered for the app.
	RedirectURL string

	// Environment selects the discovery document.
	Environment Environment

	// DiscoveryURL is derived from Environment.
	DiscoveryURL string

	// MigrationURL is the OAuth 1.0a migration endpoint, derived from
	// Environment unless WithMigrationURL was used.
	MigrationURL string

	// ProviderCA is an optional CA cert to use when sending requests to the
	// provider.
	ProviderCA string

	// SupportedSigningAlgs is the list of id_token signing algorithms the
	// client accepts. Defaults to every algorithm the jwt package supports.
	SupportedSigningAlgs []jwt.Alg

	// StrictKeyResolution makes an unknown id_token kid an error.
	StrictKeyResolution bool

	// Logger defaults to a null logger.
	Logger hclog.Logger

	// NowFunc is a time func that returns the current time.
	NowFunc func() time.Time
}

// NewConfig composes a new config for the environment, which is parsed with
// ParseEnvironment.
//
// Supported options: WithProviderCA, WithLogger, WithNow, WithMigrationURL,
// WithSupportedSigningAlgs, WithStrictKeyResolution
func NewConfig(clientID string, clientSecret ClientSecret, redirectURL string, environment string, opt ...Option) (*Config, error) {
	const op = "oidc.NewConfig"
	opts := getConfigOpts(opt...)
	env, err := ParseEnvironment(environment)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c := &Config{
		ClientID:             clientID,
		ClientSecret:         clientSecret,
		RedirectURL:          redirectURL,
		Environment:          env,
		DiscoveryURL:         env.DiscoveryURL(),
		MigrationURL:         env.MigrationURL(),
		ProviderCA:           opts.withProviderCA,
		SupportedSigningAlgs: opts.withSupportedSigningAlgs,
		StrictKeyResolution:  opts.withStrictKeyResolution,
		Logger:               opts.withLogger,
		NowFunc:              opts.withNow,
	}
	if opts.withMigrationURL != "" {
		c.MigrationURL = opts.withMigrationURL
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	return c, nil
}

// Validate the config. Every problem found is reported, each one wrapping
// ErrInvalidParameter. It doesn't verify the discovery URL is reachable.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if c.ClientSecret == "" {
		result = multierror.Append(result, fmt.Errorf("client secret is empty: %w", ErrInvalidParameter))
	}
	if c.RedirectURL == "" {
		result = multierror.Append(result, fmt.Errorf("redirect URL is empty: %w", ErrInvalidParameter))
	} else if err := validateURL(c.RedirectURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("redirect URL: %w", err))
	}
	if err := validateURL(c.DiscoveryURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("discovery URL: %w", err))
	}
	if err := validateURL(c.MigrationURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("migration URL: %w", err))
	}
	if c.SupportedSigningAlgs != nil {
		if len(c.SupportedSigningAlgs) == 0 {
			result = multierror.Append(result, fmt.Errorf("supported algorithms is empty: %w", ErrInvalidParameter))
		} else if err := jwt.SupportedSigningAlgorithm(c.SupportedSigningAlgs...); err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: %w", ErrInvalidParameter, err))
		}
	}
	if c.ProviderCA != "" {
		if ok := x509.NewCertPool().AppendCertsFromPEM([]byte(c.ProviderCA)); !ok {
			result = multierror.Append(result, fmt.Errorf("provider CA: %w: %w", ErrInvalidParameter, ErrInvalidCACert))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// HTTPClient creates a new http client for the provider configured.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	client, err := sdkhttp.NewClient(c.ProviderCA)
	if err != nil {
		if errors.Is(err, sdkhttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// Now returns the current time using the optional NowFunc.
func (c *Config) Now() time.Time {
	if c.NowFunc != nil {
		return c.NowFunc()
	}
	return time.Now() // fallback to this default
}

func (c *Config) logger() hclog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return hclog.NewNullLogger()
}

func validateURL(u string) error {
	if u == "" {
		return fmt.Errorf("URL is empty: %w", ErrInvalidParameter)
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return fmt.Errorf("%q is invalid: %s: %w", u, err, ErrInvalidParameter)
	}
	if !strutils.StrListContains([]string{"https", "http"}, parsed.Scheme) || parsed.Host == "" {
		return fmt.Errorf("%q is not an http or https URL: %w", u, ErrInvalidParameter)
	}
	return nil
}

// configOptions is the set of available options
type configOptions struct {
	withProviderCA           string
	withLogger               hclog.Logger
	withNow                  func() time.Time
	withMigrationURL         string
	withSupportedSigningAlgs []jwt.Alg
	withStrictKeyResolution  bool
}

// configDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func configDefaults() configOptions {
	return configOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

// getConfigOpts gets the defaults and applies the opt overrides passed
// in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
