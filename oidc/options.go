// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/intuit/oauth-goclient/jwt"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// WithProviderCA provides an optional CA cert used to verify the provider's
// TLS certificates. Valid for: Config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithLogger provides an optional logger. Valid for: Config
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithNow provides an optional clock. Valid for: Config, Session
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if now == nil {
			return
		}
		switch v := o.(type) {
		case *configOptions:
			v.withNow = now
		case *sessionOptions:
			v.withNow = now
		}
	}
}

// WithMigrationURL overrides the OAuth 1.0a migration endpoint picked from
// the environment. Valid for: Config
func WithMigrationURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withMigrationURL = u
		}
	}
}

// WithSupportedSigningAlgs restricts the id_token signing algorithms the
// client accepts. Valid for: Config
func WithSupportedSigningAlgs(algs ...jwt.Alg) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withSupportedSigningAlgs = algs
		}
	}
}

// WithStrictKeyResolution makes id_token verification fail with an error,
// instead of treating the token as invalid, when the provider's JWKS has no
// key for the token's kid. Valid for: Config
func WithStrictKeyResolution() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withStrictKeyResolution = true
		}
	}
}

// WithExpirySkew provides an optional expiry skew duration. Valid for: Session
func WithExpirySkew(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*sessionOptions); ok {
			o.withExpirySkew = d
		}
	}
}
