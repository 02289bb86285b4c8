// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

type verifierOptions struct {
	withNow                 func() time.Time
	withLogger              hclog.Logger
	withStrictKeyResolution bool
	withSupportedAlgs       []Alg
}

func verifierDefaults() verifierOptions {
	return verifierOptions{
		withNow:           time.Now,
		withLogger:        hclog.NewNullLogger(),
		withSupportedAlgs: SupportedAlgorithms(),
	}
}

// getVerifierOpts gets the defaults and applies the opt overrides passed
// in.
func getVerifierOpts(opt ...Option) verifierOptions {
	opts := verifierDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

type keySetOptions struct {
	withHTTPClient *http.Client
}

func keySetDefaults() keySetOptions {
	return keySetOptions{}
}

func getKeySetOpts(opt ...Option) keySetOptions {
	opts := keySetDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

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

// WithNow provides the clock used for the "exp" check. Valid for: Verifier
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if v, ok := o.(*verifierOptions); ok && now != nil {
			v.withNow = now
		}
	}
}

// WithLogger provides an optional logger. Valid for: Verifier
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if v, ok := o.(*verifierOptions); ok && l != nil {
			v.withLogger = l
		}
	}
}

// WithStrictKeyResolution makes Verify return an ErrKeyNotFound error when
// the key set has no key for the token's kid. By default such tokens are
// simply invalid. Valid for: Verifier
func WithStrictKeyResolution() Option {
	return func(o interface{}) {
		if v, ok := o.(*verifierOptions); ok {
			v.withStrictKeyResolution = true
		}
	}
}

// WithSupportedAlgs restricts the signing algorithms a Verifier accepts.
// Valid for: Verifier
func WithSupportedAlgs(algs ...Alg) Option {
	return func(o interface{}) {
		if v, ok := o.(*verifierOptions); ok {
			v.withSupportedAlgs = algs
		}
	}
}

// WithHTTPClient provides the http client used to fetch remote key sets.
// Valid for: JSONWebKeySet
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if v, ok := o.(*keySetOptions); ok {
			v.withHTTPClient = c
		}
	}
}
