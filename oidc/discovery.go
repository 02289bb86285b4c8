// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-multierror"
	sdkhttp "github.com/intuit/oauth-goclient/sdk/http"
)

// DiscoveryDocument is the provider's OpenID Connect discovery document.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	RevocationEndpoint    string `json:"revocation_endpoint,omitempty"`
	UserInfoEndpoint      string `json:"userinfo_endpoint,omitempty"`
	JWKSURI               string `json:"jwks_uri"`

	ScopesSupported                  []string `json:"scopes_supported,omitempty"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported,omitempty"`
}

// Validate reports every required field that is missing, each wrapping
// ErrInvalidDiscovery.
func (d *DiscoveryDocument) Validate() error {
	const op = "DiscoveryDocument.Validate"
	if d == nil {
		return fmt.Errorf("%s: discovery document is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	required := []struct {
		name, value string
	}{
		{"issuer", d.Issuer},
		{"authorization_endpoint", d.AuthorizationEndpoint},
		{"token_endpoint", d.TokenEndpoint},
		{"jwks_uri", d.JWKSURI},
	}
	for _, r := range required {
		if r.value == "" {
			result = multierror.Append(result, fmt.Errorf("%s is missing: %w", r.name, ErrInvalidDiscovery))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FetchDiscovery fetches and validates the discovery document at
// discoveryURL. A non-2xx response is returned as a *sdkhttp.ResponseError.
func FetchDiscovery(ctx context.Context, client *http.Client, discoveryURL string) (*DiscoveryDocument, error) {
	const op = "oidc.FetchDiscovery"
	if discoveryURL == "" {
		return nil, fmt.Errorf("%s: discovery URL is empty: %w", op, ErrInvalidParameter)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	resp, err := sdkhttp.Do(ctx, client, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var doc DiscoveryDocument
	if err := resp.JSON(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidDiscovery, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &doc, nil
}
