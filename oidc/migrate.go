// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/hashicorp/go-multierror"
	sdkhttp "github.com/intuit/oauth-goclient/sdk/http"
)

// OAuth1Credentials are an app's OAuth 1.0a consumer and access credentials.
type OAuth1Credentials struct {
	ConsumerKey    string
	ConsumerSecret ClientSecret
	AccessToken    string
	AccessSecret   ClientSecret
}

// Validate reports every missing credential.
func (o OAuth1Credentials) Validate() error {
	var result *multierror.Error
	for name, v := range map[string]string{
		"consumer key":    o.ConsumerKey,
		"consumer secret": string(o.ConsumerSecret),
		"access token":    o.AccessToken,
		"access secret":   string(o.AccessSecret),
	} {
		if v == "" {
			result = multierror.Append(result, fmt.Errorf("%s is empty: %w", name, ErrInvalidParameter))
		}
	}
	return result.ErrorOrNil()
}

// migrationRequest is the body of an OAuth 1.0a migration request.
type migrationRequest struct {
	Scope        string `json:"scope"`
	RedirectURI  string `json:"redirect_uri"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Migrate exchanges OAuth 1.0a credentials for OAuth 2.0 tokens with the
// requested scopes. The request is signed with creds (HMAC-SHA1) and sent to
// the config's MigrationURL.
func (c *Client) Migrate(ctx context.Context, creds OAuth1Credentials, scopes []Scope) (*TokenResponse, error) {
	const op = "Client.Migrate"
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid credentials: %w", op, err)
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("%s: at least one scope is required: %w", op, ErrInvalidParameter)
	}
	scope, err := ScopesToString(scopes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	body, err := json.Marshal(migrationRequest{
		Scope:        scope,
		RedirectURI:  c.config.RedirectURL,
		ClientID:     c.config.ClientID,
		ClientSecret: string(c.config.ClientSecret),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: unable to encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.MigrationURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	signer := oauth1.NewConfig(creds.ConsumerKey, string(creds.ConsumerSecret))
	signed := signer.Client(
		context.WithValue(ctx, oauth1.HTTPClient, c.client),
		oauth1.NewToken(creds.AccessToken, string(creds.AccessSecret)),
	)
	resp, err := sdkhttp.Do(ctx, signed, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMigrationFailed, err)
	}

	var tr TokenResponse
	if err := resp.JSON(&tr); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrMigrationFailed, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%s: response has no access_token: %w", op, ErrMigrationFailed)
	}
	if tr.ExpiresIn > 0 {
		tr.Expiry = c.config.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	idToken := tr.IDToken
	tr.IDToken = ""
	if err := c.acceptIDToken(ctx, &tr, idToken); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &tr, nil
}
