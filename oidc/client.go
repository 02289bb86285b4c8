// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/intuit/oauth-goclient/jwt"
	sdkhttp "github.com/intuit/oauth-goclient/sdk/http"
	"github.com/intuit/oauth-goclient/sdk/id"
	"golang.org/x/oauth2"
)

// Endpoints are the provider endpoints used by a Client. They come from the
// discovery document and can be replaced with Client.SetEndpoints.
type Endpoints struct {
	AuthURL       string
	TokenURL      string
	RevocationURL string
	UserInfoURL   string
}

// Client provides the provider's OAuth 2.0 and OpenID Connect operations:
// authorization URLs, code exchange, refresh, revocation, user info, OAuth
// 1.0a token migration and id_token verification.
//
// A Client holds no per-user state, see Session. It is safe for concurrent
// use.
type Client struct {
	config    *Config
	client    *http.Client
	discovery DiscoveryDocument
	verifier  *jwt.Verifier
	logger    hclog.Logger

	mu        sync.RWMutex
	endpoints Endpoints
}

// NewClient creates a Client for the config. It fetches the discovery
// document, so it makes an http request to the provider.
func NewClient(ctx context.Context, c *Config) (*Client, error) {
	const op = "oidc.NewClient"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: config is invalid: %w", op, err)
	}
	client, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	logger := c.logger()

	doc, err := FetchDiscovery(ctx, client, c.DiscoveryURL)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to fetch discovery document: %w", op, err)
	}

	algs := c.SupportedSigningAlgs
	if len(algs) == 0 {
		algs = jwt.SupportedAlgorithms()
	}

	keySet, err := jwt.NewJSONWebKeySet(doc.JWKSURI, c.ProviderCA, jwt.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create key set: %w", op, err)
	}
	verifierOpts := []jwt.Option{
		jwt.WithNow(c.Now),
		jwt.WithLogger(logger.Named("jwt")),
		jwt.WithSupportedAlgs(algs...),
	}
	if c.StrictKeyResolution {
		verifierOpts = append(verifierOpts, jwt.WithStrictKeyResolution())
	}
	verifier, err := jwt.NewVerifier(keySet, verifierOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create id_token verifier: %w", op, err)
	}

	return &Client{
		config:    c,
		client:    client,
		discovery: *doc,
		verifier:  verifier,
		logger:    logger,
		endpoints: Endpoints{
			AuthURL:       doc.AuthorizationEndpoint,
			TokenURL:      doc.TokenEndpoint,
			RevocationURL: doc.RevocationEndpoint,
			UserInfoURL:   doc.UserInfoEndpoint,
		},
	}, nil
}

// Config returns the client's config.
func (c *Client) Config() *Config { return c.config }

// Discovery returns the discovery document the client was built from.
func (c *Client) Discovery() DiscoveryDocument { return c.discovery }

// Endpoints returns the endpoints currently in use.
func (c *Client) Endpoints() Endpoints {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoints
}

// SetEndpoints replaces the endpoints from the discovery document. The issuer
// and JWKS used to verify id_tokens are not affected.
func (c *Client) SetEndpoints(e Endpoints) error {
	const op = "Client.SetEndpoints"
	if e.AuthURL == "" || e.TokenURL == "" {
		return fmt.Errorf("%s: auth and token URLs are required: %w", op, ErrInvalidParameter)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoints = e
	return nil
}

// AuthURL returns the URL to send the user to so they can authorize the app
// for scopes. The stateToken is round tripped through the redirect and must
// be checked by the callback. When stateToken is empty a new one is generated.
// The state token used is returned with the URL.
func (c *Client) AuthURL(scopes []Scope, stateToken string) (authURL string, state string, e error) {
	const op = "Client.AuthURL"
	if len(scopes) == 0 {
		return "", "", fmt.Errorf("%s: at least one scope is required: %w", op, ErrInvalidParameter)
	}
	scope, err := ScopesToString(scopes)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	if stateToken == "" {
		stateToken, err = id.NewToken(id.DefaultTokenLength)
		if err != nil {
			return "", "", fmt.Errorf("%s: unable to generate state token: %w: %w", op, ErrIdGeneratorFailed, err)
		}
	}
	return c.oauth2Config(strings.Fields(scope)).AuthCodeURL(stateToken), stateToken, nil
}

// Exchange exchanges an authorization code for tokens. realmID is the
// "realmId" the provider sent to the redirect URL with the code and is
// copied into the response.
//
// When the response carries an id_token it's verified: a valid id_token is
// kept, an invalid one is dropped. A verification failure (for example the
// provider's JWKS can't be fetched) is returned as an error.
func (c *Client) Exchange(ctx context.Context, code string, realmID string) (*TokenResponse, error) {
	const op = "Client.Exchange"
	if code == "" {
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	}
	tok, err := c.oauth2Config(nil).Exchange(sdkhttp.OidcClientContext(ctx, c.client), code)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to exchange auth code with provider: %w", op, sdkhttp.FromRetrieveError(err))
	}
	tr, idToken := newTokenResponse(tok, c.config.Now())
	if realmID != "" {
		tr.RealmID = realmID
	}
	if err := c.acceptIDToken(ctx, tr, idToken); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tr, nil
}

// Refresh uses refreshToken to get new tokens. The provider may rotate the
// refresh token, so callers must keep the one returned.
func (c *Client) Refresh(ctx context.Context, refreshToken RefreshToken) (*TokenResponse, error) {
	const op = "Client.Refresh"
	if refreshToken == "" {
		return nil, fmt.Errorf("%s: refresh token is empty: %w", op, ErrInvalidParameter)
	}
	// a token without an access token is refreshed on first use
	ts := c.oauth2Config(nil).TokenSource(sdkhttp.OidcClientContext(ctx, c.client), &oauth2.Token{
		RefreshToken: string(refreshToken),
	})
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to refresh tokens: %w", op, sdkhttp.FromRetrieveError(err))
	}
	tr, idToken := newTokenResponse(tok, c.config.Now())
	if err := c.acceptIDToken(ctx, tr, idToken); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tr, nil
}

// Revoke revokes token, which may be either a refresh or an access token.
// Revoking either one revokes the app's access to the user's company.
func (c *Client) Revoke(ctx context.Context, token string) error {
	const op = "Client.Revoke"
	if token == "" {
		return fmt.Errorf("%s: token is empty: %w", op, ErrInvalidParameter)
	}
	endpoint := c.Endpoints().RevocationURL
	if endpoint == "" {
		return fmt.Errorf("%s: provider has no revocation endpoint: %w", op, ErrInvalidParameter)
	}
	body, err := json.Marshal(struct {
		Token string `json:"token"`
	}{Token: token})
	if err != nil {
		return fmt.Errorf("%s: unable to encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", sdkhttp.BasicAuth(c.config.ClientID, string(c.config.ClientSecret)))
	if _, err := sdkhttp.Do(ctx, c.client, req); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UserInfo gets the claims the user consented to (via the openid, profile,
// email, phone and address scopes) using accessToken.
func (c *Client) UserInfo(ctx context.Context, accessToken AccessToken) (UserInfo, error) {
	const op = "Client.UserInfo"
	if accessToken == "" {
		return nil, fmt.Errorf("%s: access token is empty: %w", op, ErrInvalidParameter)
	}
	endpoint := c.Endpoints().UserInfoURL
	if endpoint == "" {
		return nil, fmt.Errorf("%s: provider has no user info endpoint: %w", op, ErrUserInfoFailed)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+string(accessToken))
	resp, err := sdkhttp.Do(ctx, c.client, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUserInfoFailed, err)
	}
	var info UserInfo
	if err := resp.JSON(&info); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUserInfoFailed, err)
	}
	return info, nil
}

// VerifyIDToken reports whether idToken was issued to this client by the
// provider, is unexpired and is signed by one of the provider's keys. See
// jwt.Verifier.Verify for which failures are errors.
func (c *Client) VerifyIDToken(ctx context.Context, idToken IDToken) (bool, error) {
	const op = "Client.VerifyIDToken"
	valid, err := c.verifier.Verify(ctx, string(idToken), c.config.ClientID, c.discovery.Issuer)
	if err != nil {
		return false, fmt.Errorf("%s: %w: %w", op, ErrIdTokenVerificationFailed, err)
	}
	return valid, nil
}

// acceptIDToken sets tr.IDToken when idToken verifies.
func (c *Client) acceptIDToken(ctx context.Context, tr *TokenResponse, idToken IDToken) error {
	if idToken == "" {
		return nil
	}
	valid, err := c.VerifyIDToken(ctx, idToken)
	if err != nil {
		return err
	}
	if !valid {
		c.logger.Debug("dropping id_token that failed verification", "realm_id", tr.RealmID)
		return nil
	}
	tr.IDToken = idToken
	return nil
}

func (c *Client) oauth2Config(scopes []string) *oauth2.Config {
	e := c.Endpoints()
	return &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: string(c.config.ClientSecret),
		RedirectURL:  c.config.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   e.AuthURL,
			TokenURL:  e.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		Scopes: scopes,
	}
}
