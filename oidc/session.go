// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"time"
)

// DefaultExpirySkew is the skew used when checking a Session's expiry.
const DefaultExpirySkew = 10 * time.Second

// Session is one user's authorization state. It's owned by the caller, who
// decides where (and whether) to store it. A Session is not safe for
// concurrent use.
type Session struct {
	// StateToken is the CSRF token sent with the authorization request.
	StateToken string

	// RealmID is the QuickBooks company the tokens were issued for.
	RealmID string

	AccessToken            AccessToken
	RefreshToken           RefreshToken
	IDToken                IDToken
	TokenType              string
	ExpiresIn              int64
	XRefreshTokenExpiresIn int64

	// Expiry is when the access token expires.
	Expiry time.Time
}

// Update merges tr into the session. Only the non-empty fields of tr are
// copied, so a response without an id_token keeps the session's id_token.
func (s *Session) Update(tr *TokenResponse) {
	if s == nil || tr == nil {
		return
	}
	if tr.AccessToken != "" {
		s.AccessToken = tr.AccessToken
	}
	if tr.RefreshToken != "" {
		s.RefreshToken = tr.RefreshToken
	}
	if tr.IDToken != "" {
		s.IDToken = tr.IDToken
	}
	if tr.TokenType != "" {
		s.TokenType = tr.TokenType
	}
	if tr.ExpiresIn != 0 {
		s.ExpiresIn = tr.ExpiresIn
	}
	if tr.XRefreshTokenExpiresIn != 0 {
		s.XRefreshTokenExpiresIn = tr.XRefreshTokenExpiresIn
	}
	if !tr.Expiry.IsZero() {
		s.Expiry = tr.Expiry
	}
	if tr.RealmID != "" {
		s.RealmID = tr.RealmID
	}
}

// Expired reports whether the access token has expired. A session without an
// expiry never expires.
//
// Supported options: WithExpirySkew, WithNow
func (s *Session) Expired(opt ...Option) bool {
	if s.Expiry.IsZero() {
		return false
	}
	opts := getSessionOpts(opt...)
	return s.Expiry.Round(0).Before(opts.withNow().Add(opts.withExpirySkew))
}

// Valid reports whether the session has an unexpired access token.
//
// Supported options: WithExpirySkew, WithNow
func (s *Session) Valid(opt ...Option) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	return !s.Expired(opt...)
}

// AuthURLForSession is AuthURL using the session's state token. When the
// session has none, a new one is generated and stored in the session.
func (c *Client) AuthURLForSession(s *Session, scopes []Scope) (string, error) {
	const op = "Client.AuthURLForSession"
	if s == nil {
		return "", fmt.Errorf("%s: session is nil: %w", op, ErrNilParameter)
	}
	u, state, err := c.AuthURL(scopes, s.StateToken)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.StateToken = state
	return u, nil
}

// ExchangeSession exchanges code and merges the tokens into s. An empty
// realmID falls back to the session's RealmID.
func (c *Client) ExchangeSession(ctx context.Context, s *Session, code string, realmID string) error {
	const op = "Client.ExchangeSession"
	if s == nil {
		return fmt.Errorf("%s: session is nil: %w", op, ErrNilParameter)
	}
	if realmID == "" {
		realmID = s.RealmID
	}
	tr, err := c.Exchange(ctx, code, realmID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.Update(tr)
	return nil
}

// RefreshSession refreshes the session's tokens.
func (c *Client) RefreshSession(ctx context.Context, s *Session) error {
	const op = "Client.RefreshSession"
	if s == nil {
		return fmt.Errorf("%s: session is nil: %w", op, ErrNilParameter)
	}
	if s.RefreshToken == "" {
		return fmt.Errorf("%s: session has no refresh token: %w", op, ErrMissingToken)
	}
	tr, err := c.Refresh(ctx, s.RefreshToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.Update(tr)
	return nil
}

// RevokeSession revokes the session's refresh token, or its access token when
// it has no refresh token. The session's tokens are cleared once revoked.
func (c *Client) RevokeSession(ctx context.Context, s *Session) error {
	const op = "Client.RevokeSession"
	if s == nil {
		return fmt.Errorf("%s: session is nil: %w", op, ErrNilParameter)
	}
	token := string(s.RefreshToken)
	if token == "" {
		token = string(s.AccessToken)
	}
	if token == "" {
		return fmt.Errorf("%s: session has no token to revoke: %w", op, ErrMissingToken)
	}
	if err := c.Revoke(ctx, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.AccessToken = ""
	s.RefreshToken = ""
	s.Expiry = time.Time{}
	s.ExpiresIn = 0
	s.XRefreshTokenExpiresIn = 0
	return nil
}

// UserInfoSession gets user info with the session's access token.
func (c *Client) UserInfoSession(ctx context.Context, s *Session) (UserInfo, error) {
	const op = "Client.UserInfoSession"
	if s == nil {
		return nil, fmt.Errorf("%s: session is nil: %w", op, ErrNilParameter)
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("%s: session has no access token: %w", op, ErrMissingToken)
	}
	info, err := c.UserInfo(ctx, s.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return info, nil
}

// sessionOptions is the set of available options for Session functions
type sessionOptions struct {
	withExpirySkew time.Duration
	withNow        func() time.Time
}

// sessionDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func sessionDefaults() sessionOptions {
	return sessionOptions{
		withExpirySkew: DefaultExpirySkew,
		withNow:        time.Now,
	}
}

// getSessionOpts gets the session defaults and applies the opt overrides
// passed in
func getSessionOpts(opt ...Option) sessionOptions {
	opts := sessionDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
