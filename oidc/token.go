// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/intuit/oauth-goclient/jwt"
	"golang.org/x/oauth2"
)

// AccessToken is an oauth access_token
type AccessToken string

// RedactedAccessToken is the redacted string or json for an oauth access_token
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// MarshalJSON will redact the token
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAccessToken)
}

// RefreshToken is an oauth refresh_token
type RefreshToken string

// RedactedRefreshToken is the redacted string or json for an oauth refresh_token
const RedactedRefreshToken = "[REDACTED: refresh_token]"

// String will redact the token
func (t RefreshToken) String() string {
	return RedactedRefreshToken
}

// MarshalJSON will redact the token
func (t RefreshToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedRefreshToken)
}

// IDToken is an oidc id_token
type IDToken string

// RedactedIDToken is the redacted string or json for an oidc id_token
const RedactedIDToken = "[REDACTED: id_token]"

// String will redact the token
func (t IDToken) String() string {
	return RedactedIDToken
}

// MarshalJSON will redact the token
func (t IDToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedIDToken)
}

// Claims decodes the id_token's payload into claims. It does not verify the
// token, see Client.VerifyIDToken.
func (t IDToken) Claims(claims interface{}) error {
	const op = "IDToken.Claims"
	if len(t) == 0 {
		return fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	parts := strings.Split(string(t), ".")
	if len(parts) < 3 {
		return fmt.Errorf("%s: malformed id_token, expected 3 parts got %d: %w", op, len(parts), ErrInvalidParameter)
	}
	raw, err := jwt.DecodeSegment(parts[1])
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(raw, claims); err != nil {
		return fmt.Errorf("%s: unable to unmarshal claims: %w", op, err)
	}
	return nil
}

// TokenResponse is the result of a code exchange, a refresh or a migration.
// Merge it into a Session with Session.Update.
type TokenResponse struct {
	AccessToken            AccessToken  `json:"access_token"`
	RefreshToken           RefreshToken `json:"refresh_token,omitempty"`
	TokenType              string       `json:"token_type,omitempty"`
	ExpiresIn              int64        `json:"expires_in,omitempty"`
	XRefreshTokenExpiresIn int64        `json:"x_refresh_token_expires_in,omitempty"`

	// IDToken is only set when the response carried an id_token that
	// verified.
	IDToken IDToken `json:"id_token,omitempty"`

	// RealmID is the QuickBooks company the tokens were issued for.
	RealmID string `json:"realmId,omitempty"`

	// Expiry is when the access token expires, computed from ExpiresIn.
	Expiry time.Time `json:"expiry,omitempty"`
}

// newTokenResponse converts an oauth2 token. The id_token is returned
// separately since it must be verified before it's kept.
func newTokenResponse(t *oauth2.Token, now time.Time) (*TokenResponse, IDToken) {
	tr := &TokenResponse{
		AccessToken:            AccessToken(t.AccessToken),
		RefreshToken:           RefreshToken(t.RefreshToken),
		TokenType:              t.TokenType,
		ExpiresIn:              t.ExpiresIn,
		XRefreshTokenExpiresIn: extraInt64(t, "x_refresh_token_expires_in"),
		Expiry:                 t.Expiry,
	}
	if tr.ExpiresIn == 0 {
		tr.ExpiresIn = extraInt64(t, "expires_in")
	}
	if tr.Expiry.IsZero() && tr.ExpiresIn > 0 {
		tr.Expiry = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	if realm, ok := t.Extra("realmId").(string); ok {
		tr.RealmID = realm
	}
	idToken, _ := t.Extra("id_token").(string)
	return tr, IDToken(idToken)
}

// extraInt64 reads a numeric field of the raw token response, which is a
// float64 for JSON responses and a string for form encoded ones.
func extraInt64(t *oauth2.Token, key string) int64 {
	switch v := t.Extra(key).(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}
