// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/intuit/oauth-goclient/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestTokens_Redaction(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		token    fmt.Stringer
		redacted string
	}{
		{"access", AccessToken("a-secret"), RedactedAccessToken},
		{"refresh", RefreshToken("r-secret"), RedactedRefreshToken},
		{"id", IDToken("i-secret"), RedactedIDToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			assert.Equal(tt.redacted, tt.token.String())
			assert.Equal(tt.redacted, fmt.Sprintf("%v", tt.token))
			b, err := json.Marshal(tt.token)
			require.NoError(err)
			assert.Equal(`"`+tt.redacted+`"`, string(b))
		})
	}

	t.Run("token-response", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		b, err := json.Marshal(&TokenResponse{
			AccessToken:  "a-secret",
			RefreshToken: "r-secret",
			IDToken:      "i-secret",
			RealmID:      "123",
		})
		require.NoError(err)
		assert.NotContains(string(b), "secret\"")
		assert.Contains(string(b), `"realmId":"123"`)
	})
}

func TestIDToken_Claims(t *testing.T) {
	t.Parallel()
	priv, _ := jwt.TestGenerateKey(t, jwt.ES256)
	signed := IDToken(jwt.TestSignJWT(t, priv, jwt.ES256, map[string]interface{}{
		"sub":     "alice",
		"realmid": "123",
	}, "kid"))

	tests := []struct {
		name      string
		token     IDToken
		claims    interface{}
		wantSub   string
		wantIsErr error
	}{
		{"valid", signed, &map[string]interface{}{}, "alice", nil},
		{"empty", "", &map[string]interface{}{}, "", ErrInvalidParameter},
		{"nil-claims", signed, nil, "", ErrNilParameter},
		{"two-parts", "a.b", &map[string]interface{}{}, "", ErrInvalidParameter},
		{"bad-payload", "a.!!!.c", &map[string]interface{}{}, "", nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			err := tt.token.Claims(tt.claims)
			if tt.wantSub == "" {
				require.Error(err)
				if tt.wantIsErr != nil {
					assert.ErrorIs(err, tt.wantIsErr)
				}
				return
			}
			require.NoError(err)
			got := *(tt.claims.(*map[string]interface{}))
			assert.Equal(tt.wantSub, got["sub"])
			assert.Equal("123", got["realmid"])
		})
	}
}

func Test_newTokenResponse(t *testing.T) {
	t.Parallel()
	now := time.Unix(1_700_000_000, 0)

	t.Run("json-extras", func(t *testing.T) {
		assert := assert.New(t)
		tok := (&oauth2.Token{
			AccessToken:  "at",
			RefreshToken: "rt",
			TokenType:    "bearer",
		}).WithExtra(map[string]interface{}{
			"expires_in":                 float64(3600),
			"x_refresh_token_expires_in": float64(8726400),
			"id_token":                   "x.y.z",
			"realmId":                    "123",
		})
		tr, idToken := newTokenResponse(tok, now)
		assert.Equal(&TokenResponse{
			AccessToken:            "at",
			RefreshToken:           "rt",
			TokenType:              "bearer",
			ExpiresIn:              3600,
			XRefreshTokenExpiresIn: 8726400,
			RealmID:                "123",
			Expiry:                 now.Add(time.Hour),
		}, tr)
		assert.Equal(IDToken("x.y.z"), idToken)
	})
	t.Run("form-extras-and-expiry", func(t *testing.T) {
		assert := assert.New(t)
		expiry := now.Add(time.Minute)
		tok := (&oauth2.Token{
			AccessToken: "at",
			Expiry:      expiry,
			ExpiresIn:   60,
		}).WithExtra(map[string]interface{}{
			"x_refresh_token_expires_in": "100",
		})
		tr, idToken := newTokenResponse(tok, now)
		assert.Equal(int64(60), tr.ExpiresIn)
		assert.Equal(int64(100), tr.XRefreshTokenExpiresIn)
		assert.Equal(expiry, tr.Expiry)
		assert.Empty(idToken)
		assert.Empty(tr.RealmID)
	})
}
