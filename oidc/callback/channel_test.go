// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/intuit/oauth-goclient/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthCodeWithChannel(t *testing.T) {
	ctx := context.Background()
	tp := oidc.StartTestProvider(t)
	c := oidc.TestNewClient(t, tp, testRedirectURL)
	tp.SetExpectedAuthCode("valid-code")

	t.Run("invalid-params", func(t *testing.T) {
		_, _, err := AuthCodeWithChannel(ctx, c, nil, testSuccessFn, testFailFn)
		assert.ErrorIs(t, err, oidc.ErrInvalidParameter)
		_, _, err = AuthCodeWithChannel(ctx, c, &oidc.Session{}, nil, testFailFn)
		assert.ErrorIs(t, err, oidc.ErrInvalidParameter)
		_, _, err = AuthCodeWithChannel(ctx, nil, &oidc.Session{}, testSuccessFn, testFailFn)
		assert.ErrorIs(t, err, oidc.ErrInvalidParameter)
	})

	t.Run("success", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := &oidc.Session{StateToken: "st_channel"}
		ch, h, err := AuthCodeWithChannel(ctx, c, s, testSuccessFn, testFailFn)
		require.NoError(err)

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, testRedirectURL+"?state=st_channel&code=valid-code&realmId=123", nil))
		assert.Equal(http.StatusOK, rec.Code)

		resp := <-ch
		require.NoError(resp.Error)
		assert.Same(s, resp.Session)
		assert.Equal("123", s.RealmID)
		assert.NotEmpty(s.AccessToken)

		// a second hit is answered but not reported
		rec = httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, testRedirectURL+"?state=st_channel&code=valid-code", nil))
		_, open := <-ch
		assert.False(open)
	})

	t.Run("provider-error", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := &oidc.Session{StateToken: "st_channel"}
		ch, h, err := AuthCodeWithChannel(ctx, c, s, testSuccessFn, testFailFn)
		require.NoError(err)

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, testRedirectURL+"?state=st_channel&error=access_denied&error_description=user+declined", nil))
		assert.Equal(http.StatusUnauthorized, rec.Code)

		resp := <-ch
		require.Error(resp.Error)
		assert.Contains(resp.Error.Error(), "access_denied")
		assert.Contains(resp.Error.Error(), "user declined")
		assert.Nil(resp.Session)
	})
}
