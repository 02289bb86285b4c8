// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/intuit/oauth-goclient/oidc"
)

// LoginResp is used by AuthCodeWithChannel. The callback writes its result
// to the returned <-chan LoginResp.
type LoginResp struct {
	Session *oidc.Session // Session is updated when the callback successfully exchanges the auth code.
	Error   error         // Error is populated when there's an error during the callback
}

// AuthCodeWithChannel creates an authorization code callback handler which
// communicates its result by writing a LoginResp to a channel. It's a
// one-time use callback for the single session s, so it's most appropriate
// for a localhost http listener within the same process that sent the user
// to the auth URL (a CLI for example). Only the first request's result is
// written, the channel is closed afterwards.
//
// The SuccessResponseFunc and ErrorResponseFunc still write the http
// responses.
func AuthCodeWithChannel(ctx context.Context, c *oidc.Client, s *oidc.Session, sFn SuccessResponseFunc, eFn ErrorResponseFunc) (<-chan LoginResp, http.HandlerFunc, error) {
	const op = "callback.AuthCodeWithChannel"
	if s == nil {
		return nil, nil, fmt.Errorf("%s: session is nil: %w", op, oidc.ErrInvalidParameter)
	}
	if sFn == nil || eFn == nil {
		return nil, nil, fmt.Errorf("%s: response funcs are required: %w", op, oidc.ErrInvalidParameter)
	}
	doneCh := make(chan LoginResp, 1)
	var once sync.Once
	send := func(r LoginResp) {
		once.Do(func() {
			doneCh <- r
			close(doneCh)
		})
	}

	h, err := AuthCode(ctx, c, &SingleStateReader{Session: s},
		func(state string, s *oidc.Session, w http.ResponseWriter, req *http.Request) {
			sFn(state, s, w, req)
			send(LoginResp{Session: s})
		},
		func(state string, r *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
			eFn(state, r, e, w, req)
			if e == nil && r != nil {
				e = fmt.Errorf("%s: authorization failed: %s: %s", op, r.Error, r.Description)
			}
			send(LoginResp{Error: e})
		},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return doneCh, h, nil
}
