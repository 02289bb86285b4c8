// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"fmt"
	"net/http"

	"github.com/intuit/oauth-goclient/oidc"
)

// AuthCode creates an authorization code callback handler which uses a
// StateReader to find the oidc.Session via the redirect's "state" parameter.
// The code is exchanged using the "code" and "realmId" parameters and the
// tokens are merged into the session.
//
// The SuccessResponseFunc is used to create a response when callback is
// successful. The ErrorResponseFunc is to create a response when the callback
// fails.
func AuthCode(ctx context.Context, c *oidc.Client, r StateReader, sFn SuccessResponseFunc, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.AuthCode"
	if c == nil {
		return nil, fmt.Errorf("%s: client is nil: %w", op, oidc.ErrInvalidParameter)
	}
	if r == nil {
		return nil, fmt.Errorf("%s: state reader is nil: %w", op, oidc.ErrInvalidParameter)
	}
	if sFn == nil {
		return nil, fmt.Errorf("%s: success response func is nil: %w", op, oidc.ErrInvalidParameter)
	}
	if eFn == nil {
		return nil, fmt.Errorf("%s: error response func is nil: %w", op, oidc.ErrInvalidParameter)
	}
	return func(w http.ResponseWriter, req *http.Request) {
		const op = "callback.AuthCode"

		reqState := req.FormValue("state")

		if err := req.FormValue("error"); err != "" {
			// get parameters from either the body or query parameters.
			// FormValue prioritizes body values, if found
			reqError := &AuthenErrorResponse{
				Error:       err,
				Description: req.FormValue("error_description"),
				Uri:         req.FormValue("error_uri"),
			}
			eFn(reqState, reqError, nil, w, req)
			return
		}

		if reqState == "" {
			eFn(reqState, nil, fmt.Errorf("%s: missing state parameter: %w", op, oidc.ErrInvalidState), w, req)
			return
		}

		s, err := r.Read(ctx, reqState)
		if err != nil {
			eFn(reqState, nil, fmt.Errorf("%s: unable to read session: %w", op, err), w, req)
			return
		}
		if s == nil {
			// could have expired or it could be invalid... no way to known for sure
			eFn(reqState, nil, fmt.Errorf("%s: session not found: %w", op, oidc.ErrNotFound), w, req)
			return
		}
		if s.StateToken != reqState {
			// the reader didn't return the session for the state it was
			// given, so the session must not be updated
			eFn(reqState, nil, fmt.Errorf("%s: session state and response state are not equal: %w", op, oidc.ErrInvalidState), w, req)
			return
		}

		reqCode := req.FormValue("code")
		if reqCode == "" {
			eFn(reqState, nil, fmt.Errorf("%s: missing code parameter: %w", op, oidc.ErrInvalidParameter), w, req)
			return
		}

		if err := c.ExchangeSession(ctx, s, reqCode, req.FormValue("realmId")); err != nil {
			eFn(reqState, nil, fmt.Errorf("%s: unable to exchange authorization code: %w", op, err), w, req)
			return
		}
		sFn(reqState, s, w, req)
	}, nil
}
