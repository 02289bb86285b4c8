// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-hclog"
	"github.com/intuit/oauth-goclient/oidc"
	"github.com/intuit/oauth-goclient/oidc/callback"
)

func CallbackHandler(ctx context.Context, c *oidc.Client, sc *sessionCache, logger hclog.Logger) (http.HandlerFunc, error) {
	h, err := callback.AuthCode(ctx, c, sc, successFn(sc, logger), failedFn(sc, logger))
	if err != nil {
		return nil, fmt.Errorf("CallbackHandler: %w", err)
	}
	return h, nil
}

func successFn(sc *sessionCache, logger hclog.Logger) callback.SuccessResponseFunc {
	return func(state string, s *oidc.Session, w http.ResponseWriter, req *http.Request) {
		sc.Connected(state)
		logger.Info("company connected", "realm_id", s.RealmID)
		// Redirect to the connected page
		http.Redirect(w, req, "/session?state="+url.QueryEscape(state), http.StatusSeeOther)
	}
}

func failedFn(sc *sessionCache, logger hclog.Logger) callback.ErrorResponseFunc {
	return func(state string, r *callback.AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
		sc.Delete(state)
		switch {
		case e != nil:
			logger.Error("callback error", "error", e)
			http.Error(w, e.Error(), http.StatusInternalServerError)
		case r != nil:
			logger.Warn("callback error from provider", "error", r.Error, "description", r.Description)
			http.Error(w, fmt.Sprintf("authorization failed: %s: %s", r.Error, r.Description), http.StatusUnauthorized)
		default:
			http.Error(w, "unknown error from callback", http.StatusInternalServerError)
		}
	}
}
