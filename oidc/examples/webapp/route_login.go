// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/intuit/oauth-goclient/oidc"
)

func LoginHandler(c *oidc.Client, sc *sessionCache, scopes []oidc.Scope, logger hclog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := &oidc.Session{}
		authURL, err := c.AuthURLForSession(s, scopes)
		if err != nil {
			logger.Error("error getting auth url", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		sc.Add(s)
		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	}
}
