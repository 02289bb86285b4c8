// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/intuit/oauth-goclient/oidc"
	sdkhttp "github.com/intuit/oauth-goclient/sdk/http"
)

type sessionResponse struct {
	RealmID  string                 `json:"realm_id"`
	Expiry   time.Time              `json:"expiry"`
	Valid    bool                   `json:"valid"`
	Claims   map[string]interface{} `json:"id_token_claims,omitempty"`
	UserInfo oidc.UserInfo          `json:"user_info,omitempty"`
}

// SessionHandler shows the connected session. Tokens are never returned.
func SessionHandler(ctx context.Context, c *oidc.Client, sc *sessionCache, logger hclog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp sessionResponse
		err := sc.update(r.FormValue("state"), func(s *oidc.Session) error {
			resp.RealmID, resp.Expiry, resp.Valid = s.RealmID, s.Expiry, s.Valid()
			if s.IDToken != "" {
				if err := s.IDToken.Claims(&resp.Claims); err != nil {
					return err
				}
			}
			if s.Valid() {
				info, err := c.UserInfoSession(ctx, s)
				if err != nil {
					logger.Warn("unable to get user info", "error", err)
					return nil
				}
				resp.UserInfo = info
			}
			return nil
		})
		writeResult(w, logger, resp, err)
	}
}

// RefreshHandler refreshes the session's tokens.
func RefreshHandler(ctx context.Context, c *oidc.Client, sc *sessionCache, logger hclog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp sessionResponse
		err := sc.update(r.FormValue("state"), func(s *oidc.Session) error {
			if err := c.RefreshSession(ctx, s); err != nil {
				return err
			}
			resp.RealmID, resp.Expiry, resp.Valid = s.RealmID, s.Expiry, s.Valid()
			return nil
		})
		writeResult(w, logger, resp, err)
	}
}

// RevokeHandler disconnects the session's company.
func RevokeHandler(ctx context.Context, c *oidc.Client, sc *sessionCache, logger hclog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := r.FormValue("state")
		err := sc.update(state, func(s *oidc.Session) error {
			return c.RevokeSession(ctx, s)
		})
		if err == nil {
			sc.Delete(state)
		}
		writeResult(w, logger, sessionResponse{}, err)
	}
}

func writeResult(w http.ResponseWriter, logger hclog.Logger, resp sessionResponse, err error) {
	var respErr *sdkhttp.ResponseError
	switch {
	case errors.Is(err, oidc.ErrNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
		return
	case errors.As(err, &respErr):
		logger.Error("provider request failed", "status", respErr.StatusCode, "intuit_tid", respErr.IntuitTID, "date", respErr.Date)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	case err != nil:
		logger.Error("request failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(resp); err != nil {
		logger.Error("unable to write response", "error", err)
	}
}
