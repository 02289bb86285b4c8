// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"fmt"
	"net/http"

	"github.com/intuit/oauth-goclient/oidc"
)

func Example() {
	ctx := context.Background()

	// Create a new Config and Client
	pc, _ := oidc.NewConfig(
		"your_client_id",
		"your_client_secret",
		"http://your_redirect_url/callback",
		"sandbox",
	)
	c, _ := oidc.NewClient(ctx, pc)

	// Create a Session for the user's authorization attempt and the URL to
	// send them to.
	s := &oidc.Session{}
	authURL, _ := c.AuthURLForSession(s, []oidc.Scope{oidc.Accounting, oidc.OpenID})
	fmt.Println(authURL)

	// A function to handle successful attempts.
	successFn := func(
		state string,
		s *oidc.Session,
		w http.ResponseWriter,
		req *http.Request,
	) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(fmt.Sprintf("connected to company %s", s.RealmID)))
	}
	// A function to handle errors and failed attempts.
	errorFn := func(
		state string,
		r *AuthenErrorResponse,
		e error,
		w http.ResponseWriter,
		req *http.Request,
	) {
		if e != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(e.Error()))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}
	// create the authorization code callback and register it for use.
	authCodeCallback, _ := AuthCode(ctx, c, &SingleStateReader{Session: s}, successFn, errorFn)
	http.HandleFunc("/callback", authCodeCallback)
}

func ExampleAuthCode() {
	ctx := context.Background()
	pc, _ := oidc.NewConfig("your_client_id", "your_client_secret", "http://your_redirect_url/callback", "production")
	c, _ := oidc.NewClient(ctx, pc)

	s := &oidc.Session{StateToken: "state-sent-with-the-auth-url"}

	// Create an authorization code callback using the single session reader
	// for a CLI that authorizes one user.
	authCodeCallback, _ := AuthCode(
		ctx,
		c,
		&SingleStateReader{Session: s},
		func(state string, s *oidc.Session, w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
		func(state string, r *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	)
	http.HandleFunc("/callback", authCodeCallback)
}
