// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
oidc is a package for integrating apps with the Intuit OAuth 2.0 and OpenID
Connect provider.

Primary types provided by the package

* Config: provides the configuration for the 3-legged authorization code flow
(for example: client Id/Secret, redirect URL, environment, supported signing
algorithms)

* Client: provides integration with the provider. It builds auth URLs,
exchanges codes for tokens, refreshes and revokes tokens, verifies id_tokens,
makes user info requests and migrates OAuth 1.0a credentials.

* Session: represents one user's authorization, owned by the caller. The
Client's Session helpers keep it current as tokens are exchanged, refreshed
and revoked.

* TokenResponse: represents a token endpoint reply (access_token,
refresh_token, id_token and their lifetimes)

* Scope: represents the scopes the provider supports

The oidc.callback package

The callback package includes the ability to create a http.HandlerFunc which
can be used for the 3rd leg of the flow where the authorization code is
exchanged for tokens.

Testing

TestProvider is a local provider which serves discovery, JWKS, authorization,
token, revocation, user info and migration endpoints for tests.
*/
package oidc
