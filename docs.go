// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// oauthclient provides a collection of related packages for integrating apps
// with the Intuit OAuth 2.0 and OpenID Connect provider: the oidc package
// (authorization code flow, token refresh and revocation, user info and
// OAuth 1.0a migration), the oidc/callback package (redirect handlers) and
// the jwt package (id_token verification).
package oauthclient
