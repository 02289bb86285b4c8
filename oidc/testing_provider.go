// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"crypto"
	"encoding/json"
	"encoding/pem"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-uuid"
	"github.com/intuit/oauth-goclient/jwt"
	"github.com/intuit/oauth-goclient/oidc/internal/strutils"
	sdkhttp "github.com/intuit/oauth-goclient/sdk/http"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
)

// Defaults used by the TestProvider.
const (
	TestProviderRealmID                = "4620816365178744110"
	TestProviderExpiresIn              = 3600
	TestProviderRefreshTokenExpiresIn  = 8726400
	TestProviderDiscoveryPath          = "/.well-known/openid-configuration"
	testProviderIntuitTID              = "1-66f2a1b3-7c0d9e8f6a5b4c3d2e1f0a9b"
	testProviderDefaultKeyID           = "test-provider-key"
	testProviderDefaultSubject         = "9b1d3c4e-0f6a-4b2c-8d7e-1a2b3c4d5e6f"
	testProviderDefaultRedirectURI     = "https://example.com/callback"
	testProviderOAuth1SignatureMethod  = `oauth_signature_method="HMAC-SHA1"`
	testProviderOAuth1AuthorizationKey = "OAuth "
)

// TestProvider is a local https server that plays the part of the provider:
// discovery, JWKS, authorization, token (code and refresh grants),
// revocation, user info and OAuth 1.0a migration endpoints. It makes
// writing tests for clients of this package much easier.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	t *testing.T

	mu                  sync.Mutex
	clientID            string
	clientSecret        string
	allowedRedirectURIs []string
	expectedAuthCode    string
	realmID             string
	replySubject        string
	replyUserinfo       map[string]interface{}
	customClaims        map[string]interface{}
	customAudience      string
	omitIDToken         bool
	disableUserInfo     bool
	oauth1ConsumerKey   string
	oauth1AccessToken   string
	errorResponses      map[string]testErrorResponse

	signingKey crypto.PrivateKey
	publicKey  crypto.PublicKey
	alg        jwt.Alg
	keyID      string
	jwks       *jose.JSONWebKeySet

	accessTokens  map[string]bool
	refreshTokens map[string]bool
	revoked       []string
}

type testErrorResponse struct {
	status int
	body   string
}

// StartTestProvider creates a disposable TestProvider. It's stopped when the
// test completes.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		t:                   t,
		allowedRedirectURIs: []string{testProviderDefaultRedirectURI},
		realmID:             TestProviderRealmID,
		replySubject:        testProviderDefaultSubject,
		replyUserinfo: map[string]interface{}{
			"givenName":           "Alice",
			"familyName":          "Doe",
			"email":               "alice@example.com",
			"emailVerified":       true,
			"phoneNumber":         "+1 6505551234",
			"phoneNumberVerified": false,
		},
		errorResponses: map[string]testErrorResponse{},
		accessTokens:   map[string]bool{},
		refreshTokens:  map[string]bool{},
	}
	p.signingKey, p.publicKey = jwt.TestGenerateKey(t, jwt.ES256)
	p.alg = jwt.ES256
	p.keyID = testProviderDefaultKeyID
	p.jwks = jwt.TestJWKS(t, p.publicKey, p.alg, p.keyID)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: p.httpServer.Certificate().Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running
// webserver. It's also the issuer of the id_tokens it signs.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// DiscoveryURL returns the URL of the provider's discovery document, for use
// as a custom environment.
func (p *TestProvider) DiscoveryURL() string { return p.Addr() + TestProviderDiscoveryPath }

// MigrationURL returns the URL of the OAuth 1.0a migration endpoint.
func (p *TestProvider) MigrationURL() string { return p.Addr() + "/migrate" }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// HTTPClient returns an http client which trusts the provider's
// certificate.
func (p *TestProvider) HTTPClient() *http.Client {
	p.t.Helper()
	c, err := sdkhttp.NewClient(p.caCert)
	require.NoError(p.t, err)
	return c
}

// SetClientCreds is for configuring the client information required for the
// flows.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetExpectedAuthCode configures the auth code to return from /auth and the
// allowed auth code for /token.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetAllowedRedirectURIs allows you to configure the allowed redirect URIs.
// If not configured "https://example.com/callback" is used.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetRealmID configures the realmId sent to the redirect URI and returned by
// the migration endpoint.
func (p *TestProvider) SetRealmID(realmID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.realmID = realmID
}

// SetCustomClaims lets you set claims to return in the id_tokens it issues.
// They override the standard claims.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// SetCustomAudience configures the audience of the id_tokens it issues.
func (p *TestProvider) SetCustomAudience(customAudience string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customAudience = customAudience
}

// SetUserInfoReply configures the claims returned by the user info endpoint.
// The "sub" claim is always added.
func (p *TestProvider) SetUserInfoReply(claims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyUserinfo = claims
}

// SetSigningKeys replaces the key used to sign id_tokens. The published JWKS
// only contains the new public key.
func (p *TestProvider) SetSigningKeys(priv crypto.PrivateKey, pub crypto.PublicKey, alg jwt.Alg, keyID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signingKey, p.publicKey, p.alg, p.keyID = priv, pub, alg, keyID
	p.jwks = jwt.TestJWKS(p.t, pub, alg, keyID)
}

// SigningKeys returns the keys used to sign id_tokens.
func (p *TestProvider) SigningKeys() (priv crypto.PrivateKey, pub crypto.PublicKey, alg jwt.Alg, keyID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signingKey, p.publicKey, p.alg, p.keyID
}

// SetOAuth1Creds configures the OAuth 1.0a consumer key and access token the
// migration endpoint expects in the request's signature.
func (p *TestProvider) SetOAuth1Creds(consumerKey, accessToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.oauth1ConsumerKey = consumerKey
	p.oauth1AccessToken = accessToken
}

// OmitIDTokens stops the token endpoints from returning an id_token.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// DisableUserInfo makes the userinfo endpoint return 404 and omits it from the
// discovery document.
func (p *TestProvider) DisableUserInfo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableUserInfo = true
}

// SetErrorResponse makes every request to path fail with status and body,
// until ClearErrorResponses is called.
func (p *TestProvider) SetErrorResponse(path string, status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errorResponses[path] = testErrorResponse{status: status, body: body}
}

// ClearErrorResponses removes every response set with SetErrorResponse.
func (p *TestProvider) ClearErrorResponses() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errorResponses = map[string]testErrorResponse{}
}

// IntuitTID is the intuit_tid header value sent with every response.
func (p *TestProvider) IntuitTID() string { return testProviderIntuitTID }

// Revoked returns the tokens revoked so far.
func (p *TestProvider) Revoked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.revoked...)
}

// IssueTokens issues a new access and refresh token pair that the provider
// accepts, without going through the authorization flow.
func (p *TestProvider) IssueTokens() (AccessToken, RefreshToken) {
	p.mu.Lock()
	defer p.mu.Unlock()
	at, rt := p.issueTokens()
	return AccessToken(at), RefreshToken(rt)
}

// IDToken signs an id_token with the provider's current key and claims.
func (p *TestProvider) IDToken() IDToken {
	p.mu.Lock()
	defer p.mu.Unlock()
	return IDToken(p.signIDToken())
}

// issueTokens must be called with the lock held.
func (p *TestProvider) issueTokens() (accessToken, refreshToken string) {
	p.t.Helper()
	at, err := uuid.GenerateUUID()
	require.NoError(p.t, err)
	rt, err := uuid.GenerateUUID()
	require.NoError(p.t, err)
	p.accessTokens[at] = true
	p.refreshTokens[rt] = true
	return at, rt
}

// signIDToken must be called with the lock held.
func (p *TestProvider) signIDToken() string {
	p.t.Helper()
	now := time.Now()
	aud := p.clientID
	if p.customAudience != "" {
		aud = p.customAudience
	}
	claims := map[string]interface{}{
		"iss":       p.Addr(),
		"sub":       p.replySubject,
		"aud":       []string{aud},
		"exp":       now.Add(time.Hour).Unix(),
		"iat":       now.Unix(),
		"auth_time": now.Unix(),
		"realmid":   p.realmID,
	}
	for k, v := range p.customClaims {
		claims[k] = v
	}
	return jwt.TestSignJWT(p.t, p.signingKey, p.alg, claims, p.keyID)
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, errorCode, errorMessage string) {
	qv := req.URL.Query()

	redirectURI := qv.Get("redirect_uri") +
		"?state=" + url.QueryEscape(qv.Get("state")) +
		"&error=" + url.QueryEscape(errorCode)

	if errorMessage != "" {
		redirectURI += "&error_description=" + url.QueryEscape(errorMessage)
	}

	http.Redirect(w, req, redirectURI, http.StatusFound)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}
	w.WriteHeader(statusCode)
	_ = p.writeJSON(w, &body)
}

// tokenReply must be called with the lock held.
func (p *TestProvider) tokenReply(w http.ResponseWriter, withRealm bool) {
	at, rt := p.issueTokens()
	reply := struct {
		TokenType              string `json:"token_type"`
		AccessToken            string `json:"access_token"`
		RefreshToken           string `json:"refresh_token"`
		ExpiresIn              int64  `json:"expires_in"`
		XRefreshTokenExpiresIn int64  `json:"x_refresh_token_expires_in"`
		IDToken                string `json:"id_token,omitempty"`
		RealmID                string `json:"realmId,omitempty"`
	}{
		TokenType:              "bearer",
		AccessToken:            at,
		RefreshToken:           rt,
		ExpiresIn:              TestProviderExpiresIn,
		XRefreshTokenExpiresIn: TestProviderRefreshTokenExpiresIn,
	}
	if !p.omitIDToken {
		reply.IDToken = p.signIDToken()
	}
	if withRealm {
		reply.RealmID = p.realmID
	}
	_ = p.writeJSON(w, &reply)
}

// clientAuthorized checks the request's HTTP basic client credentials.
func (p *TestProvider) clientAuthorized(req *http.Request) bool {
	id, secret, ok := req.BasicAuth()
	if !ok {
		return false
	}
	// x/oauth2 url encodes the credentials before encoding them
	if u, err := url.QueryUnescape(id); err == nil {
		id = u
	}
	if u, err := url.QueryUnescape(secret); err == nil {
		secret = u
	}
	return id == p.clientID && secret == p.clientSecret
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(sdkhttp.HeaderIntuitTID, testProviderIntuitTID)
	w.Header().Set(sdkhttp.HeaderDate, time.Now().UTC().Format(http.TimeFormat))

	if e, ok := p.errorResponses[req.URL.Path]; ok {
		w.WriteHeader(e.status)
		_, _ = w.Write([]byte(e.body))
		return
	}

	switch req.URL.Path {
	case TestProviderDiscoveryPath:
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		reply := DiscoveryDocument{
			Issuer:                           p.Addr(),
			AuthorizationEndpoint:            p.Addr() + "/auth",
			TokenEndpoint:                    p.Addr() + "/token",
			RevocationEndpoint:               p.Addr() + "/revoke",
			UserInfoEndpoint:                 p.Addr() + "/userinfo",
			JWKSURI:                          p.Addr() + "/certs",
			ScopesSupported:                  []string{string(OpenID), string(Email), string(Profile), string(Phone), string(Address), string(Accounting), string(Payment)},
			IDTokenSigningAlgValuesSupported: []string{string(p.alg)},
		}
		if p.disableUserInfo {
			reply.UserInfoEndpoint = ""
		}
		_ = p.writeJSON(w, &reply)

	case "/certs":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = p.writeJSON(w, p.jwks)

	case "/auth":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		qv := req.URL.Query()
		redirectURI := qv.Get("redirect_uri")
		switch {
		case redirectURI == "":
			w.WriteHeader(http.StatusBadRequest)
			return
		case !strutils.StrListContains(p.allowedRedirectURIs, redirectURI):
			w.WriteHeader(http.StatusBadRequest)
			return
		case qv.Get("client_id") != p.clientID:
			p.writeAuthErrorResponse(w, req, "unauthorized_client", "unknown client_id")
			return
		case qv.Get("response_type") != "code":
			p.writeAuthErrorResponse(w, req, "unsupported_response_type", "")
			return
		case qv.Get("scope") == "":
			p.writeAuthErrorResponse(w, req, "invalid_scope", "")
			return
		case qv.Get("state") == "":
			p.writeAuthErrorResponse(w, req, "invalid_request", "missing state parameter")
			return
		case p.expectedAuthCode == "":
			p.writeAuthErrorResponse(w, req, "access_denied", "")
			return
		}
		redirectURI += "?state=" + url.QueryEscape(qv.Get("state")) +
			"&code=" + url.QueryEscape(p.expectedAuthCode) +
			"&realmId=" + url.QueryEscape(p.realmID)
		http.Redirect(w, req, redirectURI, http.StatusFound)

	case "/token":
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !p.clientAuthorized(req) {
			p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "")
			return
		}
		switch req.FormValue("grant_type") {
		case "authorization_code":
			switch {
			case !strutils.StrListContains(p.allowedRedirectURIs, req.FormValue("redirect_uri")):
				p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed")
				return
			case p.expectedAuthCode == "" || req.FormValue("code") != p.expectedAuthCode:
				p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unexpected auth code")
				return
			}
			p.tokenReply(w, false)
		case "refresh_token":
			rt := req.FormValue("refresh_token")
			if !p.refreshTokens[rt] {
				p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unknown refresh token")
				return
			}
			delete(p.refreshTokens, rt)
			p.tokenReply(w, false)
		default:
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "unsupported_grant_type", "")
		}

	case "/revoke":
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !p.clientAuthorized(req) {
			p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "")
			return
		}
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Token == "" {
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "missing token")
			return
		}
		if !p.accessTokens[body.Token] && !p.refreshTokens[body.Token] {
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_token", "")
			return
		}
		delete(p.accessTokens, body.Token)
		delete(p.refreshTokens, body.Token)
		p.revoked = append(p.revoked, body.Token)
		w.WriteHeader(http.StatusOK)

	case "/userinfo":
		if p.disableUserInfo {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		at := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
		if !p.accessTokens[at] {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
			return
		}
		reply := map[string]interface{}{"sub": p.replySubject}
		for k, v := range p.replyUserinfo {
			reply[k] = v
		}
		_ = p.writeJSON(w, reply)

	case "/migrate":
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		authz := req.Header.Get("Authorization")
		switch {
		case !strings.HasPrefix(authz, testProviderOAuth1AuthorizationKey),
			!strings.Contains(authz, testProviderOAuth1SignatureMethod),
			!strings.Contains(authz, `oauth_signature="`),
			!strings.Contains(authz, `oauth_consumer_key="`+url.QueryEscape(p.oauth1ConsumerKey)+`"`),
			!strings.Contains(authz, `oauth_token="`+url.QueryEscape(p.oauth1AccessToken)+`"`):
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid OAuth 1.0a signature"}`))
			return
		}
		var body migrationRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "body is not json")
			return
		}
		switch {
		case body.ClientID != p.clientID || body.ClientSecret != p.clientSecret:
			p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "")
			return
		case body.Scope == "":
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_scope", "")
			return
		case !strutils.StrListContains(p.allowedRedirectURIs, body.RedirectURI):
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed")
			return
		}
		p.tokenReply(w, true)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
