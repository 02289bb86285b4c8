// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sdkhttp "github.com/intuit/oauth-goclient/sdk/http"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
)

const (
	wellKnownJWKS = "/.well-known/jwks.json"
	testKeyID     = "test-key"
)

// testJWKSServer serves jwks at wellKnownJWKS and counts requests.
type testJWKSServer struct {
	*httptest.Server
	hits   atomic.Int32
	status atomic.Int32
	body   atomic.Value
}

func startTestJWKSServer(t *testing.T, jwks interface{}) *testJWKSServer {
	t.Helper()
	s := &testJWKSServer{}
	s.setJWKS(t, jwks)
	s.status.Store(http.StatusOK)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if r.URL.Path != wellKnownJWKS || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set(sdkhttp.HeaderIntuitTID, "1-5f7b3a2e-test")
		status := int(s.status.Load())
		w.WriteHeader(status)
		_, _ = w.Write(s.body.Load().([]byte))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *testJWKSServer) setJWKS(t *testing.T, jwks interface{}) {
	t.Helper()
	switch v := jwks.(type) {
	case []byte:
		s.body.Store(v)
	default:
		b, err := json.Marshal(v)
		require.NoError(t, err)
		s.body.Store(b)
	}
}

func (s *testJWKSServer) jwksURL() string { return s.URL + wellKnownJWKS }

func TestNewJSONWebKeySet(t *testing.T) {
	t.Parallel()
	t.Run("empty-url", func(t *testing.T) {
		_, err := NewJSONWebKeySet("", "")
		require.ErrorIs(t, err, ErrInvalidParameter)
	})
	t.Run("bad-ca", func(t *testing.T) {
		_, err := NewJSONWebKeySet("https://example.com/keys", "not a pem")
		require.ErrorIs(t, err, sdkhttp.ErrInvalidCertificatePem)
	})
	t.Run("with-client", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := &http.Client{}
		ks, err := NewJSONWebKeySet("https://example.com/keys", "", WithHTTPClient(c))
		require.NoError(err)
		assert.Same(c, ks.client)
		assert.Equal("https://example.com/keys", ks.URL())
	})
}

func TestJSONWebKeySet_LookupKey(t *testing.T) {
	t.Parallel()
	_, pub := TestGenerateKey(t, RS256)
	_, otherPub := TestGenerateKey(t, ES256)

	set := TestJWKS(t, pub, RS256, testKeyID)
	set.Keys = append([]jose.JSONWebKey{TestJWKS(t, otherPub, ES256, "other-key").Keys[0]}, set.Keys...)
	srv := startTestJWKSServer(t, set)

	ks, err := NewJSONWebKeySet(srv.jwksURL(), "")
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		key, found, err := ks.LookupKey(context.Background(), testKeyID)
		require.NoError(err)
		require.True(found)
		assert.Equal(testKeyID, key.KeyID)
		assert.Equal(string(RS256), key.Algorithm)
		rsaPub, ok := key.Key.(*rsa.PublicKey)
		require.True(ok)
		assert.True(rsaPub.Equal(pub))
	})
	t.Run("not-found", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		key, found, err := ks.LookupKey(context.Background(), "rotated-away")
		require.NoError(err)
		assert.False(found)
		assert.Nil(key)
	})
	t.Run("fetched-every-time", func(t *testing.T) {
		before := srv.hits.Load()
		for i := 0; i < 3; i++ {
			_, _, err := ks.LookupKey(context.Background(), testKeyID)
			require.NoError(t, err)
		}
		assert.Equal(t, before+3, srv.hits.Load())
	})
}

func TestJSONWebKeySet_LookupKey_Errors(t *testing.T) {
	t.Parallel()
	_, pub := TestGenerateKey(t, RS256)

	t.Run("non-2xx", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := startTestJWKSServer(t, []byte(`{"error":"unavailable"}`))
		srv.status.Store(http.StatusServiceUnavailable)
		ks, err := NewJSONWebKeySet(srv.jwksURL(), "")
		require.NoError(err)

		_, found, err := ks.LookupKey(context.Background(), testKeyID)
		require.Error(err)
		assert.False(found)
		var respErr *sdkhttp.ResponseError
		require.True(errors.As(err, &respErr))
		assert.Equal(http.StatusServiceUnavailable, respErr.StatusCode)
		assert.Equal(`{"error":"unavailable"}`, string(respErr.Body))
		assert.Equal("1-5f7b3a2e-test", respErr.IntuitTID)
	})
	t.Run("not-a-keyset", func(t *testing.T) {
		srv := startTestJWKSServer(t, []byte("It's not a keyset!"))
		ks, err := NewJSONWebKeySet(srv.jwksURL(), "")
		require.NoError(t, err)
		_, _, err = ks.LookupKey(context.Background(), testKeyID)
		require.ErrorIs(t, err, ErrInvalidJWKS)
	})
	t.Run("unsupported-key-elsewhere-in-set", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		good, err := json.Marshal(TestJWKS(t, pub, RS256, testKeyID).Keys[0])
		require.NoError(err)
		doc := []byte(`{"keys":[{"kty":"unknown","kid":"weird"},` + string(good) + `]}`)
		srv := startTestJWKSServer(t, doc)
		ks, err := NewJSONWebKeySet(srv.jwksURL(), "")
		require.NoError(err)

		key, found, err := ks.LookupKey(context.Background(), testKeyID)
		require.NoError(err)
		assert.True(found)
		assert.Equal(testKeyID, key.KeyID)

		_, _, err = ks.LookupKey(context.Background(), "weird")
		assert.ErrorIs(err, ErrInvalidJWKS)
	})
	t.Run("canceled", func(t *testing.T) {
		srv := startTestJWKSServer(t, TestJWKS(t, pub, RS256, testKeyID))
		ks, err := NewJSONWebKeySet(srv.jwksURL(), "")
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err = ks.LookupKey(ctx, testKeyID)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestStaticKeySet(t *testing.T) {
	t.Parallel()
	_, rsaPub := TestGenerateKey(t, RS256)
	_, ecPub := TestGenerateKey(t, ES384)
	_, edPub := TestGenerateKey(t, EdDSA)

	t.Run("nil-keys", func(t *testing.T) {
		_, err := NewStaticKeySet(nil)
		require.ErrorIs(t, err, ErrNilParameter)
	})
	t.Run("empty-keys", func(t *testing.T) {
		require := require.New(t)
		ks, err := NewStaticKeySet(&jose.JSONWebKeySet{})
		require.NoError(err)
		_, found, err := ks.LookupKey(context.Background(), testKeyID)
		require.NoError(err)
		require.False(found)
	})
	t.Run("empty-kid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		ks, err := NewStaticKeySet(TestJWKS(t, rsaPub, RS256, ""))
		require.NoError(err)
		key, found, err := ks.LookupKey(context.Background(), "")
		require.NoError(err)
		assert.False(found)
		assert.Nil(key)
	})
	t.Run("jose-keys", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		ks, err := NewStaticKeySet(TestJWKS(t, edPub, EdDSA, "ed"))
		require.NoError(err)
		key, found, err := ks.LookupKey(context.Background(), "ed")
		require.NoError(err)
		require.True(found)
		assert.Equal(string(EdDSA), key.Algorithm)
	})
	t.Run("parse-invalid", func(t *testing.T) {
		_, err := ParseStaticKeySet([]byte(`{"nope":[]}`))
		require.ErrorIs(t, err, ErrInvalidJWKS)
	})
	t.Run("pem", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		ks, err := NewPEMKeySet(map[string]string{
			"rsa": testPublicKeyPEM(t, rsaPub),
			"ec":  testPublicKeyPEM(t, ecPub),
			"ed":  testPublicKeyPEM(t, edPub),
		})
		require.NoError(err)
		key, found, err := ks.LookupKey(context.Background(), "ec")
		require.NoError(err)
		require.True(found)
		ecKey, ok := key.Key.(*ecdsa.PublicKey)
		require.True(ok)
		assert.True(ecKey.Equal(ecPub))
	})
	t.Run("pem-invalid", func(t *testing.T) {
		_, err := NewPEMKeySet(map[string]string{"bad": "not a pem"})
		require.Error(t, err)
	})
}

// Test_jwxKeySetInterop checks that a JWKS produced by an independent JOSE
// implementation resolves and verifies.
func Test_jwxKeySetInterop(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	priv, pub := TestGenerateKey(t, RS256)

	k, err := jwk.FromRaw(pub)
	require.NoError(err)
	require.NoError(k.Set(jwk.KeyIDKey, "jwx-key"))
	require.NoError(k.Set(jwk.AlgorithmKey, jwa.RS256))
	require.NoError(k.Set(jwk.KeyUsageKey, "sig"))
	set := jwk.NewSet()
	require.NoError(set.AddKey(k))
	doc, err := json.Marshal(set)
	require.NoError(err)

	ks, err := ParseStaticKeySet(doc)
	require.NoError(err)
	key, found, err := ks.LookupKey(context.Background(), "jwx-key")
	require.NoError(err)
	require.True(found)
	assert.Equal(string(RS256), key.Algorithm)

	v, err := NewVerifier(ks, WithNow(testNow))
	require.NoError(err)
	token := TestSignJWT(t, priv, RS256, testClaims("https://issuer.example.com", "client-id", testNow().Add(time.Hour)), "jwx-key")
	valid, err := v.Verify(context.Background(), token, "client-id", "https://issuer.example.com")
	require.NoError(err)
	assert.True(valid)
}

func testPublicKeyPEM(t *testing.T, pub interface{}) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}
