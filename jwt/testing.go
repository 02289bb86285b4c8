// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
)

// TestGenerateKey generates a key pair suitable for signing with alg.
func TestGenerateKey(t *testing.T, alg Alg) (priv crypto.PrivateKey, pub crypto.PublicKey) {
	t.Helper()
	require := require.New(t)
	switch alg {
	case RS256, RS384, RS512, PS256, PS384, PS512:
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(err)
		return k, k.Public()
	case ES256:
		k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(err)
		return k, k.Public()
	case ES384:
		k, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
		require.NoError(err)
		return k, k.Public()
	case ES512:
		k, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
		require.NoError(err)
		return k, k.Public()
	case EdDSA:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(err)
		return priv, pub
	default:
		require.FailNowf("unsupported algorithm", "alg %q", alg)
		return nil, nil
	}
}

// TestSignJWT will bundle the provided claims into a signed JWT using alg.
// The kid header is set when kid is not empty.
func TestSignJWT(t *testing.T, key crypto.PrivateKey, alg Alg, claims interface{}, kid string) string {
	t.Helper()
	require := require.New(t)

	opts := (&jose.SignerOptions{}).WithType("JWT")
	if kid != "" {
		opts = opts.WithHeader(jose.HeaderKey("kid"), kid)
	}
	sig, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.SignatureAlgorithm(alg), Key: key}, opts)
	require.NoError(err)

	payload, err := json.Marshal(claims)
	require.NoError(err)
	obj, err := sig.Sign(payload)
	require.NoError(err)
	raw, err := obj.CompactSerialize()
	require.NoError(err)
	return raw
}

// TestJWKS returns a key set with the single public key pub.
func TestJWKS(t *testing.T, pub crypto.PublicKey, alg Alg, kid string) *jose.JSONWebKeySet {
	t.Helper()
	k := jose.JSONWebKey{
		Key:       pub,
		KeyID:     kid,
		Algorithm: string(alg),
		Use:       "sig",
	}
	require.True(t, k.Valid())
	return &jose.JSONWebKeySet{Keys: []jose.JSONWebKey{k}}
}
