// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"

	sdkhttp "github.com/intuit/oauth-goclient/sdk/http"
	"gopkg.in/square/go-jose.v2"
)

// KeySet resolves the public keys used to verify the signatures of JWTs.
// A KeySet is expected to be backed by a set of local or remote keys.
type KeySet interface {
	// LookupKey returns the key identified by kid. found is false, with a nil
	// error, when the set was read but contains no key with that kid. An
	// error means the set itself could not be read.
	LookupKey(ctx context.Context, kid string) (key *jose.JSONWebKey, found bool, err error)
}

// JSONWebKeySet resolves keys from a JWKS URL. The set is fetched on every
// lookup and never cached.
type JSONWebKeySet struct {
	jwksURL string
	client  *http.Client
}

// ensure that JSONWebKeySet implements the KeySet interface
var _ KeySet = (*JSONWebKeySet)(nil)

// NewJSONWebKeySet returns a KeySet that resolves keys from the JSON Web Key
// Set (JWKS) at the given jwksURL. The client used to obtain the remote JWKS
// will verify server certificates using the root certificates provided by
// jwksCAPEM, unless WithHTTPClient provides a client.
//
// Supported options: WithHTTPClient
func NewJSONWebKeySet(jwksURL string, jwksCAPEM string, opt ...Option) (*JSONWebKeySet, error) {
	const op = "jwt.NewJSONWebKeySet"
	if jwksURL == "" {
		return nil, fmt.Errorf("%s: jwksURL must not be empty: %w", op, ErrInvalidParameter)
	}
	opts := getKeySetOpts(opt...)
	client := opts.withHTTPClient
	if client == nil {
		var err error
		client, err = sdkhttp.NewClient(jwksCAPEM)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
	}
	return &JSONWebKeySet{
		jwksURL: jwksURL,
		client:  client,
	}, nil
}

// URL returns the JWKS URL keys are fetched from.
func (ks *JSONWebKeySet) URL() string { return ks.jwksURL }

// LookupKey fetches the JWKS and returns the first key whose kid matches.
// A non-2xx response is returned as a *sdkhttp.ResponseError.
func (ks *JSONWebKeySet) LookupKey(ctx context.Context, kid string) (*jose.JSONWebKey, bool, error) {
	const op = "JSONWebKeySet.LookupKey"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ks.jwksURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	resp, err := sdkhttp.Do(ctx, ks.client, req)
	if err != nil {
		return nil, false, fmt.Errorf("%s: unable to fetch JWKS: %w", op, err)
	}
	key, found, err := findKey(resp.Body, kid)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return key, found, nil
}

// StaticKeySet resolves keys from a JWKS held in memory.
type StaticKeySet struct {
	jwks []byte
}

// ensure that StaticKeySet implements the KeySet interface
var _ KeySet = (*StaticKeySet)(nil)

// NewStaticKeySet returns a KeySet over the given keys.
func NewStaticKeySet(keys *jose.JSONWebKeySet) (*StaticKeySet, error) {
	const op = "jwt.NewStaticKeySet"
	if keys == nil {
		return nil, fmt.Errorf("%s: keys is nil: %w", op, ErrNilParameter)
	}
	b, err := json.Marshal(jose.JSONWebKeySet{Keys: append([]jose.JSONWebKey{}, keys.Keys...)})
	if err != nil {
		return nil, fmt.Errorf("%s: unable to encode keys: %w", op, err)
	}
	return &StaticKeySet{jwks: b}, nil
}

// ParseStaticKeySet returns a KeySet over a JWKS JSON document.
func ParseStaticKeySet(jwks []byte) (*StaticKeySet, error) {
	const op = "jwt.ParseStaticKeySet"
	if _, err := parseKeySetDocument(jwks); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &StaticKeySet{jwks: append([]byte(nil), jwks...)}, nil
}

// NewPEMKeySet returns a KeySet over PEM-encoded public keys indexed by kid.
// The given publicKeys must be of PEM-encoded x509 certificate or PKIX public
// key forms.
func NewPEMKeySet(publicKeys map[string]string) (*StaticKeySet, error) {
	const op = "jwt.NewPEMKeySet"
	set := &jose.JSONWebKeySet{}
	for kid, k := range publicKeys {
		key, err := parsePublicKeyPEM([]byte(k))
		if err != nil {
			return nil, fmt.Errorf("%s: kid %q: %w", op, kid, err)
		}
		set.Keys = append(set.Keys, jose.JSONWebKey{Key: key, KeyID: kid, Use: "sig"})
	}
	return NewStaticKeySet(set)
}

// LookupKey returns the first key whose kid matches. An empty kid is never
// found.
func (ks *StaticKeySet) LookupKey(_ context.Context, kid string) (*jose.JSONWebKey, bool, error) {
	const op = "StaticKeySet.LookupKey"
	key, found, err := findKey(ks.jwks, kid)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return key, found, nil
}

// parseKeySetDocument splits a JWKS document into its raw keys.
func parseKeySetDocument(jwks []byte) ([]json.RawMessage, error) {
	var doc struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(jwks, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJWKS, err)
	}
	if doc.Keys == nil {
		return nil, fmt.Errorf("%w: missing keys", ErrInvalidJWKS)
	}
	return doc.Keys, nil
}

// findKey returns the first key in jwks whose kid matches. Only the matching
// entry is fully decoded, so keys of unsupported types elsewhere in the set
// don't prevent a lookup. An empty kid never matches.
func findKey(jwks []byte, kid string) (*jose.JSONWebKey, bool, error) {
	keys, err := parseKeySetDocument(jwks)
	if err != nil {
		return nil, false, err
	}
	if kid == "" {
		return nil, false, nil
	}
	for _, raw := range keys {
		var id struct {
			KeyID string `json:"kid"`
		}
		if err := json.Unmarshal(raw, &id); err != nil || id.KeyID != kid {
			continue
		}
		var key jose.JSONWebKey
		if err := key.UnmarshalJSON(raw); err != nil {
			return nil, false, fmt.Errorf("%w: kid %q: %s", ErrInvalidJWKS, kid, err)
		}
		return &key, true, nil
	}
	return nil, false, nil
}

// parsePublicKeyPEM is used to parse RSA, ECDSA and Ed25519 public keys from
// PEMs.
func parsePublicKeyPEM(data []byte) (interface{}, error) {
	block, _ := pem.Decode(data)
	if block != nil {
		var rawKey interface{}
		var err error
		if rawKey, err = x509.ParsePKIXPublicKey(block.Bytes); err != nil {
			if cert, err := x509.ParseCertificate(block.Bytes); err == nil {
				rawKey = cert.PublicKey
			} else {
				return nil, err
			}
		}

		switch k := rawKey.(type) {
		case *rsa.PublicKey:
			return k, nil
		case *ecdsa.PublicKey:
			return k, nil
		case ed25519.PublicKey:
			return k, nil
		}
	}

	return nil, errors.New("data does not contain any valid RSA, ECDSA, or ED25519 public keys")
}
