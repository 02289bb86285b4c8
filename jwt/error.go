// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")

	// ErrMalformedToken is returned when a token segment cannot be decoded or
	// parsed. A token with too few segments is not an error, it is invalid.
	ErrMalformedToken = errors.New("malformed token")

	// ErrKeyResolution is returned when the signing key could not be
	// resolved, usually because the key set could not be fetched.
	ErrKeyResolution = errors.New("key resolution failed")

	// ErrKeyNotFound is returned, wrapped with ErrKeyResolution, when the key
	// set has no key for the token's kid and strict key resolution is enabled.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidJWKS is returned when a key set document cannot be parsed.
	ErrInvalidJWKS = errors.New("invalid JSON web key set")
)
