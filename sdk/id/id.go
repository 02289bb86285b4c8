// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-secure-stdlib/base62"
)

// DefaultIDLength is the length of the random portion of ids from New.
const DefaultIDLength = 10

// DefaultTokenLength is the length of tokens from NewToken when no length is
// given. It matches the length of the provider's CSRF state tokens.
const DefaultTokenLength = 30

// ErrInvalidLength is returned when a non-positive token length is requested.
var ErrInvalidLength = errors.New("invalid length")

// New generates an ID with an optional prefix.
func New(optionalPrefix string) (string, error) {
	id, err := base62.Random(DefaultIDLength)
	if err != nil {
		return "", fmt.Errorf("unable to generate id: %w", err)
	}
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}

// NewToken generates a random token of [a-zA-Z0-9] characters suitable for
// use as a CSRF state token. A length of zero uses DefaultTokenLength.
func NewToken(length int) (string, error) {
	switch {
	case length == 0:
		length = DefaultTokenLength
	case length < 0:
		return "", fmt.Errorf("token length %d: %w", length, ErrInvalidLength)
	}
	tk, err := base62.Random(length)
	if err != nil {
		return "", fmt.Errorf("unable to generate token: %w", err)
	}
	return tk, nil
}
