// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
)

var (
	ErrInvalidParameter          = errors.New("invalid parameter")
	ErrNilParameter              = errors.New("nil parameter")
	ErrInvalidCACert             = errors.New("invalid CA certificate")
	ErrInvalidDiscovery          = errors.New("invalid discovery document")
	ErrIdGeneratorFailed         = errors.New("id generation failed")
	ErrIdTokenVerificationFailed = errors.New("id_token verification failed")
	ErrInvalidState              = errors.New("invalid state")
	ErrNotFound                  = errors.New("not found")
	ErrMissingToken              = errors.New("token is missing")
	ErrUserInfoFailed            = errors.New("user info failed")
	ErrMigrationFailed           = errors.New("token migration failed")
)
