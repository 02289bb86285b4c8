// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// Client credentials used by TestNewConfig.
const (
	TestClientID     = "test-client-id"
	TestClientSecret = "test-client-secret"
)

// TestNewConfig creates a new config for the TestProvider (tp). The tp's
// client credentials are set and its redirect URIs are replaced with
// redirectURL. The config trusts the tp's CA and migrates against its
// migration endpoint.
func TestNewConfig(t *testing.T, tp *TestProvider, redirectURL string, opt ...Option) *Config {
	const op = "TestNewConfig"
	t.Helper()
	require := require.New(t)
	require.NotNilf(tp, "%s: test provider is nil", op)
	require.NotEmptyf(redirectURL, "%s: redirect URL is empty", op)

	tp.SetClientCreds(TestClientID, TestClientSecret)
	tp.SetAllowedRedirectURIs([]string{redirectURL})

	opts := append([]Option{
		WithProviderCA(tp.CACert()),
		WithMigrationURL(tp.MigrationURL()),
	}, opt...)
	c, err := NewConfig(TestClientID, TestClientSecret, redirectURL, tp.DiscoveryURL(), opts...)
	require.NoErrorf(err, "%s: unable to create config", op)
	return c
}

// TestNewClient creates a new Client for the TestProvider (tp). See
// TestNewConfig.
func TestNewClient(t *testing.T, tp *TestProvider, redirectURL string, opt ...Option) *Client {
	const op = "TestNewClient"
	t.Helper()
	c, err := NewClient(context.Background(), TestNewConfig(t, tp, redirectURL, opt...))
	require.NoErrorf(t, err, "%s: unable to create client", op)
	return c
}
