// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopesToString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		scopes    []Scope
		want      string
		wantIsErr error
	}{
		{"nil", nil, "", nil},
		{"one", []Scope{Accounting}, "com.intuit.quickbooks.accounting", nil},
		{"openid", []Scope{OpenID, Email, Profile}, "openid email profile", nil},
		{"dupes", []Scope{Accounting, OpenID, Accounting}, "com.intuit.quickbooks.accounting openid", nil},
		{"migration", []Scope{OpenID, IntuitName, Email}, "openid intuit_name email", nil},
		{"empty-scope", []Scope{Accounting, ""}, "", ErrInvalidParameter},
		{"blank-scope", []Scope{" "}, "", ErrInvalidParameter},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := ScopesToString(tt.scopes)
			if tt.wantIsErr != nil {
				require.Error(err)
				assert.ErrorIs(err, tt.wantIsErr)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
}
