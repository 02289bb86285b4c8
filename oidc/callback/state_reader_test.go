// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"testing"

	"github.com/intuit/oauth-goclient/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleStateReader_Read(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name       string
		session    *oidc.Session
		idOverride string
		wantErr    bool
	}{
		{"valid", &oidc.Session{StateToken: "st_1"}, "", false},
		{"not-found", &oidc.Session{StateToken: "st_1"}, "not-found", true},
		{"nil-session", nil, "st_1", true},
		{"empty-state", &oidc.Session{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			s := &SingleStateReader{
				Session: tt.session,
			}
			id := tt.idOverride
			if id == "" && tt.session != nil {
				id = tt.session.StateToken
			}
			got, err := s.Read(ctx, id)
			if tt.wantErr {
				require.Error(err)
				assert.ErrorIs(err, oidc.ErrNotFound)
				assert.Nil(got)
				return
			}
			require.NoError(err)
			assert.Same(tt.session, got)
		})
	}
}
