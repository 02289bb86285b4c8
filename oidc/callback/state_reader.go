// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"fmt"

	"github.com/intuit/oauth-goclient/oidc"
)

// StateReader defines an interface for finding and reading the oidc.Session
// a redirect's state token belongs to.
//
// Implementations must be concurrently safe, since the reader will likely be
// used within a concurrent http.Handler
type StateReader interface {
	// Read an existing Session. The returned session's StateToken must match
	// the stateToken used to look it up. A nil session and a nil error means
	// no session was found.
	Read(ctx context.Context, stateToken string) (*oidc.Session, error)
}

// SingleStateReader implements the StateReader interface for a single
// session. It's meant for single user apps (like a CLI) that have at most
// one authorization in flight.
type SingleStateReader struct {
	Session *oidc.Session
}

// Read will return its single session if stateToken matches its StateToken,
// otherwise it returns an error of oidc.ErrNotFound. It satisfies the
// StateReader interface.
func (s *SingleStateReader) Read(_ context.Context, stateToken string) (*oidc.Session, error) {
	const op = "SingleStateReader.Read"
	if s.Session == nil || s.Session.StateToken == "" || s.Session.StateToken != stateToken {
		return nil, fmt.Errorf("%s: %w", op, oidc.ErrNotFound)
	}
	return s.Session, nil
}
