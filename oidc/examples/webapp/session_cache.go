// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/intuit/oauth-goclient/oidc"
)

type cachedSession struct {
	s       *oidc.Session
	expires time.Time
}

// sessionCache holds every user's session, keyed by state token. Sessions of
// users who never complete the flow expire after attemptExp.
type sessionCache struct {
	m          sync.Mutex
	c          map[string]cachedSession
	attemptExp time.Duration
}

func newSessionCache(attemptExp time.Duration) *sessionCache {
	return &sessionCache{
		c:          map[string]cachedSession{},
		attemptExp: attemptExp,
	}
}

// Read implements the callback.StateReader interface.
func (sc *sessionCache) Read(_ context.Context, stateToken string) (*oidc.Session, error) {
	const op = "sessionCache.Read"
	sc.m.Lock()
	defer sc.m.Unlock()
	cs, ok := sc.c[stateToken]
	if !ok {
		return nil, fmt.Errorf("%s: state %s: %w", op, stateToken, oidc.ErrNotFound)
	}
	if !cs.expires.IsZero() && time.Now().After(cs.expires) {
		delete(sc.c, stateToken)
		return nil, fmt.Errorf("%s: state %s expired: %w", op, stateToken, oidc.ErrNotFound)
	}
	return cs.s, nil
}

// Add a session for an authorization attempt.
func (sc *sessionCache) Add(s *oidc.Session) {
	sc.m.Lock()
	defer sc.m.Unlock()
	sc.c[s.StateToken] = cachedSession{s: s, expires: time.Now().Add(sc.attemptExp)}
}

// Connected keeps the session once its code has been exchanged.
func (sc *sessionCache) Connected(stateToken string) {
	sc.m.Lock()
	defer sc.m.Unlock()
	if cs, ok := sc.c[stateToken]; ok {
		cs.expires = time.Time{}
		sc.c[stateToken] = cs
	}
}

func (sc *sessionCache) Delete(stateToken string) {
	sc.m.Lock()
	defer sc.m.Unlock()
	delete(sc.c, stateToken)
}

// update runs fn with the cache locked, since sessions aren't safe for
// concurrent use.
func (sc *sessionCache) update(stateToken string, fn func(s *oidc.Session) error) error {
	const op = "sessionCache.update"
	sc.m.Lock()
	defer sc.m.Unlock()
	cs, ok := sc.c[stateToken]
	if !ok || !cs.expires.IsZero() {
		return fmt.Errorf("%s: state %s: %w", op, stateToken, oidc.ErrNotFound)
	}
	return fn(cs.s)
}
