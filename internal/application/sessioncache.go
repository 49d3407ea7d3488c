package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
	"github.com/ericfisherdev/nextslot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TokenProvider = (*SessionCache)(nil)

// DefaultSafetyMargin is how long before its expiry a session stops being
// handed out.
const DefaultSafetyMargin = 5 * time.Minute

// SessionCache holds the single live Session of the process. It is populated
// lazily and replaced whole whenever the held session is no longer valid.
// The mutex is held across a refresh so concurrent callers wait for the
// in-flight authentication instead of starting their own.
type SessionCache struct {
	mu      sync.Mutex
	session *model.Session
	auth    driven.Authenticator
	margin  time.Duration
	now     func() time.Time
}

// SessionCacheOption configures a SessionCache.
type SessionCacheOption func(*SessionCache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) SessionCacheOption {
	return func(c *SessionCache) { c.now = now }
}

// NewSessionCache creates an empty cache that refreshes through auth. A
// negative margin is treated as zero.
func NewSessionCache(auth driven.Authenticator, margin time.Duration, opts ...SessionCacheOption) *SessionCache {
	if margin < 0 {
		margin = 0
	}
	c := &SessionCache{
		auth:   auth,
		margin: margin,
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetValidToken returns the cached token while now < expiresAt - margin.
// Otherwise it calls refresh exactly once, stores the new session and returns
// its token. Refresh failures are returned as *model.AuthError and leave the
// cache empty.
func (c *SessionCache) GetValidToken(ctx context.Context, refresh func(context.Context) (model.Session, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.ValidAt(c.now(), c.margin) {
		return c.session.Token, nil
	}

	c.session = nil
	s, err := refresh(ctx)
	if err != nil {
		var authErr *model.AuthError
		if errors.As(err, &authErr) {
			return "", err
		}
		return "", &model.AuthError{Err: err}
	}
	if s.Token == "" {
		return "", &model.AuthError{Err: model.ErrNoToken}
	}

	c.session = &s
	return s.Token, nil
}

// Token returns a valid token, authenticating through the configured
// Authenticator when needed.
func (c *SessionCache) Token(ctx context.Context) (string, error) {
	if c.auth == nil {
		return "", &model.AuthError{Err: errors.New("no authenticator configured")}
	}
	return c.GetValidToken(ctx, c.auth.Authenticate)
}

// Invalidate drops the cached session if it still holds token. A token that
// has already been replaced by a concurrent refresh is left alone.
func (c *SessionCache) Invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.Token == token {
		c.session = nil
	}
}

// Expiry returns the expiry of the cached session, if any.
func (c *SessionCache) Expiry() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return time.Time{}, false
	}
	return c.session.ExpiresAt, true
}
