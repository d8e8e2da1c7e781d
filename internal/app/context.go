// Package app holds the process-wide application context: the signed-in
// user cache and its subscription to auth and profile changes.
package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/realtime"
	"floodwatch/internal/service"
)

// DefaultCacheTTL bounds how stale a cached profile may get when no change
// event arrives (e.g. Redis bridge down).
const DefaultCacheTTL = time.Minute

type cachedUser struct {
	profile *domain.Profile
	expires time.Time
}

// Context is built once at startup. Init must be called before serving and
// Close on shutdown.
type Context struct {
	auth   service.AuthService
	hub    *realtime.Hub
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	users   map[string]cachedUser // token -> profile
	handles []realtime.Handle
	inited  bool
}

func NewContext(auth service.AuthService, hub *realtime.Hub, logger *zap.Logger) *Context {
	return &Context{
		auth:   auth,
		hub:    hub,
		logger: logger,
		ttl:    DefaultCacheTTL,
		now:    time.Now,
		users:  make(map[string]cachedUser),
	}
}

// Init subscribes to sign-out and profile changes. Calling it twice is a no-op.
func (c *Context) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inited {
		return
	}
	c.inited = true
	c.handles = append(c.handles,
		c.hub.Subscribe(realtime.TableAuth, func(ch realtime.Change) bool {
			return ch.Type == realtime.ChangeDelete
		}, c.onChange),
		c.hub.Subscribe(realtime.TableProfiles, nil, c.onChange),
	)
	c.logger.Info("Application context initialised")
}

// Close drops the subscriptions and the cache.
func (c *Context) Close() {
	c.mu.Lock()
	handles := c.handles
	c.handles = nil
	c.inited = false
	c.users = make(map[string]cachedUser)
	c.mu.Unlock()

	for _, h := range handles {
		c.hub.Unsubscribe(h)
	}
}

func (c *Context) onChange(ch realtime.Change) {
	c.Invalidate(ch.ID)
}

// Invalidate evicts every cached session of userID.
func (c *Context) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for token, u := range c.users {
		if u.profile.UserID == userID {
			delete(c.users, token)
		}
	}
}

// CurrentUser resolves a bearer token through the cache.
func (c *Context) CurrentUser(ctx context.Context, token string) (*domain.Profile, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	now := c.now()
	c.mu.RLock()
	u, ok := c.users[token]
	c.mu.RUnlock()
	if ok && now.Before(u.expires) {
		return u.profile, nil
	}

	p, err := c.auth.Resolve(ctx, token)
	if err != nil {
		c.mu.Lock()
		delete(c.users, token)
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Lock()
	c.users[token] = cachedUser{profile: p, expires: now.Add(c.ttl)}
	c.mu.Unlock()
	return p, nil
}

// Forget drops token from the cache (sign-out on this instance).
func (c *Context) Forget(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.users, token)
}

// Cached number of cached sessions.
func (c *Context) Cached() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.users)
}
