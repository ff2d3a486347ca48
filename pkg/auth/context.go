package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"docchat-client/internal/constant"
	"docchat-client/pkg/events"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var (
	ErrNoToken      = errors.New("no authentication token")
	ErrTokenExpired = errors.New("authentication token expired")
)

type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
	StateEvicted
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateEvicted:
		return "evicted"
	}
	return "anonymous"
}

// Context holds the bearer token for one tab. Every privileged call reads it;
// eviction is a state transition published on the event bus.
type Context struct {
	mu        sync.RWMutex
	tabID     string
	token     *oauth2.Token
	state     State
	publisher events.Publisher
	now       func() time.Time
}

func NewContext(tabID string, publisher events.Publisher) *Context {
	return &Context{
		tabID:     tabID,
		publisher: publisher,
		now:       time.Now,
	}
}

// SetToken stores a raw bearer token. JWT expiry is read without verifying
// the signature; opaque tokens are accepted with no expiry.
func (c *Context) SetToken(raw string) error {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return ErrNoToken
	}

	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if exp, ok := expiryOf(raw); ok {
		tok.Expiry = exp
	}

	c.mu.Lock()
	c.token = tok
	c.state = StateAuthenticated
	c.mu.Unlock()
	return nil
}

func expiryOf(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Token returns the current token, or an error when there is none or it has
// already expired.
func (c *Context) Token() (*oauth2.Token, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == nil {
		return nil, ErrNoToken
	}
	if !c.token.Expiry.IsZero() && !c.token.Expiry.After(c.now()) {
		return nil, ErrTokenExpired
	}
	return c.token, nil
}

func (c *Context) HasToken() bool {
	_, err := c.Token()
	return err == nil
}

func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Context) TabID() string {
	return c.tabID
}

// Evict removes the token. Only the transition out of a held token is
// published, so repeated evictions broadcast once.
func (c *Context) Evict(ctx context.Context, reason string) {
	c.mu.Lock()
	hadToken := c.token != nil
	c.token = nil
	c.state = StateEvicted
	c.mu.Unlock()

	if !hadToken || c.publisher == nil {
		return
	}
	_ = c.publisher.Publish(ctx, events.BaseEvent{
		Type: constant.EventTokenEvicted,
		Data: map[string]interface{}{
			"tab_id": c.tabID,
			"reason": reason,
		},
		OccurredAt: c.now(),
	})
}
