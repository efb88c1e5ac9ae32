package interceptor

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/httpkit/client"
)

// TokenSource fetches a bearer token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// DefaultExpirySkew refreshes JWTs this long before their exp claim.
const DefaultExpirySkew = 30 * time.Second

// TokenOption configures a TokenRefresher.
type TokenOption func(*TokenRefresher)

// WithExpirySkew sets how early a JWT is refreshed.
func WithExpirySkew(d time.Duration) TokenOption {
	return func(t *TokenRefresher) { t.skew = d }
}

// WithMaxAge bounds how long any token, JWT or opaque, is cached. Zero
// caches opaque tokens until a 401 invalidates them.
func WithMaxAge(d time.Duration) TokenOption {
	return func(t *TokenRefresher) { t.maxAge = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenRefresher) { t.now = now }
}

// TokenRefresher sets a bearer token from a TokenSource, caching it until
// it expires. JWT expiry is read from the unverified exp claim. A 401
// answer to a request carrying the cached token drops it, so the next
// attempt fetches a fresh one.
type TokenRefresher struct {
	source TokenSource
	skew   time.Duration
	maxAge time.Duration
	now    func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// TokenRefresh returns a TokenRefresher over src.
func TokenRefresh(src TokenSource, opts ...TokenOption) *TokenRefresher {
	t := &TokenRefresher{source: src, skew: DefaultExpirySkew, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Before sets the Authorization header.
func (t *TokenRefresher) Before(ctx context.Context, rb *client.RequestBuilder) error {
	token, err := t.current(ctx)
	if err != nil {
		return err
	}
	rb.SetHeader("Authorization", "Bearer "+token)
	return nil
}

// After invalidates the cached token on 401.
func (t *TokenRefresher) After(_ context.Context, ex *client.Exchange) error {
	if ex.StatusCode != http.StatusUnauthorized {
		return nil
	}
	sent := strings.TrimPrefix(ex.Request.Header().Get("Authorization"), "Bearer ")
	t.mu.Lock()
	if sent == t.token {
		t.token = ""
	}
	t.mu.Unlock()
	return nil
}

// Invalidate drops the cached token.
func (t *TokenRefresher) Invalidate() {
	t.mu.Lock()
	t.token = ""
	t.mu.Unlock()
}

func (t *TokenRefresher) current(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.token != "" && (t.expires.IsZero() || now.Before(t.expires)) {
		return t.token, nil
	}

	token, err := t.source.Token(ctx)
	if err != nil {
		return "", err
	}
	t.token = token
	t.expires = t.expiry(token, now)
	return token, nil
}

func (t *TokenRefresher) expiry(token string, now time.Time) time.Time {
	var expires time.Time
	if t.maxAge > 0 {
		expires = now.Add(t.maxAge)
	}
	exp, ok := jwtExpiry(token)
	if !ok {
		return expires
	}
	refreshAt := exp.Add(-t.skew)
	if expires.IsZero() || refreshAt.Before(expires) {
		return refreshAt
	}
	return expires
}

func jwtExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
