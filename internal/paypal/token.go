package paypal

import (
	"context"
	"sync"
	"time"
)

// refreshSkew drops a cached token this long before PayPal says it expires.
const refreshSkew = 5 * time.Minute

type token struct {
	Value     string
	ExpiresIn time.Duration
}

// tokenCache holds one bearer token. Refresh happens under the lock so
// concurrent callers share a single exchange.
type tokenCache struct {
	fetch func(context.Context) (token, error)
	now   func() time.Time

	mu      sync.Mutex
	value   string
	validTo time.Time
}

func newTokenCache(fetch func(context.Context) (token, error), now func() time.Time) *tokenCache {
	return &tokenCache{fetch: fetch, now: now}
}

func (c *tokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.value != "" && c.now().Before(c.validTo) {
		return c.value, nil
	}

	tok, err := c.fetch(ctx)
	if err != nil {
		c.value, c.validTo = "", time.Time{}
		return "", err
	}

	c.value = tok.Value
	// Tokens without a usable lifetime are handed out once and not cached.
	if tok.ExpiresIn > refreshSkew {
		c.validTo = c.now().Add(tok.ExpiresIn - refreshSkew)
	} else {
		c.validTo = time.Time{}
	}
	return tok.Value, nil
}

// Invalidate forgets value if it is still the cached token.
func (c *tokenCache) Invalidate(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == value {
		c.value, c.validTo = "", time.Time{}
	}
}
