package paywall

import (
	"context"
	"net/http"

	"github.com/meuqianimal/paywall/internal/credential"
	"github.com/meuqianimal/paywall/internal/middleware"
	"golang.org/x/exp/slog"
)

// Verifier checks a raw credential. *credential.Issuer satisfies it.
type Verifier interface {
	Verify(raw string) (*credential.Claims, error)
}

// Capability decides whether verified claims may see a resource.
type Capability func(*credential.Claims) bool

// AllowsTier grants access to credentials issued for exactly tier.
func AllowsTier(tier string) Capability {
	return func(c *credential.Claims) bool {
		return c != nil && c.Tier == tier
	}
}

type claimsKey struct{}

// ClaimsFromContext returns the claims stored by a Gate for this request.
func ClaimsFromContext(ctx context.Context) (*credential.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*credential.Claims)
	return c, ok
}

// Gate guards protected routes with the access credential cookie. Every
// denial is a redirect to the blocked page.
type Gate struct {
	verifier    Verifier
	blockedPath string
	logger      *slog.Logger
}

func NewGate(verifier Verifier, blockedPath string, logger *slog.Logger) *Gate {
	return &Gate{verifier: verifier, blockedPath: blockedPath, logger: logger}
}

func (g *Gate) RequireTier(tier string) func(http.Handler) http.Handler {
	return g.Require(AllowsTier(tier))
}

func (g *Gate) Require(allowed Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := middleware.Logger(r, g.logger)

			cookie, err := r.Cookie(credential.CookieName)
			if err != nil || cookie.Value == "" {
				g.deny(w, r, logger, "no credential")
				return
			}
			claims, err := g.verifier.Verify(cookie.Value)
			if err != nil {
				logger.Info("credential rejected", slog.Any("err", err))
				g.deny(w, r, logger, "invalid credential")
				return
			}
			if !allowed(claims) {
				logger.Info("credential tier mismatch", slog.String("tier", claims.Tier))
				g.deny(w, r, logger, "tier mismatch")
				return
			}

			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

func (g *Gate) deny(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reason string) {
	logger.Debug("access denied", slog.String("reason", reason))
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, g.blockedPath, http.StatusFound)
}
