package credential

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/meuqianimal/paywall/internal/expiry"
)

const (
	// TypeAccess tags tokens minted by Issue.
	TypeAccess = "access"
	// CookieName carries the signed credential.
	CookieName = "mqa_token"
)

var (
	ErrCredentialInvalid = errors.New("credential invalid")
	ErrSecretMissing     = errors.New("credential signing secret is required")
)

// Claims is the payload of an access credential.
type Claims struct {
	Type           string `json:"typ"`
	Tier           string `json:"tier"`
	Identity       string `json:"email"`
	IssuedAtMillis int64  `json:"ts"`
	jwt.RegisteredClaims
}

type Option func(*Issuer)

// WithClock replaces time.Now for issuance and verification.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// Issuer mints and verifies HS256 access credentials. The server keeps no copy
// of what it issued; verification is signature plus expiry only.
type Issuer struct {
	secret []byte
	window time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, window time.Duration, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrSecretMissing
	}
	i := &Issuer{
		secret: secret,
		window: expiry.Window(window),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue signs a credential granting tier to identity.
func (i *Issuer) Issue(tier, identity string) (string, error) {
	now := i.now()
	claims := Claims{
		Type:           TypeAccess,
		Tier:           tier,
		Identity:       identity,
		IssuedAtMillis: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry.ExpiresAt(now, i.window)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing credential: %w", err)
	}
	return token, nil
}

// Verify checks signature, algorithm, expiry and type tag of raw.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrCredentialInvalid)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentialInvalid, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: token not valid", ErrCredentialInvalid)
	}
	if claims.Type != TypeAccess {
		return nil, fmt.Errorf("%w: unexpected type %q", ErrCredentialInvalid, claims.Type)
	}
	if claims.Tier == "" {
		return nil, fmt.Errorf("%w: missing tier", ErrCredentialInvalid)
	}
	return claims, nil
}

// Cookie wraps token for transport. Secure should be true in production.
func (i *Issuer) Cookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   expiry.MaxAge(i.window),
		Expires:  expiry.ExpiresAt(i.now(), i.window),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
