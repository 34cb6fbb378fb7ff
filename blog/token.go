package blog

import (
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the decoded, trusted claims of the caller for the current
// operation. A nil *Identity means anonymous.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type tokenClaims struct {
	User Identity `json:"user"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies identity tokens. It holds no per-request
// state; the token itself is the only session.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewTokenCodec(secret string, ttl time.Duration, logger *slog.Logger) *TokenCodec {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Issue signs a time-bounded token carrying ident.
func (c *TokenCodec) Issue(ident Identity) (string, error) {
	now := c.now()
	claims := &tokenClaims{
		User: ident,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify decodes token and checks signature and expiry. Any failure, whether
// the token is missing, malformed, expired, or tampered with, degrades to nil:
// an anonymous caller. Requiring identity is the dispatcher's job, not this
// layer's.
func (c *TokenCodec) Verify(token string) *Identity {
	if token == "" {
		return nil
	}
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(func() time.Time { return c.now() }))
	if err != nil {
		c.logger.Debug("rejected identity token", "error", err)
		return nil
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil
	}
	ident := claims.User
	return &ident
}
