package capability

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer issues and verifies capability tokens for one deployment. The
// reference signature scheme is shared-secret HMAC (HS256); deployments that
// need an asymmetric scheme can satisfy the same interface with an RS256 key
// pair without changing any caller.
type Signer struct {
	secret []byte
}

// NewSigner constructs a Signer around a shared secret. The secret is opaque
// to the fabric — key rotation and distribution are deployment concerns.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Issue produces a signed token bearing subject, capabilities, audience, and
// iat/exp computed from ttl. Issue is pure with respect to process state: it
// consults no shared registry or cache.
func (s *Signer) Issue(subject string, capabilities, audience []string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Capabilities: append([]string(nil), capabilities...),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates a token's signature and required claims. It returns
// ErrExpired if now > exp, ErrInvalidSignature if the signature does not
// verify, and ErrMalformed if sub, capabilities, aud, iat, or exp is absent
// from an otherwise well-signed token.
func (s *Signer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalidSignature
	}
	if !token.Valid {
		return nil, ErrInvalidSignature
	}
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func requireClaims(c *Claims) error {
	if c.Subject() == "" {
		return ErrMalformed
	}
	if c.Capabilities == nil {
		return ErrMalformed
	}
	if len(c.Audiences()) == 0 {
		return ErrMalformed
	}
	if c.IssuedAt == nil {
		return ErrMalformed
	}
	if c.ExpiresAt == nil {
		return ErrMalformed
	}
	return nil
}
