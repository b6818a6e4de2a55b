package capability

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DelegationClaims is the decoded, verified form of a delegation proof. It is
// a distinct credential type from Claims: a proof is issued by a delegator
// to authorize a delegatee to act on its behalf for a subset of the
// delegator's own capabilities, and its verifier always takes the
// delegator's primary claims as context.
type DelegationClaims struct {
	jwt.RegisteredClaims

	// Delegator is the subject delegating a subset of its capabilities.
	Delegator string `json:"delegator"`
	// Delegatee is the agent authorized to invoke on the delegator's behalf.
	Delegatee string `json:"delegatee"`
	// DelegatedCapabilities is the subset of scopes being delegated. It must
	// be implied by the delegator's own capabilities under the wildcard
	// rule; the primary token is required to check this at verify time.
	DelegatedCapabilities []string `json:"delegated_capabilities"`
}

// Expiry returns the proof's exp claim, or the zero time if absent.
func (d *DelegationClaims) Expiry() time.Time {
	exp, err := d.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// IssueDelegation produces a signed delegation proof on behalf of delegator,
// scoped to delegated (which the caller is responsible for keeping a subset
// of the delegator's own capabilities — Issue itself does not have access to
// the primary token to check this).
func (s *Signer) IssueDelegation(delegator, delegatee string, delegated []string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &DelegationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   delegator,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Delegator:             delegator,
		Delegatee:             delegatee,
		DelegatedCapabilities: append([]string(nil), delegated...),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyProof validates a delegation proof's signature and requires:
//   - proof.delegator == primary.Subject()
//   - proof.delegated_capabilities is a subset of primary.Capabilities,
//     under the wildcard rule: each delegated scope must be implied by some
//     capability held by the primary token
//   - proof.expires_at is in the future
//
// primary must already be a verified Claims (the caller verifies the
// accompanying capability token separately via Verify).
func (s *Signer) VerifyProof(raw string, primary *Claims) (*DelegationClaims, error) {
	proof := &DelegationClaims{}
	token, err := jwt.ParseWithClaims(raw, proof, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrDelegationExpired
		}
		return nil, ErrInvalidSignature
	}
	if !token.Valid {
		return nil, ErrInvalidSignature
	}

	if primary == nil || proof.Delegator != primary.Subject() {
		return nil, ErrDelegationSubject
	}
	for _, want := range proof.DelegatedCapabilities {
		if !HasCapability(primary, want) {
			return nil, ErrDelegationScope
		}
	}
	if proof.Expiry().Before(time.Now().UTC()) {
		return nil, ErrDelegationExpired
	}
	return proof, nil
}

// GrantsCapability reports whether a verified delegation proof itself lists
// required among its delegated capabilities (exact-or-wildcard). InvokeTool
// uses this after VerifyProof succeeds to confirm the proof actually covers
// the specific tool scope being invoked, not just some subset of the
// delegator's holdings.
func (d *DelegationClaims) GrantsCapability(required string) bool {
	for _, c := range d.DelegatedCapabilities {
		if matchScope(c, required) {
			return true
		}
	}
	return false
}
