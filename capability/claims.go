// Package capability implements the wire-signed capability tokens that gate
// every RPC in the fabric: issuance, verification, wildcard scope/audience
// matching, and cross-agent delegation proofs.
package capability

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded, verified form of a capability token. It mirrors the
// wire claims defined in the schema: sub, capabilities, aud, iat, exp.
type Claims struct {
	jwt.RegisteredClaims

	// Capabilities lists the scopes held by Subject. Each entry is either an
	// exact literal (e.g. "db:inventory:read") or a suffix wildcard ending in
	// "*" (e.g. "event:publish:inventory:*").
	Capabilities []string `json:"capabilities"`
}

// Subject returns the token's sub claim.
func (c *Claims) Subject() string {
	sub, _ := c.GetSubject()
	return sub
}

// Audiences returns the token's aud claim as a plain string slice.
func (c *Claims) Audiences() []string {
	aud, _ := c.GetAudience()
	return aud
}

// Expiry returns the token's exp claim, or the zero time if absent.
func (c *Claims) Expiry() time.Time {
	exp, err := c.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
