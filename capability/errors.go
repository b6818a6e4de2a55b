package capability

import "errors"

// Sentinel errors returned by Verify and VerifyProof. Callers translate
// these into the RPC status codes defined by the fabric's error model:
// Expired, InvalidSignature, Malformed and DelegationExpired all surface as
// Unauthenticated; a delegator or delegated-scope mismatch, like a failed
// capability/audience check, surfaces as PermissionDenied.
var (
	// ErrExpired is returned when now > exp.
	ErrExpired = errors.New("capability: token expired")
	// ErrInvalidSignature is returned when the token signature does not
	// verify against the deployment's shared secret.
	ErrInvalidSignature = errors.New("capability: invalid signature")
	// ErrMalformed is returned when a required claim (sub, capabilities,
	// aud, iat, exp) is missing from an otherwise well-signed token.
	ErrMalformed = errors.New("capability: malformed claims")
	// ErrDelegationSubject is returned when a delegation proof's delegator
	// does not match the primary token's subject.
	ErrDelegationSubject = errors.New("capability: delegation delegator mismatch")
	// ErrDelegationScope is returned when a delegation proof grants a
	// capability the primary token does not itself hold.
	ErrDelegationScope = errors.New("capability: delegated capabilities exceed primary token")
	// ErrDelegationExpired is returned when a delegation proof has expired.
	ErrDelegationExpired = errors.New("capability: delegation proof expired")
)
