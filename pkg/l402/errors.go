package l402

import (
	"fmt"
	"net/http"
)

// Reason is a machine-readable code identifying why a request was denied.
// Every denial path produces a distinct Reason so callers and client
// libraries can branch without parsing human-oriented detail strings.
type Reason string

const (
	// ReasonMalformedScheme means the Authorization header did not carry
	// the exact "LSAT " scheme prefix.
	ReasonMalformedScheme Reason = "malformed-scheme"

	// ReasonMalformedToken means the presented macaroon could not be
	// deserialized.
	ReasonMalformedToken Reason = "malformed-token"

	// ReasonMissingCaveats means one or more of the required caveats
	// (payment_hash, expiration, scope) is absent from the macaroon.
	ReasonMissingCaveats Reason = "missing-caveats"

	// ReasonDuplicateCaveat means a required caveat key appears more than
	// once. Stricter than the historical behavior of silently taking the
	// last occurrence.
	ReasonDuplicateCaveat Reason = "duplicate-caveat"

	// ReasonBadSignature means the macaroon's signature chain did not
	// verify against the signing secret.
	ReasonBadSignature Reason = "bad-signature"

	// ReasonBadExpiration means the expiration caveat is not a valid
	// ISO-8601 UTC timestamp.
	ReasonBadExpiration Reason = "bad-expiration-format"

	// ReasonExpired means the macaroon's expiration time has passed.
	ReasonExpired Reason = "expired"

	// ReasonScopeForbidden means the macaroon's scope caveat does not
	// exactly match the requested path.
	ReasonScopeForbidden Reason = "scope-forbidden"

	// ReasonPaymentRequired means the bound invoice has not settled yet.
	ReasonPaymentRequired Reason = "payment-required"

	// ReasonProviderUnreachable means the payment provider could not be
	// queried. A gateway-level failure, not a security denial.
	ReasonProviderUnreachable Reason = "provider-unreachable"
)

// Class categorizes denial reasons for logging and retry policy.
type Class int

const (
	// ClassProtocol covers malformed input: always a client error, never
	// retried.
	ClassProtocol Class = iota

	// ClassSecurity covers failed cryptographic or authorization checks,
	// logged as security events.
	ClassSecurity

	// ClassPayment covers the expected unpaid steady state, not an
	// anomaly.
	ClassPayment

	// ClassUpstream covers payment-provider failures, eligible for
	// caller-side retry with backoff.
	ClassUpstream
)

// Class returns the error class the reason belongs to.
func (r Reason) Class() Class {
	switch r {
	case ReasonMalformedScheme, ReasonMalformedToken, ReasonMissingCaveats,
		ReasonDuplicateCaveat, ReasonBadExpiration:
		return ClassProtocol
	case ReasonBadSignature, ReasonExpired, ReasonScopeForbidden:
		return ClassSecurity
	case ReasonPaymentRequired:
		return ClassPayment
	case ReasonProviderUnreachable:
		return ClassUpstream
	}
	return ClassProtocol
}

// StatusCode returns the HTTP status a denial with this reason maps to.
func (r Reason) StatusCode() int {
	switch r {
	case ReasonMalformedToken, ReasonBadExpiration:
		return http.StatusBadRequest
	case ReasonScopeForbidden:
		return http.StatusForbidden
	case ReasonPaymentRequired:
		return http.StatusPaymentRequired
	case ReasonProviderUnreachable:
		return http.StatusBadGateway
	}
	return http.StatusUnauthorized
}

// EncodingError reports a caveat that cannot be represented in the plaintext
// "key = value" wire form. Minting rejects such caveats outright rather than
// attempting any escaping.
type EncodingError struct {
	Key   string
	Value string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("caveat %q cannot be encoded: key or value contains the caveat delimiter or a newline", e.Key)
}

// MalformedTokenError reports a serialized macaroon that could not be parsed
// back into a token.
type MalformedTokenError struct {
	Err error
}

func (e *MalformedTokenError) Error() string {
	return fmt.Sprintf("malformed macaroon: %v", e.Err)
}

func (e *MalformedTokenError) Unwrap() error {
	return e.Err
}
