package l402

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Scheme is the Authorization header prefix, matched case-sensitively with
// its single trailing space.
const Scheme = "LSAT "

// State is the top-level result of verifying a request's credential.
type State int

const (
	// StateChallenge means no credential was presented. Not a failure:
	// it is the protocol's normal first contact, and the caller should
	// answer with a fresh challenge from an Issuer.
	StateChallenge State = iota

	// StateAuthenticated means every check passed and the request may
	// reach the protected resource.
	StateAuthenticated

	// StateDenied means the credential failed a check; Reason says which.
	StateDenied
)

// Outcome is the result of a verification pass. For StateDenied, Reason
// carries the machine-readable code, Detail a human-oriented explanation,
// and Missing the absent caveat keys when Reason is ReasonMissingCaveats.
type Outcome struct {
	State   State
	Reason  Reason
	Detail  string
	Missing []string
}

func denied(reason Reason, detail string) Outcome {
	return Outcome{State: StateDenied, Reason: reason, Detail: detail}
}

// Verifier checks presented macaroons: signature, required caveats,
// expiration, scope, and the settlement status of the bound invoice.
// Verification has no side effects, so concurrent verification of the same
// token is safe and idempotent.
type Verifier struct {
	// Secret must be the identical key the macaroon was minted with.
	Secret Secret

	// Payments answers settlement queries.
	Payments PaymentChecker

	// now is overridable for tests.
	now func() time.Time
}

// Verify runs the full check sequence against a presented Authorization
// header value for the given request path. Checks are strictly ordered and
// short-circuit on the first failure: the signature is proven before any
// caveat value is trusted, and expiration and scope are checked before the
// network round-trip to the payment provider.
func (v *Verifier) Verify(ctx context.Context, authorization, path string) Outcome {
	if authorization == "" {
		return Outcome{State: StateChallenge}
	}

	if !strings.HasPrefix(authorization, Scheme) {
		return denied(ReasonMalformedScheme, "invalid LSAT header format")
	}

	token, err := DecodeToken(strings.TrimPrefix(authorization, Scheme))
	if err != nil {
		return denied(ReasonMalformedToken, err.Error())
	}

	caveats, err := token.Caveats()
	if err != nil {
		return denied(ReasonMalformedToken, err.Error())
	}

	values := make(map[string]string, len(caveats))
	for _, c := range caveats {
		if _, seen := values[c.Key]; seen && isRequiredCaveat(c.Key) {
			return denied(ReasonDuplicateCaveat, fmt.Sprintf("caveat %q appears more than once", c.Key))
		}
		values[c.Key] = c.Value
	}

	var missing []string
	for _, key := range []string{CaveatPaymentHash, CaveatExpiration, CaveatScope} {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Outcome{
			State:   StateDenied,
			Reason:  ReasonMissingCaveats,
			Detail:  fmt.Sprintf("macaroon missing caveats: %s", strings.Join(missing, ", ")),
			Missing: missing,
		}
	}

	// Nothing below may run before this: expiration, scope and payment
	// hash are untrusted bytes until the signature over them verifies.
	if err := token.VerifySignature(v.Secret, caveats); err != nil {
		return denied(ReasonBadSignature, "invalid macaroon signature")
	}

	nowFn := v.now
	if nowFn == nil {
		nowFn = time.Now
	}
	expiration, err := time.Parse(expirationLayout, values[CaveatExpiration])
	if err != nil {
		return denied(ReasonBadExpiration, "invalid expiration time format")
	}
	if nowFn().UTC().After(expiration) {
		return denied(ReasonExpired, "macaroon has expired")
	}

	if values[CaveatScope] != path {
		return denied(ReasonScopeForbidden, "macaroon does not authorize this resource")
	}

	paid, err := v.Payments.PaymentStatus(ctx, values[CaveatPaymentHash])
	if err != nil {
		return denied(ReasonProviderUnreachable, fmt.Sprintf("failed to verify payment status: %v", err))
	}
	if !paid {
		return denied(ReasonPaymentRequired, "payment required but not completed")
	}

	return Outcome{State: StateAuthenticated}
}

func isRequiredCaveat(key string) bool {
	return key == CaveatPaymentHash || key == CaveatExpiration || key == CaveatScope
}
