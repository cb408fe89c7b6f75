package l402

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var verifyNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func newTestVerifier(secret Secret, payments PaymentChecker) *Verifier {
	return &Verifier{
		Secret:   secret,
		Payments: payments,
		now:      func() time.Time { return verifyNow },
	}
}

// mintHeader mints a validly signed macaroon with the given caveats and
// returns it as an Authorization header value.
func mintHeader(t *testing.T, secret Secret, caveats []Caveat) string {
	t.Helper()
	token, err := MintToken(secret, "test-id", "lightning_goats", caveats)
	require.NoError(t, err)
	serialized, err := token.Serialize()
	require.NoError(t, err)
	return Scheme + serialized
}

func validCaveats(path string) []Caveat {
	return []Caveat{
		{Key: CaveatPaymentHash, Value: "deadbeef"},
		{Key: CaveatExpiration, Value: verifyNow.Add(30 * time.Minute).Format(expirationLayout)},
		{Key: CaveatScope, Value: path},
	}
}

func TestVerify_NoCredential(t *testing.T) {
	v := newTestVerifier(testSecret(t), &fakePayments{})
	outcome := v.Verify(context.Background(), "", "/a")
	assert.Equal(t, StateChallenge, outcome.State)
}

func TestVerify_MalformedScheme(t *testing.T) {
	v := newTestVerifier(testSecret(t), &fakePayments{})
	for _, header := range []string{
		"Bearer sometoken",
		"lsat sometoken",
		"LSATsometoken",
		"LSAT",
	} {
		outcome := v.Verify(context.Background(), header, "/a")
		assert.Equal(t, StateDenied, outcome.State, "header %q", header)
		assert.Equal(t, ReasonMalformedScheme, outcome.Reason, "header %q", header)
	}
}

func TestVerify_MalformedToken(t *testing.T) {
	v := newTestVerifier(testSecret(t), &fakePayments{})
	outcome := v.Verify(context.Background(), "LSAT not-a-macaroon!!!", "/a")
	assert.Equal(t, StateDenied, outcome.State)
	assert.Equal(t, ReasonMalformedToken, outcome.Reason)
}

func TestVerify_MissingCaveat(t *testing.T) {
	secret := testSecret(t)
	v := newTestVerifier(secret, &fakePayments{paid: true})

	header := mintHeader(t, secret, []Caveat{
		{Key: CaveatPaymentHash, Value: "deadbeef"},
		{Key: CaveatScope, Value: "/a"},
	})
	outcome := v.Verify(context.Background(), header, "/a")
	assert.Equal(t, ReasonMissingCaveats, outcome.Reason)
	assert.Equal(t, []string{CaveatExpiration}, outcome.Missing)
}

func TestVerify_AllCaveatsMissing(t *testing.T) {
	secret := testSecret(t)
	v := newTestVerifier(secret, &fakePayments{paid: true})

	header := mintHeader(t, secret, nil)
	outcome := v.Verify(context.Background(), header, "/a")
	assert.Equal(t, ReasonMissingCaveats, outcome.Reason)
	assert.Equal(t, []string{CaveatPaymentHash, CaveatExpiration, CaveatScope}, outcome.Missing)
}

func TestVerify_DuplicateCaveat(t *testing.T) {
	secret := testSecret(t)
	v := newTestVerifier(secret, &fakePayments{paid: true})

	caveats := append(validCaveats("/a"), Caveat{Key: CaveatScope, Value: "/b"})
	outcome := v.Verify(context.Background(), mintHeader(t, secret, caveats), "/a")
	assert.Equal(t, ReasonDuplicateCaveat, outcome.Reason)
}

func TestVerify_BadSignature(t *testing.T) {
	v := newTestVerifier(testSecret(t), &fakePayments{paid: true})

	// Minted under a different key than the verifier holds.
	header := mintHeader(t, testSecret(t), validCaveats("/a"))
	outcome := v.Verify(context.Background(), header, "/a")
	assert.Equal(t, ReasonBadSignature, outcome.Reason)
	assert.Equal(t, ClassSecurity, outcome.Reason.Class())
}

func TestVerify_BadExpirationFormat(t *testing.T) {
	secret := testSecret(t)
	v := newTestVerifier(secret, &fakePayments{paid: true})

	caveats := validCaveats("/a")
	caveats[1].Value = "next tuesday"
	outcome := v.Verify(context.Background(), mintHeader(t, secret, caveats), "/a")
	assert.Equal(t, ReasonBadExpiration, outcome.Reason)
}

func TestVerify_ExpirationBoundary(t *testing.T) {
	secret := testSecret(t)

	// One second in the past is expired.
	payments := &fakePayments{paid: true}
	v := newTestVerifier(secret, payments)
	caveats := validCaveats("/a")
	caveats[1].Value = verifyNow.Add(-time.Second).Format(expirationLayout)
	outcome := v.Verify(context.Background(), mintHeader(t, secret, caveats), "/a")
	assert.Equal(t, ReasonExpired, outcome.Reason)
	assert.Zero(t, payments.calls, "expired token must not reach the provider")

	// One second in the future is accepted.
	caveats[1].Value = verifyNow.Add(time.Second).Format(expirationLayout)
	outcome = v.Verify(context.Background(), mintHeader(t, secret, caveats), "/a")
	assert.Equal(t, StateAuthenticated, outcome.State)
}

func TestVerify_ScopeExactMatch(t *testing.T) {
	secret := testSecret(t)
	payments := &fakePayments{paid: true}
	v := newTestVerifier(secret, payments)

	header := mintHeader(t, secret, validCaveats("/a"))
	for _, path := range []string{"/b", "/a/", "/ab", "/", "/a/b"} {
		outcome := v.Verify(context.Background(), header, path)
		assert.Equal(t, ReasonScopeForbidden, outcome.Reason, "path %q", path)
	}
	assert.Zero(t, payments.calls, "scope mismatch must not reach the provider")
}

func TestVerify_ProviderUnreachable(t *testing.T) {
	secret := testSecret(t)
	payments := &fakePayments{err: errors.New("connection refused")}
	v := newTestVerifier(secret, payments)

	outcome := v.Verify(context.Background(), mintHeader(t, secret, validCaveats("/a")), "/a")
	assert.Equal(t, ReasonProviderUnreachable, outcome.Reason)
	assert.Equal(t, ClassUpstream, outcome.Reason.Class())
}

func TestVerify_PaymentNotSettled(t *testing.T) {
	secret := testSecret(t)
	payments := &fakePayments{paid: false}
	v := newTestVerifier(secret, payments)

	outcome := v.Verify(context.Background(), mintHeader(t, secret, validCaveats("/a")), "/a")
	assert.Equal(t, ReasonPaymentRequired, outcome.Reason)
	assert.Equal(t, ClassPayment, outcome.Reason.Class())
	assert.Equal(t, "deadbeef", payments.lastHash)
}

func TestVerify_Authenticated(t *testing.T) {
	secret := testSecret(t)
	payments := &fakePayments{paid: true}
	v := newTestVerifier(secret, payments)

	outcome := v.Verify(context.Background(), mintHeader(t, secret, validCaveats("/a")), "/a")
	assert.Equal(t, StateAuthenticated, outcome.State)
	assert.Equal(t, 1, payments.calls)
}

func TestVerify_Idempotent(t *testing.T) {
	secret := testSecret(t)
	payments := &fakePayments{paid: true}
	v := newTestVerifier(secret, payments)
	header := mintHeader(t, secret, validCaveats("/a"))

	first := v.Verify(context.Background(), header, "/a")
	second := v.Verify(context.Background(), header, "/a")
	assert.Equal(t, first, second)
	assert.Equal(t, 2, payments.calls, "settlement is re-queried on every verification")
}

func TestReasonStatusCodes(t *testing.T) {
	cases := map[Reason]int{
		ReasonMalformedScheme:     401,
		ReasonMalformedToken:      400,
		ReasonMissingCaveats:      401,
		ReasonDuplicateCaveat:     401,
		ReasonBadSignature:        401,
		ReasonBadExpiration:       400,
		ReasonExpired:             401,
		ReasonScopeForbidden:      403,
		ReasonPaymentRequired:     402,
		ReasonProviderUnreachable: 502,
	}
	for reason, want := range cases {
		assert.Equal(t, want, reason.StatusCode(), "reason %s", reason)
	}
}
