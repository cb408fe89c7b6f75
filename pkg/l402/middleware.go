package l402

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config holds the configuration for the L402 authentication gate.
type Config struct {
	// Secret signs and verifies every macaroon. Required.
	Secret Secret

	// Invoices creates invoices for new challenges. Required.
	Invoices InvoiceIssuer

	// Payments answers settlement queries during verification. Required.
	Payments PaymentChecker

	// Price is the invoice amount per challenge, in the provider's
	// smallest unit (satoshis for LNbits).
	Price int64

	// TTL is how long a minted macaroon stays redeemable.
	TTL time.Duration

	// Location is the informational service label stamped on macaroons.
	Location string

	// Memo is attached to created invoices. Defaults to DefaultMemo.
	Memo string

	// ExemptPaths lists path prefixes that bypass the gate entirely.
	ExemptPaths []string

	// Logger receives structured auth events. Defaults to slog.Default.
	Logger *slog.Logger
}

// Middleware wraps next with the L402 authentication gate. A non-exempt
// request without an Authorization header is answered with HTTP 402 and a
// fresh LSAT challenge; a request presenting a macaroon is verified and
// either passed through or denied with a status and machine-readable reason
// per the verification outcome.
func Middleware(next http.Handler, config Config) http.Handler {
	issuer := &Issuer{
		Invoices: config.Invoices,
		Secret:   config.Secret,
		Location: config.Location,
		Memo:     config.Memo,
	}
	verifier := &Verifier{
		Secret:   config.Secret,
		Payments: config.Payments,
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isExemptPath(r.URL.Path, config.ExemptPaths) {
			next.ServeHTTP(w, r)
			return
		}

		outcome := verifier.Verify(r.Context(), r.Header.Get("Authorization"), r.URL.Path)
		switch outcome.State {
		case StateAuthenticated:
			logger.Debug("macaroon verified", "path", r.URL.Path)
			w.Header().Set("X-Payment-Verified", "true")
			next.ServeHTTP(w, r)

		case StateChallenge:
			sendChallenge(w, r, issuer, config, logger)

		case StateDenied:
			sendDenial(w, r, outcome, logger)
		}
	})
}

// sendChallenge mints a fresh invoice and macaroon for the requested path
// and answers 402 with the LSAT challenge header.
func sendChallenge(w http.ResponseWriter, r *http.Request, issuer *Issuer, config Config, logger *slog.Logger) {
	challenge, err := issuer.Issue(r.Context(), r.URL.Path, config.Price, config.TTL)
	if err != nil {
		logger.Error("failed to issue challenge", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"detail": "Error creating payment challenge.",
			"reason": string(ReasonProviderUnreachable),
		})
		return
	}

	logger.Debug("issued challenge", "path", r.URL.Path)
	w.Header().Set("WWW-Authenticate", challenge.Header())
	writeJSON(w, http.StatusPaymentRequired, map[string]string{
		"detail": "Payment Required",
	})
}

// sendDenial maps a denied outcome to its HTTP status and logs it according
// to its error class.
func sendDenial(w http.ResponseWriter, r *http.Request, outcome Outcome, logger *slog.Logger) {
	switch outcome.Reason.Class() {
	case ClassSecurity:
		logger.Warn("security denial", "path", r.URL.Path, "reason", outcome.Reason, "detail", outcome.Detail)
	case ClassUpstream:
		logger.Error("payment provider failure", "path", r.URL.Path, "detail", outcome.Detail)
	case ClassPayment:
		// Unpaid invoices are the expected steady state, not an anomaly.
		logger.Debug("payment not settled", "path", r.URL.Path)
	default:
		logger.Debug("protocol denial", "path", r.URL.Path, "reason", outcome.Reason, "detail", outcome.Detail)
	}

	writeJSON(w, outcome.Reason.StatusCode(), map[string]string{
		"detail": outcome.Detail,
		"reason": string(outcome.Reason),
	})
}

// isExemptPath checks if the requested path is exempt from authentication.
func isExemptPath(path string, exemptPaths []string) bool {
	for _, exemptPath := range exemptPaths {
		if strings.HasPrefix(path, exemptPath) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
