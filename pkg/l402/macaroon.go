package l402

import (
	"encoding/base64"
	"fmt"
	"strings"

	macaroon "gopkg.in/macaroon.v2"
)

// caveatDelimiter separates a caveat key from its value on the wire. The
// first occurrence wins when parsing.
const caveatDelimiter = " = "

// Required caveat keys. Every macaroon minted by this package carries exactly
// these three, in this order.
const (
	CaveatPaymentHash = "payment_hash"
	CaveatExpiration  = "expiration"
	CaveatScope       = "scope"
)

// Caveat is a single (key, value) restriction attached to a token. Caveats
// are plaintext and legible without the signing secret, but any mutation
// invalidates the token's signature.
type Caveat struct {
	Key   string
	Value string
}

// String returns the caveat's wire form.
func (c Caveat) String() string {
	return c.Key + caveatDelimiter + c.Value
}

// parseCaveat splits a wire-form caveat on the first delimiter occurrence.
func parseCaveat(condition string) (Caveat, error) {
	key, value, ok := strings.Cut(condition, caveatDelimiter)
	if !ok {
		return Caveat{}, fmt.Errorf("caveat %q has no %q delimiter", condition, caveatDelimiter)
	}
	return Caveat{Key: key, Value: value}, nil
}

// encodable reports whether a caveat can be represented unambiguously in the
// wire form. Keys and values containing the delimiter or a newline are
// rejected at mint time; no escaping is attempted.
func (c Caveat) encodable() bool {
	if c.Key == "" || strings.Contains(c.Key, caveatDelimiter) || strings.Contains(c.Value, caveatDelimiter) {
		return false
	}
	return !strings.ContainsAny(c.Key+c.Value, "\n")
}

// Token is a signed macaroon credential: an identifier, an ordered chain of
// first-party caveats, and a chained HMAC signature rooted at the signing
// secret. Tokens are immutable after minting; verification is read-only.
type Token struct {
	m *macaroon.Macaroon
}

// MintToken creates a new token with the given caveats bound into its
// signature chain, in order. Minting is deterministic for identical inputs.
// It fails with an *EncodingError if any caveat cannot be represented in the
// plaintext wire form.
func MintToken(secret Secret, identifier, location string, caveats []Caveat) (*Token, error) {
	m, err := macaroon.New(secret, []byte(identifier), location, macaroon.V2)
	if err != nil {
		return nil, fmt.Errorf("failed to create macaroon: %w", err)
	}
	for _, c := range caveats {
		if !c.encodable() {
			return nil, &EncodingError{Key: c.Key, Value: c.Value}
		}
		if err := m.AddFirstPartyCaveat([]byte(c.String())); err != nil {
			return nil, fmt.Errorf("failed to add caveat %q: %w", c.Key, err)
		}
	}
	return &Token{m: m}, nil
}

// DecodeToken parses a token from its transport encoding. Any structural
// failure yields a *MalformedTokenError; a successfully decoded token proves
// nothing until VerifySignature passes.
func DecodeToken(serialized string) (*Token, error) {
	raw, err := base64.RawURLEncoding.DecodeString(serialized)
	if err != nil {
		return nil, &MalformedTokenError{Err: err}
	}
	var m macaroon.Macaroon
	if err := m.UnmarshalBinary(raw); err != nil {
		return nil, &MalformedTokenError{Err: err}
	}
	return &Token{m: &m}, nil
}

// Serialize encodes the token for transport: URL-safe unpadded base64 of the
// macaroon v2 binary encoding.
func (t *Token) Serialize() (string, error) {
	raw, err := t.m.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize macaroon: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Identifier returns the token's mint-time identifier.
func (t *Token) Identifier() string {
	return string(t.m.Id())
}

// Location returns the informational service label the token was minted with.
func (t *Token) Location() string {
	return t.m.Location()
}

// Caveats extracts the token's caveats in mint order. Extraction needs no
// key and does not prove authenticity.
func (t *Token) Caveats() ([]Caveat, error) {
	raw := t.m.Caveats()
	caveats := make([]Caveat, 0, len(raw))
	for _, rc := range raw {
		c, err := parseCaveat(string(rc.Id))
		if err != nil {
			return nil, err
		}
		caveats = append(caveats, c)
	}
	return caveats, nil
}

// VerifySignature recomputes the token's chained signature from its
// identifier and caveats and compares it against the embedded signature in
// constant time. The caveats accepted are exactly the ones extracted from
// the token's own bytes, so a passing token is proven self-consistent, not
// merely plausible.
func (t *Token) VerifySignature(secret Secret, caveats []Caveat) error {
	exact := make(map[string]struct{}, len(caveats))
	for _, c := range caveats {
		exact[c.String()] = struct{}{}
	}
	check := func(condition string) error {
		if _, ok := exact[condition]; !ok {
			return fmt.Errorf("caveat %q not satisfied", condition)
		}
		return nil
	}
	if err := t.m.Verify(secret, check, nil); err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}
