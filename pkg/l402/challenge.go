package l402

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// expirationLayout is the wire format of the expiration caveat: ISO-8601
// UTC, second precision, literal Z suffix. Minting and verification must
// agree on it exactly.
const expirationLayout = "2006-01-02T15:04:05Z"

// DefaultMemo is the memo attached to invoices created for challenges.
const DefaultMemo = "Access Payment"

// Challenge is what an unauthenticated caller gets back: a serialized
// macaroon scoped to the requested path and the invoice whose settlement
// redeems it. Challenges are never persisted; each unauthenticated request
// mints a fresh one.
type Challenge struct {
	Macaroon string
	Invoice  string
}

// Header renders the challenge as a WWW-Authenticate header value.
func (c *Challenge) Header() string {
	return fmt.Sprintf("LSAT macaroon=\"%s\", invoice=\"%s\"", c.Macaroon, c.Invoice)
}

// Issuer mints payment challenges: it requests a fresh invoice from the
// payment provider and binds its payment hash, an expiration and the
// requested path into a new macaroon.
type Issuer struct {
	// Invoices creates invoices on the payment provider.
	Invoices InvoiceIssuer

	// Secret signs every minted macaroon.
	Secret Secret

	// Location is the informational service label stamped on macaroons.
	Location string

	// Memo is attached to created invoices. Defaults to DefaultMemo.
	Memo string

	// now and newID are overridable for tests.
	now   func() time.Time
	newID func() string
}

// Issue creates one invoice for price on the payment provider and mints a
// macaroon redeemable for path until now+ttl. A provider failure propagates
// as-is; no payment hash is ever fabricated locally.
func (i *Issuer) Issue(ctx context.Context, path string, price int64, ttl time.Duration) (*Challenge, error) {
	memo := i.Memo
	if memo == "" {
		memo = DefaultMemo
	}
	nowFn := i.now
	if nowFn == nil {
		nowFn = time.Now
	}
	idFn := i.newID
	if idFn == nil {
		idFn = uuid.NewString
	}

	invoice, err := i.Invoices.CreateInvoice(ctx, price, memo)
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	expiration := nowFn().UTC().Add(ttl).Format(expirationLayout)
	token, err := MintToken(i.Secret, idFn(), i.Location, []Caveat{
		{Key: CaveatPaymentHash, Value: invoice.PaymentHash},
		{Key: CaveatExpiration, Value: expiration},
		{Key: CaveatScope, Value: path},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mint macaroon: %w", err)
	}

	serialized, err := token.Serialize()
	if err != nil {
		return nil, err
	}

	return &Challenge{
		Macaroon: serialized,
		Invoice:  invoice.PaymentRequest,
	}, nil
}
