package l402

import "context"

// Invoice is a payable invoice issued by the payment provider: the
// provider-specific payment request string a client settles, and the opaque
// payment hash this package binds into macaroons and later uses to query
// settlement.
type Invoice struct {
	PaymentRequest string
	PaymentHash    string
}

// InvoiceIssuer creates new invoices on the payment provider. Implemented by
// lnbits.Client.
type InvoiceIssuer interface {
	CreateInvoice(ctx context.Context, amount int64, memo string) (*Invoice, error)
}

// PaymentChecker reports whether an invoice has settled. Every verification
// queries the provider afresh; settlement status is never cached locally.
// Implemented by lnbits.Client.
type PaymentChecker interface {
	PaymentStatus(ctx context.Context, paymentHash string) (bool, error)
}
