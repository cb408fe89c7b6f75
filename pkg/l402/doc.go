// Package l402 implements the L402 (LSAT) payment-gated authentication
// protocol for HTTP resources.
//
// A request without proof of payment receives a signed, time- and
// scope-limited macaroon bound to a Lightning invoice. A request presenting
// a previously issued macaroon has its signature, caveats, expiration and
// scope verified, and the bound invoice's settlement status checked against
// the payment provider, before access is granted.
//
// Basic usage:
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/protected-resource", myHandler)
//
//	provider := lnbits.NewClient(lnbits.Config{
//	    BaseURL: "https://legend.lnbits.com",
//	    APIKey:  apiKey,
//	})
//
//	handler := l402.Middleware(mux, l402.Config{
//	    Secret:   secret,
//	    Invoices: provider,
//	    Payments: provider,
//	    Price:    1000,
//	    TTL:      30 * time.Minute,
//	})
//
//	http.ListenAndServe(":8080", handler)
//
// The middleware answers any non-exempt request carrying no Authorization
// header with HTTP 402 Payment Required and a WWW-Authenticate challenge of
// the form:
//
//	LSAT macaroon="<serialized-macaroon>", invoice="<bolt11-invoice>"
//
// The client pays the invoice and replays the request with
// "Authorization: LSAT <serialized-macaroon>".
package l402
