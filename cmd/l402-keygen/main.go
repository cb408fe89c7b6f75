// Generates a fresh 256-bit macaroon signing key and prints it in the
// URL-safe base64 form the gateway expects in MACAROON_SECRET_KEY.
package main

import (
	"fmt"
	"log"

	"github.com/lightning-goats/l402/pkg/l402"
)

func main() {
	secret, err := l402.GenerateSecret()
	if err != nil {
		log.Fatalf("Failed to generate secret key: %v", err)
	}
	fmt.Printf("Your secure macaroon secret key:\n%s\n", secret)
}
