// Command ledger-token mints a caller token for local testing of the ledger API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"evledger/backend/services/ledger-service/internal/identity"
)

func main() {
	caller := flag.String("identity", "", "caller identity, e.g. 0xabc...")
	secret := flag.String("secret", os.Getenv("LEDGER_JWT_SECRET"), "HS256 signing secret (default $LEDGER_JWT_SECRET)")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "ledger-token: -secret or LEDGER_JWT_SECRET is required")
		os.Exit(2)
	}

	token, err := identity.NewTokenService(*secret, *ttl).GenerateToken(identity.Normalize(*caller))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledger-token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
