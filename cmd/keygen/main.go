package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
)

// keygen generates a random secret for the symmetric HS256 signer. The
// gateway's token codec is HMAC-based, not RSA, so there is no keypair to
// mint, just process-wide secret material of sufficient entropy.
func main() {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		fmt.Printf("failed to generate secret: %v\n", err)
		os.Exit(1)
	}

	secret := base64.RawURLEncoding.EncodeToString(buf)

	fmt.Println("--- COPY BELOW TO .env.local ---")
	fmt.Printf("JWT_SECRET=\"%s\"\n", secret)
	fmt.Println("--------------------------------")
}
