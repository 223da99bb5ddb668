// Command keygen creates a pard node keypair and prints its address.
// Useful for provisioning a node identity ahead of first start.
package main

import (
	"fmt"
	"os"

	"paradigm.network/pard/internal/identity"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <output-file>\n", os.Args[0])
		os.Exit(1)
	}
	outfile := os.Args[1]

	if _, err := os.Stat(outfile); err == nil {
		fmt.Fprintf(os.Stderr, "Refusing to overwrite existing key file %s\n", outfile)
		os.Exit(1)
	}

	id, err := identity.LoadOrCreateIdentity(outfile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Key written to %s\n", outfile)
	fmt.Printf("Address: %s\n", id.Address())
	fmt.Printf("Public key: %s\n", id.PublicKeyHex())
}
