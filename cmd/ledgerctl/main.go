// Command ledgerctl runs operator tasks against the ledger database: schema migrations,
// platform wallet provisioning and balance audits.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: %v\n", err)
		os.Exit(1)
	}
}
