// Command sitectl drives the visitor-side runtime against a running gateway:
// it signs in, manages favorites, renders a tenant's theme and searches.
// State is kept in a SQLite file standing in for browser storage.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
