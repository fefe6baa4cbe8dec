package main

import (
	"fmt"
	"os"

	"tracejit/internal/tjerr"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if _, ok := tjerr.KindOf(err); ok {
			fmt.Fprintf(os.Stderr, "Failed: %s\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Failed: %s: %s\n", tjerr.Unsupported, err)
		}
		os.Exit(1)
	}
}
