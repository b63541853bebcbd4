package main

import (
	"fmt"
	"os"

	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/redact"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", redact.Secrets(err.Error()))
		os.Exit(1)
	}
}
