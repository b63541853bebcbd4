package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shpitdev/entity-search-enricher/internal/mockupstream"
)

func main() {
	var (
		addr    string
		fixture string
		apiKey  string
	)

	cmd := &cobra.Command{
		Use:          "mock-upstream",
		Short:        "Serve SerpAPI-, Groq- and Google Sheets-shaped endpoints from a YAML fixture",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := mockupstream.LoadFixture(fixture)
			if err != nil {
				return err
			}
			srv := mockupstream.New(f)
			srv.RequireAPIKey(apiKey)

			source := fixture
			if source == "" {
				source = "built-in"
			}
			cmd.Printf("mock-upstream listening on %s (fixture=%s)\n", addr, source)
			hs := &http.Server{Addr: addr, Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
			return hs.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultString("MOCK_UPSTREAM_ADDR", ":9090"), "listen address")
	cmd.Flags().StringVar(&fixture, "fixture", defaultString("MOCK_UPSTREAM_FIXTURE", ""), "YAML fixture file (built-in fixture when empty)")
	cmd.Flags().StringVar(&apiKey, "api-key", defaultString("MOCK_UPSTREAM_API_KEY", ""), "require this API key on search and completion requests")

	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
