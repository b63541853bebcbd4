package redact_test

import (
	"strings"
	"testing"

	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/redact"
)

func TestSecrets(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		leak    string
		wantHas string
	}{
		{
			name:    "bearer",
			in:      "401 Unauthorized: Bearer abc.def.ghi",
			leak:    "abc.def.ghi",
			wantHas: "Bearer <redacted>",
		},
		{
			name:    "serpapi url",
			in:      `Get "https://serpapi.com/search.json?api_key=s3cr3t&num=5&q=acme": dial tcp: timeout`,
			leak:    "s3cr3t",
			wantHas: "<redacted_kv>",
		},
		{
			name:    "groq key",
			in:      "invalid key gsk_ABCDEFGH12345678 supplied",
			leak:    "gsk_ABCDEFGH12345678",
			wantHas: "<redacted_key>",
		},
		{
			name:    "google key",
			in:      "key AIzaSyA1234567890abcdefghijklmnop rejected",
			leak:    "AIzaSyA1234567890abcdefghijklmnop",
			wantHas: "<redacted_key>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redact.Secrets(tt.in)
			if strings.Contains(got, tt.leak) {
				t.Fatalf("secret leaked: %q", got)
			}
			if !strings.Contains(got, tt.wantHas) {
				t.Fatalf("Secrets(%q)=%q, want it to contain %q", tt.in, got, tt.wantHas)
			}
		})
	}
}

func TestSecrets_LeavesPlainTextAlone(t *testing.T) {
	in := "No results found."
	if got := redact.Secrets(in); got != in {
		t.Fatalf("Secrets(%q)=%q", in, got)
	}
	if got := redact.Secrets(""); got != "" {
		t.Fatalf("Secrets(\"\")=%q", got)
	}
}
