package redact

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>" (JWTs and opaque tokens).
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Common key=value formats that sometimes leak in error strings. SerpAPI takes its key as
	// an api_key query parameter, so transport errors that echo the URL land here.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|(groq|gemini|serpapi)[_-]?api[_-]?key|key)\b\s*[:=]\s*[^\s"'&]+`)

	// Provider key shapes that can appear without a key= prefix.
	groqKeyRe   = regexp.MustCompile(`\bgsk_[A-Za-z0-9]{8,}`)
	googleKeyRe = regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{20,}`)
)

// Secrets removes obvious secret-bearing substrings from error/log strings.
func Secrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	out = groqKeyRe.ReplaceAllString(out, "<redacted_key>")
	out = googleKeyRe.ReplaceAllString(out, "<redacted_key>")
	return strings.TrimSpace(out)
}
