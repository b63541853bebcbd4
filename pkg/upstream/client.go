package upstream

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/shpitdev/entity-search-enricher/internal/version"
)

// UserAgent is sent on every upstream request made by this module.
var UserAgent = "entity-search-enricher/" + version.Current

// ParseBaseURL normalizes a configured base URL.
//
// Scheme-less values default to https. The returned path always ends with a slash so
// ResolveReference treats it as a directory.
func ParseBaseURL(raw string, name string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%s base URL is required", name)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s base URL: %w", name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s base URL must include a host (got %q)", name, raw)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// NewHTTPClient returns a client with the given timeout.
//
// caPath is optional and, when provided, is used as the trust store for TLS (proxies that
// terminate TLS with a private CA).
func NewHTTPClient(timeout time.Duration, caPath string) (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if strings.TrimSpace(caPath) != "" {
		b, err := os.ReadFile(strings.TrimSpace(caPath))
		if err != nil {
			return nil, fmt.Errorf("read CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(b); !ok {
			return nil, fmt.Errorf("parse CA bundle PEM: no certs found")
		}
		tr.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}
