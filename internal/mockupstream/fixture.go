package mockupstream

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_fixture.yaml
var defaultFixture []byte

// Fixture is the canned data served by the mock.
type Fixture struct {
	// Search maps a query string to its organic results.
	Search map[string][]Hit `yaml:"search"`

	// SearchFailures maps a query string to an HTTP status and error message.
	SearchFailures map[string]Failure `yaml:"search_failures"`

	// Completions are matched in order against the prompt; the first rule whose Contains
	// is a substring of the prompt wins. Unmatched prompts get Fallback.
	Completions []CompletionRule `yaml:"completions"`
	Fallback    string           `yaml:"fallback"`

	// Sheets maps a sheet id to its CSV export body.
	Sheets map[string]string `yaml:"sheets"`
}

type Hit struct {
	Title   string `yaml:"title" json:"title"`
	Link    string `yaml:"link" json:"link"`
	Snippet string `yaml:"snippet" json:"snippet"`
}

type Failure struct {
	Status  int    `yaml:"status"`
	Message string `yaml:"message"`
}

type CompletionRule struct {
	Contains string   `yaml:"contains"`
	Reply    string   `yaml:"reply"`
	Failure  *Failure `yaml:"failure"`
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(b []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for i, rule := range f.Completions {
		if strings.TrimSpace(rule.Contains) == "" {
			return nil, fmt.Errorf("parse fixture: completions[%d].contains is required", i)
		}
	}
	return &f, nil
}

// LoadFixture reads a fixture from path, or the built-in fixture when path is empty.
func LoadFixture(path string) (*Fixture, error) {
	if strings.TrimSpace(path) == "" {
		return ParseFixture(defaultFixture)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(b)
}

func (f *Fixture) completion(prompt string) (string, *Failure) {
	for _, rule := range f.Completions {
		if strings.Contains(prompt, rule.Contains) {
			return rule.Reply, rule.Failure
		}
	}
	return f.Fallback, nil
}
