package enrich

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// ExtractEmails returns every email-shaped match across the result snippets in discovery
// order. Duplicates are kept. The result is never nil.
func ExtractEmails(results []SearchResult) []string {
	out := []string{}
	for _, r := range results {
		out = append(out, emailRe.FindAllString(r.Snippet, -1)...)
	}
	return out
}

// EntityNameFromQuery recovers the entity from a raw query string by taking its last
// whitespace-delimited token. Multi-word entities lose all but their final word; use
// CorrelateQueries when the entity is known.
func EntityNameFromQuery(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// Correlate builds one bundle per query, in input order, naming each entity with
// EntityNameFromQuery.
func Correlate(queries []string, outcomes map[string]SearchOutcome) []EntityBundle {
	out := make([]EntityBundle, 0, len(queries))
	for _, q := range queries {
		out = append(out, bundle(EntityNameFromQuery(q), q, outcomes))
	}
	return out
}

// CorrelateQueries builds one bundle per query using each query's own entity tag.
func CorrelateQueries(queries []Query, outcomes map[string]SearchOutcome) []EntityBundle {
	out := make([]EntityBundle, 0, len(queries))
	for _, q := range queries {
		out = append(out, bundle(q.Entity, q.Text, outcomes))
	}
	return out
}

func bundle(entity, query string, outcomes map[string]SearchOutcome) EntityBundle {
	b := EntityBundle{
		Entity:        entity,
		Query:         query,
		SearchResults: []SearchResult{},
		Emails:        []string{},
	}
	o, ok := outcomes[query]
	if !ok || o.Failed() {
		return b
	}
	if o.Results != nil {
		b.SearchResults = o.Results
	}
	b.Emails = ExtractEmails(o.Results)
	return b
}
