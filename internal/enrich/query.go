package enrich

import "strings"

// Placeholder is the token replaced by the entity name in query and instruction templates.
const Placeholder = "{company}"

// DefaultQueryTemplate is the template offered when the user supplies none.
const DefaultQueryTemplate = "Get me the email address of " + Placeholder

// Render replaces every occurrence of Placeholder in template with entity.
func Render(template, entity string) string {
	return strings.ReplaceAll(template, Placeholder, entity)
}

// Generate renders one query per entity, in input order.
//
// A template without the placeholder yields the template unchanged for every entity.
func Generate(entities []string, template string) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, Render(template, e))
	}
	return out
}

// GenerateQueries is Generate with each query tagged by its entity.
func GenerateQueries(entities []string, template string) []Query {
	out := make([]Query, 0, len(entities))
	for _, e := range entities {
		out = append(out, Query{Entity: e, Text: Render(template, e)})
	}
	return out
}

// Texts returns the rendered query strings.
func Texts(queries []Query) []string {
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		out = append(out, q.Text)
	}
	return out
}
