package llm

import "context"

// Grounder returns search context for a query, formatted for inclusion in a
// system prompt.
type Grounder interface {
	Ground(ctx context.Context, query string) (string, error)
}
