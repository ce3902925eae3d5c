// Package news supplies the optional enrichment collaborators: headline
// lookup per symbol and an LLM summary over those headlines. Both are
// best-effort; any error degrades to "no news" without touching the run.
package news

import "context"

// Provider fetches recent headlines for one symbol.
type Provider interface {
	Headlines(ctx context.Context, symbol string, limit int) ([]string, error)
}

// Summarizer condenses a set of headlines into a short text.
type Summarizer interface {
	Summarize(ctx context.Context, headlines []string) (string, error)
}
