// Package newsclient defines the external news-fetcher collaborator
// interface. The news-fetcher is explicitly out of core scope (spec §1);
// this package only carries the narrow contract the MarketContext
// capability object exposes to components that might consult it for
// narrative context, since none of the core's deterministic decisions
// (probability, gate, verdict) may depend on it.
package newsclient

import "context"

// Headline is one news item surfaced for a symbol.
type Headline struct {
	Title     string
	Source    string
	PublishedAt string
}

// Client fetches recent headlines for a symbol. Its absence or failure
// never blocks the core pipeline.
type Client interface {
	RecentHeadlines(ctx context.Context, symbol string, limit int) ([]Headline, error)
}
