package interfaces

import "context"

// Page is the readable content extracted from a fetched URL.
type Page struct {
	URL     string
	Title   string
	Content string
}

// Fetcher retrieves a URL and extracts its readable text for ingestion.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}
