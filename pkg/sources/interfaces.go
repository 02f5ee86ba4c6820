package sources

import (
	"context"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
	"github.com/rozgar-hq/rozgar-dispatch/pkg/httpclient"
)

// Fetcher retrieves raw candidate job records from one portal. Fetchers fail
// soft: a partial slice alongside an error is a valid result and the caller
// keeps whatever was returned.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, cfg Source) ([]domain.JobRecord, error)
}

// FetcherRegistry resolves the fetcher implementation for a given source config.
type FetcherRegistry interface {
	FetcherFor(cfg Source) (Fetcher, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within sources.
type HTTPClient = httpclient.Client
