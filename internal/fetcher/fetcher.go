package fetcher

import (
	"context"

	"github.com/yzeng1018/stock-monitor/internal/market"
)

// QuoteFetcher retrieves the live quote for a single symbol.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, symbol string) (market.Quote, error)
}

// HistoryFetcher retrieves the trailing daily bars for a single symbol. The
// returned series is ordered oldest first and includes the current session
// when the provider already has it.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, symbol string, lookbackDays int) ([]market.Bar, error)
}

// SnapshotFetcher retrieves live quotes for many symbols in one call.
// Venues exposing a batch endpoint implement this instead of QuoteFetcher.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, symbols []string) ([]market.Quote, error)
}
