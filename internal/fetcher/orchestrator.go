package fetcher

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yzeng1018/stock-monitor/internal/market"
)

// Observation pairs a live quote with its trailing bar series. The series is
// ordered oldest first and still contains the current session; statistics
// callers slice that off themselves.
type Observation struct {
	Quote market.Quote
	Bars  []market.Bar
}

// Source describes one venue's universe and the adapter calls serving it.
// Exactly one of Quotes or Snapshot must be set: per-symbol venues fetch
// quotes one task at a time, batch venues fetch all quotes in a single
// retried call.
type Source struct {
	Venue         market.Venue
	Symbols       []string
	Quotes        QuoteFetcher
	Snapshot      SnapshotFetcher
	History       HistoryFetcher
	SnapshotRetry RetryPolicy
}

// Options tune the orchestrator.
type Options struct {
	Workers      int
	LookbackDays int
	MinSamples   int
}

// Orchestrator runs adapter calls under a bounded worker pool and collects
// whatever succeeded. The contract is best-effort: a single symbol's failure
// is logged and dropped, never escalated, and an empty result is valid.
type Orchestrator struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs an Orchestrator.
func New(opts Options, logger zerolog.Logger) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 6
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 35
	}
	if opts.MinSamples <= 0 {
		opts.MinSamples = 5
	}
	return &Orchestrator{opts: opts, logger: logger.With().Str("component", "orchestrator").Logger()}
}

// Collect fetches quotes and trailing history for every symbol of the source
// and returns the observations that were fully retrieved, in the original
// symbol order. Series shorter than the minimum sample floor are discarded
// as insufficient.
func (o *Orchestrator) Collect(ctx context.Context, src Source) []Observation {
	quotes := o.collectQuotes(ctx, src)
	if len(quotes) == 0 {
		return nil
	}

	results := make([]*Observation, len(quotes))

	var wg sync.WaitGroup
	sem := make(chan struct{}, o.opts.Workers)
	for i, quote := range quotes {
		wg.Add(1)
		go func(idx int, q market.Quote) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			bars, err := src.History.FetchHistory(ctx, q.Symbol, o.opts.LookbackDays)
			if err != nil {
				o.logger.Warn().Err(err).Str("symbol", q.Symbol).
					Str("venue", string(src.Venue)).Msg("历史数据获取失败，本轮跳过")
				return
			}
			if len(bars) < o.opts.MinSamples {
				o.logger.Debug().Str("symbol", q.Symbol).Int("bars", len(bars)).
					Msg("历史数据样本不足，丢弃")
				return
			}
			results[idx] = &Observation{Quote: q, Bars: bars}
		}(i, quote)
	}
	wg.Wait()

	observations := make([]Observation, 0, len(quotes))
	for _, res := range results {
		if res != nil {
			observations = append(observations, *res)
		}
	}

	o.logger.Info().Str("venue", string(src.Venue)).
		Int("requested", len(src.Symbols)).
		Int("collected", len(observations)).
		Msg("venue collection finished")
	return observations
}

func (o *Orchestrator) collectQuotes(ctx context.Context, src Source) []market.Quote {
	if src.Snapshot != nil {
		quotes, err := Do(ctx, src.SnapshotRetry, func(ctx context.Context) ([]market.Quote, error) {
			return src.Snapshot.FetchSnapshot(ctx, src.Symbols)
		})
		if err != nil {
			o.logger.Error().Err(err).Str("venue", string(src.Venue)).
				Msg("批量快照获取失败，本轮跳过该市场")
			return nil
		}
		return quotes
	}

	results := make([]*market.Quote, len(src.Symbols))

	var wg sync.WaitGroup
	sem := make(chan struct{}, o.opts.Workers)
	for i, symbol := range src.Symbols {
		wg.Add(1)
		go func(idx int, sym string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			quote, err := src.Quotes.FetchQuote(ctx, sym)
			if err != nil {
				o.logger.Warn().Err(err).Str("symbol", sym).
					Str("venue", string(src.Venue)).Msg("行情获取失败，本轮跳过")
				return
			}
			results[idx] = &quote
		}(i, symbol)
	}
	wg.Wait()

	quotes := make([]market.Quote, 0, len(src.Symbols))
	for _, res := range results {
		if res != nil {
			quotes = append(quotes, *res)
		}
	}
	return quotes
}
