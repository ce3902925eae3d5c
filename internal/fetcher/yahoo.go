package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/yzeng1018/stock-monitor/internal/market"
)

const yahooChartPath = "/v8/finance/chart/"

// YahooOptions parameterise the Yahoo Finance adapter.
type YahooOptions struct {
	BaseURL   string
	Venue     market.Venue
	Timeout   time.Duration
	UserAgent string
}

// Yahoo normalizes Yahoo Finance chart responses into canonical quotes and
// bars. It serves the per-symbol venues (US and HK listings).
type Yahoo struct {
	opts    YahooOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewYahoo constructs a Yahoo Finance adapter.
func NewYahoo(opts YahooOptions, logger zerolog.Logger) *Yahoo {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}

	return &Yahoo{
		opts:    opts,
		logger:  logger.With().Str("component", "yahoo_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchQuote derives the live quote from the most recent daily bars.
func (y *Yahoo) FetchQuote(ctx context.Context, symbol string) (market.Quote, error) {
	res, err := y.fetchChart(ctx, symbol, 10)
	if err != nil {
		return market.Quote{}, err
	}

	bars := res.bars()
	if len(bars) == 0 {
		return market.Quote{}, fmt.Errorf("yahoo: no bars returned for %s", symbol)
	}

	last := bars[len(bars)-1]
	quote := market.Quote{
		Symbol: symbol,
		Venue:  y.opts.Venue,
		Price:  last.Close,
		Volume: last.Volume,
		AsOf:   last.Date,
	}

	if len(bars) >= 2 {
		prev := bars[len(bars)-2].Close
		if prev.IsPositive() {
			quote.PrevClose = prev
			quote.HasPrevClose = true
			quote.ChangePct = last.Close.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100))
		}
	}

	return quote, nil
}

// FetchHistory returns up to lookbackDays completed daily bars, oldest first.
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, lookbackDays int) ([]market.Bar, error) {
	res, err := y.fetchChart(ctx, symbol, lookbackDays)
	if err != nil {
		return nil, err
	}
	return res.bars(), nil
}

func (y *Yahoo) fetchChart(ctx context.Context, symbol string, lookbackDays int) (*chartResult, error) {
	if lookbackDays <= 0 {
		lookbackDays = 35
	}

	// The calendar span is doubled so weekends and holidays still leave
	// enough trading sessions in the response.
	now := time.Now().UTC()
	period1 := now.AddDate(0, 0, -2*lookbackDays)

	query := url.Values{}
	query.Set("interval", "1d")
	query.Set("period1", fmt.Sprintf("%d", period1.Unix()))
	query.Set("period2", fmt.Sprintf("%d", now.Unix()))
	query.Set("events", "history")

	endpoint := y.baseURL + yahooChartPath + url.PathEscape(symbol) + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(y.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "stock-monitor/1.0")
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo chart api (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed chartResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("yahoo: decode chart payload: %w", err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart api: %s", parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: empty chart result for %s", symbol)
	}

	return &parsed.Chart.Result[0], nil
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// bars flattens the column-oriented chart payload, skipping null rows the
// API emits for halted sessions.
func (r *chartResult) bars() []market.Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	quote := r.Indicators.Quote[0]

	bars := make([]market.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		bar := market.Bar{
			Date:  time.Unix(ts, 0).UTC(),
			Close: decimal.NewFromFloat(*quote.Close[i]),
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars
}

var (
	_ QuoteFetcher   = (*Yahoo)(nil)
	_ HistoryFetcher = (*Yahoo)(nil)
)
