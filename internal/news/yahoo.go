package news

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
)

const yahooSearchPath = "/v1/finance/search"

// YahooOptions parameterise the Yahoo news provider.
type YahooOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Yahoo pulls headline titles from the Yahoo Finance search API.
type Yahoo struct {
	opts    YahooOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewYahoo constructs a Yahoo news provider.
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
		logger:  logger.With().Str("component", "yahoo_news").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Headlines returns up to limit recent news titles for the symbol.
func (y *Yahoo) Headlines(ctx context.Context, symbol string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 3
	}

	query := url.Values{}
	query.Set("q", symbol)
	query.Set("newsCount", fmt.Sprintf("%d", limit))
	query.Set("quotesCount", "0")

	endpoint := y.baseURL + yahooSearchPath + "?" + query.Encode()
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
		return nil, fmt.Errorf("yahoo search api (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		News []struct {
			Title string `json:"title"`
		} `json:"news"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("decode yahoo search payload: %w", err)
	}

	titles := make([]string, 0, limit)
	for _, item := range parsed.News {
		if item.Title == "" {
			continue
		}
		titles = append(titles, item.Title)
		if len(titles) >= limit {
			break
		}
	}
	return titles, nil
}

var _ Provider = (*Yahoo)(nil)
