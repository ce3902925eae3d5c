package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/yzeng1018/stock-monitor/internal/market"
)

const (
	eastmoneySnapshotPath = "/api/qt/ulist.np/get"
	eastmoneyKlinePath    = "/api/qt/stock/kline/get"
)

// EastmoneyOptions parameterise the Eastmoney adapter for A-share data.
type EastmoneyOptions struct {
	QuoteBaseURL string
	KlineBaseURL string
	Timeout      time.Duration
	UserAgent    string
}

// Eastmoney serves the CN venue: one batch snapshot call for live quotes
// plus per-symbol kline history.
type Eastmoney struct {
	opts         EastmoneyOptions
	logger       zerolog.Logger
	client       *http.Client
	quoteBaseURL string
	klineBaseURL string
}

// NewEastmoney constructs an Eastmoney adapter.
func NewEastmoney(opts EastmoneyOptions, logger zerolog.Logger) *Eastmoney {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	quoteBase := strings.TrimRight(opts.QuoteBaseURL, "/")
	if quoteBase == "" {
		quoteBase = "https://push2.eastmoney.com"
	}
	klineBase := strings.TrimRight(opts.KlineBaseURL, "/")
	if klineBase == "" {
		klineBase = "https://push2his.eastmoney.com"
	}

	return &Eastmoney{
		opts:         opts,
		logger:       logger.With().Str("component", "eastmoney_fetcher").Logger(),
		client:       &http.Client{Timeout: timeout},
		quoteBaseURL: quoteBase,
		klineBaseURL: klineBase,
	}
}

// FetchSnapshot retrieves live quotes for all requested codes in one call.
// Suspended stocks (price reported as "-") are silently dropped.
func (e *Eastmoney) FetchSnapshot(ctx context.Context, symbols []string) ([]market.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	secids := make([]string, 0, len(symbols))
	for _, code := range symbols {
		secids = append(secids, secID(code))
	}

	query := url.Values{}
	query.Set("fltt", "2")
	query.Set("fields", "f2,f3,f5,f12,f14,f18")
	query.Set("secids", strings.Join(secids, ","))

	endpoint := e.quoteBaseURL + eastmoneySnapshotPath + "?" + query.Encode()
	payload, err := e.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var parsed snapshotResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("eastmoney: decode snapshot payload: %w", err)
	}
	if parsed.Data == nil {
		return nil, fmt.Errorf("eastmoney: snapshot returned no data")
	}

	now := time.Now()
	quotes := make([]market.Quote, 0, len(parsed.Data.Diff))
	for _, row := range parsed.Data.Diff {
		if !row.Price.ok {
			e.logger.Debug().Str("symbol", row.Code).Msg("快照缺少价格，跳过（可能停牌）")
			continue
		}
		quote := market.Quote{
			Symbol: row.Code,
			Name:   row.Name,
			Venue:  market.VenueCN,
			Price:  decimal.NewFromFloat(row.Price.value),
			Volume: int64(row.Volume.value),
			AsOf:   now,
		}
		if row.PrevClose.ok && row.PrevClose.value > 0 {
			quote.PrevClose = decimal.NewFromFloat(row.PrevClose.value)
			quote.HasPrevClose = true
			quote.ChangePct = decimal.NewFromFloat(row.ChangePct.value)
		}
		quotes = append(quotes, quote)
	}

	return quotes, nil
}

// FetchHistory returns forward-adjusted daily bars, oldest first.
func (e *Eastmoney) FetchHistory(ctx context.Context, symbol string, lookbackDays int) ([]market.Bar, error) {
	if lookbackDays <= 0 {
		lookbackDays = 35
	}

	beg := time.Now().AddDate(0, 0, -2*lookbackDays).Format("20060102")

	query := url.Values{}
	query.Set("secid", secID(symbol))
	query.Set("klt", "101") // daily bars
	query.Set("fqt", "1")   // forward adjusted
	query.Set("beg", beg)
	query.Set("end", "20500101")
	query.Set("fields1", "f1,f2,f3")
	query.Set("fields2", "f51,f53,f56") // date, close, volume

	endpoint := e.klineBaseURL + eastmoneyKlinePath + "?" + query.Encode()
	payload, err := e.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var parsed klineResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("eastmoney: decode kline payload: %w", err)
	}
	if parsed.Data == nil {
		return nil, fmt.Errorf("eastmoney: kline returned no data for %s", symbol)
	}

	bars := make([]market.Bar, 0, len(parsed.Data.Klines))
	for _, line := range parsed.Data.Klines {
		bar, err := parseKline(line)
		if err != nil {
			return nil, fmt.Errorf("eastmoney: %s: %w", symbol, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func (e *Eastmoney) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(e.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "stock-monitor/1.0")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eastmoney api (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return payload, nil
}

// secID maps a bare A-share code onto Eastmoney's exchange-prefixed id:
// Shanghai listings (6xxxxx, incl. STAR 688xxx) are market 1, everything
// else (Shenzhen, ChiNext, Beijing) market 0.
func secID(code string) string {
	if strings.HasPrefix(code, "6") {
		return "1." + code
	}
	return "0." + code
}

func parseKline(line string) (market.Bar, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 3 {
		return market.Bar{}, fmt.Errorf("malformed kline row %q", line)
	}

	date, err := time.Parse("2006-01-02", fields[0])
	if err != nil {
		return market.Bar{}, fmt.Errorf("parse kline date: %w", err)
	}
	close_, err := decimal.NewFromString(fields[1])
	if err != nil {
		return market.Bar{}, fmt.Errorf("parse kline close: %w", err)
	}
	volume, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return market.Bar{}, fmt.Errorf("parse kline volume: %w", err)
	}

	return market.Bar{Date: date, Close: close_, Volume: volume}, nil
}

type snapshotResponse struct {
	Data *struct {
		Total int           `json:"total"`
		Diff  []snapshotRow `json:"diff"`
	} `json:"data"`
}

type snapshotRow struct {
	Price     emValue `json:"f2"`
	ChangePct emValue `json:"f3"`
	Volume    emValue `json:"f5"`
	Code      string  `json:"f12"`
	Name      string  `json:"f14"`
	PrevClose emValue `json:"f18"`
}

type klineResponse struct {
	Data *struct {
		Code   string   `json:"code"`
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// emValue tolerates the "-" placeholder Eastmoney emits for suspended
// stocks in otherwise numeric fields.
type emValue struct {
	value float64
	ok    bool
}

func (v *emValue) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `"-"` || s == `""` {
		*v = emValue{}
		return nil
	}
	s = strings.Trim(s, `"`)
	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*v = emValue{}
		return nil
	}
	*v = emValue{value: parsed, ok: true}
	return nil
}

var (
	_ SnapshotFetcher = (*Eastmoney)(nil)
	_ HistoryFetcher  = (*Eastmoney)(nil)
)
