package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yzeng1018/stock-monitor/internal/market"
	"github.com/yzeng1018/stock-monitor/internal/report"
	"github.com/yzeng1018/stock-monitor/internal/rules"
	"github.com/yzeng1018/stock-monitor/internal/stats"
)

// SimulateOptions 描述一次人工构造的行情。
type SimulateOptions struct {
	Mode       string
	Symbol     string
	Price      float64
	PrevClose  float64
	Volume     int64
	AvgVolume  float64
	WindowHigh float64
	WindowLow  float64
}

// SimulateAlert 用给定行情走一遍规则评估与推送，验证告警链路。
// 不经过去重存储，可重复执行。
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	mode, err := a.Config.Mode(opts.Mode)
	if err != nil {
		return err
	}

	price := decimal.NewFromFloat(opts.Price)
	prev := decimal.NewFromFloat(opts.PrevClose)
	if !price.IsPositive() || !prev.IsPositive() {
		return errors.New("--price 与 --prev-close 必须大于 0")
	}

	quote := market.Quote{
		Symbol:       opts.Symbol,
		Name:         a.Config.DisplayName(opts.Symbol),
		Venue:        market.VenueUS,
		Price:        price,
		PrevClose:    prev,
		HasPrevClose: true,
		ChangePct:    price.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)),
		Volume:       opts.Volume,
		AsOf:         time.Now(),
	}

	st := stats.Stats{
		High:      decimal.NewFromFloat(opts.WindowHigh),
		Low:       decimal.NewFromFloat(opts.WindowLow),
		VolumeAvg: decimal.NewFromFloat(opts.AvgVolume),
		Samples:   mode.WindowSessions,
	}
	if opts.WindowHigh <= 0 || opts.WindowLow <= 0 {
		// Without a window the simulation only exercises the price rule.
		st.Insufficient = true
	}

	thresholds := rules.Thresholds{
		PriceChangePct:   decimal.NewFromFloat(mode.PriceThresholdPct),
		VolumeMultiplier: decimal.NewFromFloat(mode.VolumeMultiplier),
	}

	conditions := rules.Evaluate(quote, st, thresholds)
	if len(conditions) == 0 {
		a.Logger.Info().Str("symbol", opts.Symbol).Msg("模拟行情未触发任何条件")
		return nil
	}

	entry := report.Entry{Quote: quote, Stats: st, Conditions: conditions}
	title, body := report.AlertMessage(mode.SortByMagnitude, []report.Entry{entry}, time.Now())

	for _, notifier := range a.newNotifiers() {
		if err := notifier.Deliver(ctx, title, body); err != nil {
			a.Logger.Error().Err(err).Str("channel", notifier.Name()).Msg("模拟告警推送失败")
			return err
		}
	}
	return nil
}
