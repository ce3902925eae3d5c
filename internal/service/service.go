package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/yzeng1018/stock-monitor/internal/alerting"
	"github.com/yzeng1018/stock-monitor/internal/config"
	"github.com/yzeng1018/stock-monitor/internal/dedup"
	"github.com/yzeng1018/stock-monitor/internal/fetcher"
	"github.com/yzeng1018/stock-monitor/internal/market"
	"github.com/yzeng1018/stock-monitor/internal/news"
	"github.com/yzeng1018/stock-monitor/internal/report"
	"github.com/yzeng1018/stock-monitor/internal/rules"
	"github.com/yzeng1018/stock-monitor/internal/stats"
	"github.com/yzeng1018/stock-monitor/internal/storage"
)

// Deps bundles the collaborators wired into the monitoring service.
type Deps struct {
	Orchestrator *fetcher.Orchestrator
	Sources      map[market.Venue]fetcher.Source
	Dedup        dedup.Store
	Notifiers    []alerting.Notifier
	News         news.Provider
	Summarizer   news.Summarizer
	AlertStore   storage.AlertStore
	Locker       storage.AdvisoryLocker
}

// Service orchestrates fetching, evaluation, dedup gating, and alerting for
// one invocation at a time.
type Service struct {
	cfg    *config.Config
	deps   Deps
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs the monitoring service.
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With().Str("component", "service").Logger(),
		now:    time.Now,
	}
}

// Scan 执行一次完整的异动扫描：抓取 → 统计 → 规则评估 → 去重 → 聚合推送。
// Delivery failures are logged and folded into the returned error; a failed
// symbol or venue never aborts the rest of the run.
func (s *Service) Scan(ctx context.Context, modeName string) error {
	mode, err := s.cfg.Mode(modeName)
	if err != nil {
		return err
	}

	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Info().Str("mode", modeName).Msg("另一轮扫描持有锁，跳过本次执行")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	now := s.now()
	day := now.In(s.cfg.App.Location()).Format(dedup.DateLayout)
	thresholds := rules.Thresholds{
		PriceChangePct:   decimal.NewFromFloat(mode.PriceThresholdPct),
		VolumeMultiplier: decimal.NewFromFloat(mode.VolumeMultiplier),
	}

	evaluated := 0
	entries := make([]report.Entry, 0)

	for _, venueName := range mode.Venues {
		venue, err := market.ParseVenue(venueName)
		if err != nil {
			s.logger.Error().Err(err).Str("mode", modeName).Msg("模式配置了未知市场，跳过")
			continue
		}
		src, ok := s.deps.Sources[venue]
		if !ok || len(src.Symbols) == 0 {
			continue
		}

		observations := s.deps.Orchestrator.Collect(ctx, src)
		evaluated += len(observations)

		for _, obs := range observations {
			entry, triggered := s.evaluate(obs, mode, thresholds)
			if !triggered {
				continue
			}

			alerted, err := s.deps.Dedup.AlreadyAlerted(ctx, day, entry.Quote.Symbol)
			if err != nil {
				// Prefer a duplicate alert over a silently dropped one.
				s.logger.Warn().Err(err).Str("symbol", entry.Quote.Symbol).
					Msg("去重查询失败，按未推送处理")
			}
			if alerted {
				s.logger.Debug().Str("symbol", entry.Quote.Symbol).Str("date", day).
					Msg("今日已推送过，跳过")
				continue
			}

			s.enrich(ctx, &entry)
			entries = append(entries, entry)
		}
	}

	s.logger.Info().Str("mode", modeName).
		Int("evaluated", evaluated).
		Int("triggered", len(entries)).
		Msg("scan finished")

	if len(entries) == 0 {
		return nil
	}

	title, body := report.AlertMessage(mode.SortByMagnitude, entries, now.In(s.cfg.App.Location()))
	if err := s.dispatch(ctx, title, body); err != nil {
		return err
	}

	symbols := make([]string, 0, len(entries))
	for _, entry := range entries {
		symbols = append(symbols, entry.Quote.Symbol)
	}
	if err := s.deps.Dedup.RecordAlerted(ctx, day, symbols); err != nil {
		s.logger.Error().Err(err).Str("date", day).Msg("去重记录写入失败")
	}

	s.audit(ctx, now, modeName, entries)
	return nil
}

// Summary 推送每日涨跌榜汇总，不做规则评估，也不经过去重。
func (s *Service) Summary(ctx context.Context) error {
	quotes := make([]market.Quote, 0)
	for _, venue := range []market.Venue{market.VenueUS, market.VenueHK, market.VenueCN} {
		src, ok := s.deps.Sources[venue]
		if !ok || len(src.Symbols) == 0 {
			continue
		}
		for _, obs := range s.deps.Orchestrator.Collect(ctx, src) {
			quote := obs.Quote
			quote.Name = s.displayName(quote)
			quotes = append(quotes, quote)
		}
	}

	title, body := report.DailySummary(quotes, s.now().In(s.cfg.App.Location()))
	return s.dispatch(ctx, title, body)
}

// evaluate computes trailing statistics and runs the rules for one
// observation. The current session bar is excluded from the window.
func (s *Service) evaluate(obs fetcher.Observation, mode config.ModeConfig, th rules.Thresholds) (report.Entry, bool) {
	quote := obs.Quote
	quote.Name = s.displayName(quote)

	window := obs.Bars
	if len(window) > 0 {
		window = window[:len(window)-1]
	}
	st := stats.Compute(window, mode.WindowSessions)

	conditions := rules.Evaluate(quote, st, th)
	if len(conditions) == 0 {
		return report.Entry{}, false
	}
	return report.Entry{Quote: quote, Stats: st, Conditions: conditions}, true
}

// enrich attaches news headlines (and optionally a summary) to a triggered
// entry. Best effort only: failures degrade to an entry without news.
func (s *Service) enrich(ctx context.Context, entry *report.Entry) {
	if s.deps.News == nil || entry.Quote.Venue == market.VenueCN {
		return
	}

	headlines, err := s.deps.News.Headlines(ctx, entry.Quote.Symbol, s.cfg.News.MaxHeadlines)
	if err != nil {
		s.logger.Debug().Err(err).Str("symbol", entry.Quote.Symbol).Msg("新闻获取失败，忽略")
		return
	}
	entry.News = headlines

	if s.deps.Summarizer == nil || len(headlines) == 0 {
		return
	}
	summary, err := s.deps.Summarizer.Summarize(ctx, headlines)
	if err != nil {
		s.logger.Debug().Err(err).Str("symbol", entry.Quote.Symbol).Msg("新闻摘要失败，忽略")
		return
	}
	entry.NewsSummary = summary
}

// dispatch sends the aggregate message to every configured channel. It
// returns an error only when no channel accepted the message.
func (s *Service) dispatch(ctx context.Context, title, body string) error {
	if len(s.deps.Notifiers) == 0 {
		return errors.New("no notification channel configured")
	}

	delivered := 0
	for _, notifier := range s.deps.Notifiers {
		if err := notifier.Deliver(ctx, title, body); err != nil {
			s.logger.Error().Err(err).Str("channel", notifier.Name()).Msg("告警推送失败")
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return fmt.Errorf("all %d notification channels failed", len(s.deps.Notifiers))
	}
	return nil
}

func (s *Service) audit(ctx context.Context, runTS time.Time, modeName string, entries []report.Entry) {
	if s.deps.AlertStore == nil {
		return
	}
	for _, entry := range entries {
		conditions := make([]string, 0, len(entry.Conditions))
		for _, cond := range entry.Conditions {
			conditions = append(conditions, string(cond.Kind))
		}
		record := storage.AlertRecord{
			RunTS:      runTS,
			Mode:       modeName,
			Symbol:     entry.Quote.Symbol,
			Venue:      string(entry.Quote.Venue),
			ChangePct:  entry.Quote.ChangePct,
			Conditions: conditions,
		}
		if _, err := s.deps.AlertStore.InsertAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("symbol", entry.Quote.Symbol).Msg("告警审计写入失败")
		}
	}
}

func (s *Service) displayName(quote market.Quote) string {
	if quote.Name != "" {
		return quote.Name
	}
	return s.cfg.DisplayName(quote.Symbol)
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	key := s.cfg.Dedup.AdvisoryLockKey
	if key == 0 || s.deps.Locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.deps.Locker.TryAdvisoryLock(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
