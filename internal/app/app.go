package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/yzeng1018/stock-monitor/internal/alerting"
	"github.com/yzeng1018/stock-monitor/internal/config"
	"github.com/yzeng1018/stock-monitor/internal/dedup"
	"github.com/yzeng1018/stock-monitor/internal/fetcher"
	"github.com/yzeng1018/stock-monitor/internal/market"
	"github.com/yzeng1018/stock-monitor/internal/news"
	"github.com/yzeng1018/stock-monitor/internal/scheduler"
	"github.com/yzeng1018/stock-monitor/internal/service"
	"github.com/yzeng1018/stock-monitor/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newOrchestrator() *fetcher.Orchestrator {
	return fetcher.New(fetcher.Options{
		Workers:      a.Config.Fetch.Workers,
		LookbackDays: a.Config.Fetch.LookbackDays,
		MinSamples:   a.Config.Fetch.MinSamples,
	}, a.Logger)
}

// newSources builds one fetch source per venue with a configured watchlist.
func (a *App) newSources() map[market.Venue]fetcher.Source {
	timeout := a.Config.Fetch.RequestTimeout
	userAgent := a.Config.Fetch.UserAgent

	sources := make(map[market.Venue]fetcher.Source, 3)

	if len(a.Config.Watchlist.US) > 0 {
		yahoo := fetcher.NewYahoo(fetcher.YahooOptions{
			BaseURL:   a.Config.Providers.Yahoo.BaseURL,
			Venue:     market.VenueUS,
			Timeout:   timeout,
			UserAgent: userAgent,
		}, a.Logger)
		sources[market.VenueUS] = fetcher.Source{
			Venue:   market.VenueUS,
			Symbols: a.Config.Watchlist.US,
			Quotes:  yahoo,
			History: yahoo,
		}
	}

	if len(a.Config.Watchlist.HK) > 0 {
		yahoo := fetcher.NewYahoo(fetcher.YahooOptions{
			BaseURL:   a.Config.Providers.Yahoo.BaseURL,
			Venue:     market.VenueHK,
			Timeout:   timeout,
			UserAgent: userAgent,
		}, a.Logger)
		sources[market.VenueHK] = fetcher.Source{
			Venue:   market.VenueHK,
			Symbols: a.Config.Watchlist.HK,
			Quotes:  yahoo,
			History: yahoo,
		}
	}

	if len(a.Config.Watchlist.CN) > 0 {
		eastmoney := fetcher.NewEastmoney(fetcher.EastmoneyOptions{
			QuoteBaseURL: a.Config.Providers.Eastmoney.QuoteBaseURL,
			KlineBaseURL: a.Config.Providers.Eastmoney.KlineBaseURL,
			Timeout:      timeout,
			UserAgent:    userAgent,
		}, a.Logger)
		sources[market.VenueCN] = fetcher.Source{
			Venue:    market.VenueCN,
			Symbols:  a.Config.Watchlist.CN,
			Snapshot: eastmoney,
			History:  eastmoney,
			SnapshotRetry: fetcher.RetryPolicy{
				Attempts: a.Config.Fetch.SnapshotRetryAttempts,
				Backoff:  a.Config.Fetch.SnapshotRetryBackoff,
			},
		}
	}

	return sources
}

// newNotifiers resolves the configured channels. With nothing usable
// configured it degrades to console delivery so evaluation logic still runs.
func (a *App) newNotifiers() []alerting.Notifier {
	notifiers := make([]alerting.Notifier, 0, 2)

	if a.Config.Alerting.Enabled {
		for _, channel := range a.Config.Alerting.Channels {
			switch channel {
			case "pushplus":
				if a.Config.Alerting.PushPlus.Token == "" {
					a.Logger.Warn().Msg("未配置 PushPlus token，跳过该通道")
					continue
				}
				cfg := a.Config.Alerting.PushPlus
				notifiers = append(notifiers, alerting.NewPushPlusNotifier(
					cfg.Token, cfg.Template, cfg.BaseURL, 10*time.Second, a.Logger))
			case "telegram":
				if a.Config.Alerting.Telegram.BotToken == "" || a.Config.Alerting.Telegram.ChatID == "" {
					a.Logger.Warn().Msg("未配置 Telegram bot_token/chat_id，跳过该通道")
					continue
				}
				cfg := a.Config.Alerting.Telegram
				notifiers = append(notifiers, alerting.NewTelegramNotifier(
					cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger))
			default:
				a.Logger.Warn().Str("channel", channel).Msg("未知告警通道，忽略")
			}
		}
	}

	if len(notifiers) == 0 {
		a.Logger.Warn().Msg("无可用推送通道，降级为控制台输出")
		notifiers = append(notifiers, alerting.NewConsoleNotifier(a.Logger))
	}
	return notifiers
}

func (a *App) newNews() (news.Provider, news.Summarizer) {
	if !a.Config.News.Enabled {
		return nil, nil
	}

	provider := news.NewYahoo(news.YahooOptions{
		BaseURL:   a.Config.Providers.Yahoo.BaseURL,
		Timeout:   a.Config.Fetch.RequestTimeout,
		UserAgent: a.Config.Fetch.UserAgent,
	}, a.Logger)

	var summarizer news.Summarizer
	if a.Config.News.Summarizer.Enabled && a.Config.News.Summarizer.APIKey != "" {
		cfg := a.Config.News.Summarizer
		summarizer = news.NewChatSummarizer(news.SummarizerOptions{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
		}, a.Logger)
	}
	return provider, summarizer
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newService wires the full pipeline. The returned closer releases the
// storage pool when one was opened.
func (a *App) newService(ctx context.Context) (*service.Service, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	deps := service.Deps{
		Orchestrator: a.newOrchestrator(),
		Sources:      a.newSources(),
		Notifiers:    a.newNotifiers(),
	}
	deps.News, deps.Summarizer = a.newNews()

	if store != nil {
		deps.Dedup = dedup.NewPostgresStore(store.Pool())
		deps.AlertStore = store
		deps.Locker = store
	} else {
		a.Logger.Info().Str("path", a.Config.Dedup.FilePath).
			Msg("database.dsn not configured; using file-backed dedup store")
		deps.Dedup = dedup.NewFileStore(a.Config.Dedup.FilePath, a.Logger)
	}

	svc := service.New(a.Config, deps, a.Logger)
	if closeStore == nil {
		closeStore = func() {}
	}
	return svc, closeStore, nil
}

// Scan performs one alert scan in the given mode.
func (a *App) Scan(ctx context.Context, mode string) error {
	svc, closer, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer closer()
	return svc.Scan(ctx, mode)
}

// Summary pushes the daily ranking digest.
func (a *App) Summary(ctx context.Context) error {
	svc, closer, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer closer()
	return svc.Summary(ctx)
}

// Run executes scans on the configured cadence until interrupted.
func (a *App) Run(ctx context.Context, mode string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, closer, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer closer()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Str("mode", mode).Msg("starting monitoring loop")
	err = sched.Run(ctx, func(ctx context.Context, _ time.Time) error {
		return svc.Scan(ctx, mode)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("monitoring loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring loop stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
