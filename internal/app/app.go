package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/config"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/engine"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/gateway/binance"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/gateway/news"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/gateway/notifier"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/ledger"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/logger"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/market"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/oracle"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/position"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/report"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/sizing"
)

// App owns the object graph: gateways, ledger, position machine, engine and
// the optional report server.
type App struct {
	cfg    *config.Config
	store  *ledger.Ledger
	engine *engine.Engine
	report *report.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	exCfg := binance.Config{
		APIKey:      cfg.Exchange.APIKey,
		APISecret:   cfg.Exchange.APISecret,
		Testnet:     cfg.Exchange.Testnet,
		HTTPTimeout: time.Duration(cfg.Exchange.TimeoutSeconds) * time.Second,
	}
	source := binance.NewSource(exCfg)
	ex := binance.NewExchange(exCfg)

	var newsSource market.NewsSource
	if cfg.News.Enabled {
		newsSource = news.NewSerpSource(
			cfg.News.APIKey,
			cfg.News.Query,
			cfg.News.Limit,
			time.Duration(cfg.News.TimeoutSeconds)*time.Second,
		)
	}

	var notify notifier.Notifier = notifier.Nop{}
	if cfg.Notify.Telegram.Enabled {
		notify = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
	}

	registry, err := oracle.NewRegistry(cfg.Oracle.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("oracle registry: %w", err)
	}
	chat := &oracle.ChatClient{
		BaseURL:    cfg.Oracle.APIURL,
		APIKey:     cfg.Oracle.APIKey,
		Model:      cfg.Oracle.Model,
		Timeout:    time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.Oracle.MaxRetries,
	}
	decider := oracle.NewModelDecider(chat, registry)

	machine := position.NewMachine(ex, source, store, notify, cfg.Trading.Symbol, position.Options{
		ProtectAlertAttempts: cfg.Advanced.ProtectAlertAttempts,
		ProtectBackoff:       secondsToDuration(cfg.Advanced.ProtectBackoffSeconds),
		ProtectBackoffMax:    secondsToDuration(cfg.Advanced.ProtectBackoffMax),
		FillPollAttempts:     cfg.Advanced.FillPollAttempts,
		FillPollInterval:     secondsToDuration(cfg.Advanced.FillPollSeconds),
	})

	collector := market.NewCollector(source, newsSource, cfg.Trading.Symbol,
		cfg.Advanced.CollectorRetries, secondsToDuration(cfg.Advanced.CollectorBackoffSecond))

	sizer := sizing.NewPolicy(cfg.Trading.MinConviction, cfg.Trading.MinNotionalUSD, cfg.Trading.MaxLeverage)

	eng := engine.New(engine.Options{
		Symbol:           cfg.Trading.Symbol,
		CycleInterval:    cfg.Trading.CycleInterval(),
		RunImmediately:   cfg.Trading.RunImmediately,
		BreakerThreshold: cfg.Advanced.BreakerThreshold,
		BreakerTimeout:   time.Duration(cfg.Advanced.BreakerTimeoutSeconds) * time.Second,
	}, collector, decider, ex, machine, store, sizer)

	var reportSrv *report.Server
	if cfg.Report.Enabled {
		reportSrv, err = report.NewServer(report.Config{
			Addr:   cfg.Report.HTTPAddr,
			Symbol: cfg.Trading.Symbol,
			Store:  store,
			State:  machine.State,
		})
		if err != nil {
			return nil, fmt.Errorf("report server: %w", err)
		}
	}

	return &App{
		cfg:    cfg,
		store:  store,
		engine: eng,
		report: reportSrv,
	}, nil
}

// Run blocks until ctx is canceled or a component fails fatally.
func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("engine started: %s every %s", a.cfg.Trading.Symbol, a.cfg.Trading.CycleInterval())
		return a.engine.Run(ctx)
	})
	if a.report != nil {
		g.Go(func() error {
			logger.Infof("report server listening on %s", a.report.Addr())
			return a.report.Start(ctx)
		})
	}
	return g.Wait()
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
