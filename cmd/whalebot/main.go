// Command whalebot watches the public Polymarket trade feed for whale
// activity: large trades are filtered, enriched with wallet and market
// context, scored, and the convincing ones are pushed to Telegram.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vikram1211/polymarket-whale-bot/internal/alert"
	"github.com/vikram1211/polymarket-whale-bot/internal/config"
	"github.com/vikram1211/polymarket-whale-bot/internal/enrich"
	"github.com/vikram1211/polymarket-whale-bot/internal/feed"
	"github.com/vikram1211/polymarket-whale-bot/internal/filter"
	"github.com/vikram1211/polymarket-whale-bot/internal/health"
	"github.com/vikram1211/polymarket-whale-bot/internal/lookup"
	"github.com/vikram1211/polymarket-whale-bot/internal/metrics"
	"github.com/vikram1211/polymarket-whale-bot/internal/pipeline"
	"github.com/vikram1211/polymarket-whale-bot/internal/score"
	"github.com/vikram1211/polymarket-whale-bot/internal/stats"
	"github.com/vikram1211/polymarket-whale-bot/internal/tui"
	"github.com/vikram1211/polymarket-whale-bot/pkg/cache"
	"github.com/vikram1211/polymarket-whale-bot/pkg/logger"
	"github.com/vikram1211/polymarket-whale-bot/pkg/ratelimit"
	"github.com/vikram1211/polymarket-whale-bot/pkg/shutdown"
)

const (
	warmTimeout      = 30 * time.Second
	noticeTimeout    = 10 * time.Second
	dedupSweepPeriod = time.Minute
)

func main() {
	envFile := flag.String("env", "", "path to a .env file to load before reading the environment")
	flag.Parse()

	if err := logger.InitDefault(); err != nil {
		panic(err)
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			logger.Errorf("load env file %s: %v", *envFile, err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}

	// Reinitialize with the configured level and file. In TUI mode the
	// terminal belongs to the dashboard, so console output is dropped.
	if err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputFile: cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
		Quiet:      cfg.EnableTUI,
	}); err != nil {
		logger.Errorf("init logger: %v", err)
		os.Exit(1)
	}

	logger.Infof("🐋 whale bot starting: min trade $%s, min score %d/100", cfg.MinTradeUSD.StringFixed(0), cfg.MinAlertScore)
	logger.Infof("telegram: chat=%s token=%s", cfg.TelegramChatID, config.MaskSecret(cfg.TelegramToken))

	// Each stage gets its own context so shutdown can stop them in order:
	// feed first, then the pipeline drains, then alerts flush. svcCtx
	// covers the background loops (stats, cache sweeps) and dies last.
	svcCtx, svcCancel := context.WithCancel(context.Background())
	feedCtx, feedCancel := context.WithCancel(context.Background())
	pipeCtx, pipeCancel := context.WithCancel(context.Background())
	dispatchCtx, dispatchCancel := context.WithCancel(context.Background())

	monitor := stats.NewMonitor()
	go monitor.Run(svcCtx, cfg.StatsInterval)

	limits := ratelimit.NewManager()
	dataAPI := lookup.NewDataClient(cfg.DataAPIURL, cfg.HTTPTimeout, limits)
	gammaAPI := lookup.NewGammaClient(cfg.GammaAPIURL, cfg.HTTPTimeout, limits)

	provider := enrich.NewProvider(dataAPI, gammaAPI, cfg)
	provider.StartSweeps(svcCtx)

	if cfg.MarketWarmLimit > 0 {
		warmCtx, cancel := context.WithTimeout(svcCtx, warmTimeout)
		n, err := provider.WarmMarkets(warmCtx, cfg.MarketWarmLimit)
		cancel()
		if err != nil {
			logger.Warnf("market warm-up failed: %v", err)
		} else {
			logger.Infof("market cache warmed with %d active markets", n)
		}
	}

	seen := cache.NewSeenCache(cfg.DedupWindow)
	seen.StartSweep(svcCtx, dedupSweepPeriod)
	chain := filter.NewDefaultChain(seen, provider, provider, cfg.MinTradeUSD, cfg.LPBalanceRatio)

	engine, err := score.FromConfig(cfg)
	if err != nil {
		logger.Errorf("load scoring signals: %v", err)
		os.Exit(1)
	}
	logger.Infof("scoring signals: %s", strings.Join(engine.Signals(), ", "))

	sender := alert.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID)
	dispatcher := alert.NewDispatcher(sender, limits, monitor, cfg)
	go dispatcher.Run(dispatchCtx)

	client := feed.NewClient(cfg, monitor)
	feedErr := make(chan error, 1)
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		if err := client.Run(feedCtx); err != nil {
			feedErr <- err
		}
	}()

	pipe := pipeline.New(client.Trades(), chain, provider, engine, dispatcher, monitor, cfg.MinAlertScore)
	go pipe.Run(pipeCtx)

	var healthSrv *health.Server
	if cfg.HTTPAddr != "" {
		healthSrv = health.New(cfg.HTTPAddr, monitor)
		healthSrv.Start()
	}

	// Optional debug listener (expvar + pprof), enabled by env var only.
	// Meant for localhost or an internal interface.
	if addr := os.Getenv("PPROF_ADDR"); addr != "" {
		metrics.ExposeStats(func() any { return monitor.Snapshot() })
		if err := metrics.Serve(svcCtx, addr); err != nil {
			logger.Errorf("debug server failed to start: %v", err)
		} else {
			logger.Infof("📊 debug server on %s (expvar /debug/vars, pprof /debug/pprof)", addr)
		}
	}

	var ui *tui.UI
	if cfg.EnableTUI {
		ui = tui.New(monitor)
		ui.Start(svcCtx)
	}

	if cfg.SendStartupMsg {
		noticeCtx, cancel := context.WithTimeout(svcCtx, noticeTimeout)
		if err := dispatcher.Notice(noticeCtx, alert.FormatStartup(cfg.MinTradeUSD, cfg.MinAlertScore)); err != nil {
			logger.Warnf("startup message failed: %v", err)
		}
		cancel()
	}

	mgr := shutdown.NewManager()
	mgr.OnShutdown("dashboard", func(ctx context.Context) {
		if ui != nil {
			ui.Stop()
		}
	})
	mgr.OnShutdown("feed", func(ctx context.Context) {
		feedCancel()
		select {
		case <-feedDone:
		case <-ctx.Done():
		}
	})
	mgr.OnShutdown("pipeline", func(ctx context.Context) {
		// The feed has closed the trade channel by now; give the pipeline
		// a chance to drain the backlog before cutting it off.
		select {
		case <-pipe.Done():
		case <-ctx.Done():
			pipeCancel()
		}
	})
	mgr.OnShutdown("alerts", func(ctx context.Context) {
		if cfg.SendStartupMsg {
			if err := dispatcher.Notice(ctx, alert.FormatShutdown()); err != nil {
				logger.Warnf("shutdown message failed: %v", err)
			}
		}
		dispatchCancel()
		dispatcher.Flush(cfg.DrainTimeout + time.Second)
	})
	mgr.OnShutdown("http", func(ctx context.Context) {
		if healthSrv != nil {
			if err := healthSrv.Shutdown(ctx); err != nil {
				logger.Warnf("health server shutdown: %v", err)
			}
		}
	})
	mgr.OnShutdown("services", func(ctx context.Context) {
		svcCancel()
	})

	logger.Infof("whale bot running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		logger.Infof("received %s, shutting down", sig)
	case err := <-feedErr:
		logger.Errorf("feed terminated: %v", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout+10*time.Second)
	mgr.Shutdown(shutdownCtx)
	cancel()

	logger.Infof("✅ whale bot stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
