package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitos/options_alerts/internal/config"
	"github.com/vitos/options_alerts/internal/domain"
	"github.com/vitos/options_alerts/internal/infrastructure/logger"
	"github.com/vitos/options_alerts/internal/infrastructure/notify"
	"github.com/vitos/options_alerts/internal/infrastructure/scanner"
	"github.com/vitos/options_alerts/internal/infrastructure/scheduler"
	"github.com/vitos/options_alerts/internal/infrastructure/storage"
	"github.com/vitos/options_alerts/internal/usecase"
	"github.com/vitos/options_alerts/internal/web"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to YAML config")
	envFile := flag.String("env", ".env", "optional dotenv file with secrets")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Transports
	hub := notify.NewHub(log)
	targets := []domain.Notifier{hub}
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != "" {
		targets = append(targets, notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID))
	} else {
		log.Warn("Telegram not configured, alerts go to websocket clients only")
	}
	notifier := notify.NewMulti(log, targets...)

	// 5. Alert pipeline
	router := usecase.NewAlertRouter(usecase.RouterDeps{
		Sizer: usecase.NewPositionSizer(usecase.SizerConfig{
			MinContracts: cfg.Sizing.MinContracts,
			MaxContracts: cfg.Sizing.MaxContracts,
		}),
		Notifier: notifier,
		Repo:     store,
		Logger:   log,
	})
	tracker := usecase.NewPortfolioTracker(store, cfg.Account.Value, nil)
	service := usecase.NewAlertService(router, tracker, log)

	// 6. Exit monitors
	prices := usecase.NewPriceBook()
	suite := usecase.NewDefaultMonitorSuite(usecase.MonitorDeps{
		Positions: store,
		Evaluator: usecase.NewIntrinsicEvaluator(),
		Formatter: usecase.NewAlertFormatter(),
		Notifier:  notifier,
		Logger:    log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 7. Scheduler
	runner := scheduler.New(ctx, log)
	if _, err := runner.Add("exit_monitors", cfg.Schedule.MonitorSpec, func(ctx context.Context) {
		snapshot := prices.Snapshot()
		if len(snapshot) == 0 {
			return
		}
		suite.RunCycle(ctx, snapshot, time.Now())
	}); err != nil {
		log.Fatal("Failed to schedule monitors", zap.Error(err))
	}

	if len(cfg.Scanner.Feeds) > 0 {
		feed := scanner.NewHTTPFeed(nil)
		if _, err := runner.Add("scanner_feeds", cfg.Schedule.ScanSpec, func(ctx context.Context) {
			for _, url := range cfg.Scanner.Feeds {
				batch, err := feed.Fetch(ctx, url)
				if err != nil {
					log.Error("Scanner feed failed", zap.String("url", url), zap.Error(err))
					continue
				}
				alerts, err := service.ProcessBatch(ctx, batch.Opportunities, batch.IVRank)
				if err != nil {
					log.Error("Failed to process scanner batch", zap.String("url", url), zap.Error(err))
					continue
				}
				log.Info("Scanner batch routed",
					zap.String("url", url),
					zap.Int("opportunities", len(batch.Opportunities)),
					zap.Int("alerts", len(alerts)))
			}
		}); err != nil {
			log.Fatal("Failed to schedule scanner feeds", zap.Error(err))
		}
	}
	runner.Start()

	// 8. Init Web Server
	server := web.NewServer(cfg.Server.Port, web.Deps{
		Alerts:    store,
		Positions: store,
		Service:   service,
		Prices:    prices,
		Monitors:  suite,
		Stream:    hub,
		Logger:    log,
	})
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 9. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	cancel()
	runner.Stop()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
