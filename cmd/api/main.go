package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/hamed0406/isitdownchecker/internal/config"
	"github.com/hamed0406/isitdownchecker/internal/events"
	"github.com/hamed0406/isitdownchecker/internal/geo"
	"github.com/hamed0406/isitdownchecker/internal/httpapi"
	apimw "github.com/hamed0406/isitdownchecker/internal/httpapi/middleware"
	"github.com/hamed0406/isitdownchecker/internal/incident"
	"github.com/hamed0406/isitdownchecker/internal/logging"
	"github.com/hamed0406/isitdownchecker/internal/metrics"
	"github.com/hamed0406/isitdownchecker/internal/notify"
	"github.com/hamed0406/isitdownchecker/internal/outage"
	"github.com/hamed0406/isitdownchecker/internal/probe"
	"github.com/hamed0406/isitdownchecker/internal/repo"
	"github.com/hamed0406/isitdownchecker/internal/repo/memory"
	"github.com/hamed0406/isitdownchecker/internal/repo/postgres"
	"github.com/hamed0406/isitdownchecker/internal/repo/sqlite"
	"github.com/hamed0406/isitdownchecker/internal/sample"
	"github.com/hamed0406/isitdownchecker/internal/scheduler"
	"github.com/hamed0406/isitdownchecker/internal/website"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seed := sample.Embedded()
	if cfg.SeedFile != "" {
		if seed, err = sample.OpenFile(cfg.SeedFile); err != nil {
			logger.Fatal("seed_file_error", zap.String("path", cfg.SeedFile), zap.Error(err))
		}
	}

	store, err := openStore(ctx, cfg, seed, logger)
	if err != nil {
		logger.Fatal("store_open_error", zap.Error(err))
	}
	defer store.Close()

	broker := openBroker(ctx, cfg, logger)
	defer broker.Close()
	gw := events.Observe(store, broker, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Register(reg); err != nil {
		logger.Fatal("metrics_register_error", zap.Error(err))
	}

	var checker probe.Checker = probe.NewHTTPChecker(cfg.ProbeTimeout)
	if cfg.ProbeProxyURL != "" {
		checker = probe.NewProxyChecker(cfg.ProbeProxyURL, cfg.ProbeTimeout)
		logger.Info("probe_via_proxy", zap.String("base_url", cfg.ProbeProxyURL))
	}

	websites := website.NewService(gw, checker, logger)
	websites.Window = cfg.ReportWindow
	websites.Fallback = seed.Websites
	incidents := incident.NewService(gw, geo.HashLocator{}, logger)
	incidents.SetWindow(cfg.ReportWindow)
	outages := outage.NewService(gw, logger)
	outages.Fallback = seed.Reports
	outages.SetWindow(cfg.ReportWindow)

	sink, closeSinks := buildSinks(cfg, logger)
	defer closeSinks()

	monitor := scheduler.NewMonitor(logger, gw, websites, sink, cfg.MonitorInterval)
	monitor.RefreshEvery = cfg.RefreshEvery
	go func() {
		if err := monitor.Watch(ctx, broker); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("monitor_watch_error", zap.Error(err))
		}
	}()
	if cfg.MonitorAutostart {
		if err := monitor.Start(ctx); err != nil {
			logger.Warn("monitor_autostart_failed", zap.Error(err))
		}
	}
	defer monitor.Stop()

	retention := scheduler.NewRetention(logger, outages, cfg.RetentionDays)
	if err := retention.Start(ctx); err != nil {
		logger.Warn("retention_start_error", zap.Error(err))
	}
	defer func() { _ = retention.Stop() }()

	api := &httpapi.Server{
		Logger:       logger,
		Websites:     websites,
		Incidents:    incidents,
		Outages:      outages,
		Monitor:      monitor,
		Prober:       checker,
		DNS:          probe.NewDNSChecker(),
		Broker:       broker,
		Gatherer:     reg,
		FallbackMode: cfg.FallbackMode(),
	}
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	limits := httpapi.Limits{
		PublicRPM:   cfg.PublicRPM,
		PublicBurst: cfg.PublicBurst,
		ReportRPM:   cfg.ReportRPM,
		ReportBurst: cfg.ReportBurst,
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, limits),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_listen_error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("api_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_error", zap.Error(err))
	}
}

// openStore picks the gateway adapter: Postgres, then SQLite, then an
// in-memory store seeded with sample data.
func openStore(ctx context.Context, cfg config.Config, seed *sample.Set, logger *zap.Logger) (repo.Gateway, error) {
	switch {
	case cfg.DatabaseURL != "":
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		logger.Info("store_postgres")
		return pg, nil
	case cfg.SQLitePath != "":
		lite, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("store_sqlite", zap.String("path", cfg.SQLitePath))
		return lite, nil
	}

	logger.Warn("fallback_mode", zap.String("reason", "no DATABASE_URL or SQLITE_PATH; serving sample data from memory"))
	data := seed.Data(time.Now().UTC())
	mem := memory.New()
	mem.Seed(data.Websites, nil, data.Reports)
	return mem, nil
}

func openBroker(ctx context.Context, cfg config.Config, logger *zap.Logger) events.Broker {
	if cfg.RedisURL == "" {
		return events.NewMemory()
	}
	rb, err := events.NewRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		logger.Warn("redis_unavailable", zap.Error(err))
		return events.NewMemory()
	}
	logger.Info("events_redis")
	return rb
}

// buildSinks wires every configured notification channel. The log channel
// is used when nothing else is configured.
func buildSinks(cfg config.Config, logger *zap.Logger) (notify.StatusSink, func()) {
	var channels notify.Multi
	if s := notify.NewSlack(cfg.SlackWebhookURL); s != nil {
		channels = append(channels, s)
	}
	tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
	switch {
	case err != nil:
		logger.Warn("telegram_unavailable", zap.Error(err))
	case tg != nil:
		channels = append(channels, tg)
	}
	if len(channels) == 0 {
		channels = append(channels, notify.Log{Logger: logger})
	}

	sinks := notify.Sinks{
		notify.NewDispatcher(channels, notify.DispatcherConfig{
			AlertOnRecovery: cfg.AlertOnRecovery,
			Cooldown:        cfg.NotifyCooldown,
		}, logger),
	}
	closeFn := func() {}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := notify.NewKafkaProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.Warn("kafka_unavailable", zap.Error(err))
		} else {
			k := notify.NewKafka(producer, cfg.KafkaTopic, logger)
			sinks = append(sinks, k)
			closeFn = func() {
				if err := k.Close(); err != nil {
					logger.Warn("kafka_close_error", zap.Error(err))
				}
			}
		}
	}
	return sinks, closeFn
}
