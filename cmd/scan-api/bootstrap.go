package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qrmint/scantrack/config"
	"github.com/qrmint/scantrack/internal/api/trackhttp"
	"github.com/qrmint/scantrack/internal/broker/kafka"
	"github.com/qrmint/scantrack/internal/cache/rediscache"
	"github.com/qrmint/scantrack/internal/integrations/geo"
	"github.com/qrmint/scantrack/internal/integrations/geo/ipapihttp"
	"github.com/qrmint/scantrack/internal/integrations/geo/noop"
	"github.com/qrmint/scantrack/internal/services/tracking"
	"github.com/qrmint/scantrack/internal/storage/memtracking"
	"github.com/qrmint/scantrack/internal/storage/pgtracking"
)

type scanAPIApp struct {
	ctx     context.Context
	cancel  context.CancelFunc
	opts    scanAPIOpts
	api     *trackhttp.API
	closeDB func()
}

func mustBootstrapScanAPI() *scanAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.ScanTrack.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	baseURL := cfg.ScanTrack.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	topic := cfg.Kafka.ScanRecordedTopicName
	if topic == "" {
		topic = "scan.recorded"
	}
	cacheTTL := analyticsCacheTTL(cfg)

	repo, closeDB := newStorage(cfg)
	geoProvider := newGeoProvider(cfg)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)

	svc := tracking.New(repo, geoProvider, rc, cacheTTL, baseURL)

	if cfg.Kafka.Host != "" {
		brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
		svc = svc.WithProducer(kafka.NewProducer(brokers, topic))
	}

	api := trackhttp.New(svc)
	if cfg.ScanTrack.ScanRateLimitPerMinute > 0 {
		api = api.WithRateLimiter(rediscache.NewRateLimiter(redisAddr), cfg.ScanTrack.ScanRateLimitPerMinute)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &scanAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: scanAPIOpts{
			httpAddr:    httpAddr,
			swaggerPath: swaggerPath,
		},
		api:     api,
		closeDB: closeDB,
	}
}

func newStorage(cfg *config.Config) (tracking.Repository, func()) {
	if cfg.ScanTrack.Storage != "postgres" {
		slog.Info("using in-memory tracking store")
		return memtracking.New(), nil
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)
	return st, st.Close
}

// analyticsCacheTTL: ключ не задан — минута по умолчанию,
// явный 0 (или меньше) выключает кэш аналитики.
func analyticsCacheTTL(cfg *config.Config) time.Duration {
	v := cfg.ScanTrack.AnalyticsCacheTTLSeconds
	if v == nil {
		return time.Minute
	}
	if *v <= 0 {
		return 0
	}
	return time.Duration(*v) * time.Second
}

func newGeoProvider(cfg *config.Config) geo.Provider {
	if cfg.ScanTrack.GeoProviderMode == "ipapi" && cfg.ScanTrack.GeoProviderBaseURL != "" {
		return ipapihttp.New(cfg.ScanTrack.GeoProviderBaseURL)
	}
	return noop.New()
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgtracking.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgtracking.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *scanAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *scanAPIApp) Run() error {
	return runScanAPI(a.ctx, a.opts, a.api)
}
