package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dissector-viewer/internal/platform/config"
	"dissector-viewer/internal/platform/logger"
	"dissector-viewer/internal/platform/metrics"
	"dissector-viewer/internal/platform/redis"
	"dissector-viewer/internal/state"
	"dissector-viewer/internal/tracks"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	dev := config.IsDevelopment()
	basePath := config.BasePath(dev)
	urlTemplate := config.GetEnv("ARCHIVE_URL_TEMPLATE", tracks.DefaultURLTemplate)
	cacheTTL := config.GetEnvDuration("ARCHIVE_CACHE_TTL", tracks.DefaultCacheTTL)
	maxArchiveBytes := config.GetEnvInt64("ARCHIVE_MAX_BYTES", tracks.DefaultMaxArchiveBytes)
	fetchTimeout := config.GetEnvDuration("FETCH_TIMEOUT", tracks.DefaultFetchTimeout)
	redisURL := config.GetEnv("REDIS_URL", "")
	redisPoolSize := config.GetEnvInt("REDIS_POOL_SIZE", 0)
	debugArchives := config.GetEnvBool("DEBUG_ARCHIVES", false)

	log := logger.New(logLevel, logFormat)

	locator, err := tracks.NewLocator(urlTemplate)
	if err != nil {
		log.Error("invalid archive url template", "template", urlTemplate, "error", err)
		os.Exit(1)
	}

	var cache tracks.ArchiveCache = tracks.NewInMemoryCache()
	rdb, err := redis.New(context.Background(), redis.Config{URL: redisURL, PoolSize: redisPoolSize, DialTimeout: 5 * time.Second})
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
		cache = tracks.NewRedisCache(rdb.Client)
	}

	met := metrics.New()
	app := state.New()
	app.Watch(func(cell string, _ any) { met.IncStateWrite(cell) })

	var inspector *tracks.Inspector
	if debugArchives {
		inspector = tracks.NewInspector(log)
	}

	fetcher := tracks.NewHTTPFetcher(&http.Client{Timeout: fetchTimeout}, maxArchiveBytes)
	loader := tracks.NewLoader(locator, fetcher, cache,
		tracks.WithLogger(log),
		tracks.WithMetrics(met),
		tracks.WithInspector(inspector),
		tracks.WithCacheTTL(cacheTTL),
	)

	stateHandler := state.NewHandler(app, log)
	trackHandler := tracks.NewHandler(loader, app, inspector, log)

	rc := routerConfig{
		basePath:      basePath,
		debugArchives: inspector != nil,
		log:           log,
		metrics:       met,
		state:         stateHandler,
		tracks:        trackHandler,
	}
	if rdb != nil {
		rc.health = rdb.Health
	}

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: newRouter(rc)}
	srv.RegisterOnShutdown(stateHandler.Close)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"base_path", basePath,
		"development", dev,
		"redis_cache", rdb != nil,
		"debug_archives", debugArchives,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
