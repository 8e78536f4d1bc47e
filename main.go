package main

import (
	"context"
	"matchlobby/internal/archive"
	"matchlobby/internal/config"
	"matchlobby/internal/database/db_client"
	"matchlobby/internal/events/streampub"
	"matchlobby/internal/http/http_server"
	"matchlobby/internal/metrics"
	"matchlobby/internal/redis/redis_client"
	"matchlobby/internal/services/session"
	"matchlobby/internal/ws"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.LogFormat == "json" {
		if prod, err := zap.NewProduction(); err == nil {
			Log = prod
			zap.ReplaceGlobals(Log)
		}
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	recorders := session.Recorders{m}

	// 4. Optional lifecycle stream on Redis
	if cfg.EventsEnabled() {
		redisClient, err := redis_client.NewRedisClient(cfg.RedisEventsHost, int(cfg.RedisEventsPort))
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()

		pub := streampub.New(redisClient, 1024)
		go pub.Run(ctx)
		recorders = append(recorders, pub)

		// 5. Optional match archive in Postgres, fed by the stream
		if cfg.ArchiveEnabled() {
			pgDb, err := db_client.Open(ctx, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
			if err != nil {
				Log.Fatal("pg-open", zap.Error(err))
			}
			defer pgDb.Close()
			if err := archive.EnsureSchema(ctx, pgDb); err != nil {
				Log.Fatal("archive-schema", zap.Error(err))
			}
			archive.Run(ctx, redisClient, pgDb)
		}
	}

	// 6. WebSockets hub + session engine
	hub := ws.NewHub()
	engine := session.NewEngine(hub,
		session.WithRecorder(recorders),
		session.WithClock(clockwork.NewRealClock()),
	)
	go engine.RunSweeper(ctx, cfg.SessionSweepInterval, cfg.SessionIdleTTL)

	wsSrv := ws.NewWsServer(hub, engine, cfg.AllowedOrigins, m)

	// 7. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, engine,
		cfg.AllowedOrigins, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			Log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	case <-ctx.Done():
		Log.Info("shutting down")
		_ = httpServer.Dispose()
	}
}
