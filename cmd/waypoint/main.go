package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	corecfg "github.com/aevon-lab/waypoint/internal/core/config"
	"github.com/aevon-lab/waypoint/internal/ingestion"
	"github.com/aevon-lab/waypoint/internal/latest"
	"github.com/aevon-lab/waypoint/internal/mqtt"
	"github.com/aevon-lab/waypoint/internal/projection"
	"github.com/aevon-lab/waypoint/internal/recordlog"
	"github.com/aevon-lab/waypoint/internal/server"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "waypoint.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	var level slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		slog.Error("Invalid log level", "level", cfg.Log.Level, "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"log_store", cfg.LogStore.Backend,
		"cache", cfg.Cache.Backend,
		"auth", cfg.Auth.Enabled(),
		"mqtt", cfg.MQTT.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Initialize Storage
	stores, err := openBackends(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			slog.Error("Failed to close storage", "error", err)
		}
	}()

	// 3. Initialize Core
	logStore := recordlog.NewStore(stores.objects)
	cache := latest.NewCache(stores.kv)
	coordinator := ingestion.NewCoordinator(cache, logStore)

	// 4. Initialize Ingestion and Projection (query API)
	ingestionSvc := ingestion.NewService(coordinator, cfg.Server.MaxBodySizeMB)
	projectionSvc := projection.NewService(logStore, cache)

	// 5. Initialize Server
	srv := server.New(server.Options{
		Addr:             fmtAddr(cfg.Server.Host, cfg.Server.Port),
		Mode:             cfg.Server.Mode,
		ShutdownTimeout:  cfg.Server.ShutdownTimeoutDuration(),
		Username:         cfg.Auth.Username,
		Password:         cfg.Auth.Password,
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowCredentials: cfg.CORS.AllowCredentials,
		HealthCheckers:   stores.health,
	})
	ingestionSvc.RegisterRoutes(srv.API)
	projectionSvc.RegisterRoutes(srv.API)

	// Signal handler -> triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// 6. Start Services
	g, gctx := errgroup.WithContext(ctx)

	// HTTP server blocks until ctx is cancelled.
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if cfg.MQTT.Enabled {
		g.Go(func() error {
			return runMQTT(gctx, cfg.MQTT, coordinator)
		})
	} else {
		slog.Info("MQTT subscriber disabled by config")
	}

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func runMQTT(ctx context.Context, cfg corecfg.MQTTConfig, coordinator *ingestion.Coordinator) error {
	client, err := mqtt.Connect(mqtt.Options{
		BrokerURL: cfg.BrokerURL,
		ClientID:  cfg.ClientID,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	defer client.Close()

	ingestor := mqtt.NewIngestor(coordinator, cfg.HandlerTimeoutDuration())
	// A failed subscribe is retried by the client on the next reconnect, so
	// the HTTP side keeps serving.
	if err := client.Subscribe(cfg.Topic, byte(cfg.QoS), ingestor.Handler(ctx)); err != nil {
		slog.Error("MQTT subscribe failed", "topic", cfg.Topic, "error", err)
	} else {
		slog.Info("MQTT subscriber started", "topic", cfg.Topic, "connected", client.Connected())
	}

	<-ctx.Done()
	slog.Info("Stopping MQTT subscriber...")
	return nil
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
