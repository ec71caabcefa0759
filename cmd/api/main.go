package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/minishop/order-service/internal/config"
	"github.com/minishop/order-service/internal/httpx"
	"github.com/minishop/order-service/internal/inventory"
	kafkax "github.com/minishop/order-service/internal/kafka"
	"github.com/minishop/order-service/internal/metrics"
	"github.com/minishop/order-service/internal/orders"
	"github.com/minishop/order-service/internal/postgres"
	"github.com/minishop/order-service/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB: bounded retry, then the process decides to exit.
	db, err := postgres.ConnectWithRetry(ctx, cfg.PostgresDSN, 10, 5*time.Second, log)
	if err != nil {
		log.Error("db connect failed, giving up", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Error("schema setup failed", "err", err)
		os.Exit(1)
	}

	// Redis status cache
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for order events
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderEvents, 1024)
	prod.Start(ctx)

	// Metrics registry: one instance, injected everywhere it is read.
	m := metrics.New(cfg.ServiceName)

	inv := inventory.NewClient(log, m, cfg.InventoryURL)
	repo := &orders.Repo{DB: db}
	svc := orders.NewService(log, repo, inv, m)

	router := httpx.NewRouter(m)
	oh := &httpx.OrdersHandler{
		Service:  svc,
		Producer: prod,
		Redis:    rdb,
		AppName:  cfg.ServiceName,
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "inventory_url", cfg.InventoryURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	prod.Close()      // close inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
	log.Info("order-service shutdown complete")
}
