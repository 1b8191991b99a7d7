package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parlorhq/go-hookrelay/pkg/archive"
	"github.com/parlorhq/go-hookrelay/pkg/config"
	"github.com/parlorhq/go-hookrelay/pkg/notify"
	"github.com/parlorhq/go-hookrelay/pkg/queue"
	"github.com/parlorhq/go-hookrelay/pkg/redisconn"
	"github.com/parlorhq/go-hookrelay/pkg/telemetry"
	"github.com/parlorhq/go-hookrelay/pkg/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration from file or environment
	cfg, err := config.LoadFromFile("./cmd/hookrelay-worker")
	if err != nil {
		log.Fatal("Error loading configuration: ", err)
	}

	// Initialize telemetry (tracing)
	shutdownTelemetry, err := telemetry.Init(cfg.Observability)
	if err != nil {
		log.Fatal("Failed to initialize telemetry: ", err)
	}
	defer shutdownTelemetry() // Ensure telemetry is properly shut down on exit

	// Serve Prometheus metrics
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			log.Printf("Metrics listener failed: %v", err)
		}
	}()

	// The connection manager is the single choke point for store access;
	// with no Redis configured every downstream component degrades to no-ops.
	conn := redisconn.NewManager(cfg.Redis)
	defer conn.Close()

	store := queue.NewRedisJobStore(conn, cfg.RetentionWindow)

	// Optional terminal-job archive
	archiveRepo, err := archive.NewRepository(ctx, cfg.Archive)
	if err != nil {
		log.Fatal("Failed to initialize archive: ", err)
	}
	if archiveRepo != nil {
		defer archiveRepo.Close(ctx)
	}

	// Optional dead-letter notifier
	notifier, err := notify.NewNotifier(ctx, cfg.Notifier)
	if err != nil {
		log.Fatal("Failed to initialize notifier: ", err)
	}
	if notifier != nil {
		defer notifier.Close()
	}

	deliverer := worker.NewHTTPDeliverer(cfg.Worker.DeliveryTimeout)
	pool := worker.NewPool(store, deliverer, cfg.Worker)
	if archiveRepo != nil {
		pool.WithArchiver(archiveRepo)
	}
	if notifier != nil {
		pool.WithNotifier(notifier)
	}

	log.Printf("hookrelay worker starting: concurrency=%d redis=%q", cfg.Worker.Concurrency, cfg.Redis.Addr)

	// Run blocks until the context is canceled; in-flight deliveries finish
	// or time out before workers exit.
	pool.Run(ctx)

	log.Printf("hookrelay worker stopped")
}
