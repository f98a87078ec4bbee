// Command sink is a mock ingestion service for the fleet simulator. It hands
// out vehicle identities and accepts telemetry batches and status reports,
// optionally persisting them to MongoDB.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-trip-simulator/internal/db"
	"github.com/ukydev/fleet-trip-simulator/internal/handlers"
	"github.com/ukydev/fleet-trip-simulator/internal/middleware"
	"github.com/ukydev/fleet-trip-simulator/internal/observability"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newRouter mounts the sink endpoints. rateLimit is requests per second per
// client on /raw and /status; 0 disables it.
func newRouter(store db.TelemetryCollection, metrics *observability.SinkCollector, rateLimit int) http.Handler {
	h := handlers.NewSinkHandler(store, metrics)
	limit := middleware.NewRateLimitMiddleware().RateLimit(rateLimit, time.Second)

	mux := http.NewServeMux()
	mux.HandleFunc("/random", h.Random)
	mux.Handle("/raw", limit(http.HandlerFunc(h.Raw)))
	mux.Handle("/status", limit(http.HandlerFunc(h.Status)))
	mux.HandleFunc("/health", handlers.Health)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
	return middleware.Logging(metrics)(mux)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("Failed to load .env file")
	}
	if err := observability.SetupLogging(getEnv("LOG_LEVEL", "info"), getEnv("LOG_FORMAT", "text")); err != nil {
		log.WithError(err).Fatal("Invalid logging configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store db.TelemetryCollection
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		client, err := db.ConnectMongo(ctx, uri)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())
		store = &db.MongoCollection{Collection: client.Database(getEnv("MONGO_DB", "fleet")).Collection("telemetry")}
		log.Info("Connected to MongoDB successfully")
	}

	metrics, err := observability.NewSinkCollector(nil)
	if err != nil {
		log.WithError(err).Fatal("Failed to register metrics")
	}

	rateLimit, err := strconv.Atoi(getEnv("SINK_RATE_LIMIT", "0"))
	if err != nil {
		log.WithError(err).Fatal("Invalid SINK_RATE_LIMIT")
	}

	srv := &http.Server{
		Addr:              ":" + getEnv("PORT", "8080"),
		Handler:           newRouter(store, metrics, rateLimit),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Graceful shutdown failed")
		}
	}()

	log.WithFields(log.Fields{"addr": srv.Addr, "rate_limit": rateLimit}).Info("Sink listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("Server stopped")
	}
}
