package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ukydev/fleet-trip-simulator/internal/client"
	"github.com/ukydev/fleet-trip-simulator/internal/config"
	"github.com/ukydev/fleet-trip-simulator/internal/db"
	"github.com/ukydev/fleet-trip-simulator/internal/fleet"
	"github.com/ukydev/fleet-trip-simulator/internal/mqtt"
	"github.com/ukydev/fleet-trip-simulator/internal/observability"
	"github.com/ukydev/fleet-trip-simulator/internal/route"
	"github.com/ukydev/fleet-trip-simulator/internal/trip"
)

const (
	exitOK          = 0
	exitTripsFailed = 1
	exitConfig      = 2
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.WithError(err).Error("Invalid configuration")
		os.Exit(exitConfig)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg)
	stop()
	os.Exit(code)
}

// collaborators are the pluggable pieces a trip runner is assembled from.
type collaborators struct {
	routes   route.Source
	lister   route.Lister
	identity trip.IdentityResolver
	submit   trip.Submitter
	closers  []func()
}

func (c *collaborators) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func run(ctx context.Context, cfg config.Config) int {
	if err := observability.SetupLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.WithError(err).Error("Invalid logging configuration")
		return exitConfig
	}
	log.WithFields(cfg.Fields()).Info("Starting fleet simulation")

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		ServiceName: "fleet-trip-simulator",
		Exporter:    cfg.TracingExporter,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		log.WithError(err).Error("Failed to initialise tracing")
		return exitConfig
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing)

	deps, err := wire(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("Failed to set up collaborators")
		return exitConfig
	}
	defer deps.close()

	routes, err := deps.lister.List(ctx)
	if err != nil {
		log.WithError(err).Error("No routes to drive")
		return exitConfig
	}

	runner := &trip.Runner{
		Settings: cfg.Settings(),
		Identity: deps.identity,
		Routes:   deps.routes,
		Submit:   deps.submit,
	}
	if cfg.MetricsAddr != "" {
		collector, err := observability.NewTripCollector(nil)
		if err != nil {
			log.WithError(err).Error("Failed to register metrics")
			return exitConfig
		}
		runner.Recorder = collector
		stopMetrics := serveMetrics(cfg.MetricsAddr, collector.Handler())
		defer stopMetrics()
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	orchestrator := &fleet.Orchestrator{
		Runner:        runner,
		Routes:        routes,
		Count:         cfg.Count,
		Seed:          seed,
		MaxConcurrent: cfg.MaxConcurrent,
	}
	report, err := orchestrator.Run(ctx)
	if err != nil {
		log.WithError(err).Error("Fleet could not start")
		return exitConfig
	}
	if ctx.Err() != nil {
		log.Warn("Simulation interrupted")
	}
	if len(report.Failed()) > 0 {
		return exitTripsFailed
	}
	return exitOK
}

// wire selects the route store, identity source and transport named by cfg.
func wire(ctx context.Context, cfg config.Config) (*collaborators, error) {
	deps := &collaborators{}
	httpClient := client.New(client.Options{
		TargetURL: cfg.TargetURL,
		CarURL:    cfg.CarURL,
		AuthToken: cfg.AuthToken,
		Timeout:   cfg.HTTPTimeout,
	})

	var database *mongo.Database
	if cfg.UsesMongo() {
		m, err := db.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, func() {
			if err := m.Disconnect(context.Background()); err != nil {
				log.WithError(err).Warn("Failed to disconnect from MongoDB")
			}
		})
		database = m.Database(cfg.MongoDB)
		log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")
	}

	switch cfg.RouteStore {
	case config.StoreMongo:
		store := &db.RouteStore{Collection: database.Collection("routes")}
		if cfg.ImportRoutes {
			n, err := store.Import(ctx, route.FileSource{}, route.DirLister{Dir: cfg.RoutesDir})
			if err != nil {
				deps.close()
				return nil, fmt.Errorf("import routes: %w", err)
			}
			log.WithFields(log.Fields{"routes": n, "dir": cfg.RoutesDir}).Info("Imported routes into MongoDB")
		}
		deps.routes, deps.lister = store, store
	default:
		deps.routes, deps.lister = route.FileSource{}, route.DirLister{Dir: cfg.RoutesDir}
	}

	switch cfg.IdentitySource {
	case config.IdentityMongo:
		deps.identity = &db.VehicleStore{Collection: database.Collection("vehicles")}
	case config.IdentityUUID:
		deps.identity = client.UUIDResolver{}
	default:
		deps.identity = httpClient
	}

	switch cfg.Transport {
	case config.TransportMQTT:
		mc, err := mqtt.Connect(ctx, mqtt.Options{
			Broker:   cfg.MQTTBroker,
			ClientID: "fleet-sim-" + uuid.NewString()[:8],
		})
		if err != nil {
			deps.close()
			return nil, err
		}
		deps.closers = append(deps.closers, func() { mc.Disconnect(250) })
		deps.submit = mqtt.NewPublisher(mc, cfg.MQTTCoordinatesTopic, cfg.MQTTStatusTopic)
	default:
		deps.submit = httpClient
	}
	return deps, nil
}

func serveMetrics(addr string, handler http.Handler) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.WithField("addr", addr).Info("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
