// Package config reads simulator settings from the environment, an optional
// .env file and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-trip-simulator/internal/trip"
)

// ErrInvalidConfig is returned for any configuration that fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	TransportHTTP = "http"
	TransportMQTT = "mqtt"

	StoreFile  = "file"
	StoreMongo = "mongo"

	IdentityHTTP  = "http"
	IdentityMongo = "mongo"
	IdentityUUID  = "uuid"
)

// Config is the immutable settings of one simulator run.
type Config struct {
	Count          int
	PointInterval  time.Duration
	BatchSize      int
	TimeFactor     float64
	StatusInterval time.Duration
	TargetURL      string
	CarURL         string

	RoutesDir     string
	Seed          int64 // 0 picks a time-based seed
	MaxConcurrent int   // 0 runs every trip at once
	HTTPTimeout   time.Duration
	AuthToken     string

	Transport            string
	MQTTBroker           string
	MQTTCoordinatesTopic string
	MQTTStatusTopic      string

	RouteStore     string
	ImportRoutes   bool // copy ROUTES_DIR into the mongo route store before the run
	IdentitySource string
	MongoURI       string
	MongoDB        string

	MetricsAddr     string
	TracingEnabled  bool
	TracingExporter string
	OTLPEndpoint    string
	LogLevel        string
	LogFormat       string
}

// Settings returns the pacing parameters handed to every trip.
func (c Config) Settings() trip.Settings {
	return trip.Settings{
		PointInterval:  c.PointInterval,
		BatchSize:      c.BatchSize,
		TimeFactor:     c.TimeFactor,
		StatusInterval: c.StatusInterval,
	}
}

// Load loads .env if present, then reads the environment and parses args.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("Failed to load .env file")
	}
	return Parse(args, os.Getenv)
}

// Parse builds a Config from getenv defaults overridden by args, then validates it.
func Parse(args []string, getenv func(string) string) (Config, error) {
	var envErrs []error
	env := envReader{getenv: getenv, errs: &envErrs}

	var cfg Config
	fs := flag.NewFlagSet("simulator", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.IntVar(&cfg.Count, "count", env.intOr("COUNT", 1), "number of trips to simulate")
	fs.Var(newSecondsValue(&cfg.PointInterval, env.secondsOr("INTERVAL", time.Second)), "interval", "simulated time between route points")
	fs.IntVar(&cfg.BatchSize, "batch-size", env.intOr("BATCH_SIZE", 10), "points per telemetry batch")
	fs.Float64Var(&cfg.TimeFactor, "time-factor", env.floatOr("TIME_FACTOR", 1), "time compression factor")
	fs.Var(newSecondsValue(&cfg.StatusInterval, env.secondsOr("STATUS_INTERVAL", time.Minute)), "status-interval", "simulated time between EN_ROUTE reports")
	fs.StringVar(&cfg.TargetURL, "target-url", env.stringOr("TARGET_URL", ""), "ingestion service base URL")
	fs.StringVar(&cfg.CarURL, "car-url", env.stringOr("CAR_URL", ""), "vehicle service base URL")

	fs.StringVar(&cfg.RoutesDir, "routes-dir", env.stringOr("ROUTES_DIR", "/Routes"), "directory of route files")
	fs.Int64Var(&cfg.Seed, "seed", env.int64Or("SEED", 0), "route selection seed (0 = time based)")
	fs.IntVar(&cfg.MaxConcurrent, "max-concurrent", env.intOr("MAX_CONCURRENT", 0), "maximum trips in flight (0 = unlimited)")
	fs.DurationVar(&cfg.HTTPTimeout, "http-timeout", env.durationOr("HTTP_TIMEOUT", 10*time.Second), "per-request timeout")
	cfg.AuthToken = env.stringOr("SIM_AUTH_TOKEN", "")

	fs.StringVar(&cfg.Transport, "transport", env.stringOr("TRANSPORT", TransportHTTP), "http or mqtt")
	fs.StringVar(&cfg.MQTTBroker, "mqtt-broker", env.stringOr("MQTT_BROKER", "tcp://localhost:1883"), "MQTT broker URL")
	fs.StringVar(&cfg.MQTTCoordinatesTopic, "mqtt-coordinates-topic", env.stringOr("MQTT_COORDINATES_TOPIC", "coordinates"), "topic for telemetry batches")
	fs.StringVar(&cfg.MQTTStatusTopic, "mqtt-status-topic", env.stringOr("MQTT_STATUS_TOPIC", "in_progress"), "topic for status reports")

	fs.StringVar(&cfg.RouteStore, "route-store", env.stringOr("ROUTE_STORE", StoreFile), "file or mongo")
	fs.BoolVar(&cfg.ImportRoutes, "import-routes", env.boolOr("IMPORT_ROUTES", false), "import ROUTES_DIR into the mongo route store first")
	fs.StringVar(&cfg.IdentitySource, "identity", env.stringOr("IDENTITY_SOURCE", IdentityHTTP), "http, mongo or uuid")
	fs.StringVar(&cfg.MongoURI, "mongo-uri", env.stringOr("MONGO_URI", ""), "MongoDB connection string")
	fs.StringVar(&cfg.MongoDB, "mongo-db", env.stringOr("MONGO_DB", "fleet"), "MongoDB database name")

	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", env.stringOr("METRICS_ADDR", ""), "address for /metrics (empty = disabled)")
	fs.BoolVar(&cfg.TracingEnabled, "tracing", env.boolOr("TRACING_ENABLED", false), "enable OpenTelemetry tracing")
	fs.StringVar(&cfg.TracingExporter, "tracing-exporter", env.stringOr("TRACING_EXPORTER", "stdout"), "stdout or otlp")
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", env.stringOr("OTLP_ENDPOINT", ""), "OTLP gRPC endpoint")
	fs.StringVar(&cfg.LogLevel, "log-level", env.stringOr("LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", env.stringOr("LOG_FORMAT", "text"), "text or json")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if len(envErrs) > 0 {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(envErrs...))
	}
	cfg.Transport = strings.ToLower(cfg.Transport)
	cfg.RouteStore = strings.ToLower(cfg.RouteStore)
	cfg.IdentitySource = strings.ToLower(cfg.IdentitySource)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every numeric setting is strictly positive and that the
// collaborators selected have what they need.
func (c Config) Validate() error {
	var errs []error
	if c.Count <= 0 {
		errs = append(errs, fmt.Errorf("COUNT must be positive, got %d", c.Count))
	}
	if c.PointInterval <= 0 {
		errs = append(errs, fmt.Errorf("INTERVAL must be positive, got %s", c.PointInterval))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize))
	}
	if !(c.TimeFactor > 0) || math.IsInf(c.TimeFactor, 0) {
		errs = append(errs, fmt.Errorf("TIME_FACTOR must be a finite positive number, got %g", c.TimeFactor))
	}
	if c.StatusInterval <= 0 {
		errs = append(errs, fmt.Errorf("STATUS_INTERVAL must be positive, got %s", c.StatusInterval))
	}
	if c.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENT must not be negative, got %d", c.MaxConcurrent))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout))
	}

	switch c.Transport {
	case TransportHTTP:
		if c.TargetURL == "" {
			errs = append(errs, errors.New("TARGET_URL is required for the http transport"))
		}
	case TransportMQTT:
		if c.MQTTBroker == "" {
			errs = append(errs, errors.New("MQTT_BROKER is required for the mqtt transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TRANSPORT %q", c.Transport))
	}

	switch c.RouteStore {
	case StoreFile:
		if c.RoutesDir == "" {
			errs = append(errs, errors.New("ROUTES_DIR is required for the file route store"))
		}
	case StoreMongo:
		if c.ImportRoutes && c.RoutesDir == "" {
			errs = append(errs, errors.New("ROUTES_DIR is required for IMPORT_ROUTES"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ROUTE_STORE %q", c.RouteStore))
	}

	switch c.IdentitySource {
	case IdentityHTTP:
		if c.CarURL == "" {
			errs = append(errs, errors.New("CAR_URL is required for the http identity source"))
		}
	case IdentityMongo, IdentityUUID:
	default:
		errs = append(errs, fmt.Errorf("unknown IDENTITY_SOURCE %q", c.IdentitySource))
	}

	if c.ImportRoutes && c.RouteStore != StoreMongo {
		errs = append(errs, errors.New("IMPORT_ROUTES requires ROUTE_STORE=mongo"))
	}
	if c.UsesMongo() && c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI is required when ROUTE_STORE or IDENTITY_SOURCE is mongo"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// UsesMongo reports whether any collaborator needs a MongoDB connection.
func (c Config) UsesMongo() bool {
	return c.RouteStore == StoreMongo || c.IdentitySource == IdentityMongo
}

// Fields summarises the run for the startup log line. The auth token is omitted.
func (c Config) Fields() log.Fields {
	return log.Fields{
		"count":           c.Count,
		"interval":        c.PointInterval,
		"batch_size":      c.BatchSize,
		"time_factor":     c.TimeFactor,
		"status_interval": c.StatusInterval,
		"transport":       c.Transport,
		"route_store":     c.RouteStore,
		"identity":        c.IdentitySource,
		"target_url":      c.TargetURL,
		"max_concurrent":  c.MaxConcurrent,
	}
}

// envReader parses typed defaults from the environment and collects parse
// errors so they can be reported together.
type envReader struct {
	getenv func(string) string
	errs   *[]error
}

func (e envReader) stringOr(key, def string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return def
}

func (e envReader) fail(key, v string, err error) {
	*e.errs = append(*e.errs, fmt.Errorf("%s=%q: %w", key, v, err))
}

func (e envReader) intOr(key string, def int) int {
	v := e.stringOr(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e envReader) int64Or(key string, def int64) int64 {
	v := e.stringOr(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e envReader) floatOr(key string, def float64) float64 {
	v := e.stringOr(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return f
}

func (e envReader) boolOr(key string, def bool) bool {
	v := e.stringOr(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return b
}

func (e envReader) durationOr(key string, def time.Duration) time.Duration {
	v := e.stringOr(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}

// secondsOr accepts a bare number of seconds, as INTERVAL and STATUS_INTERVAL
// have always been given, or a Go duration string.
func (e envReader) secondsOr(key string, def time.Duration) time.Duration {
	v := e.stringOr(key, "")
	if v == "" {
		return def
	}
	d, err := ParseSeconds(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}

// secondsValue is a flag.Value accepting the same units as ParseSeconds.
type secondsValue time.Duration

func newSecondsValue(p *time.Duration, def time.Duration) *secondsValue {
	*p = def
	return (*secondsValue)(p)
}

func (s *secondsValue) Set(v string) error {
	d, err := ParseSeconds(v)
	if err != nil {
		return err
	}
	*s = secondsValue(d)
	return nil
}

func (s *secondsValue) String() string {
	if s == nil {
		return ""
	}
	return time.Duration(*s).String()
}

// ParseSeconds parses "5", "0.5" or "1m30s".
func ParseSeconds(v string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}
