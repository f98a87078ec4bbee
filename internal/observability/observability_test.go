package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/fleet-trip-simulator/internal/models"
)

func TestConfigureLogger(t *testing.T) {
	logger := log.New()
	require.NoError(t, configureLogger(logger, "debug", "json"))
	assert.Equal(t, log.DebugLevel, logger.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, logger.Formatter)

	require.NoError(t, configureLogger(logger, "warn", ""))
	assert.Equal(t, log.WarnLevel, logger.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, logger.Formatter)

	assert.Error(t, configureLogger(logger, "chatty", "text"))
	assert.Error(t, configureLogger(logger, "info", "xml"))
}

func TestTripCollector_RecordsTripLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewTripCollector(reg)
	require.NoError(t, err)

	c.TripStarted()
	c.TripStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.TripsActive))

	c.StatusSent(models.StatusEnRoute, 10*time.Millisecond)
	c.BatchSent(4, 20*time.Millisecond)
	c.BatchSent(2, 20*time.Millisecond)
	c.StatusSent(models.StatusArrived, 10*time.Millisecond)
	c.TripFinished("DONE")
	c.SendFailed("batch")
	c.TripFinished("FAILED")

	assert.Equal(t, 0.0, testutil.ToFloat64(c.TripsActive))
	assert.Equal(t, 6.0, testutil.ToFloat64(c.PointsSent))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Sends.WithLabelValues("batch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Sends.WithLabelValues("en_route")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Sends.WithLabelValues("arrived")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SendFailures.WithLabelValues("batch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.TripsFinished.WithLabelValues("DONE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.TripsFinished.WithLabelValues("FAILED")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.SendDurations))
}

func TestTripCollector_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewTripCollector(reg)
	require.NoError(t, err)
	second, err := NewTripCollector(reg)
	require.NoError(t, err)

	first.BatchSent(3, time.Millisecond)
	assert.Equal(t, 3.0, testutil.ToFloat64(second.PointsSent))
}

func TestTripCollector_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewTripCollector(reg)
	require.NoError(t, err)
	c.BatchSent(5, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sim_points_sent_total 5")
}

func TestSinkCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSinkCollector(reg)
	require.NoError(t, err)

	c.ObserveRequest("/raw", http.StatusOK)
	c.ObserveRequest("/raw", http.StatusOK)
	c.ObserveRequest("/status", http.StatusTooManyRequests)
	c.PointsAccepted(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Requests.WithLabelValues("/raw", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Requests.WithLabelValues("/status", "429")))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.PointsReceived))

	var nilCollector *SinkCollector
	assert.NotPanics(t, func() {
		nilCollector.ObserveRequest("/raw", 200)
		nilCollector.PointsAccepted(1)
	})
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_Stdout(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "stdout"})
	require.NoError(t, err)
	ShutdownWithTimeout(context.Background(), shutdown)
	// Leave a noop provider installed for other tests.
	_, err = InitTracing(context.Background(), TracingConfig{})
	require.NoError(t, err)
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"})
	assert.Error(t, err)
}
