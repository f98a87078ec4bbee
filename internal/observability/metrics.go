package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ukydev/fleet-trip-simulator/internal/models"
)

// TripCollector bundles the simulator's Prometheus metrics. It implements
// trip.Recorder.
type TripCollector struct {
	gatherer prometheus.Gatherer

	TripsActive   prometheus.Gauge
	TripsFinished *prometheus.CounterVec
	PointsSent    prometheus.Counter
	Sends         *prometheus.CounterVec
	SendFailures  *prometheus.CounterVec
	SendDurations *prometheus.HistogramVec
}

// NewTripCollector registers simulator metrics against reg, defaulting to the
// global registry when nil.
func NewTripCollector(reg prometheus.Registerer) (*TripCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_trips_active",
		Help: "Trips currently between identity resolution and a terminal state.",
	}), "sim_trips_active")
	if err != nil {
		return nil, err
	}
	finished, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_trips_finished_total",
		Help: "Trips that reached a terminal state, labeled by state.",
	}, []string{"state"}), "sim_trips_finished_total")
	if err != nil {
		return nil, err
	}
	points, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_points_sent_total",
		Help: "Route points accepted by the ingestion service.",
	}), "sim_points_sent_total")
	if err != nil {
		return nil, err
	}
	sends, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_sends_total",
		Help: "Successful submissions, labeled by kind (batch, en_route, arrived).",
	}, []string{"kind"}), "sim_sends_total")
	if err != nil {
		return nil, err
	}
	failures, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_send_failures_total",
		Help: "Failed remote calls, labeled by kind (identity, batch, status).",
	}, []string{"kind"}), "sim_send_failures_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sim_send_duration_seconds",
		Help:    "Latency of successful submissions in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"kind"}), "sim_send_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &TripCollector{
		gatherer:      gatherer,
		TripsActive:   active,
		TripsFinished: finished,
		PointsSent:    points,
		Sends:         sends,
		SendFailures:  failures,
		SendDurations: durations,
	}, nil
}

func (c *TripCollector) TripStarted() {
	c.TripsActive.Inc()
}

func (c *TripCollector) TripFinished(state string) {
	c.TripsActive.Dec()
	c.TripsFinished.WithLabelValues(state).Inc()
}

func (c *TripCollector) BatchSent(points int, took time.Duration) {
	c.PointsSent.Add(float64(points))
	c.Sends.WithLabelValues("batch").Inc()
	c.SendDurations.WithLabelValues("batch").Observe(took.Seconds())
}

func (c *TripCollector) StatusSent(status models.StatusCode, took time.Duration) {
	c.Sends.WithLabelValues(status.String()).Inc()
	c.SendDurations.WithLabelValues("status").Observe(took.Seconds())
}

func (c *TripCollector) SendFailed(kind string) {
	c.SendFailures.WithLabelValues(kind).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *TripCollector) Handler() http.Handler {
	return handlerFor(c.gatherer)
}

// SinkCollector counts what the ingestion sink receives.
type SinkCollector struct {
	gatherer prometheus.Gatherer

	Requests       *prometheus.CounterVec
	PointsReceived prometheus.Counter
}

// NewSinkCollector registers sink metrics against reg, defaulting to the global
// registry when nil.
func NewSinkCollector(reg prometheus.Registerer) (*SinkCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sink_requests_total",
		Help: "Requests handled by the sink, labeled by path and status code.",
	}, []string{"path", "code"}), "sink_requests_total")
	if err != nil {
		return nil, err
	}
	points, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sink_points_received_total",
		Help: "Route points received in telemetry batches.",
	}), "sink_points_received_total")
	if err != nil {
		return nil, err
	}
	return &SinkCollector{gatherer: gatherer, Requests: requests, PointsReceived: points}, nil
}

// ObserveRequest satisfies middleware.RequestObserver.
func (c *SinkCollector) ObserveRequest(path string, code int) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(path, fmt.Sprint(code)).Inc()
}

// PointsAccepted satisfies handlers.Counter.
func (c *SinkCollector) PointsAccepted(n int) {
	if c == nil {
		return
	}
	c.PointsReceived.Add(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SinkCollector) Handler() http.Handler {
	return handlerFor(c.gatherer)
}

func handlerFor(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return g, nil
}
