package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ukydev/fleet-trip-simulator/internal/client"
	"github.com/ukydev/fleet-trip-simulator/internal/models"
	"github.com/ukydev/fleet-trip-simulator/internal/observability"
)

func newTestSink(t *testing.T, rateLimit int) *httptest.Server {
	metrics, err := observability.NewSinkCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(newRouter(nil, metrics, rateLimit))
	t.Cleanup(server.Close)
	return server
}

func TestSink_AcceptsSimulatorTraffic(t *testing.T) {
	server := newTestSink(t, 0)
	c := client.New(client.Options{TargetURL: server.URL, CarURL: server.URL})
	ctx := context.Background()

	id, err := c.ResolveIdentity(ctx)
	if err != nil {
		t.Fatalf("resolve identity: %v", err)
	}
	if id == "" {
		t.Fatal("expected a vehicle ID")
	}

	start := time.Now().UTC()
	batch := []models.Position{
		{Latitude: 51.0, Longitude: 5.0, Timestamp: start},
		{Latitude: 51.1, Longitude: 5.1, Timestamp: start.Add(time.Second)},
	}
	if err := c.SubmitStatus(ctx, id, models.StatusEnRoute); err != nil {
		t.Fatalf("submit status: %v", err)
	}
	if err := c.SubmitBatch(ctx, id, batch); err != nil {
		t.Fatalf("submit batch: %v", err)
	}
	if err := c.SubmitStatus(ctx, id, models.StatusArrived); err != nil {
		t.Fatalf("submit arrival: %v", err)
	}

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "sink_points_received_total 2") {
		t.Errorf("expected 2 received points in metrics, got:\n%s", body)
	}
}

func TestSink_RejectsEmptyBatch(t *testing.T) {
	server := newTestSink(t, 0)
	c := client.New(client.Options{TargetURL: server.URL})

	err := c.SubmitBatch(context.Background(), "veh-1", nil)
	var se *client.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 StatusError, got %v", err)
	}
}

func TestSink_ListBatchesNeedsPersistence(t *testing.T) {
	server := newTestSink(t, 0)
	resp, err := http.Get(server.URL + "/raw?id=veh-1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("expected 501 without a store, got %d", resp.StatusCode)
	}
}

func TestSink_RateLimit(t *testing.T) {
	server := newTestSink(t, 1)
	c := client.New(client.Options{TargetURL: server.URL})
	ctx := context.Background()

	if err := c.SubmitStatus(ctx, "veh-1", models.StatusEnRoute); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}
	err := c.SubmitStatus(ctx, "veh-1", models.StatusEnRoute)
	var se *client.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 StatusError, got %v", err)
	}

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health should not be rate limited, got %d", resp.StatusCode)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("SINK_TEST_VALUE", "set")
	if got := getEnv("SINK_TEST_VALUE", "default"); got != "set" {
		t.Errorf("expected 'set', got %q", got)
	}
	if got := getEnv("SINK_TEST_MISSING", "default"); got != "default" {
		t.Errorf("expected 'default', got %q", got)
	}
}
