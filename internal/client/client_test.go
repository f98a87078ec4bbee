package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/fleet-trip-simulator/internal/models"
)

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "http://api/raw", endpoint("http://api/", "raw"))
	assert.Equal(t, "http://api/raw", endpoint("http://api", "raw"))
	assert.Equal(t, "http://api/v1/status", endpoint("http://api/v1//", "status"))
}

func TestResolveIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cars/random", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Id": "64b7f0c2a1", "Make": "Tesla"}`))
	}))
	defer server.Close()

	c := New(Options{CarURL: server.URL + "/cars/"})
	id, err := c.ResolveIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "64b7f0c2a1", id)
}

func TestResolveIdentity_Failures(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		body   string
		status bool
	}{
		{"server error", http.StatusInternalServerError, "db down", true},
		{"not found", http.StatusNotFound, "", true},
		{"bad json", http.StatusOK, "{bad json", false},
		{"missing id", http.StatusOK, `{"make": "Ford"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New(Options{CarURL: server.URL}).ResolveIdentity(context.Background())
			require.Error(t, err)
			var se *StatusError
			assert.Equal(t, tt.status, errors.As(err, &se))
			if tt.status {
				assert.Equal(t, tt.code, se.Code)
				assert.Equal(t, tt.body, se.Body)
			}
		})
	}
}

func TestSubmitBatch(t *testing.T) {
	ts := time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)
	var got models.Batch
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/raw", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer sim-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	c := New(Options{TargetURL: server.URL + "/", AuthToken: "sim-token"})
	batch := []models.Position{
		{Latitude: 51.44, Longitude: 5.47, Timestamp: ts},
		{Latitude: 51.45, Longitude: 5.48, Timestamp: ts.Add(time.Second)},
	}
	require.NoError(t, c.SubmitBatch(context.Background(), "veh-1", batch))
	assert.Equal(t, "veh-1", got.VehicleID)
	require.Len(t, got.Coordinates, 2)
	assert.True(t, got.Coordinates[1].Timestamp.Equal(ts.Add(time.Second)))
}

func TestSubmitStatus(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(Options{TargetURL: server.URL})
	require.NoError(t, c.SubmitStatus(context.Background(), "veh-2", models.StatusArrived))
	assert.Equal(t, "veh-2", body["id"])
	assert.Equal(t, float64(1), body["status"])
}

func TestSubmit_NonSuccessIsError(t *testing.T) {
	codes := []int{
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusServiceUnavailable,
	}
	for _, code := range codes {
		t.Run(http.StatusText(code), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			}))
			defer server.Close()

			c := New(Options{TargetURL: server.URL})
			err := c.SubmitBatch(context.Background(), "veh", nil)
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, code, se.Code)
			assert.Equal(t, http.MethodPost, se.Method)

			err = c.SubmitStatus(context.Background(), "veh", models.StatusEnRoute)
			assert.ErrorAs(t, err, &se)
		})
	}
}

func TestSubmit_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := New(Options{TargetURL: url}).SubmitStatus(context.Background(), "veh", models.StatusEnRoute)
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(Options{TargetURL: server.URL, Timeout: 20 * time.Millisecond})
	assert.Error(t, c.SubmitBatch(context.Background(), "veh", nil))
}

func TestClient_ConcurrentUse(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var s models.Status
		json.NewDecoder(r.Body).Decode(&s)
		mu.Lock()
		seen[s.VehicleID]++
		mu.Unlock()
	}))
	defer server.Close()

	c := New(Options{TargetURL: server.URL})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.SubmitStatus(context.Background(), []string{"a", "b"}[i%2], models.StatusEnRoute))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, map[string]int{"a": 10, "b": 10}, seen)
}

func TestUUIDResolver(t *testing.T) {
	a, err := UUIDResolver{}.ResolveIdentity(context.Background())
	require.NoError(t, err)
	b, err := UUIDResolver{}.ResolveIdentity(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	_, err = uuid.Parse(a)
	assert.NoError(t, err)
}
