// Package handlers implements the HTTP endpoints of the mock ingestion sink.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ukydev/fleet-trip-simulator/internal/db"
	"github.com/ukydev/fleet-trip-simulator/internal/models"
)

const maxBodyBytes = 1 << 20

// Counter observes accepted telemetry.
type Counter interface {
	PointsAccepted(n int)
}

// SinkHandler accepts telemetry batches and status reports and hands out
// vehicle identities. Store and Counter are optional.
type SinkHandler struct {
	store   db.TelemetryCollection
	counter Counter
	newID   func() string
}

// NewSinkHandler creates a handler; store may be nil to only log messages.
func NewSinkHandler(store db.TelemetryCollection, counter Counter) *SinkHandler {
	return &SinkHandler{store: store, counter: counter, newID: uuid.NewString}
}

// Random returns a fresh vehicle identity.
func (h *SinkHandler) Random(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, models.Vehicle{ID: h.newID(), Status: "active"})
}

// Raw accepts one batch of positions on POST and lists a vehicle's stored
// batches on GET /raw?id=<vehicle>.
func (h *SinkHandler) Raw(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.acceptBatch(w, r)
	case http.MethodGet:
		h.listBatches(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SinkHandler) listBatches(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "Persistence is disabled", http.StatusNotImplemented)
		return
	}
	vehicleID := r.URL.Query().Get("id")
	if vehicleID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	filter := bson.M{"vehicle_id": vehicleID, "coordinates": bson.M{"$exists": true}}
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: 1}})
	cursor, err := h.store.FindBatches(r.Context(), filter, opts)
	if err != nil {
		log.WithError(err).Error("Failed to query batches")
		http.Error(w, "Failed to query batches", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(r.Context())

	batches := []models.Batch{}
	if err := cursor.All(r.Context(), &batches); err != nil {
		log.WithError(err).Error("Failed to decode batches")
		http.Error(w, "Failed to decode batches", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

func (h *SinkHandler) acceptBatch(w http.ResponseWriter, r *http.Request) {
	var batch models.Batch
	if !decodeBody(w, r, &batch) {
		return
	}
	if batch.VehicleID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if len(batch.Coordinates) == 0 {
		http.Error(w, "coordinates must not be empty", http.StatusBadRequest)
		return
	}
	for i := 1; i < len(batch.Coordinates); i++ {
		if batch.Coordinates[i].Timestamp.Before(batch.Coordinates[i-1].Timestamp) {
			http.Error(w, "coordinates must be in timestamp order", http.StatusBadRequest)
			return
		}
	}

	batch.ReceivedAt = time.Now().UTC()
	if h.store != nil {
		if err := h.store.InsertBatch(r.Context(), batch); err != nil {
			log.WithError(err).Error("Failed to store batch")
			http.Error(w, "Failed to store batch", http.StatusInternalServerError)
			return
		}
	}
	if h.counter != nil {
		h.counter.PointsAccepted(len(batch.Coordinates))
	}

	log.WithFields(log.Fields{
		"vehicle_id": batch.VehicleID,
		"points":     len(batch.Coordinates),
		"first":      batch.Coordinates[0].Timestamp,
	}).Info("Received batch")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Status accepts one status report.
func (h *SinkHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var status models.Status
	if !decodeBody(w, r, &status) {
		return
	}
	if status.VehicleID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if !status.Status.Valid() {
		http.Error(w, "status must be 0 or 1", http.StatusBadRequest)
		return
	}

	if h.store != nil {
		if err := h.store.InsertStatus(r.Context(), status); err != nil {
			log.WithError(err).Error("Failed to store status")
			http.Error(w, "Failed to store status", http.StatusInternalServerError)
			return
		}
	}

	log.WithFields(log.Fields{
		"vehicle_id": status.VehicleID,
		"status":     status.Status.String(),
	}).Info("Received status")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}
