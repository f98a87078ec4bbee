// Package mqtt publishes trip telemetry to an MQTT broker instead of the HTTP
// ingestion service. Batches and statuses go to separate topics.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-trip-simulator/internal/models"
)

const (
	DefaultCoordinatesTopic = "coordinates"
	DefaultStatusTopic      = "in_progress"
)

// publisher is the part of paho.Client the Publisher needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

type batchMessage struct {
	ID    string            `json:"id"`
	Batch []models.Position `json:"batch"`
}

type statusMessage struct {
	ID         string `json:"id"`
	InProgress bool   `json:"in_progress"`
}

// Publisher implements trip.Submitter over MQTT.
type Publisher struct {
	client           publisher
	coordinatesTopic string
	statusTopic      string
	qos              byte
}

// NewPublisher wraps a connected client. Empty topics fall back to the defaults.
func NewPublisher(client publisher, coordinatesTopic, statusTopic string) *Publisher {
	if coordinatesTopic == "" {
		coordinatesTopic = DefaultCoordinatesTopic
	}
	if statusTopic == "" {
		statusTopic = DefaultStatusTopic
	}
	return &Publisher{
		client:           client,
		coordinatesTopic: coordinatesTopic,
		statusTopic:      statusTopic,
		qos:              1,
	}
}

func (p *Publisher) SubmitBatch(ctx context.Context, vehicleID string, batch []models.Position) error {
	return p.publish(ctx, p.coordinatesTopic, batchMessage{ID: vehicleID, Batch: batch})
}

func (p *Publisher) SubmitStatus(ctx context.Context, vehicleID string, status models.StatusCode) error {
	return p.publish(ctx, p.statusTopic, statusMessage{ID: vehicleID, InProgress: status == models.StatusEnRoute})
}

func (p *Publisher) publish(ctx context.Context, topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	token := p.client.Publish(topic, p.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Options configures the broker connection.
type Options struct {
	Broker         string // e.g. tcp://localhost:1883
	ClientID       string
	ConnectTimeout time.Duration
}

// Connect opens a client connection to the broker.
func Connect(ctx context.Context, opts Options) (paho.Client, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetConnectTimeout(opts.ConnectTimeout).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := paho.NewClient(co)
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.Broker, err)
	}
	log.WithField("broker", opts.Broker).Info("Connected to MQTT broker")
	return client, nil
}
