package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dataset-service/internal/generator"
	"dataset-service/internal/utils"
	"dataset-service/internal/validator"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Event types
const (
	TypeGenerated = "generated"
	TypeValidated = "validated"
)

// DatasetEvent is published after a dataset is built and after it is
// validated.
type DatasetEvent struct {
	Type       string           `json:"type"`
	RunID      string           `json:"run_id"`
	DatasetID  string           `json:"dataset_id"`
	Seed       uint64           `json:"seed"`
	Counts     map[string]int64 `json:"counts,omitempty"`
	Warnings   int              `json:"warnings"`
	Passed     *bool            `json:"passed,omitempty"`
	Failed     []string         `json:"failed,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Publisher handles publishing dataset events to NATS. A publisher
// without a connected client drops events.
type Publisher struct {
	client  *Client
	subject string
}

// NewPublisher creates a new dataset event publisher
func NewPublisher(client *Client, subject string) *Publisher {
	return &Publisher{client: client, subject: subject}
}

// GeneratedEvent describes a built dataset.
func GeneratedEvent(ds *generator.Dataset, counts map[string]int64) DatasetEvent {
	return DatasetEvent{
		Type:       TypeGenerated,
		RunID:      ds.RunID,
		DatasetID:  ds.DatasetID,
		Seed:       ds.Seed,
		Counts:     counts,
		Warnings:   len(ds.Warnings),
		OccurredAt: time.Now().UTC(),
	}
}

// ValidatedEvent describes a validation report.
func ValidatedEvent(report *validator.Report, seed uint64) DatasetEvent {
	passed := report.Passed
	return DatasetEvent{
		Type:       TypeValidated,
		RunID:      report.RunID,
		DatasetID:  report.DatasetID,
		Seed:       seed,
		Counts:     report.Stats.Counts,
		Warnings:   len(report.Warnings),
		Passed:     &passed,
		Failed:     report.Failed(),
		OccurredAt: report.ValidatedAt,
	}
}

// Subject returns the subject an event is published on, e.g.
// dataset.validated.
func (p *Publisher) Subject(event DatasetEvent) string {
	return fmt.Sprintf("%s.%s", p.subject, event.Type)
}

// Publish publishes an event through JetStream.
func (p *Publisher) Publish(ctx context.Context, event DatasetEvent) error {
	log := utils.Log.Component("events", event.RunID)
	if p == nil || !p.client.IsConnected() {
		log.Debug("NATS not connected, skipping event publish")
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset event: %w", err)
	}

	subject := p.Subject(event)
	ack, err := p.client.js.Publish(subject, data, nats.Context(ctx))
	if err != nil {
		log.WithField("subject", subject).WithError(err).Error("Failed to publish dataset event")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.WithFields(logrus.Fields{
		"subject":  subject,
		"sequence": ack.Sequence,
		"stream":   ack.Stream,
	}).Debug("Published dataset event")
	return nil
}
