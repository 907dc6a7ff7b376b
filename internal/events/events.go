// Package events publishes ingestion lifecycle events to Kafka. Publishing
// is fire-and-forget: a broker outage degrades to a logged warning and never
// fails the request that triggered the event.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TypePhotoIngested = "photo.ingested"
	TypeBlobOrphaned  = "blob.orphaned"
)

// Event is the wire payload for every topic message, keyed by digest.
type Event struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	SHA256 string    `json:"sha256"`
	Time   time.Time `json:"time"`

	// photo.ingested
	PhotoID *int64 `json:"photo_id,omitempty"`
	Existed *bool  `json:"existed,omitempty"`

	// blob.orphaned: the on-disk path whose removal failed after the
	// metadata row was already deleted, left for out-of-band reclamation.
	BlobPath string `json:"blob_path,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Publisher writes events to a single topic. A nil Publisher is valid and
// drops everything, so callers need no broker-configured checks.
type Publisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

// NewPublisher returns nil when no broker is configured.
func NewPublisher(broker, topic string, log *zap.Logger) *Publisher {
	if broker == "" {
		return nil
	}
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers: []string{broker},
		Topic:   topic,
	})
	return &Publisher{writer: w, log: log}
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.writer.Close()
}

// PhotoIngested reports a completed upsert for a digest.
func (p *Publisher) PhotoIngested(ctx context.Context, sha string, photoID int64, existed bool) {
	p.publish(ctx, Event{
		Type:    TypePhotoIngested,
		SHA256:  sha,
		PhotoID: &photoID,
		Existed: &existed,
	})
}

// BlobOrphaned reports a blob left on disk after its metadata row was
// deleted, making the partial-deletion condition observable downstream.
func (p *Publisher) BlobOrphaned(ctx context.Context, sha, blobPath, reason string) {
	p.publish(ctx, Event{
		Type:     TypeBlobOrphaned,
		SHA256:   sha,
		BlobPath: blobPath,
		Reason:   reason,
	})
}

func (p *Publisher) publish(ctx context.Context, ev Event) {
	if p == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.Time = time.Now().UTC()

	value, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("marshal event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.SHA256),
		Value: value,
	})
	if err != nil {
		p.log.Warn("publish event",
			zap.String("type", ev.Type),
			zap.String("sha256", ev.SHA256),
			zap.Error(err))
	}
}
