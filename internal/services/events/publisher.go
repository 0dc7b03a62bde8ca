package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"brokebuy/internal/logger"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Publisher hands events to the notification collaborator.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Envelope is the wire shape of an event.
type Envelope struct {
	Kind       Kind      `json:"kind"`
	Recipient  string    `json:"recipient"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    Event     `json:"payload"`
}

// Encode returns the JSON envelope of e.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(Envelope{
		Kind:       e.Kind(),
		Recipient:  e.RecipientID(),
		OccurredAt: e.OccurredAt().UTC(),
		Payload:    e,
	})
}

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per event, keyed by recipient so a
// recipient's events stay ordered within a partition.
type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	if writer == nil {
		panic("kafka writer is required")
	}
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := Encode(e)
		if err != nil {
			return fmt.Errorf("failed to encode %s event: %w", e.Kind(), err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.RecipientID()),
			Value: value,
			Time:  e.OccurredAt(),
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish events: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher only logs events. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, events ...Event) error {
	for _, e := range events {
		logger.WithFields(logrus.Fields{
			"kind":      e.Kind(),
			"recipient": e.RecipientID(),
		}).Info("event")
	}
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, events ...Event) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) OfKind(kind Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// PublishAfterCommit publishes events and logs a failure instead of
// returning it; the state change they describe is already durable.
func PublishAfterCommit(ctx context.Context, p Publisher, events ...Event) {
	if p == nil || len(events) == 0 {
		return
	}
	if err := p.Publish(context.WithoutCancel(ctx), events...); err != nil {
		logger.WithFields(logrus.Fields{
			"count": len(events),
			"kind":  events[0].Kind(),
		}).Errorf("failed to publish events: %v", err)
	}
}
