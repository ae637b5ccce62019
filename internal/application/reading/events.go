package reading

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
	"unicode/utf8"

	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Guwen-Annotator/pkg/types/text"
)

const (
	EventAnnotationCompleted = "annotation.completed"
	EventAnnotationFailed    = "annotation.failed"

	eventSource = "guwen-annotator"
)

// AnnotationEvent records one auto-annotation run.  The passage itself is
// included so downstream consumers can rebuild span text without the
// service.
type AnnotationEvent struct {
	TextSHA256  string               `json:"text_sha256"`
	TextLength  int                  `json:"text_length"`
	Text        string               `json:"text"`
	Model       string               `json:"model"`
	Annotations []text.EntitySpan    `json:"annotations,omitempty"`
	Stats       text.AnnotationStats `json:"stats"`
	DurationMs  int64                `json:"duration_ms"`
	ErrorCode   string               `json:"error_code,omitempty"`
	Error       string               `json:"error,omitempty"`
	RawResponse string               `json:"raw_response,omitempty"`
	OccurredAt  time.Time            `json:"occurred_at"`
}

// Failed reports whether the run ended in an error.
func (e *AnnotationEvent) Failed() bool { return e.ErrorCode != "" }

func newAnnotationEvent(src, model string) *AnnotationEvent {
	sum := sha256.Sum256([]byte(src))
	return &AnnotationEvent{
		TextSHA256: hex.EncodeToString(sum[:]),
		TextLength: utf8.RuneCountInString(src),
		Text:       src,
		Model:      model,
		OccurredAt: time.Now().UTC(),
	}
}

// EventPublisher delivers annotation events.
type EventPublisher interface {
	PublishAnnotation(ctx context.Context, evt *AnnotationEvent) error
}

// MessageProducer abstracts the messaging system.
type MessageProducer interface {
	Publish(ctx context.Context, msg *kafka.ProducerMessage) error
}

// KafkaEventPublisher wraps events in a kafka.EventEnvelope keyed by the
// text hash, so runs over the same passage land on one partition.
type KafkaEventPublisher struct {
	producer    MessageProducer
	topic       string
	failedTopic string
}

func NewKafkaEventPublisher(producer MessageProducer, topic, failedTopic string) *KafkaEventPublisher {
	if topic == "" {
		topic = kafka.TopicAnnotationCompleted
	}
	if failedTopic == "" {
		failedTopic = kafka.TopicAnnotationFailed
	}
	return &KafkaEventPublisher{producer: producer, topic: topic, failedTopic: failedTopic}
}

// Topic returns the topic evt is published to.
func (p *KafkaEventPublisher) Topic(evt *AnnotationEvent) string {
	if evt.Failed() {
		return p.failedTopic
	}
	return p.topic
}

func (p *KafkaEventPublisher) PublishAnnotation(ctx context.Context, evt *AnnotationEvent) error {
	eventType := EventAnnotationCompleted
	if evt.Failed() {
		eventType = EventAnnotationFailed
	}
	env, err := kafka.NewEventEnvelope(eventType, eventSource, evt)
	if err != nil {
		return err
	}
	env.RequestID = logging.RequestIDFromContext(ctx)
	msg, err := env.ToMessage(p.Topic(evt), evt.TextSHA256)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

// NoopEventPublisher drops every event.  Used when events are disabled.
type NoopEventPublisher struct{}

func (NoopEventPublisher) PublishAnnotation(context.Context, *AnnotationEvent) error { return nil }
