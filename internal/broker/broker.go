// Package broker streams attendance events to Kafka.
package broker

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"kickgym/internal/logger"
)

// AttendanceEvent is published once per committed check-in toggle.
type AttendanceEvent struct {
	MemberID     int       `json:"member_id"`
	MemberNumber string    `json:"member_number"`
	Action       string    `json:"action"`
	SessionID    int       `json:"session_id"`
	Method       string    `json:"method"`
	At           time.Time `json:"at"`
}

// PublishTimeout bounds how long a caller waits on the broker after its own
// work has committed.
const PublishTimeout = time.Second

type Publisher interface {
	PublishAttendance(ctx context.Context, event AttendanceEvent) error
	Close() error
}

// Writer is the subset of kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer Writer
}

// NewKafkaPublisher writes to topic on brokers. Messages are keyed by member
// so one member's events stay ordered on a single partition. Writes are
// async: WriteMessages only enqueues, and delivery errors surface in
// Completion.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		MaxAttempts:            3,
		Async:                  true,
		Completion:             logDeliveryFailure,
	}}
}

func logDeliveryFailure(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range msgs {
		logger.Error("attendance event dropped", "key", string(m.Key), "error", err)
	}
}

func NewKafkaPublisherWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishAttendance(ctx context.Context, event AttendanceEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(strconv.Itoa(event.MemberID)),
		Value: value,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("attendance." + event.Action)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error("kafka write failed", "key", string(msg.Key), "error", err)
		return err
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event; used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishAttendance(context.Context, AttendanceEvent) error { return nil }

func (NopPublisher) Close() error { return nil }

// New returns a Kafka publisher, or a NopPublisher when brokers is empty.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}
