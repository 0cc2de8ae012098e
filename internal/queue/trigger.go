package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Trigger fires one drain tick somewhere else. Fire-and-forget: the publisher
// never waits for the tick to run.
type Trigger interface {
	Dispatch(ctx context.Context) error
}

// TickEvent is the message the drain worker consumes. One event, one tick.
type TickEvent struct {
	Type      string    `json:"type"`
	TickID    string    `json:"tick_id"`
	Timestamp time.Time `json:"timestamp"`
}

const tickEventType = "import.drain"

type kafkaTrigger struct {
	writer *kafka.Writer
}

func NewKafkaTrigger(brokers []string, topic string) Trigger {
	return &kafkaTrigger{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (t *kafkaTrigger) Dispatch(ctx context.Context) error {
	event := TickEvent{
		Type:      tickEventType,
		TickID:    uuid.New().String(),
		Timestamp: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return t.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TickID),
		Value: payload,
	})
}
