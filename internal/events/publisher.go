package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/classboard/board-stream/internal/domain"
)

// Publisher emits stream lifecycle events for downstream consumers
// (notification fan-out, analytics). Failures are the caller's to log;
// nothing here blocks a user-facing write.
type Publisher struct {
	messages   *kafka.Writer
	broadcasts *kafka.Writer
}

func NewPublisher(brokers []string, messageTopic, broadcastTopic string) *Publisher {
	newWriter := func(topic string) *kafka.Writer {
		return kafka.NewWriter(kafka.WriterConfig{
			Brokers:  brokers,
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		})
	}
	return &Publisher{
		messages:   newWriter(messageTopic),
		broadcasts: newWriter(broadcastTopic),
	}
}

func (p *Publisher) MessageCreated(ctx context.Context, streamKey string, m *domain.Message) error {
	ev := struct {
		StreamKey string          `json:"stream_key"`
		Message   *domain.Message `json:"message"`
	}{StreamKey: streamKey, Message: m}
	return p.publish(ctx, p.messages, streamKey, ev)
}

// BroadcastMention fans a broadcast pseudo-member mention out to a
// role-filtered audience ("everyone", "student" or "teacher").
func (p *Publisher) BroadcastMention(ctx context.Context, streamKey, audience string, m *domain.Message) error {
	ev := struct {
		StreamKey string          `json:"stream_key"`
		Audience  string          `json:"audience"`
		Message   *domain.Message `json:"message"`
	}{StreamKey: streamKey, Audience: audience, Message: m}
	return p.publish(ctx, p.broadcasts, streamKey, ev)
}

func (p *Publisher) publish(ctx context.Context, w *kafka.Writer, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: b,
		Time:  time.Now(),
	})
}

func (p *Publisher) Close() error {
	if err := p.messages.Close(); err != nil {
		return err
	}
	return p.broadcasts.Close()
}
