package realtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher pushes an opaque payload onto a named channel. Implementations
// must be safe for concurrent use; failures are the caller's to log, never to
// roll a mutation back over.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// KafkaPublisher writes events to a single Kafka topic, keyed by channel name
// so per-channel ordering survives partitioning.
type KafkaPublisher struct {
	writer      *kafka.Writer
	topicPrefix string
}

func NewKafkaPublisher(brokers []string, topic, topicPrefix string) *KafkaPublisher {
	return &KafkaPublisher{
		topicPrefix: topicPrefix,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	key := topic
	if p.topicPrefix != "" {
		key = fmt.Sprintf("%s.%s", p.topicPrefix, topic)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when no brokers are configured; events stay in the
// outbox table and are marked processed without going anywhere.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}

// ParseBrokers splits "host1:9092,host2:9092" into a broker list.
func ParseBrokers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
