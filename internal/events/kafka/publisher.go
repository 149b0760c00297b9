package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// keyed events choose their own partition key.
type keyed interface {
	Key() string
}

type Publisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Warn(fmt.Sprintf(msg, args...), zap.String("component", "kafka"))
		}),
	}
	return &Publisher{writer: w, topic: topic, logger: logger}
}

// Publish writes event as JSON. It blocks until the leader acknowledges or
// the write times out.
func (p *Publisher) Publish(ctx context.Context, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: encode %T: %w", event, err)
	}

	msg := kafka.Message{
		Value: data,
		Time:  time.Now().UTC(),
	}
	if k, ok := event.(keyed); ok {
		msg.Key = []byte(k.Key())
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write to %s: %w", p.topic, err)
	}
	p.logger.Debug("event published", zap.String("topic", p.topic), zap.ByteString("key", msg.Key))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
