package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"

	"taskflow/internal/config"
	"taskflow/internal/models"
	"taskflow/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// EnsureTopic creates the command topic with configured partitions (idempotent).
// If it fails (e.g. no broker or topic exists), the app still runs.
func EnsureTopic(ctx context.Context, cfg *config.Config) {
	if len(cfg.KafkaBrokers) == 0 {
		return
	}
	conn, err := kafka.DialContext(ctx, "tcp", cfg.KafkaBrokers[0])
	if err != nil {
		logger.Debug(ctx, "Kafka dial for topic creation failed", "error", err)
		return
	}
	defer conn.Close()
	controller, err := conn.Controller()
	if err != nil {
		logger.Debug(ctx, "Kafka controller lookup failed", "error", err)
		return
	}
	ctrlConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		logger.Debug(ctx, "Kafka controller dial failed", "error", err)
		return
	}
	defer ctrlConn.Close()
	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.KafkaTopic,
		NumPartitions:     cfg.KafkaPartitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Debug(ctx, "Kafka create topic failed (topic may already exist)", "error", err)
		return
	}
	logger.Info(ctx, "Kafka topic ensured", "topic", cfg.KafkaTopic, "partitions", cfg.KafkaPartitions)
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends commands to Kafka.
type Publisher struct {
	w MessageWriter
}

// NewWriter builds the producer for the command topic. Writes are synchronous
// so a failed publish is reported to the caller instead of being dropped.
func NewWriter(cfg *config.Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 0,
		RequiredAcks: kafka.RequireOne,
	}
}

// NewPublisher wraps a writer.
func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{w: w}
}

// Publish encodes cmd and writes it keyed by user id, so one user's commands
// land on one partition and are applied in order.
func (p *Publisher) Publish(ctx context.Context, cmd *models.Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(cmd.UserID),
		Value: payload,
	})
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}
