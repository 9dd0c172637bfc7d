// Package kafka publishes stored reports as events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/geocontext-service/internal/domain"
	"github.com/couchcryptid/geocontext-service/internal/observability"
)

// messageWriter is the subset of kafkago.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// ReportPublisher produces one message per stored report.
type ReportPublisher struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewReportPublisher creates a producer for the report topic.
func NewReportPublisher(brokers []string, topic string, logger *slog.Logger, metrics *observability.Metrics) *ReportPublisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &ReportPublisher{writer: w, logger: logger, metrics: metrics}
}

// Publish writes the record keyed by its ID. Failures are logged and
// counted; they never reach the caller.
func (p *ReportPublisher) Publish(ctx context.Context, rec domain.ReportRecord) {
	msg, err := serializeToMessage(rec)
	if err == nil {
		err = p.writer.WriteMessages(ctx, msg)
	}
	if err != nil {
		p.logger.Warn("publish report failed", "id", rec.ID, "error", err)
		p.metrics.ReportsPublished.WithLabelValues("error").Inc()
		return
	}
	p.metrics.ReportsPublished.WithLabelValues("success").Inc()
}

// Close flushes pending messages and closes the producer.
func (p *ReportPublisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a ReportRecord into a Kafka message.
func serializeToMessage(rec domain.ReportRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	placeName := ""
	if rec.PlaceName != nil {
		placeName = *rec.PlaceName
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "place_name", Value: []byte(placeName)},
			{Key: "created_at", Value: []byte(rec.CreatedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
