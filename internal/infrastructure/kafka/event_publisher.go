package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/wms-platform/warehouse-state/pkg/cloudevents"
	"github.com/wms-platform/warehouse-state/pkg/logging"
)

// Producer is the subset of *kafka.Producer the publisher needs
type Producer interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error
}

// Metrics receives publish measurements. *metrics.Metrics implements it.
type Metrics interface {
	RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration)
}

// Validator checks an event against its published contract
type Validator interface {
	ValidateEvent(event *cloudevents.WMSCloudEvent) error
}

// EventPublisher implements application.EventPublisher using Kafka
type EventPublisher struct {
	producer  Producer
	topic     string
	validator Validator
	logger    *logging.Logger
	metrics   Metrics
}

// NewEventPublisher creates a new Kafka-based event publisher. metrics may be nil.
func NewEventPublisher(producer Producer, topic string, logger *logging.Logger, metrics Metrics) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger.WithComponent("event-publisher"),
		metrics:  metrics,
	}
}

// WithValidator rejects events that break their contract before they reach Kafka
func (p *EventPublisher) WithValidator(v Validator) *EventPublisher {
	p.validator = v
	return p
}

// Publish sends event to the warehouse state topic
func (p *EventPublisher) Publish(ctx context.Context, event *cloudevents.WMSCloudEvent) error {
	if p.validator != nil {
		if err := p.validator.ValidateEvent(event); err != nil {
			if p.metrics != nil {
				p.metrics.RecordKafkaPublish(p.topic, event.Type, false, 0)
			}
			return fmt.Errorf("event violates contract: %w", err)
		}
	}

	start := time.Now()
	err := p.producer.PublishEvent(ctx, p.topic, event)
	duration := time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(p.topic, event.Type, err == nil, duration)
	}
	p.logger.KafkaPublish(ctx, p.topic, event.Type, err == nil, duration)

	if err != nil {
		return fmt.Errorf("failed to publish event to kafka: %w", err)
	}
	return nil
}
