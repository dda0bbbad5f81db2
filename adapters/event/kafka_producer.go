package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/career-path/internal/application/service"
	"github.com/khoahotran/career-path/internal/config"
	"github.com/khoahotran/career-path/pkg/logger"
)

const (
	TopicProfileEvents = "profile.events"
	TopicRoadmapEvents = "roadmap.events"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducerClient publishes engine events. Profile events are keyed by
// user id and roadmap events by email so each user's events stay ordered.
type KafkaProducerClient struct {
	ProfileEventsWriter messageWriter
	RoadmapEventsWriter messageWriter
	logger              logger.Logger
}

var _ service.EventPublisher = (*KafkaProducerClient)(nil)

func NewKafkaProducerClient(cfg config.Config, log logger.Logger) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	profileWriter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicProfileEvents,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}

	roadmapWriter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicRoadmapEvents,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}

	log.Info("Initialize Kafka Producers successfully.", zap.Strings("brokers", brokers))

	return &KafkaProducerClient{
		ProfileEventsWriter: profileWriter,
		RoadmapEventsWriter: roadmapWriter,
		logger:              log,
	}, nil
}

func (c *KafkaProducerClient) PublishProfileEvent(ctx context.Context, e service.ProfileEvent) error {
	value, err := sonic.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode profile event: %w", err)
	}
	return c.ProfileEventsWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.UserID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	})
}

func (c *KafkaProducerClient) PublishRoadmapEvent(ctx context.Context, e service.RoadmapEvent) error {
	value, err := sonic.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode roadmap event: %w", err)
	}
	return c.RoadmapEventsWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Email),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	})
}

func (c *KafkaProducerClient) Close() error {
	var errs []error
	if c.ProfileEventsWriter != nil {
		errs = append(errs, c.ProfileEventsWriter.Close())
	}
	if c.RoadmapEventsWriter != nil {
		errs = append(errs, c.RoadmapEventsWriter.Close())
	}
	c.logger.Info("Closed Kafka Producers")
	return errors.Join(errs...)
}
