package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/vietanh2810/fuelticket-api/internal/config"
	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

// KafkaPublisher hands ticket events to the external notification service.
// Messages are keyed by station so one station's events keep their order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(conf *config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(conf.Brokers...),
			Topic:                  conf.Topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

func message(event domain.Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("json.Marshal -> %w", err)
	}

	return kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.StationID), 10)),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.Event) error {
	msg, err := message(event)
	if err != nil {
		return err
	}

	if err = p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("p.writer.WriteMessages -> %w", err)
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
