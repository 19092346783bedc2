package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const eventTypeHeader = "event-type"

// KafkaDispatcher пишет события в один топик, ключ сообщения - Event.Key()
type KafkaDispatcher struct {
	writer *kafka.Writer
}

func NewKafkaDispatcher(broker, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, event Event) error {
	msg, err := encodeMessage(event)
	if err != nil {
		return err
	}
	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish %s", event.Type())
	}
	return nil
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

func encodeMessage(event Event) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, errors.Wrapf(err, "encode %s", event.Type())
	}
	return kafka.Message{
		Key:     []byte(event.Key()),
		Value:   payload,
		Headers: []kafka.Header{{Key: eventTypeHeader, Value: []byte(event.Type())}},
	}, nil
}

// LogDispatcher используется, когда брокер не настроен
type LogDispatcher struct {
	logger logrus.FieldLogger
}

func NewLogDispatcher(logger logrus.FieldLogger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, event Event) error {
	d.logger.WithFields(logrus.Fields{
		"event": event.Type(),
		"key":   event.Key(),
	}).Info("event dispatched")
	return nil
}
