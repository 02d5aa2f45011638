// Package events publishes order lifecycle events to Kafka. The backend
// treats the stream as best effort; order state lives in Postgres and the
// stream only feeds dashboards and notifications.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"github.com/shivdhaba/delivery-core/pkg/models"
)

const (
	OrderPlacedTopic        = "order.placed"
	OrderStatusChangedTopic = "order.status-changed"
)

type OrderPlacedEvent struct {
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  int64     `json:"customer_id"`
	TotalAmount float64   `json:"total_amount"`
	EventTime   time.Time `json:"event_time"`
}

type OrderStatusChangedEvent struct {
	OrderID       int64              `json:"order_id"`
	OrderNumber   string             `json:"order_number"`
	FromStatus    models.OrderStatus `json:"from_status"`
	ToStatus      models.OrderStatus `json:"to_status"`
	DeliveryBoyID *int64             `json:"delivery_boy_id,omitempty"`
	EventTime     time.Time          `json:"event_time"`
}

type KafkaProducer struct {
	producer sarama.SyncProducer
	logger   *logrus.Logger
}

func NewKafkaProducer(brokers string, logger *logrus.Logger) (*KafkaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer([]string{brokers}, config)
	if err != nil {
		return nil, err
	}

	return &KafkaProducer{
		producer: producer,
		logger:   logger,
	}, nil
}

func (p *KafkaProducer) PublishOrderPlaced(event OrderPlacedEvent) error {
	event.EventTime = time.Now()
	return p.publish(OrderPlacedTopic, event.OrderID, event)
}

func (p *KafkaProducer) PublishStatusChanged(event OrderStatusChangedEvent) error {
	event.EventTime = time.Now()
	return p.publish(OrderStatusChangedTopic, event.OrderID, event)
}

func (p *KafkaProducer) publish(topic string, orderID int64, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d", orderID)),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).Error("Failed to send message to Kafka")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"topic":     topic,
		"partition": partition,
		"offset":    offset,
		"order_id":  orderID,
	}).Info("Event published to Kafka")

	return nil
}

func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}
