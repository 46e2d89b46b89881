// Package notify publishes event lifecycle notices to RabbitMQ so other
// services (newsletters, search indexers) can follow the listing.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/spotlight/internal/model"
)

// Publisher sends a message with a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, correlationID string) error
}

// Nop discards every message. It is used when no broker is configured.
type Nop struct{}

// Publish drops the message and reports success.
func (Nop) Publish(context.Context, string, []byte, string) error { return nil }

// Notifier turns event changes into notices.
type Notifier struct {
	pub Publisher
	log *logrus.Logger
}

// NewNotifier wraps pub.
func NewNotifier(pub Publisher, log *logrus.Logger) *Notifier {
	return &Notifier{pub: pub, log: log}
}

// EventChanged publishes a notice of the given kind. Failures are logged,
// never returned: the change is already stored.
func (n *Notifier) EventChanged(ctx context.Context, kind string, ev model.Event, correlationID string) {
	notice := model.EventNotice{
		NoticeID:      uuid.NewString(),
		CorrelationID: correlationID,
		Kind:          kind,
		Timestamp:     time.Now().UTC(),
		Event:         ev,
	}
	body, err := json.Marshal(notice)
	if err != nil {
		n.log.WithError(err).Error("encode event notice")
		return
	}
	if err := n.pub.Publish(ctx, kind, body, correlationID); err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{
			"kind":           kind,
			"event_id":       ev.ID,
			"correlation_id": correlationID,
		}).Warn("publish event notice")
	}
}

// AMQPPublisher publishes persistent JSON messages on a topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// DialAMQP connects to the broker, retrying a few times while it starts,
// and declares the exchange.
func DialAMQP(url, exchange string, attempts int, log *logrus.Logger) (*AMQPPublisher, error) {
	var conn *amqp.Connection
	var err error
	for i := 1; i <= attempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.WithError(err).Warnf("rabbitmq connect attempt %d/%d failed, retrying in 2s", i, attempts)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish sends body to the exchange under routingKey.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, body []byte, correlationID string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			Timestamp:     time.Now(),
		},
	)
}

// Close releases the channel and the connection.
func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
