/**
 * @description
 * This package provides a producer for publishing membership events to
 * RabbitMQ. It encapsulates connecting to the broker and publishing JSON
 * messages to a durable topic exchange.
 *
 * @dependencies
 * - context, encoding/json, time: Standard Go libraries.
 * - github.com/rabbitmq/amqp091-go: The RabbitMQ client library.
 */

package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/PawanLambole/haji-fitness-point/internal/domain"
)

// MemberEventsExchange is the durable topic exchange for membership events.
const MemberEventsExchange = "member_events"

// Routing keys for the events this service publishes.
const (
	RoutingKeyMemberRegistered = "member.registered"
	RoutingKeyMemberRenewed    = "member.renewed"
	RoutingKeyRenewalDue       = "member.renewal_due"
)

// EventProducer holds the RabbitMQ connection and channel for publishing.
type EventProducer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  *slog.Logger
}

// NoopProducer is a minimal no-op publisher used when RabbitMQ is
// unavailable at startup. Notification dispatch is fire-and-forget, so the
// service stays up without a broker.
type NoopProducer struct {
	Logger *slog.Logger
}

func (p *NoopProducer) PublishMemberRegistered(ctx context.Context, event domain.MemberRegisteredEvent) error {
	p.Logger.Warn("rabbitmq unavailable, member registered event skipped", "member_id", event.MemberID)
	return nil
}

func (p *NoopProducer) PublishMembershipRenewed(ctx context.Context, event domain.MembershipRenewedEvent) error {
	p.Logger.Warn("rabbitmq unavailable, membership renewed event skipped", "member_id", event.MemberID)
	return nil
}

func (p *NoopProducer) PublishRenewalDue(ctx context.Context, event domain.MembershipRenewalDueEvent) error {
	p.Logger.Warn("rabbitmq unavailable, renewal due event skipped", "member_id", event.MemberID)
	return nil
}

func (p *NoopProducer) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer connects to RabbitMQ and returns a producer.
func NewEventProducer(amqpURL string, logger *slog.Logger) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Bounded dial timeout so startup does not hang indefinitely.
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &EventProducer{conn: conn, channel: ch, logger: logger}, nil
}

// publish sends a JSON message to the member events exchange.
func (p *EventProducer) publish(ctx context.Context, routingKey string, body interface{}) error {
	if err := p.channel.ExchangeDeclare(
		MemberEventsExchange, // name
		"topic",              // type
		true,                 // durable
		false,                // autoDelete
		false,                // internal
		false,                // noWait
		nil,                  // args
	); err != nil {
		p.logger.Warn("exchange declare failed, reopening channel", "exchange", MemberEventsExchange, "error", err)
		ch, chErr := p.conn.Channel()
		if chErr != nil {
			return chErr
		}
		p.channel = ch
		if err := p.channel.ExchangeDeclare(MemberEventsExchange, "topic", true, false, false, false, nil); err != nil {
			return err
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	err = p.channel.PublishWithContext(ctx,
		MemberEventsExchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        jsonBody,
		},
	)
	if err != nil {
		p.logger.Warn("publish failed, reopening channel and retrying once", "routing_key", routingKey, "error", err)
		ch, chErr := p.conn.Channel()
		if chErr != nil {
			return err
		}
		p.channel = ch
		if exErr := p.channel.ExchangeDeclare(MemberEventsExchange, "topic", true, false, false, false, nil); exErr != nil {
			return err
		}
		return p.channel.PublishWithContext(ctx, MemberEventsExchange, routingKey, false, false, amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        jsonBody,
		})
	}
	return nil
}

// PublishMemberRegistered publishes the post-registration welcome event.
func (p *EventProducer) PublishMemberRegistered(ctx context.Context, event domain.MemberRegisteredEvent) error {
	return p.publish(ctx, RoutingKeyMemberRegistered, event)
}

// PublishMembershipRenewed publishes a renewal confirmation event.
func (p *EventProducer) PublishMembershipRenewed(ctx context.Context, event domain.MembershipRenewedEvent) error {
	return p.publish(ctx, RoutingKeyMemberRenewed, event)
}

// PublishRenewalDue publishes a renewal reminder event.
func (p *EventProducer) PublishRenewalDue(ctx context.Context, event domain.MembershipRenewalDueEvent) error {
	return p.publish(ctx, RoutingKeyRenewalDue, event)
}

// Close gracefully closes the channel and connection to RabbitMQ.
func (p *EventProducer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
