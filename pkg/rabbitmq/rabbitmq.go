// Package rabbitmq publishes and consumes pantry domain events over AMQP.
package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	amqp "github.com/streadway/amqp"
)

// QueueName is the durable queue all domain events go to.
const QueueName = "pantry_events"

// Event is a consumed domain event.
type Event struct {
	Type        string
	Body        []byte
	Timestamp   time.Time
	DeliveryTag uint64
}

// EventHandler processes one event. A returned error rejects the message.
type EventHandler func(Event) error

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ and declares the event queue.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareQueue(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Info().Str("queue", QueueName).Msg("RabbitMQ client connected")

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declareQueue(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		QueueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", QueueName, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// newPublishing encodes payload as a persistent JSON message typed by routingKey.
func newPublishing(routingKey string, payload interface{}) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal %s event: %w", routingKey, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         routingKey,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
	}, nil
}

// PublishEvent publishes payload as JSON to the event queue.
func (c *Client) PublishEvent(routingKey string, payload interface{}) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	msg, err := newPublishing(routingKey, payload)
	if err != nil {
		return err
	}

	// amqp.Channel is not safe for concurrent publishes.
	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.channel.Publish(
		"",        // default exchange
		QueueName, // routing key: the queue name
		false,     // mandatory
		false,     // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", routingKey, err)
	}

	log.Debug().Str("type", routingKey).Msg("Event published")
	return nil
}

// ConsumeEvents starts a goroutine handing each event to handler. Messages
// are acked on success and rejected without requeue on failure.
func (c *Client) ConsumeEvents(handler EventHandler) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		QueueName, // queue
		"",        // consumer tag
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Info().Str("queue", QueueName).Msg("Waiting for events")

	go func() {
		for msg := range msgs {
			processDelivery(msg, handler)
		}
	}()

	return nil
}

func processDelivery(msg amqp.Delivery, handler EventHandler) {
	err := handler(Event{
		Type:        msg.Type,
		Body:        msg.Body,
		Timestamp:   msg.Timestamp,
		DeliveryTag: msg.DeliveryTag,
	})
	if err != nil {
		log.Error().Err(err).Uint64("delivery_tag", msg.DeliveryTag).Str("type", msg.Type).Msg("Failed to process event")
		if nackErr := msg.Nack(false, false); nackErr != nil {
			log.Error().Err(nackErr).Uint64("delivery_tag", msg.DeliveryTag).Msg("Failed to nack event")
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		log.Error().Err(ackErr).Uint64("delivery_tag", msg.DeliveryTag).Msg("Failed to ack event")
	}
}

// LogEvents returns a handler that logs every event it receives. Events whose
// body is not JSON are rejected.
func LogEvents(logger zerolog.Logger) EventHandler {
	return func(e Event) error {
		if !json.Valid(e.Body) {
			return fmt.Errorf("event %d has a non-JSON body", e.DeliveryTag)
		}
		logger.Info().Str("type", e.Type).RawJSON("payload", e.Body).Msg("Domain event received")
		return nil
	}
}
