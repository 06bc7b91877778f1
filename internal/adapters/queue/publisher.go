// Package queue publishes booking notifications to RabbitMQ.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("publisher closed")

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a connection and a channel on it.
type dialFunc func(url string) (closer, channel, error)

type closer interface {
	Close() error
}

// AMQPPublisher publishes persistent JSON messages to a topic exchange.
// The connection is opened lazily and reopened after a failed publish.
type AMQPPublisher struct {
	url      string
	exchange string
	dial     dialFunc

	mu     sync.Mutex
	conn   closer
	ch     channel
	closed bool
}

// NewAMQPPublisher creates a publisher for exchange on the broker at url.
// PRE: url and exchange are non-empty
// POST: No connection is made until the first Publish
func NewAMQPPublisher(url, exchange string) *AMQPPublisher {
	return &AMQPPublisher{url: url, exchange: exchange, dial: dialAMQP}
}

func dialAMQP(url string) (closer, channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return conn, ch, nil
}

// Publish sends body to the exchange under routingKey.
// PRE: body is JSON
// POST: Message handed to the broker, or the connection is dropped for the next attempt
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if err := p.connectLocked(); err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg); err != nil {
		slog.Warn("amqp_publish_failed", "routing_key", routingKey, "error", err.Error())
		p.resetLocked()
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *AMQPPublisher) connectLocked() error {
	if p.ch != nil {
		return nil
	}
	conn, ch, err := p.dial(p.url)
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.conn, p.ch = conn, ch
	slog.Info("amqp_connected", "exchange", p.exchange)
	return nil
}

func (p *AMQPPublisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close releases the connection. Later calls to Publish return ErrClosed.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.resetLocked()
	return nil
}
