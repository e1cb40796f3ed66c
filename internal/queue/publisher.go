package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends events to RabbitMQ.  It dials per publish: ready events
// are rare and a long-lived channel would need its own reconnect handling.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// PublishOrderReady publishes ev as a persistent JSON message on the
// order.ready queue.  Errors are logged and returned.
func (p *Publisher) PublishOrderReady(ctx context.Context, ev OrderReadyEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(OrderReadyQueue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", OrderReadyQueue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}

// Handler processes one ready event.
type Handler func(ctx context.Context, ev OrderReadyEvent) error

// Inline delivers events to a handler in-process.  It is used when no
// broker is configured.
type Inline Handler

func (f Inline) PublishOrderReady(ctx context.Context, ev OrderReadyEvent) error {
	return f(ctx, ev)
}
