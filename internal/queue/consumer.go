package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartReadyConsumer consumes order.ready until ctx is cancelled, handing
// each event to handle.  A broken connection is redialled with exponential
// backoff capped at 30s.  Messages the handler rejects are dropped rather
// than requeued so a bad payload cannot spin the loop.
func StartReadyConsumer(ctx context.Context, url string, handle Handler) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("ready-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, handle)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("ready-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, handle Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Printf("ready-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(OrderReadyQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(OrderReadyQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(ctx, d.Body, handle); err != nil {
				log.Printf("ready-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one delivery body and passes it to handle.
func HandleMessage(ctx context.Context, body []byte, handle Handler) error {
	var ev OrderReadyEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.OrderID == 0 || ev.CustomerEmail == "" {
		return fmt.Errorf("order %d: incomplete event", ev.OrderID)
	}
	return handle(ctx, ev)
}
