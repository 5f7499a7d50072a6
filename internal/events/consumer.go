package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartCartChangedConsumer binds an exclusive queue to the events exchange
// and feeds foreign cart-changed pings into the local bus. Pings published by
// this process (matching origin) are dropped; the writing session already
// refreshed itself.
func StartCartChangedConsumer(ctx context.Context, conn *amqp.Connection, origin string, bus *Bus, logger *log.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Exclusive per-session queue: every session sees every ping.
	q, err := ch.QueueDeclare(
		"",    // server-generated name
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	if err := ch.QueueBind(q.Name, CartChangedRoutingKey, EventsExchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		serviceQueue(serviceName, CartChangedRoutingKey), // consumer tag
		true, // autoAck: a lost ping only delays the badge one interval
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Println("stopping cart.changed consumer")
				_ = ch.Close()
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Println("messages channel closed")
					return
				}

				var ev CartChanged
				if err := json.Unmarshal(msg.Body, &ev); err != nil {
					logger.Printf("decode cart.changed: %v", err)
					continue
				}
				if ev.Origin == origin {
					continue
				}
				bus.Deliver(ev.Ping)
			}
		}
	}()

	return nil
}
