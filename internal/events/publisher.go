package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nolanmyles20/tacticaloffroad/internal/contracts"
)

// RabbitPublisher pushes storefront events to the shared topic exchange so
// other storefront processes (and any downstream consumer) see them.
type RabbitPublisher struct {
	ch     *amqp.Channel
	origin string
}

// NewRabbitPublisher opens a channel and declares the exchange so publishing
// never fails due to missing infra. origin identifies this process; consumers
// use it to skip their own pings.
func NewRabbitPublisher(conn *amqp.Connection, origin string) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &RabbitPublisher{ch: ch, origin: origin}, nil
}

func (p *RabbitPublisher) Close() error {
	return p.ch.Close()
}

func (p *RabbitPublisher) PublishCartChanged(ctx context.Context, ping string) error {
	ev := CartChanged{
		EventType: "CartChanged",
		Ping:      ping,
		Origin:    p.origin,
		Timestamp: time.Now().UTC(),
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal CartChanged: %w", err)
	}

	return p.publishJSON(ctx, CartChangedRoutingKey, body)
}

func (p *RabbitPublisher) PublishCartCheckedOut(ctx context.Context, env contracts.EventEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal CartCheckedOut: %w", err)
	}

	return p.publishJSON(ctx, CartCheckedOutRoutingKey, body)
}

func (p *RabbitPublisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			AppId:        p.origin,
			Body:         body,
		},
	)
}
