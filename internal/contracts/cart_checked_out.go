package contracts

import (
	"time"

	"github.com/google/uuid"

	"github.com/nolanmyles20/tacticaloffroad/internal/cart"
)

const (
	CartCheckedOutEventName    = "CartCheckedOut"
	CartCheckedOutEventVersion = 1
	StorefrontProducer         = "storefront-go"
)

type EventEnvelope struct {
	EventName     string                `json:"eventName"`
	EventVersion  int                   `json:"eventVersion"`
	EventID       string                `json:"eventId"`
	CorrelationID string                `json:"correlationId,omitempty"`
	Producer      string                `json:"producer"`
	PartitionKey  string                `json:"partitionKey"`
	Sequence      int64                 `json:"sequence"`
	OccurredAt    time.Time             `json:"occurredAt"`
	Payload       CartCheckedOutPayload `json:"payload"`
}

type CartCheckedOutPayload struct {
	Lines         []CartCheckedOutLine `json:"lines"`
	SubtotalCents int                  `json:"subtotalCents"`
	CheckoutURL   string               `json:"checkoutUrl"`
	Timestamp     time.Time            `json:"timestamp"`
}

type CartCheckedOutLine struct {
	VariantID  string `json:"variantId"`
	Qty        int    `json:"qty"`
	Title      string `json:"title,omitempty"`
	PriceCents int    `json:"priceCents,omitempty"`
	ProductID  string `json:"productId,omitempty"`
}

type EnvelopeOptions struct {
	PartitionKey  string
	Sequence      int64
	Producer      string
	CorrelationID string
	EventID       string
	OccurredAt    time.Time
	CheckoutURL   string
}

// BuildCartCheckedOutEvent snapshots the local cart at handoff time. Sequence
// is the storage revision of the snapshot, so consumers can order events from
// the same storefront key.
func BuildCartCheckedOutEvent(c cart.Cart, opts EnvelopeOptions) EventEnvelope {
	eventID := opts.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	occurredAt := opts.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	producer := opts.Producer
	if producer == "" {
		producer = StorefrontProducer
	}

	payload := CartCheckedOutPayload{
		SubtotalCents: c.SubtotalCents(),
		CheckoutURL:   opts.CheckoutURL,
		Timestamp:     occurredAt,
	}

	for _, l := range c.Lines {
		payload.Lines = append(payload.Lines, CartCheckedOutLine{
			VariantID:  l.VariantID,
			Qty:        l.Qty,
			Title:      l.Title,
			PriceCents: l.PriceCents,
			ProductID:  l.ProductID,
		})
	}

	return EventEnvelope{
		EventName:     CartCheckedOutEventName,
		EventVersion:  CartCheckedOutEventVersion,
		EventID:       eventID,
		CorrelationID: opts.CorrelationID,
		Producer:      producer,
		PartitionKey:  opts.PartitionKey,
		Sequence:      opts.Sequence,
		OccurredAt:    occurredAt,
		Payload:       payload,
	}
}
