package payment

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind classifies provider event types into the handful of local reactions.
type Kind int

const (
	// KindCheckoutCompleted confirms the payment behind a checkout session.
	KindCheckoutCompleted Kind = iota
	// KindPaymentSucceeded confirms the payment behind a payment intent.
	KindPaymentSucceeded
	// KindPaymentFailed fails the payment and cancels its subscription.
	KindPaymentFailed
	// KindDisputeCreated is logged for manual follow-up, no state change.
	KindDisputeCreated
	// KindUnhandled covers every other event type; recorded and ignored.
	KindUnhandled
)

// KindOf maps a provider event type string to its local reaction.
func KindOf(eventType string) Kind {
	switch eventType {
	case "checkout.session.completed":
		return KindCheckoutCompleted
	case "payment_intent.succeeded":
		return KindPaymentSucceeded
	case "payment_intent.payment_failed":
		return KindPaymentFailed
	case "charge.dispute.created":
		return KindDisputeCreated
	default:
		return KindUnhandled
	}
}

// Event is the normalized view of a provider webhook payload. Only the fields
// the reconciliation path reads are extracted; the raw payload stays on the
// stored WebhookEvent row.
type Event struct {
	ID             string
	Type           string
	ObjectID       string
	PaymentIntent  string
	PaymentID      uint
	FailureMessage string
}

type stripeEventPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string            `json:"id"`
			PaymentIntent string            `json:"payment_intent"`
			Metadata      map[string]string `json:"metadata"`
			LastError     struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		} `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a Stripe-shaped webhook payload. The local payment is
// referenced through metadata["payment_id"], which every checkout session and
// payment intent created by us carries.
func ParseEvent(payload []byte) (*Event, error) {
	var raw stripeEventPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, ErrEventMalformed
	}
	if strings.TrimSpace(raw.Type) == "" {
		return nil, ErrEventMalformed
	}

	ev := &Event{
		ID:             strings.TrimSpace(raw.ID),
		Type:           raw.Type,
		ObjectID:       raw.Data.Object.ID,
		PaymentIntent:  raw.Data.Object.PaymentIntent,
		FailureMessage: raw.Data.Object.LastError.Message,
	}
	if idStr, ok := raw.Data.Object.Metadata["payment_id"]; ok {
		if id, err := strconv.ParseUint(idStr, 10, 32); err == nil {
			ev.PaymentID = uint(id)
		}
	}
	return ev, nil
}
