package payment

import "errors"

var (
	// ErrPaymentNotFound is returned when an event references a payment that
	// does not exist locally.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrEventMalformed is returned when a webhook payload cannot be decoded.
	ErrEventMalformed = errors.New("malformed webhook event")

	// ErrNotRefundable is returned when a refund is requested for a payment
	// that never succeeded or was not paid through the gateway.
	ErrNotRefundable = errors.New("payment cannot be refunded")
)
