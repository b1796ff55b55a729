package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/newspin/newspin/app/models"
	"github.com/newspin/newspin/internal/pkg/database"
	"github.com/newspin/newspin/internal/pkg/payment"
)

// HandleStripeWebhook ingests gateway events. The signature is verified over
// the raw body before anything is parsed; re-deliveries dedup on event id, so
// this endpoint always answers 200 for events it has already seen.
func HandleStripeWebhook(c *fiber.Ctx) error {
	body := c.Body()

	client := payment.NewStripeClientFromEnv()
	if client.WebhookSecret != "" {
		if !payment.VerifyStripeWebhookSignature(body, c.Get("Stripe-Signature"), client.WebhookSecret, payment.DefaultSignatureTolerance) {
			return errorJSON(c, fiber.StatusBadRequest, "invalid_signature", "Webhook signature verification failed")
		}
	}

	svc := payment.NewServiceFromDB(database.GetDB())
	event, err := svc.Ingest(c.Context(), models.WebhookProviderStripe, body)
	if err != nil {
		if errors.Is(err, payment.ErrEventMalformed) {
			return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Malformed event payload")
		}
		log.Errorf("webhook ingest failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to record event")
	}

	// A failed reaction is still a recorded event; answering 200 stops the
	// provider from hammering us while the retry sweep takes over.
	return c.JSON(fiber.Map{
		"event_id": event.EventID,
		"status":   event.Status,
	})
}
