package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/newspin/newspin/internal/pkg/database"
	"github.com/newspin/newspin/internal/pkg/env"
	"github.com/newspin/newspin/internal/pkg/payment"
	"github.com/newspin/newspin/internal/pkg/subscription"
	"github.com/newspin/newspin/internal/pkg/usercontext"
)

type subscribeRequest struct {
	PlanID uint `json:"plan_id"`
}

// HandleSubscribe opens a pending subscription plus payment for the chosen
// plan and hands back a gateway checkout URL. The subscription stays pending
// until the gateway confirms the payment via webhook.
func HandleSubscribe(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil || req.PlanID == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "plan_id is required")
	}

	svc := subscription.NewServiceFromDB(database.GetDB())
	sub, pay, err := svc.Subscribe(c.Context(), userCtx.UserID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrPlanNotFound):
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Plan not found")
		case errors.Is(err, subscription.ErrPlanInactive):
			return errorJSON(c, fiber.StatusUnprocessableEntity, "plan_inactive", "This plan is no longer offered")
		case errors.Is(err, subscription.ErrAlreadySubscribed):
			return errorJSON(c, fiber.StatusConflict, "already_subscribed", "You already have an active subscription")
		default:
			return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create subscription")
		}
	}

	response := fiber.Map{
		"subscription_id": sub.ID,
		"payment_id":      pay.ID,
		"status":          sub.Status,
		"amount":          pay.Amount,
		"currency":        pay.Currency,
	}

	client := payment.NewStripeClientFromEnv()
	if client.IsConfigured() {
		base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
		session, err := client.CreateCheckoutSession(
			c.Context(), pay, &sub.Plan,
			base+"/subscription?checkout=success",
			base+"/subscription?checkout=cancelled",
		)
		if err != nil {
			log.Errorf("checkout session for payment %d failed: %v", pay.ID, err)
			return errorJSON(c, fiber.StatusBadGateway, "gateway_error", "Failed to start checkout")
		}
		database.GetDB().Model(pay).Update("stripe_session_id", session.ID)
		response["checkout_url"] = session.URL
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

// HandleSubscriptionStatus returns the summary used by the account page.
func HandleSubscriptionStatus(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	status, err := subscription.NewServiceFromDB(database.GetDB()).GetStatus(c.Context(), userCtx.UserID)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscription")
	}
	return c.JSON(status)
}

// HandleCancelSubscription cancels the user's subscription. The pinned post
// goes away with it.
func HandleCancelSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	err := subscription.NewServiceFromDB(database.GetDB()).Cancel(c.Context(), userCtx.UserID)
	if err != nil {
		if errors.Is(err, subscription.ErrNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "No subscription to cancel")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to cancel subscription")
	}
	return c.JSON(fiber.Map{"message": "subscription cancelled"})
}

// HandleListMyPayments returns the user's payment history.
func HandleListMyPayments(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	offset, limit := pagination(c)

	payments, err := payment.NewServiceFromDB(database.GetDB()).ListUserPayments(c.Context(), userCtx.UserID, offset, limit)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load payments")
	}

	items := make([]fiber.Map, 0, len(payments))
	for i := range payments {
		p := &payments[i]
		items = append(items, fiber.Map{
			"id":           p.ID,
			"amount":       p.Amount,
			"currency":     p.Currency,
			"status":       p.Status,
			"description":  p.Description,
			"created_at":   p.CreatedAt,
			"processed_at": formatTimePtr(p.ProcessedAt),
		})
	}
	return c.JSON(fiber.Map{"payments": items})
}

type refundRequest struct {
	PaymentID uint    `json:"payment_id"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason"`
}

// HandleCreateRefund refunds a payment through the gateway (admin only,
// enforced by routing).
func HandleCreateRefund(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req refundRequest
	if err := c.BodyParser(&req); err != nil || req.PaymentID == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "payment_id is required")
	}

	svc := payment.NewServiceFromDB(database.GetDB())
	adminID := userCtx.UserID
	refund, err := svc.IssueRefund(c.Context(), payment.NewStripeClientFromEnv(), req.PaymentID, req.Amount, req.Reason, &adminID)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrPaymentNotFound):
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Payment not found")
		case errors.Is(err, payment.ErrNotRefundable):
			return errorJSON(c, fiber.StatusUnprocessableEntity, "not_refundable", "This payment cannot be refunded")
		default:
			return errorJSON(c, fiber.StatusBadGateway, "gateway_error", "Refund failed")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(refund)
}
