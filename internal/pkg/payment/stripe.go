package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/newspin/newspin/app/models"
	"github.com/newspin/newspin/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com"

// StripeClient talks to the payment gateway over its form-encoded HTTP API.
// Everything here runs at the edge; reconciliation never calls out, it only
// reacts to webhooks.
type StripeClient struct {
	SecretKey     string
	WebhookSecret string
	APIBaseURL    string

	HTTPClient *http.Client
}

// CheckoutSession is the subset of the session object the app needs: the id
// to correlate later webhooks and the URL to redirect the payer to.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PaymentIntent mirrors the fields read off intent responses.
type PaymentIntent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
}

// RefundResult mirrors the fields read off refund responses.
type RefundResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

// NewStripeClientFromEnv builds the client from STRIPE_* environment values.
func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		SecretKey:     strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		WebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		APIBaseURL:    strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// IsConfigured reports whether the client can make gateway calls.
func (c *StripeClient) IsConfigured() bool {
	return strings.TrimSpace(c.SecretKey) != ""
}

// CreateCheckoutSession opens a hosted checkout for the payment. The local
// payment id travels in the session metadata so the completion webhook can
// find its way back.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, p *models.Payment, plan *models.SubscriptionPlan, successURL, cancelURL string) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	form.Set("metadata[payment_id]", strconv.FormatUint(uint64(p.ID), 10))
	form.Set("payment_intent_data[metadata][payment_id]", strconv.FormatUint(uint64(p.ID), 10))

	if plan.StripePriceID != nil && *plan.StripePriceID != "" {
		form.Set("line_items[0][price]", *plan.StripePriceID)
	} else {
		form.Set("line_items[0][price_data][currency]", strings.ToLower(p.Currency))
		form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(amountInCents(p.Amount), 10))
		form.Set("line_items[0][price_data][product_data][name]", plan.Name)
	}
	form.Set("line_items[0][quantity]", "1")

	var session CheckoutSession
	if err := c.postForm(ctx, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreatePaymentIntent opens a direct payment intent for the payment.
func (c *StripeClient) CreatePaymentIntent(ctx context.Context, p *models.Payment) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountInCents(p.Amount), 10))
	form.Set("currency", strings.ToLower(p.Currency))
	form.Set("metadata[payment_id]", strconv.FormatUint(uint64(p.ID), 10))

	var intent PaymentIntent
	if err := c.postForm(ctx, "/v1/payment_intents", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// CreateRefund refunds a charged payment intent, fully when amountCents is 0.
func (c *StripeClient) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, reason string) (*RefundResult, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return nil, errors.New("payment intent id is required")
	}
	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)
	if amountCents > 0 {
		form.Set("amount", strconv.FormatInt(amountCents, 10))
	}
	if reason != "" {
		form.Set("metadata[reason]", reason)
	}

	var refund RefundResult
	if err := c.postForm(ctx, "/v1/refunds", form, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (c *StripeClient) postForm(ctx context.Context, path string, form url.Values, out any) error {
	if !c.IsConfigured() {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("stripe %s returned %d: %s", path, resp.StatusCode, truncate(string(body), 300))
	}
	return json.Unmarshal(body, out)
}

func amountInCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
