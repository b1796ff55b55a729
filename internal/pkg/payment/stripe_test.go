package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/newspin/newspin/app/models"
)

func stripeTestServer(t *testing.T, forms *[]url.Values) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		*forms = append(*forms, r.PostForm)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.example/cs_test_1"}`))
	}))
}

func testStripeClient(baseURL string) *StripeClient {
	return &StripeClient{
		SecretKey:  "sk_test_123",
		APIBaseURL: baseURL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestCreateCheckoutSessionWithPriceID(t *testing.T) {
	var forms []url.Values
	server := stripeTestServer(t, &forms)
	defer server.Close()

	priceID := "price_abc"
	plan := &models.SubscriptionPlan{Name: "Monthly", Price: 9.99, StripePriceID: &priceID}
	pay := &models.Payment{ID: 42, Amount: 9.99, Currency: "USD"}

	session, err := testStripeClient(server.URL).CreateCheckoutSession(
		context.Background(), pay, plan, "https://app/success", "https://app/cancel")
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if session.ID != "cs_test_1" || session.URL == "" {
		t.Fatalf("unexpected session: %+v", session)
	}

	form := forms[0]
	if got := form.Get("line_items[0][price]"); got != "price_abc" {
		t.Fatalf("expected price reference, got %q", got)
	}
	if form.Get("line_items[0][price_data][currency]") != "" {
		t.Fatalf("inline price data should not be sent alongside a price id")
	}
	if got := form.Get("metadata[payment_id]"); got != "42" {
		t.Fatalf("expected payment id in metadata, got %q", got)
	}
}

func TestCreateCheckoutSessionWithoutPriceIDFallsBackToPriceData(t *testing.T) {
	var forms []url.Values
	server := stripeTestServer(t, &forms)
	defer server.Close()

	// Plans without a gateway price id are valid; checkout sends inline
	// price data instead.
	plan := &models.SubscriptionPlan{Name: "Monthly", Price: 9.99}
	pay := &models.Payment{ID: 42, Amount: 9.99, Currency: "USD"}

	if _, err := testStripeClient(server.URL).CreateCheckoutSession(
		context.Background(), pay, plan, "https://app/success", "https://app/cancel"); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	form := forms[0]
	if form.Get("line_items[0][price]") != "" {
		t.Fatalf("no price reference expected for a plan without one")
	}
	if got := form.Get("line_items[0][price_data][currency]"); got != "usd" {
		t.Fatalf("expected inline currency, got %q", got)
	}
	if got := form.Get("line_items[0][price_data][unit_amount]"); got != "999" {
		t.Fatalf("expected amount in cents, got %q", got)
	}
	if got := form.Get("line_items[0][price_data][product_data][name]"); got != "Monthly" {
		t.Fatalf("expected plan name in product data, got %q", got)
	}
}

func TestPostFormRequiresSecretKey(t *testing.T) {
	client := &StripeClient{HTTPClient: &http.Client{}}
	if _, err := client.CreateCheckoutSession(
		context.Background(), &models.Payment{}, &models.SubscriptionPlan{}, "", ""); err == nil {
		t.Fatalf("expected error without a secret key")
	}
}
