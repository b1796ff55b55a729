package payment

import (
	"errors"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{in: "checkout.session.completed", want: KindCheckoutCompleted},
		{in: "payment_intent.succeeded", want: KindPaymentSucceeded},
		{in: "payment_intent.payment_failed", want: KindPaymentFailed},
		{in: "charge.dispute.created", want: KindDisputeCreated},
		{in: "invoice.paid", want: KindUnhandled},
		{in: "customer.created", want: KindUnhandled},
	}

	for _, tt := range tests {
		if got := KindOf(tt.in); got != tt.want {
			t.Fatalf("KindOf(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseEventCheckoutSession(t *testing.T) {
	raw := []byte(`{
		"id": "evt_123",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_456",
				"payment_intent": "pi_789",
				"metadata": { "payment_id": "42" }
			}
		}
	}`)

	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.ID != "evt_123" || ev.Type != "checkout.session.completed" {
		t.Fatalf("unexpected envelope: id=%q type=%q", ev.ID, ev.Type)
	}
	if ev.ObjectID != "cs_test_456" || ev.PaymentIntent != "pi_789" {
		t.Fatalf("unexpected object refs: %+v", ev)
	}
	if ev.PaymentID != 42 {
		t.Fatalf("expected payment_id 42, got %d", ev.PaymentID)
	}
}

func TestParseEventFailureMessage(t *testing.T) {
	raw := []byte(`{
		"id": "evt_124",
		"type": "payment_intent.payment_failed",
		"data": {
			"object": {
				"id": "pi_789",
				"last_payment_error": { "message": "Your card was declined." }
			}
		}
	}`)

	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.FailureMessage != "Your card was declined." {
		t.Fatalf("unexpected failure message: %q", ev.FailureMessage)
	}
}

func TestParseEventMalformed(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"id":"evt_1"}`,
		`{"id":"evt_1","type":"   "}`,
	} {
		if _, err := ParseEvent([]byte(raw)); !errors.Is(err, ErrEventMalformed) {
			t.Fatalf("ParseEvent(%q): got %v, want %v", raw, err, ErrEventMalformed)
		}
	}
}

func TestParseEventIgnoresBadPaymentID(t *testing.T) {
	raw := []byte(`{
		"id": "evt_125",
		"type": "payment_intent.succeeded",
		"data": { "object": { "metadata": { "payment_id": "not-a-number" } } }
	}`)

	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ev.PaymentID != 0 {
		t.Fatalf("expected payment id 0, got %d", ev.PaymentID)
	}
}
