package payment

import (
	"errors"
	"testing"
	"time"
)

func TestVerifySignatureRoundTrip(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Now()
	header := Sign("whsec_test", now, payload)
	if err := VerifySignature(header, payload, "whsec_test", DefaultTolerance, now); err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Now()
	header := Sign("whsec_other", now, payload)
	if err := VerifySignature(header, payload, "whsec_test", DefaultTolerance, now); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifySignatureRejectsTamperedPayload(t *testing.T) {
	now := time.Now()
	header := Sign("whsec_test", now, []byte(`{"amount":100}`))
	if err := VerifySignature(header, []byte(`{"amount":99999}`), "whsec_test", DefaultTolerance, now); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifySignatureToleranceWindow(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Now()

	within := Sign("whsec_test", now.Add(-4*time.Minute), payload)
	if err := VerifySignature(within, payload, "whsec_test", DefaultTolerance, now); err != nil {
		t.Fatalf("signature within tolerance rejected: %v", err)
	}

	stale := Sign("whsec_test", now.Add(-6*time.Minute), payload)
	if err := VerifySignature(stale, payload, "whsec_test", DefaultTolerance, now); !errors.Is(err, ErrSignatureExpired) {
		t.Fatalf("stale err = %v, want ErrSignatureExpired", err)
	}

	// A future timestamp beyond tolerance is just as suspect.
	future := Sign("whsec_test", now.Add(6*time.Minute), payload)
	if err := VerifySignature(future, payload, "whsec_test", DefaultTolerance, now); !errors.Is(err, ErrSignatureExpired) {
		t.Fatalf("future err = %v, want ErrSignatureExpired", err)
	}
}

func TestVerifySignatureMalformedHeaders(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Now()
	for _, header := range []string{
		"",
		"t=abc,v1=deadbeef",
		"v1=deadbeef",
		"t=1700000000",
		"garbage",
	} {
		if err := VerifySignature(header, payload, "whsec_test", DefaultTolerance, now); !errors.Is(err, ErrSignatureFormat) {
			t.Fatalf("header %q: err = %v, want ErrSignatureFormat", header, err)
		}
	}
}

func TestParseEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"created": 1756300000,
		"data": {"object": {
			"id": "cs_1",
			"payment_status": "paid",
			"payment_intent": "pi_1",
			"metadata": {"purchase_id": "p-1", "user_id": "u-1"}
		}}
	}`)
	event, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if event.Type != EventCheckoutCompleted {
		t.Fatalf("Type = %q", event.Type)
	}
	session := event.Data.Object
	if session.ID != "cs_1" || session.PaymentIntentID != "pi_1" || session.Metadata["purchase_id"] != "p-1" {
		t.Fatalf("session = %+v", session)
	}
}

func TestParseEventRejectsIncomplete(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"type":"x"}`)); err == nil {
		t.Fatal("event without id accepted")
	}
	if _, err := ParseEvent([]byte(`not json`)); err == nil {
		t.Fatal("invalid json accepted")
	}
}
