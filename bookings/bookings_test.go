package bookings

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wayfare/models"
	"wayfare/payment"
)

func webhookHandlers() *Handlers {
	return &Handlers{
		Pay: &payment.Client{WebhookSecret: []byte("whsec_test")},
	}
}

func postWebhook(h *Handlers, body []byte, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook-checkout", bytes.NewReader(body))
	if sig != "" {
		req.Header.Set(SignatureHeader, sig)
	}
	rec := httptest.NewRecorder()
	h.Webhook(rec, req, nil)
	return rec
}

func TestWebhookMissingSignature(t *testing.T) {
	rec := postWebhook(webhookHandlers(), []byte(`{"type":"checkout.session.completed"}`), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "fail" {
		t.Errorf("status field = %v, want fail", body["status"])
	}
}

func TestWebhookBadSignatureShortCircuits(t *testing.T) {
	h := webhookHandlers()
	payloadBytes := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	sig := payment.Sign(payloadBytes, []byte("wrong-secret"), time.Now())

	rec := postWebhook(h, payloadBytes, sig)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "signature verification failed") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestWebhookIgnoredEventTypeAcked(t *testing.T) {
	h := webhookHandlers()
	payloadBytes := []byte(`{"id":"evt_2","type":"payment_intent.created"}`)
	sig := payment.Sign(payloadBytes, h.Pay.WebhookSecret, time.Now())

	rec := postWebhook(h, payloadBytes, sig)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["received"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestReceiptQRPayloadStable(t *testing.T) {
	h := webhookHandlers()
	booking := &models.Booking{ID: "b123", UserID: "u456", Price: 497}

	first := h.receiptQRPayload(booking, 1700000000)
	second := h.receiptQRPayload(booking, 1700000000)
	if first != second {
		t.Fatalf("payload not deterministic: %q vs %q", first, second)
	}
	if !strings.Contains(first, "booking=b123") || !strings.Contains(first, "sig=") {
		t.Errorf("payload = %q", first)
	}

	other := h.receiptQRPayload(&models.Booking{ID: "b123", UserID: "u456", Price: 1}, 1700000000)
	if other == first {
		t.Error("different price produced identical signature")
	}
}
