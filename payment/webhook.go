package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	EventCheckoutCompleted = "checkout.session.completed"

	// signatureTolerance bounds how stale a signed timestamp may be before
	// the event is rejected as a possible replay.
	signatureTolerance = 5 * time.Minute
)

var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrExpiredSignature = errors.New("webhook signature timestamp outside tolerance")
)

// Event is the decoded webhook payload. Only the fields this app reads are
// mapped; the rest of the provider object is ignored.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
			CustomerEmail     string `json:"customer_email"`
			AmountTotal       int64  `json:"amount_total"`
			Metadata          struct {
				TourID string `json:"tour_id"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// Sign produces the signature header for a payload at the given time. The
// scheme is the provider's: HMAC-SHA256 over "<unix>.<payload>", carried as
// "t=<unix>,v1=<hex>".
func Sign(payload []byte, secret []byte, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%s.%s", ts, payload)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

// ConstructEvent verifies the signature header against the raw payload and
// decodes the event. Any tampering with payload or header, or a timestamp
// outside tolerance, fails verification; nothing of the payload is trusted
// before that point.
func ConstructEvent(payload []byte, sigHeader string, secret []byte) (*Event, error) {
	ts, candidates, err := parseSigHeader(sigHeader)
	if err != nil {
		return nil, err
	}

	if d := time.Since(time.Unix(ts, 0)); d > signatureTolerance || d < -signatureTolerance {
		return nil, ErrExpiredSignature
	}

	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	expected := mac.Sum(nil)

	verified := false
	for _, candidate := range candidates {
		sig, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(sig, expected) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	return &event, nil
}

func parseSigHeader(header string) (ts int64, candidates []string, err error) {
	if header == "" {
		return 0, nil, ErrInvalidSignature
	}
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, ErrInvalidSignature
			}
		case "v1":
			candidates = append(candidates, v)
		}
	}
	if ts == 0 || len(candidates) == 0 {
		return 0, nil, ErrInvalidSignature
	}
	return ts, candidates, nil
}
