package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
)

var (
	ErrBadSignature   = errors.New("payment: webhook signature mismatch")
	ErrBadEnvelope    = errors.New("payment: malformed webhook payload")
	ErrUnknownEvent   = errors.New("payment: unhandled webhook event type")
	ErrMissingBooking = errors.New("payment: webhook metadata missing booking id")
)

const (
	eventIntentSucceeded = "payment_intent.succeeded"
	eventIntentFailed    = "payment_intent.payment_failed"
)

// WebhookVerifier authenticates and decodes processor webhooks.
type WebhookVerifier struct {
	Secret []byte
}

// Notification is the decoded, verified webhook body.
type Notification struct {
	BookingID int64
	IntentID  string
	Succeeded bool
}

type webhookEnvelope struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// Verify checks the HMAC-SHA256 signature over the raw body and decodes the
// envelope. The raw bytes must be the exact wire payload; re-serialized JSON
// will not authenticate.
func (v WebhookVerifier) Verify(body []byte, signature string) (Notification, error) {
	var zero Notification
	if len(v.Secret) == 0 {
		return zero, errors.New("payment: webhook secret not configured")
	}
	mac := hmac.New(sha256.New, v.Secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return zero, ErrBadSignature
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, ErrBadEnvelope
	}

	var succeeded bool
	switch env.Type {
	case eventIntentSucceeded:
		succeeded = true
	case eventIntentFailed:
		succeeded = false
	default:
		return zero, ErrUnknownEvent
	}

	raw, ok := env.Data.Object.Metadata["booking_id"]
	if !ok {
		return zero, ErrMissingBooking
	}
	bookingID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return zero, ErrMissingBooking
	}
	return Notification{
		BookingID: bookingID,
		IntentID:  env.Data.Object.ID,
		Succeeded: succeeded,
	}, nil
}

// Sign produces the signature a processor would attach. Used by the stub and
// by tests.
func (v WebhookVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.Secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
