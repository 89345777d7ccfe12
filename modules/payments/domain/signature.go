package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sign returns the hex-encoded HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentSignaturePayload is the byte sequence the gateway signs for a
// client-side payment confirmation.
func PaymentSignaturePayload(intentID, paymentID string) []byte {
	return []byte(intentID + "|" + paymentID)
}

// VerifyPaymentSignature checks the signature returned to the browser after
// checkout. It returns false on any mismatch, missing secret or missing field.
func VerifyPaymentSignature(intentID, paymentID, signature, secret string) bool {
	if intentID == "" || paymentID == "" {
		return false
	}
	return verify(PaymentSignaturePayload(intentID, paymentID), signature, secret)
}

// VerifyWebhookSignature checks a webhook signature against the exact bytes
// received on the wire. body must not be a re-serialization of parsed JSON.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if len(body) == 0 {
		return false
	}
	return verify(body, signature, secret)
}

func verify(payload []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(payload, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
