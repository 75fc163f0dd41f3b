package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyPaymentSignature checks the signature the checkout widget posts
// back after payment: HMAC-SHA256 over "{orderID}|{paymentID}" keyed
// with the API key secret. This pairing proof is the only thing keeping
// a client from claiming someone else's payment.
func VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature, secret string) bool {
	return verify([]byte(gatewayOrderID+"|"+gatewayPaymentID), signature, secret)
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against
// the raw, untouched request body keyed with the webhook secret.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	return verify(body, signature, secret)
}

func verify(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
