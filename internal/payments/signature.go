package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns the lowercase hex HMAC-SHA256 of message under secret.
func Sign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentSignaturePayload builds the "<gatewayOrderId>|<gatewayPaymentId>" string signed by the gateway.
func PaymentSignaturePayload(gatewayOrderID, gatewayPaymentID string) string {
	return gatewayOrderID + "|" + gatewayPaymentID
}

// VerifySignature recomputes the digest and compares it in constant time.
// Case differences in the supplied hex are tolerated; anything else fails.
func VerifySignature(secret, message, signature string) bool {
	if secret == "" {
		return false
	}
	supplied, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(signature)))
	if err != nil || len(supplied) != sha256.Size {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hmac.Equal(mac.Sum(nil), supplied)
}
