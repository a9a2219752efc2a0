package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// hex(HMAC-SHA256(secret, orderID + "|" + paymentID))
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// 定数時間で比較
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	expected := Sign(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
