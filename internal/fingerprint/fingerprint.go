package fingerprint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// LogKeyLabel names the key used for payer fingerprints in logs.
const LogKeyLabel = "payer-fingerprint"

// DeriveKey returns HMAC-SHA256(secret, label), a key bound to one purpose.
func DeriveKey(secret []byte, label string) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(label))
	return h.Sum(nil)
}

// Identity computes a short HMAC-SHA256 fingerprint of a buyer identity so log
// lines can be correlated without carrying the identity itself.
func Identity(identity string, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(Normalize(identity)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Normalize trims and lower-cases an email-like identity.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	e := Normalize(email)
	if e == "" {
		return ""
	}
	local, domain, ok := strings.Cut(e, "@")
	if !ok {
		if len(e) <= 1 {
			return "*"
		}
		return e[:1] + strings.Repeat("*", len(e)-1)
	}
	if len(local) <= 1 {
		return "*@" + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-1) + "@" + domain
}
