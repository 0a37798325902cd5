package audit

import (
	"crypto/hmac"
	"crypto/sha256"
)

// deriveKey stretches an operator-provided secret into a fixed-size HMAC
// key using a single-round HKDF-Expand (RFC 5869) step: the secret acts as
// the HKDF pseudorandom key directly (it already comes from an environment
// variable the operator controls, so the extract step is skipped) and the
// label disambiguates this key from any other use of the same secret.
func deriveKey(secret []byte, label string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(label))
	mac.Write([]byte{0x01})
	return mac.Sum(nil)
}
