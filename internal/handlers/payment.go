package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// SignatureHeader carries the gateway's signature over the raw confirmation body.
const SignatureHeader = "X-Payment-Signature"

// ErrBadSignature is returned when a payment confirmation does not verify.
var ErrBadSignature = errors.New("payment signature mismatch")

// PaymentVerifier checks that a confirmation really came from the gateway.
type PaymentVerifier interface {
	Verify(body []byte, signature string) error
}

// HMACVerifier checks a hex HMAC-SHA256 of the body under a shared webhook secret.
type HMACVerifier struct {
	Secret []byte
}

func (v HMACVerifier) Verify(body []byte, signature string) error {
	if len(v.Secret) == 0 {
		return errors.New("payment webhook secret not configured")
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrBadSignature
	}
	if !hmac.Equal(got, Sign(v.Secret, body)) {
		return ErrBadSignature
	}
	return nil
}

// Sign computes the signature a gateway would send for body.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}
