package signing

import (
	"crypto/hmac"
	_ "crypto/sha256"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cybergodev/minijwt/internal/core"
)

// HMAC is an HMAC-SHA256 signer bound to one secret.
type HMAC struct {
	key    []byte
	method *jwt.SigningMethodHMAC
}

// NewHMAC copies secret and returns a signer keyed with it.
func NewHMAC(secret []byte) (*HMAC, error) {
	if len(secret) == 0 {
		return nil, ErrInvalidKey
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &HMAC{key: key, method: jwt.SigningMethodHS256}, nil
}

func (h *HMAC) Alg() string {
	return AlgHMAC
}

// Sign returns the URL-safe encoding of HMAC-SHA256(message).
func (h *HMAC) Sign(message []byte) (string, error) {
	mac, err := h.method.Sign(string(message), h.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return core.EncodeSegment(mac), nil
}

// Verify recomputes the signature and compares the encoded forms in constant
// time.
func (h *HMAC) Verify(message []byte, signature string) bool {
	if signature == "" {
		return false
	}

	expected, err := h.Sign(message)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}
