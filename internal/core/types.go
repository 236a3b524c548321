package core

import "errors"

const (
	// ClaimExpiration is the reserved claim holding the expiry instant.
	ClaimExpiration = "exp"

	// DefaultMaxTokenSize bounds issued and accepted token strings.
	DefaultMaxTokenSize = 8192

	tokenType = "JWT"
)

var (
	// Encoding errors
	ErrDecode        = errors.New("malformed token segment")
	ErrInvalidClaims = errors.New("invalid claims: keys and values must be valid UTF-8")

	// Issuance errors
	ErrInvalidDuration = errors.New("invalid duration: token lifetime is out of range")
	ErrTokenTooLarge   = errors.New("token too large")

	// Inspection errors, in the order the checks run
	ErrNotValid   = errors.New("token is not valid")
	ErrNotExpired = errors.New("token has not expired")
	ErrExpired    = errors.New("token has expired")
)

// Header is the fixed first segment of every token. It is never decoded on
// verification.
type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Inspection is the outcome of a single-pass validity and expiry check.
type Inspection struct {
	Valid        bool
	Expired      bool
	ExpiredBySec float64
	ExpiresAt    float64
	Claims       map[string]string
	Signature    string
}
