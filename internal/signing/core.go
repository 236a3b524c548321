package signing

import "errors"

// AlgHMAC is the algorithm label written into every token header. Only one
// scheme exists, so the label is informational.
const AlgHMAC = "HMAC"

// ErrInvalidKey is returned by NewHMAC for an empty secret.
var ErrInvalidKey = errors.New("signing key cannot be empty")
