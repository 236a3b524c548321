package minijwt

import (
	"time"

	"github.com/cybergodev/minijwt/internal/core"
)

// ClaimExpiration is the reserved claim carrying the expiry instant as
// seconds since the Unix epoch. Callers never see it in extracted claims.
const ClaimExpiration = core.ClaimExpiration

// DefaultMaxTokenSize is the default bound on token length in bytes.
const DefaultMaxTokenSize = core.DefaultMaxTokenSize

// Claims is a flat set of string claims.
type Claims map[string]string

// ParsingInfo reports every outcome of a live parse. ExpiredByInSec is only
// meaningful when HasExpired is set. Claims is populated only for a valid,
// live, unrevoked token.
type ParsingInfo struct {
	IsValid        bool    `json:"is_valid"`
	HasExpired     bool    `json:"has_expired"`
	ExpiredByInSec float64 `json:"expired_by_in_sec,omitempty"`
	IsRevoked      bool    `json:"is_revoked,omitempty"`
	Claims         Claims  `json:"claims,omitempty"`
}

// Clock is the wall-clock source consulted when tokens are issued and
// judged.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Err returns nil for a usable result, otherwise the error naming the first
// failed check: ErrNotValid, ErrExpired or ErrTokenRevoked.
func (i ParsingInfo) Err() error {
	switch {
	case !i.IsValid:
		return ErrNotValid
	case i.HasExpired:
		return ErrExpired
	case i.IsRevoked:
		return ErrTokenRevoked
	default:
		return nil
	}
}
