package minijwt

import (
	"fmt"
	"time"

	"github.com/cybergodev/minijwt/internal/core"
)

// Snapshot wraps one token string and a reference time fixed when the
// Snapshot was created. Every inspection judges expiry against that frozen
// instant, so repeated calls agree with each other.
//
// A Snapshot has a single owner and is not safe for concurrent mutation.
type Snapshot struct {
	engine  *core.Engine
	token   string
	ref     time.Time
	metrics *collector
}

// SetToken replaces the wrapped token. The reference time is unchanged.
func (s *Snapshot) SetToken(token string) {
	s.token = token
}

func (s *Snapshot) Token() string {
	return s.token
}

// ReferenceTime returns the instant captured at construction.
func (s *Snapshot) ReferenceTime() time.Time {
	return s.ref
}

// Issue signs claims with an expiry ttlMinutes after the reference time. A
// zero ttl yields a token that is live exactly at the reference time. The
// wrapped token is not changed.
func (s *Snapshot) Issue(claims Claims, ttlMinutes int) (string, error) {
	if ttlMinutes < 0 || int64(ttlMinutes) > maxTTLMinutes {
		return "", fmt.Errorf("%w: ttl must be a non-negative number of minutes, got %d", ErrInvalidDuration, ttlMinutes)
	}

	token, err := s.engine.Issue(claims, time.Duration(ttlMinutes)*time.Minute, s.ref)
	if err != nil {
		return "", err
	}

	s.metrics.tokenIssued(shapeSnapshot)
	return token, nil
}

// IsValid reports whether the wrapped token is well formed and carries a
// signature made with this key.
func (s *Snapshot) IsValid() bool {
	return s.engine.IsStructurallyValid(s.token)
}

// HasExpired reports whether the token expired strictly before the
// reference time. It fails with ErrNotValid for an invalid token.
func (s *Snapshot) HasExpired() (bool, error) {
	return s.engine.HasExpired(s.token, s.ref)
}

// ExpiredBySeconds returns how many seconds before the reference time the
// token expired. It fails with ErrNotExpired for a live token.
func (s *Snapshot) ExpiredBySeconds() (float64, error) {
	return s.engine.ExpiredBySeconds(s.token, s.ref)
}

// Claims returns the token's claims without exp. It fails with ErrExpired
// for an expired token.
func (s *Snapshot) Claims() (Claims, error) {
	claims, err := s.engine.Claims(s.token, s.ref)
	if err != nil {
		return nil, err
	}
	return Claims(claims), nil
}
