package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Signer computes and checks the signature segment over "header.payload".
type Signer interface {
	Alg() string
	Sign(message []byte) (string, error)
	Verify(message []byte, signature string) bool
}

// Engine builds, validates and inspects tokens for one Signer. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	signer       Signer
	header       string
	maxTokenSize int
}

// NewEngine returns an Engine. maxTokenSize <= 0 disables the size limit.
func NewEngine(signer Signer, maxTokenSize int) (*Engine, error) {
	if signer == nil {
		return nil, errors.New("signer cannot be nil")
	}

	headerJSON, err := json.Marshal(Header{Alg: signer.Alg(), Typ: tokenType})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal header: %w", err)
	}

	if maxTokenSize < 0 {
		maxTokenSize = 0
	}

	return &Engine{
		signer:       signer,
		header:       EncodeSegment(headerJSON),
		maxTokenSize: maxTokenSize,
	}, nil
}

// Issue signs claims with exp set to ref+ttl. The caller's map is not
// modified.
func (e *Engine) Issue(claims map[string]string, ttl time.Duration, ref time.Time) (string, error) {
	if ttl < 0 {
		return "", fmt.Errorf("%w: %s", ErrInvalidDuration, ttl)
	}

	payload, err := EncodeClaims(withExpiration(claims, EpochSeconds(ref.Add(ttl))))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(e.header) + 1 + len(payload)*4/3 + 1 + 44)
	b.WriteString(e.header)
	b.WriteByte('.')
	b.WriteString(EncodeSegment(payload))

	signature, err := e.signer.Sign([]byte(b.String()))
	if err != nil {
		return "", err
	}
	b.WriteByte('.')
	b.WriteString(signature)

	token := b.String()
	if e.maxTokenSize > 0 && len(token) > e.maxTokenSize {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTokenTooLarge, len(token), e.maxTokenSize)
	}

	return token, nil
}

// IsStructurallyValid reports whether token has three segments and a
// signature produced by this engine's key. It never fails loudly.
func (e *Engine) IsStructurallyValid(token string) bool {
	_, _, ok := e.verify(token)
	return ok
}

// HasExpired reports whether exp lies strictly before ref. A token whose exp
// equals ref is still live.
func (e *Engine) HasExpired(token string, ref time.Time) (bool, error) {
	_, exp, _, err := e.open(token)
	if err != nil {
		return false, err
	}
	return exp < EpochSeconds(ref), nil
}

// ExpiredBySeconds returns how long before ref the token expired.
func (e *Engine) ExpiredBySeconds(token string, ref time.Time) (float64, error) {
	_, exp, _, err := e.open(token)
	if err != nil {
		return 0, err
	}

	now := EpochSeconds(ref)
	if exp >= now {
		return 0, ErrNotExpired
	}
	return now - exp, nil
}

// Claims returns the token's claims without exp.
func (e *Engine) Claims(token string, ref time.Time) (map[string]string, error) {
	claims, exp, _, err := e.open(token)
	if err != nil {
		return nil, err
	}

	if exp < EpochSeconds(ref) {
		return nil, ErrExpired
	}
	return withoutExpiration(claims), nil
}

// Inspect runs the validity, expiry and extraction chain against one
// reference instant, decoding the token once.
func (e *Engine) Inspect(token string, ref time.Time) Inspection {
	var in Inspection

	claims, exp, signature, err := e.open(token)
	if err != nil {
		return in
	}

	in.Valid = true
	in.ExpiresAt = exp
	in.Signature = signature

	now := EpochSeconds(ref)
	if exp < now {
		in.Expired = true
		in.ExpiredBySec = now - exp
		return in
	}

	in.Claims = withoutExpiration(claims)
	return in
}

// Expiration returns the expiry instant and signature segment of a valid
// token.
func (e *Engine) Expiration(token string) (time.Time, string, error) {
	_, exp, signature, err := e.open(token)
	if err != nil {
		return time.Time{}, "", err
	}
	return FromEpochSeconds(exp), signature, nil
}

func (e *Engine) verify(token string) (string, string, bool) {
	if token == "" {
		return "", "", false
	}
	if e.maxTokenSize > 0 && len(token) > e.maxTokenSize {
		return "", "", false
	}

	header, payload, signature, ok := splitToken(token)
	if !ok {
		return "", "", false
	}

	signingInput := token[:len(header)+1+len(payload)]
	if !e.signer.Verify([]byte(signingInput), signature) {
		return "", "", false
	}

	return payload, signature, true
}

func (e *Engine) open(token string) (map[string]string, float64, string, error) {
	payload, signature, ok := e.verify(token)
	if !ok {
		return nil, 0, "", ErrNotValid
	}

	claims, exp, err := parsePayload(payload)
	if err != nil {
		return nil, 0, "", fmt.Errorf("%w: %v", ErrNotValid, err)
	}

	return claims, exp, signature, nil
}
