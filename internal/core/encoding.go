package core

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	toURLSafe   = strings.NewReplacer("+", "-", "/", "_")
	fromURLSafe = strings.NewReplacer("-", "+", "_", "/")
)

// EncodeClaims serializes a flat claim mapping. encoding/json writes map keys
// in sorted order, so the output is canonical for a given claim set.
// Invalid UTF-8 is rejected with ErrInvalidClaims: encoding/json would
// replace it with U+FFFD and the result would not decode to the input.
func EncodeClaims(claims map[string]string) ([]byte, error) {
	if claims == nil {
		claims = map[string]string{}
	}

	for key, value := range claims {
		if !utf8.ValidString(key) {
			return nil, fmt.Errorf("%w: claim key %q", ErrInvalidClaims, key)
		}
		if !utf8.ValidString(value) {
			return nil, fmt.Errorf("%w: value of claim %q", ErrInvalidClaims, key)
		}
	}

	data, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal claims: %w", err)
	}
	return data, nil
}

// DecodeClaims is the inverse of EncodeClaims. Input that does not re-encode
// to the same bytes is rejected as non-canonical.
func DecodeClaims(data []byte) (map[string]string, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty claims segment", ErrDecode)
	}

	var claims map[string]string
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal claims: %v", ErrDecode, err)
	}
	if claims == nil {
		return nil, fmt.Errorf("%w: claims segment is not an object", ErrDecode)
	}

	canonical, err := EncodeClaims(claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !bytes.Equal(canonical, data) {
		return nil, fmt.Errorf("%w: claims segment is not canonical", ErrDecode)
	}

	return claims, nil
}

// EncodeSegment returns standard base64 with '+' and '/' substituted by '-'
// and '_' and all '=' padding removed.
func EncodeSegment(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	return strings.TrimRight(toURLSafe.Replace(encoded), "=")
}

// DecodeSegment reverses EncodeSegment: it restores the standard alphabet,
// right-pads with '=' to a multiple of four and standard-decodes.
func DecodeSegment(segment string) ([]byte, error) {
	if segment == "" {
		return nil, fmt.Errorf("%w: empty segment", ErrDecode)
	}

	std := fromURLSafe.Replace(segment)
	if rem := len(std) % 4; rem != 0 {
		std += strings.Repeat("=", 4-rem)
	}

	data, err := base64.StdEncoding.DecodeString(std)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode base64: %v", ErrDecode, err)
	}
	return data, nil
}
