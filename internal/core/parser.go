package core

import "fmt"

// splitToken splits s into exactly three '.'-separated parts.
func splitToken(s string) (string, string, string, bool) {
	first := -1
	second := -1

	for i := 0; i < len(s); i++ {
		if s[i] != '.' {
			continue
		}
		switch {
		case first == -1:
			first = i
		case second == -1:
			second = i
		default:
			return "", "", "", false
		}
	}

	if first == -1 || second == -1 {
		return "", "", "", false
	}

	return s[:first], s[first+1 : second], s[second+1:], true
}

// parsePayload decodes the claims segment of a signed token and extracts exp.
func parsePayload(payload string) (map[string]string, float64, error) {
	data, err := DecodeSegment(payload)
	if err != nil {
		return nil, 0, err
	}

	claims, err := DecodeClaims(data)
	if err != nil {
		return nil, 0, err
	}

	raw, ok := claims[ClaimExpiration]
	if !ok {
		return nil, 0, fmt.Errorf("%w: missing exp claim", ErrDecode)
	}

	exp, err := ParseEpoch(raw)
	if err != nil {
		return nil, 0, err
	}

	return claims, exp, nil
}
