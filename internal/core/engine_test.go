package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSigner struct {
	key []byte
}

func (s testSigner) Alg() string { return "HMAC" }

func (s testSigner) Sign(message []byte) (string, error) {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(message)
	return EncodeSegment(mac.Sum(nil)), nil
}

func (s testSigner) Verify(message []byte, signature string) bool {
	expected, _ := s.Sign(message)
	return hmac.Equal([]byte(expected), []byte(signature))
}

var testRef = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, key string) *Engine {
	t.Helper()
	e, err := NewEngine(testSigner{key: []byte(key)}, DefaultMaxTokenSize)
	require.NoError(t, err)
	return e
}

// signRaw signs an arbitrary payload so decode failures behind a valid
// signature can be exercised.
func signRaw(t *testing.T, e *Engine, payload string) string {
	t.Helper()
	input := e.header + "." + EncodeSegment([]byte(payload))
	sig, err := e.signer.Sign([]byte(input))
	require.NoError(t, err)
	return input + "." + sig
}

func TestNewEngineRequiresSigner(t *testing.T) {
	_, err := NewEngine(nil, 0)
	assert.Error(t, err)
}

func TestEngineIssueFormat(t *testing.T) {
	e := newTestEngine(t, "secret")

	token, err := e.Issue(map[string]string{"sub": "alice"}, 15*time.Minute, testRef)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	assert.Equal(t, "eyJhbGciOiJITUFDIiwidHlwIjoiSldUIn0", parts[0])
	assert.NotContains(t, token, "=")

	payload, err := DecodeSegment(parts[1])
	require.NoError(t, err)
	assert.Equal(t, `{"exp":"1704068100","sub":"alice"}`, string(payload))
}

func TestEngineIssueDeterministic(t *testing.T) {
	e := newTestEngine(t, "secret")
	claims := map[string]string{"b": "2", "a": "1"}

	first, err := e.Issue(claims, time.Minute, testRef)
	require.NoError(t, err)
	second, err := e.Issue(map[string]string{"a": "1", "b": "2"}, time.Minute, testRef)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEngineRoundTrip(t *testing.T) {
	e := newTestEngine(t, "secret")
	claims := map[string]string{"sub": "alice", "role": "admin", "empty": "", "unicode": "Zoë ✓"}

	token, err := e.Issue(claims, time.Hour, testRef)
	require.NoError(t, err)

	assert.True(t, e.IsStructurallyValid(token))

	expired, err := e.HasExpired(token, testRef)
	require.NoError(t, err)
	assert.False(t, expired)

	got, err := e.Claims(token, testRef)
	require.NoError(t, err)
	assert.Equal(t, claims, got)
}

func TestEngineIssueDoesNotMutateClaims(t *testing.T) {
	e := newTestEngine(t, "secret")
	claims := map[string]string{"sub": "alice", "exp": "123"}

	token, err := e.Issue(claims, time.Minute, testRef)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"sub": "alice", "exp": "123"}, claims)

	exp, _, err := e.Expiration(token)
	require.NoError(t, err)
	assert.True(t, testRef.Add(time.Minute).Equal(exp))

	got, err := e.Claims(token, testRef)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"sub": "alice"}, got)
}

func TestEngineIssueNilClaims(t *testing.T) {
	e := newTestEngine(t, "secret")

	token, err := e.Issue(nil, time.Minute, testRef)
	require.NoError(t, err)

	got, err := e.Claims(token, testRef)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEngineIssueRejectsInvalidUTF8(t *testing.T) {
	e := newTestEngine(t, "secret")

	tests := []struct {
		name   string
		claims map[string]string
	}{
		{"value", map[string]string{"bin": "\xff\xfeabc"}},
		{"key", map[string]string{"\xc3\x28": "x"}},
		{"truncated rune", map[string]string{"name": "Zo\xc3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := e.Issue(tt.claims, time.Minute, testRef)
			assert.ErrorIs(t, err, ErrInvalidClaims)
			assert.Empty(t, token)
		})
	}
}

// Everything Issue accepts must read back unchanged, including characters
// encoding/json escapes.
func TestEngineRoundTripEscapedCharacters(t *testing.T) {
	e := newTestEngine(t, "secret")
	claims := map[string]string{
		"html":      "<a href=\"x\">&</a>",
		"separator": "line\u2028para\u2029",
		"control":   "tab\tnl\n\x00",
		"replaced":  "\ufffd",
	}

	token, err := e.Issue(claims, time.Minute, testRef)
	require.NoError(t, err)

	in := e.Inspect(token, testRef)
	require.True(t, in.Valid)
	assert.Equal(t, claims, in.Claims)
}

func TestEngineIssueNegativeTTL(t *testing.T) {
	e := newTestEngine(t, "secret")

	_, err := e.Issue(nil, -time.Second, testRef)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestEngineZeroTTL(t *testing.T) {
	e := newTestEngine(t, "secret")

	token, err := e.Issue(nil, 0, testRef)
	require.NoError(t, err)

	expired, err := e.HasExpired(token, testRef)
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = e.HasExpired(token, testRef.Add(time.Millisecond))
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestEngineExpiryBoundary(t *testing.T) {
	e := newTestEngine(t, "secret")
	token, err := e.Issue(map[string]string{"sub": "alice"}, time.Minute, testRef)
	require.NoError(t, err)

	exp := testRef.Add(time.Minute)

	t.Run("at exp is live", func(t *testing.T) {
		expired, err := e.HasExpired(token, exp)
		require.NoError(t, err)
		assert.False(t, expired)

		_, err = e.ExpiredBySeconds(token, exp)
		assert.ErrorIs(t, err, ErrNotExpired)

		claims, err := e.Claims(token, exp)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims["sub"])
	})

	t.Run("after exp is expired", func(t *testing.T) {
		after := exp.Add(time.Millisecond)

		expired, err := e.HasExpired(token, after)
		require.NoError(t, err)
		assert.True(t, expired)

		overage, err := e.ExpiredBySeconds(token, after)
		require.NoError(t, err)
		assert.InDelta(t, 0.001, overage, 1e-5)

		_, err = e.Claims(token, after)
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("overage grows with reference", func(t *testing.T) {
		overage, err := e.ExpiredBySeconds(token, exp.Add(90*time.Second))
		require.NoError(t, err)
		assert.InDelta(t, 90, overage, 1e-3)
	})
}

func TestEngineRejectsTampering(t *testing.T) {
	e := newTestEngine(t, "secret")
	token, err := e.Issue(map[string]string{"sub": "alice"}, time.Hour, testRef)
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			continue
		}
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]

		assert.False(t, e.IsStructurallyValid(tampered), "position %d", i)

		_, err := e.HasExpired(tampered, testRef)
		assert.ErrorIs(t, err, ErrNotValid, "position %d", i)
	}
}

func TestEngineRejectsOtherKey(t *testing.T) {
	issuer := newTestEngine(t, "secret")
	verifier := newTestEngine(t, "other")

	token, err := issuer.Issue(map[string]string{"sub": "alice"}, time.Hour, testRef)
	require.NoError(t, err)

	assert.False(t, verifier.IsStructurallyValid(token))
	_, err = verifier.Claims(token, testRef)
	assert.ErrorIs(t, err, ErrNotValid)
}

func TestEngineRejectsMalformed(t *testing.T) {
	e := newTestEngine(t, "secret")
	token, err := e.Issue(nil, time.Hour, testRef)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not a token"},
		{name: "two segments", token: token[:strings.LastIndexByte(token, '.')]},
		{name: "four segments", token: token + ".extra"},
		{name: "empty signature", token: token[:strings.LastIndexByte(token, '.')+1]},
		{name: "signed missing exp", token: signRaw(t, e, `{"sub":"alice"}`)},
		{name: "signed bad exp", token: signRaw(t, e, `{"exp":"tomorrow"}`)},
		{name: "signed non-json", token: signRaw(t, e, `hello`)},
		{name: "signed nested claims", token: signRaw(t, e, `{"exp":"1","a":{"b":"c"}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.HasExpired(tt.token, testRef)
			assert.ErrorIs(t, err, ErrNotValid)

			_, err = e.ExpiredBySeconds(tt.token, testRef)
			assert.ErrorIs(t, err, ErrNotValid)

			_, err = e.Claims(tt.token, testRef)
			assert.ErrorIs(t, err, ErrNotValid)

			assert.False(t, e.Inspect(tt.token, testRef).Valid)
		})
	}
}

func TestEngineSignedUndecodablePayloadIsStructurallyValid(t *testing.T) {
	e := newTestEngine(t, "secret")
	token := signRaw(t, e, `{"sub":"alice"}`)

	assert.True(t, e.IsStructurallyValid(token))
	_, err := e.HasExpired(token, testRef)
	assert.ErrorIs(t, err, ErrNotValid)
}

func TestEngineMaxTokenSize(t *testing.T) {
	small, err := NewEngine(testSigner{key: []byte("secret")}, 128)
	require.NoError(t, err)
	unlimited, err := NewEngine(testSigner{key: []byte("secret")}, 0)
	require.NoError(t, err)

	claims := map[string]string{"data": strings.Repeat("x", 256)}

	_, err = small.Issue(claims, time.Hour, testRef)
	assert.ErrorIs(t, err, ErrTokenTooLarge)

	token, err := unlimited.Issue(claims, time.Hour, testRef)
	require.NoError(t, err)
	assert.True(t, unlimited.IsStructurallyValid(token))
	assert.False(t, small.IsStructurallyValid(token))
}

func TestEngineInspect(t *testing.T) {
	e := newTestEngine(t, "secret")
	token, err := e.Issue(map[string]string{"sub": "alice"}, time.Minute, testRef)
	require.NoError(t, err)

	t.Run("live", func(t *testing.T) {
		in := e.Inspect(token, testRef)
		assert.True(t, in.Valid)
		assert.False(t, in.Expired)
		assert.Zero(t, in.ExpiredBySec)
		assert.Equal(t, map[string]string{"sub": "alice"}, in.Claims)
		assert.Equal(t, EpochSeconds(testRef.Add(time.Minute)), in.ExpiresAt)
		assert.Equal(t, token[strings.LastIndexByte(token, '.')+1:], in.Signature)
	})

	t.Run("expired", func(t *testing.T) {
		in := e.Inspect(token, testRef.Add(2*time.Minute))
		assert.True(t, in.Valid)
		assert.True(t, in.Expired)
		assert.InDelta(t, 60, in.ExpiredBySec, 1e-3)
		assert.Nil(t, in.Claims)
	})

	t.Run("invalid", func(t *testing.T) {
		in := e.Inspect(token+"x", testRef)
		assert.Equal(t, Inspection{}, in)
	})
}

func TestEngineConcurrentUse(t *testing.T) {
	e := newTestEngine(t, "secret")
	done := make(chan struct{})

	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				token, err := e.Issue(map[string]string{"n": "x"}, time.Minute, testRef)
				if err != nil || !e.IsStructurallyValid(token) {
					t.Error("concurrent issue failed")
					return
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
