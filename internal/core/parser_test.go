package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [3]string
		ok    bool
	}{
		{name: "three parts", input: "a.b.c", want: [3]string{"a", "b", "c"}, ok: true},
		{name: "empty parts", input: "..", want: [3]string{"", "", ""}, ok: true},
		{name: "empty signature", input: "a.b.", want: [3]string{"a", "b", ""}, ok: true},
		{name: "no dots", input: "abc"},
		{name: "one dot", input: "a.b"},
		{name: "four parts", input: "a.b.c.d"},
		{name: "trailing dot", input: "a.b.c."},
		{name: "empty", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, p, s, ok := splitToken(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, [3]string{h, p, s})
			}
		})
	}
}

func TestParsePayload(t *testing.T) {
	segment := func(s string) string { return EncodeSegment([]byte(s)) }

	t.Run("valid", func(t *testing.T) {
		claims, exp, err := parsePayload(segment(`{"exp":"1700000000.5","sub":"alice"}`))
		require.NoError(t, err)
		assert.Equal(t, 1700000000.5, exp)
		assert.Equal(t, "alice", claims["sub"])
	})

	tests := []struct {
		name    string
		payload string
	}{
		{name: "not base64", payload: "!!!"},
		{name: "not json", payload: segment("not json")},
		{name: "missing exp", payload: segment(`{"sub":"alice"}`)},
		{name: "non-numeric exp", payload: segment(`{"exp":"soon"}`)},
		{name: "nan exp", payload: segment(`{"exp":"NaN"}`)},
		{name: "infinite exp", payload: segment(`{"exp":"+Inf"}`)},
		{name: "empty exp", payload: segment(`{"exp":""}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parsePayload(tt.payload)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestEpochSeconds(t *testing.T) {
	ref := time.Date(2024, 1, 1, 0, 0, 0, 500_000_000, time.UTC)
	sec := EpochSeconds(ref)
	assert.Equal(t, 1704067200.5, sec)
	assert.Equal(t, "1704067200.5", FormatEpoch(sec))

	back := FromEpochSeconds(sec)
	assert.WithinDuration(t, ref, back, time.Microsecond)
	assert.Equal(t, time.UTC, back.Location())

	parsed, err := ParseEpoch(FormatEpoch(sec))
	require.NoError(t, err)
	assert.Equal(t, sec, parsed)
}

func TestFormatEpochWholeSeconds(t *testing.T) {
	assert.Equal(t, "1704067200", FormatEpoch(1704067200))
	assert.Equal(t, "0", FormatEpoch(0))
	assert.Equal(t, "-1.25", FormatEpoch(-1.25))
}
