package core

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/samber/lo"
)

// EpochSeconds converts t to fractional seconds since the Unix epoch.
func EpochSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// FromEpochSeconds is the inverse of EpochSeconds, up to float precision.
func FromEpochSeconds(sec float64) time.Time {
	whole := math.Floor(sec)
	return time.Unix(int64(whole), int64((sec-whole)*1e9)).UTC()
}

// FormatEpoch renders seconds the way the exp claim carries them: the
// shortest decimal string that parses back to the same float64.
func FormatEpoch(sec float64) string {
	return strconv.FormatFloat(sec, 'f', -1, 64)
}

// ParseEpoch parses an exp claim value.
func ParseEpoch(value string) (float64, error) {
	sec, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: exp claim is not numeric", ErrDecode)
	}
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		return 0, fmt.Errorf("%w: exp claim is not finite", ErrDecode)
	}
	return sec, nil
}

// withExpiration copies claims and sets exp on the copy. A caller-supplied
// exp is overwritten.
func withExpiration(claims map[string]string, exp float64) map[string]string {
	return lo.Assign(claims, map[string]string{ClaimExpiration: FormatEpoch(exp)})
}

func withoutExpiration(claims map[string]string) map[string]string {
	return lo.OmitByKeys(claims, []string{ClaimExpiration})
}
