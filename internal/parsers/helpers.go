package parsers

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

func ParseFloat(val string) *float64 {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil
	}
	return &f
}

// ClampUint converts a raw signed counter into a usage counter. Negative
// values become zero.
func ClampUint(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

// ClampFloatUint is ClampUint for counters decoded as floating point.
func ClampFloatUint(v float64) uint64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(v)
}

// SplitEstimate divides a combined token count into input and output
// using a fixed 60/40 ratio. The two halves always sum to total.
func SplitEstimate(total uint64) (input, output uint64) {
	input = total / 5 * 3
	input += (total % 5) * 3 / 5
	return input, total - input
}

// UnixAuto interprets ts as seconds, milliseconds or microseconds since the
// epoch depending on its magnitude.
func UnixAuto(ts int64) time.Time {
	switch {
	case ts <= 0:
		return time.Time{}
	case ts > 1_000_000_000_000_000:
		return time.UnixMicro(ts).UTC()
	case ts > 1_000_000_000_000:
		return time.UnixMilli(ts).UTC()
	default:
		return time.Unix(ts, 0).UTC()
	}
}

// naiveLayouts carry no zone; they are read as UTC.
var naiveLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTimestamp accepts RFC 3339 strings, zone-less date-times (as UTC)
// and epoch numbers in seconds, milliseconds or microseconds. It returns
// the zero time when value cannot be parsed.
func ParseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts
		}
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return UnixAuto(n)
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
		return UnixAuto(int64(f))
	}
	return time.Time{}
}

// RedactToken keeps the first and last four characters of a secret.
func RedactToken(val string) string {
	if len(val) > 8 {
		return val[:4] + "..." + val[len(val)-4:]
	}
	return "****"
}

// RedactHeaders flattens headers for debug logging with credentials masked.
func RedactHeaders(headers http.Header, sensitiveKeys ...string) map[string]string {
	sensitive := map[string]bool{
		"authorization": true,
		"x-api-key":     true,
		"cookie":        true,
		"set-cookie":    true,
	}
	for _, k := range sensitiveKeys {
		sensitive[strings.ToLower(k)] = true
	}

	out := make(map[string]string)
	for k, vals := range headers {
		val := strings.Join(vals, ", ")
		if sensitive[strings.ToLower(k)] {
			val = RedactToken(val)
		}
		out[k] = val
	}
	return out
}
