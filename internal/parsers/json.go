package parsers

import (
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// JSONUint reads a counter that may be encoded as a number or a numeric
// string. Negative, fractional-negative and non-numeric values read as zero.
func JSONUint(r gjson.Result) uint64 {
	switch r.Type {
	case gjson.Number:
		return ClampFloatUint(r.Num)
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ClampUint(n)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return ClampFloatUint(f)
		}
	}
	return 0
}

// JSONTime reads a timestamp encoded as an epoch number or a date string.
func JSONTime(r gjson.Result) time.Time {
	switch r.Type {
	case gjson.Number:
		return UnixAuto(r.Int())
	case gjson.String:
		return ParseTimestamp(r.Str)
	}
	return time.Time{}
}

// FirstUint returns the counter at the first of paths that exists in obj.
func FirstUint(obj gjson.Result, paths ...string) (uint64, bool) {
	for _, p := range paths {
		if v := obj.Get(p); v.Exists() && v.Type != gjson.Null {
			return JSONUint(v), true
		}
	}
	return 0, false
}

// FirstTime returns the first parseable timestamp among paths in obj.
func FirstTime(obj gjson.Result, paths ...string) time.Time {
	for _, p := range paths {
		if t := JSONTime(obj.Get(p)); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// JSONFloat reads a float that may be encoded as a number or a string.
func JSONFloat(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		if f := ParseFloat(r.Str); f != nil {
			return *f, true
		}
	}
	return 0, false
}
