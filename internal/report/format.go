// Package report renders collected results as a terminal table, JSON or
// CSV.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/a2zusage/a2zusage/internal/core"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

var formats = []Format{FormatTable, FormatJSON, FormatCSV}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatTable, nil
	}
	for _, known := range formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want table, json or csv)", s)
}

// FormatNumber abbreviates n with a K or M suffix. Zero renders as "-".
func FormatNumber(n uint64) string {
	switch {
	case n == 0:
		return "-"
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatUint(n, 10)
	}
}

// FormatTokens summarises one window: its token total, or its request
// count when no tokens were recorded.
func FormatTokens(u core.UsageData) string {
	total := u.TotalTokens()
	switch {
	case total == 0 && u.RequestCount == 0:
		return "-"
	case total == 0:
		return FormatNumber(u.RequestCount) + " reqs"
	default:
		return FormatNumber(total) + " tokens"
	}
}

func FormatCost(usd float64) string {
	switch {
	case usd <= 0:
		return "-"
	case usd < 0.01:
		return "<$0.01"
	default:
		return fmt.Sprintf("$%.2f", usd)
	}
}

// windowCell is FormatTokens with a "~" marker for estimated results.
func windowCell(u core.UsageData, estimated bool) string {
	s := FormatTokens(u)
	if estimated && s != "-" {
		return "~" + s
	}
	return s
}
