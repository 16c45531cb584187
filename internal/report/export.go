package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/a2zusage/a2zusage/internal/core"
)

var csvHeader = []string{
	"Tool", "Status",
	"Today Input", "Today Output",
	"Month Input", "Month Output",
	"Total Input", "Total Output",
	"Est Cost",
}

// WriteJSON writes results as an indented JSON array. Field presence
// follows each status: usage only for active results.
func WriteJSON(w io.Writer, results []core.Result) error {
	if results == nil {
		results = []core.Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// WriteCSV writes one row per result. Non-active results carry zeros.
func WriteCSV(w io.Writer, results []core.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	for _, r := range results {
		s := r.Stats()
		record := []string{
			r.DisplayName,
			r.Status.Title(),
			u64(s.Today.InputTokens), u64(s.Today.OutputTokens),
			u64(s.ThisMonth.InputTokens), u64(s.ThisMonth.OutputTokens),
			u64(s.Total.InputTokens), u64(s.Total.OutputTokens),
			strconv.FormatFloat(s.Total.EstimatedCost, 'f', 2, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }
