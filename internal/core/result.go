package core

import "fmt"

// Result is the terminal classification of one GetUsage call. Only an
// active result carries Usage. Error holds the failure message for error
// results and the reason for unsupported ones.
type Result struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Status      Status      `json:"status"`
	Usage       *UsageStats `json:"usage,omitempty"`
	Error       string      `json:"error,omitempty"`
	DataSource  string      `json:"data_source,omitempty"`
	Estimated   bool        `json:"estimated,omitempty"` // counters include a heuristic input/output split
}

func Active(stats UsageStats, source string) Result {
	return Result{Status: StatusActive, Usage: &stats, DataSource: source}
}

// EstimatedActive is Active for stats whose split between input and output
// was guessed from a combined count.
func EstimatedActive(stats UsageStats, source string) Result {
	r := Active(stats, source)
	r.Estimated = true
	return r
}

func Unsupported(reason, source string) Result {
	return Result{Status: StatusUnsupported, Error: reason, DataSource: source}
}

func NotFound() Result {
	return Result{Status: StatusNotFound}
}

func NoKey() Result {
	return Result{Status: StatusNoKey}
}

func AuthRequired() Result {
	return Result{Status: StatusAuthRequired}
}

func Errorf(format string, args ...any) Result {
	return Result{Status: StatusError, Error: fmt.Sprintf(format, args...)}
}

func LinkOnly(url string) Result {
	return Result{Status: StatusLinkOnly, DataSource: url}
}

// WithIdentity returns r labelled with the given provider identity.
func (r Result) WithIdentity(name, displayName string) Result {
	r.Name = name
	r.DisplayName = displayName
	return r
}

func (r Result) IsActive() bool {
	return r.Status == StatusActive
}

// Stats returns the usage payload, or zero stats for non-active results.
func (r Result) Stats() UsageStats {
	if r.Usage == nil {
		return UsageStats{}
	}
	return *r.Usage
}

// normalize enforces the field optionality of each status.
func (r Result) normalize() Result {
	if !r.Status.Valid() {
		return Errorf("provider returned unknown status %q", r.Status)
	}
	switch r.Status {
	case StatusActive:
		if r.Usage == nil {
			r.Usage = &UsageStats{}
		}
		r.Error = ""
	case StatusError:
		r.Usage = nil
		r.DataSource = ""
		r.Estimated = false
		if r.Error == "" {
			r.Error = "unknown error"
		}
	case StatusUnsupported, StatusLinkOnly:
		r.Usage = nil
		r.Estimated = false
		if r.Status == StatusLinkOnly {
			r.Error = ""
		}
	default:
		r.Usage = nil
		r.Error = ""
		r.DataSource = ""
		r.Estimated = false
	}
	return r
}
