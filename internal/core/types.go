package core

// Status classifies one provider invocation. The set is closed.
type Status string

const (
	StatusActive       Status = "active"
	StatusUnsupported  Status = "unsupported"
	StatusNotFound     Status = "not_found"
	StatusNoKey        Status = "no_key"
	StatusAuthRequired Status = "auth_required"
	StatusError        Status = "error"
	StatusLinkOnly     Status = "link_only"
)

var AllStatuses = []Status{
	StatusActive,
	StatusUnsupported,
	StatusNotFound,
	StatusNoKey,
	StatusAuthRequired,
	StatusError,
	StatusLinkOnly,
}

func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label is the short human-readable form used in reports.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusUnsupported:
		return "Unsupported"
	case StatusNotFound:
		return "N/A"
	case StatusNoKey:
		return "No Key"
	case StatusAuthRequired:
		return "Auth"
	case StatusError:
		return "Error"
	case StatusLinkOnly:
		return "Link"
	default:
		return "Unknown"
	}
}

func (s Status) Icon() string {
	switch s {
	case StatusActive:
		return "✓"
	case StatusUnsupported, StatusNotFound:
		return "○"
	case StatusNoKey, StatusError:
		return "✗"
	case StatusAuthRequired:
		return "⚠"
	case StatusLinkOnly:
		return "→"
	default:
		return "?"
	}
}

// Title is the long human-readable form used in CSV output.
func (s Status) Title() string {
	switch s {
	case StatusAuthRequired:
		return "Auth Required"
	case StatusLinkOnly:
		return "Link Only"
	default:
		return s.Label()
	}
}
