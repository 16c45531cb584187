package core

import "context"

// Provider is the contract every data-source adapter satisfies.
//
// GetUsage must translate every recoverable failure into a classified
// Result. A returned error is treated as an adapter fault and demoted to
// StatusError by the Engine. hint, when non-nil, narrows the start of
// remote API queries; local adapters compute their own windows.
type Provider interface {
	ID() string

	DisplayName() string

	// IsAvailable is a cheap existence or reachability probe.
	IsAvailable(ctx context.Context) bool

	// PathsToCheck lists file paths, URLs or "<NAME> environment variable"
	// markers for diagnostics.
	PathsToCheck() []string

	GetUsage(ctx context.Context, hint *TimeRange) (Result, error)
}

// SourceKind describes where a provider reads its data from. Used by the
// list command.
type SourceKind string

const (
	SourceLocal  SourceKind = "local"
	SourceAPI    SourceKind = "api"
	SourceHybrid SourceKind = "local+api"
	SourceLink   SourceKind = "link"
)

// ProviderInfo is optional descriptive metadata a Provider may expose by
// implementing Describer.
type ProviderInfo struct {
	Description string
	Source      SourceKind
	DocURL      string
}

type Describer interface {
	Describe() ProviderInfo
}
