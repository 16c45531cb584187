// Package providerbase holds the identity and runtime dependencies shared
// by every adapter. Adapters embed Base and implement IsAvailable,
// PathsToCheck and GetUsage.
package providerbase

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/logging"
	"github.com/a2zusage/a2zusage/internal/paths"
	"github.com/a2zusage/a2zusage/internal/pricing"
)

// Spec is the static description of an adapter.
type Spec struct {
	ID   string
	Name string
	Info core.ProviderInfo
}

// Deps are the collaborators an adapter reads the outside world through.
// Zero fields fall back to the real environment.
type Deps struct {
	Paths      paths.Resolver
	Pricing    *pricing.Table
	Logger     *slog.Logger
	HTTPClient *http.Client
	Now        func() time.Time
	Getenv     func(string) string
	// Overrides replaces the primary data path of a provider, keyed by ID.
	Overrides map[string]string
}

func (d Deps) withDefaults() Deps {
	if d.Paths.Home == "" && d.Paths.GOOS == "" {
		d.Paths = paths.Default()
	}
	if d.Pricing == nil {
		d.Pricing = pricing.Default()
	}
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Getenv == nil {
		d.Getenv = os.Getenv
	}
	return d
}

type Base struct {
	spec Spec
	deps Deps
	log  *slog.Logger
}

func New(spec Spec, deps Deps) Base {
	if spec.ID == "" {
		spec.ID = "unknown"
	}
	if spec.Name == "" {
		spec.Name = spec.ID
	}
	if spec.Info.Source == "" {
		spec.Info.Source = core.SourceLocal
	}
	deps = deps.withDefaults()
	return Base{spec: spec, deps: deps, log: logging.ForProvider(deps.Logger, spec.ID)}
}

func (b Base) ID() string { return b.spec.ID }

func (b Base) DisplayName() string { return b.spec.Name }

func (b Base) Describe() core.ProviderInfo { return b.spec.Info }

func (b Base) Paths() paths.Resolver { return b.deps.Paths }

func (b Base) Pricing() *pricing.Table { return b.deps.Pricing }

func (b Base) Log() *slog.Logger { return b.log }

func (b Base) HTTPClient() *http.Client { return b.deps.HTTPClient }

func (b Base) Getenv(key string) string { return b.deps.Getenv(key) }

func (b Base) Now() time.Time { return b.deps.Now() }

// Windows returns the reporting windows as of Now.
func (b Base) Windows() core.Windows { return core.WindowsAt(b.deps.Now()) }

// NewAccumulator starts a fresh accumulator for one GetUsage call.
func (b Base) NewAccumulator() *core.Accumulator { return core.NewAccumulator(b.Windows()) }

// PathOr returns the configured override for this provider, or def.
func (b Base) PathOr(def string) string {
	if p, ok := b.deps.Overrides[b.spec.ID]; ok && p != "" {
		return p
	}
	return def
}

// FirstEnv returns the first non-empty value among keys.
func (b Base) FirstEnv(keys ...string) (string, bool) {
	for _, k := range keys {
		if v := b.deps.Getenv(k); v != "" {
			return v, true
		}
	}
	return "", false
}
