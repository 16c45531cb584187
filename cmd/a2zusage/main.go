package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/a2zusage/a2zusage/internal/config"
	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/logging"
	"github.com/a2zusage/a2zusage/internal/paths"
	"github.com/a2zusage/a2zusage/internal/providers"
	"github.com/a2zusage/a2zusage/internal/providers/providerbase"
	"github.com/a2zusage/a2zusage/internal/report"
	"github.com/a2zusage/a2zusage/internal/tui"
)

// app carries the process boundary so commands can run against buffers
// and a fake home in tests.
type app struct {
	in          io.Reader
	out         io.Writer
	errOut      io.Writer
	interactive bool
	resolver    paths.Resolver
	now         func() time.Time
	// skipEnv leaves the process environment untouched.
	skipEnv bool

	configPath string
	verbose    bool
}

func newApp() *app {
	return &app{
		in:          os.Stdin,
		out:         os.Stdout,
		errOut:      os.Stderr,
		interactive: term.IsTerminal(int(os.Stdout.Fd())),
		resolver:    paths.Default(),
		now:         time.Now,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(newApp())
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type usageFlags struct {
	tool   string
	format string
}

func newRootCommand(a *app) *cobra.Command {
	var flags usageFlags

	root := &cobra.Command{
		Use:           "a2zusage",
		Short:         "a2zusage reports token usage and estimated spend across AI coding tools.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runUsage(cmd.Context(), flags)
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+config.ConfigPath()+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "show data sources and info logs")
	root.Flags().StringVarP(&flags.tool, "tool", "t", "", "only query tools whose ID or name contains this value")
	root.Flags().StringVarP(&flags.format, "format", "f", string(report.FormatTable), "output format: table, json or csv")

	root.AddCommand(
		newDoctorCommand(a),
		newListCommand(a),
		newVersionCommand(a),
		newKeyCommand(a),
		newConfigCommand(a),
	)
	return root
}

func (a *app) logger() *slog.Logger {
	return logging.Setup(logging.Options{Verbose: a.verbose, Output: a.errOut})
}

func (a *app) loadConfig() (config.Config, error) {
	path := a.resolvedConfigPath()
	cfg, err := config.LoadFrom(path)
	if err != nil {
		fmt.Fprintf(a.errOut, "Config path: %s\n", path)
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// allProviders builds every enabled adapter for one run.
func (a *app) allProviders(cfg config.Config, logger *slog.Logger) []core.Provider {
	deps := providerbase.Deps{
		Paths:     a.resolver,
		Pricing:   cfg.PricingTable(),
		Logger:    logger,
		Now:       a.now,
		Overrides: cfg.Paths,
	}
	return providers.Enabled(providers.AllProviders(deps), cfg.Enabled)
}

func (a *app) runUsage(ctx context.Context, flags usageFlags) error {
	format, err := report.ParseFormat(flags.format)
	if err != nil {
		return err
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	logger := a.logger()
	if err := a.loadCredentials(); err != nil {
		logger.Warn("loading credentials", "error", err)
	}

	selected := providers.Filter(a.allProviders(cfg, logger), flags.tool)
	if len(selected) == 0 {
		fmt.Fprintln(a.out, "No matching providers found.")
		return nil
	}

	opts := []core.Option{
		core.WithTimeout(cfg.Timeout),
		core.WithConcurrency(cfg.Concurrency),
		core.WithLogger(logger),
	}
	collect := func(ctx context.Context, observe func(int, core.Result)) []core.Result {
		engineOpts := append([]core.Option{}, opts...)
		if observe != nil {
			engineOpts = append(engineOpts, core.WithObserver(observe))
		}
		return core.NewEngine(engineOpts...).Collect(ctx, selected)
	}

	var results []core.Result
	switch {
	case format != report.FormatTable:
		results = collect(ctx, nil)
	case a.interactive:
		fmt.Fprintf(a.out, "\n  %s\n\n", tui.BannerStyle.Render(report.Banner))
		names := lo.Map(selected, func(p core.Provider, _ int) string { return p.DisplayName() })
		results, err = tui.Scan(ctx, a.in, a.out, names, collect)
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(a.errOut, "Scan cancelled.")
			return err
		}
		if err != nil {
			return err
		}
	default:
		fmt.Fprintf(a.out, "\n  %s\n\n", report.Banner)
		fmt.Fprintln(a.out, "Scanning AI tools...")
		fmt.Fprintln(a.out)
		results = collect(ctx, nil)
	}

	return report.Render(a.out, format, results, report.Options{
		Color:   a.interactive,
		Verbose: a.verbose,
	})
}
