package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/x/ansi"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/a2zusage/a2zusage/internal/appupdate"
	"github.com/a2zusage/a2zusage/internal/config"
	"github.com/a2zusage/a2zusage/internal/doctor"
	"github.com/a2zusage/a2zusage/internal/parsers"
	"github.com/a2zusage/a2zusage/internal/providers"
	"github.com/a2zusage/a2zusage/internal/report"
	"github.com/a2zusage/a2zusage/internal/tui"
	"github.com/a2zusage/a2zusage/internal/version"
)

func (a *app) printBanner() {
	fmt.Fprintf(a.out, "\n  %s\n\n", a.style(tui.BannerStyle.Render(report.Banner)))
}

// style drops ANSI codes when stdout is not a terminal.
func (a *app) style(s string) string {
	if a.interactive {
		return s
	}
	return ansi.Strip(s)
}

func newDoctorCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check which tool data locations exist on this machine",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if err := a.loadCredentials(); err != nil {
				a.logger().Warn("loading credentials", "error", err)
			}

			a.printBanner()
			fmt.Fprintln(a.out, a.style(tui.LinkStyle.Render("Running diagnostics...")))
			fmt.Fprintln(a.out)

			all := a.allProviders(cfg, a.logger())
			res := doctor.Run(all, doctor.Options{Getenv: a.getenv})
			return doctor.Write(a.out, res, a.interactive)
		},
	}
}

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List supported tools and their IDs",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			a.printBanner()
			fmt.Fprintln(a.out, a.style(tui.HeaderStyle.Render("Supported AI Coding Tools:")))
			fmt.Fprintln(a.out)

			for _, p := range a.allProviders(config.Config{Paths: cfg.Paths}, a.logger()) {
				info := providers.Describe(p)
				desc := info.Description
				if desc == "" {
					desc = string(info.Source)
				}
				fmt.Fprintf(a.out, "  %s %s (%s)\n",
					a.style(tui.LinkStyle.Render("•")),
					a.style(tui.ValueStyle.Bold(true).Render(p.DisplayName())),
					a.style(tui.DimStyle.Render(desc)))
				fmt.Fprintf(a.out, "    ID: %s  source: %s",
					a.style(tui.DimStyle.Render(p.ID())), info.Source)
				if !cfg.Enabled(p.ID()) {
					fmt.Fprint(a.out, "  (disabled)")
				}
				fmt.Fprintln(a.out)
			}

			fmt.Fprintf(a.out, "\n%s\n", a.style(tui.HeaderStyle.Render("Usage:")))
			fmt.Fprintln(a.out, "  a2zusage              # Query all tools")
			fmt.Fprintln(a.out, "  a2zusage -t cursor    # Query specific tool")
			fmt.Fprintln(a.out, "  a2zusage -f json      # Output as JSON")
			fmt.Fprintln(a.out, "  a2zusage doctor       # Check data locations")
			return nil
		},
	}
}

func newVersionCommand(a *app) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(a.out, "a2zusage %s\n", version.String())
			if !check {
				return nil
			}

			res, err := appupdate.Check(cmd.Context(), appupdate.CheckOptions{
				CurrentVersion: version.Version,
				Getenv:         a.getenv,
			})
			if err != nil {
				return fmt.Errorf("checking for updates: %w", err)
			}
			switch {
			case res.LatestVersion == "":
				fmt.Fprintln(a.out, "development build, skipping update check")
			case res.UpdateAvailable:
				fmt.Fprintf(a.out, "update available: %s -> %s\n", res.CurrentVersion, res.LatestVersion)
				fmt.Fprintf(a.out, "  %s\n", res.UpgradeHint)
			default:
				fmt.Fprintf(a.out, "up to date (%s)\n", res.CurrentVersion)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	return cmd
}

func newKeyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage API keys stored in " + config.CredentialsPath(),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set NAME VALUE",
		Short: "Store an API key",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			name := strings.ToUpper(strings.TrimSpace(args[0]))
			if err := config.SaveCredentialTo(a.credentialsPath(), name, strings.TrimSpace(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s saved\n", name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm NAME",
		Aliases: []string{"delete"},
		Short:   "Remove a stored API key",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name := strings.ToUpper(strings.TrimSpace(args[0]))
			if err := config.DeleteCredentialFrom(a.credentialsPath(), name); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s removed\n", name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show stored and environment API keys, redacted",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			stored, err := config.LoadCredentialsFrom(a.credentialsPath())
			if err != nil {
				return err
			}
			names := append([]string{}, config.CredentialKeys...)
			for k := range stored {
				if !lo.Contains(names, k) {
					names = append(names, k)
				}
			}
			sort.Strings(names[len(config.CredentialKeys):])

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSOURCE\tVALUE")
			for _, name := range names {
				source, value := "-", ""
				if v, ok := stored[name]; ok {
					source, value = "stored", v
				} else if v := a.getenv(name); v != "" {
					source, value = "env", v
				}
				shown := "-"
				if value != "" {
					shown = parsers.RedactToken(value)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, source, shown)
			}
			return w.Flush()
		},
	})
	return cmd
}

func (a *app) getenv(key string) string {
	if a.resolver.Getenv == nil {
		return os.Getenv(key)
	}
	return a.resolver.Getenv(key)
}

// loadCredentials exports ./.env and the stored credentials into the
// process environment.
func (a *app) loadCredentials() error {
	if a.skipEnv {
		return nil
	}
	return config.LoadEnvFrom(".env", a.credentialsPath())
}

func (a *app) credentialsPath() string {
	if a.configPath != "" {
		return config.CredentialsPathIn(filepath.Dir(a.configPath))
	}
	return config.CredentialsPath()
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(a.out, a.resolvedConfigPath())
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := a.resolvedConfigPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.SaveTo(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func (a *app) resolvedConfigPath() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.ConfigPath()
}
