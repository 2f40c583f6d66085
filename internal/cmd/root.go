// Package cmd provides the CLI commands for vongform.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vongform/vongform/internal/chart"
	"github.com/vongform/vongform/internal/config"
	"github.com/vongform/vongform/internal/kv"
	"github.com/vongform/vongform/internal/logging"
	"github.com/vongform/vongform/internal/store"
	"github.com/vongform/vongform/internal/ui"
	"github.com/vongform/vongform/internal/umbrella"
)

var version = "0.1.0"

// rootCmd updates the manifest and writes the umbrella chart.
var rootCmd = &cobra.Command{
	Use:   "vongform",
	Short: "Umbrella Helm chart generator backed by Consul KV",
	Long: `vongform - umbrella charts from Consul

Reads the dependency manifest stored in Consul, applies the requested
version changes, collects value overrides for every dependency from the
KV tree, writes an umbrella chart, and commits the manifest back with a
check-and-set on the revision it read.

  --set NAME=VERSION    Set a dependency's version, adding it if missing
  --set NAME=           Remove a dependency
  --dry-run, -n         Show what would be written without touching anything
  --diff, -d            Show the manifest diff before writing

Values for a dependency live under "<name>/..." in Consul; values shared by
every dependency live under "global/...".

Examples:
  vongform --set auth=1.4.2 --set billing=
  vongform -o build/chart -r https://charts.example.com --set search=0.3.0
  vongform --dry-run --diff --set auth=1.5.0`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Out = cmd.OutOrStdout()
		ui.ErrOut = cmd.ErrOrStderr()
		return ui.SetColorMode(colorMode)
	},
	RunE: runUmbrella,
}

var (
	settings  []string
	dryRun    bool
	showDiff  bool
	colorMode string
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	config.RegisterFlags(flags)
	flags.StringArrayVar(&settings, "set", nil, "set NAME=VERSION, or NAME= to remove (repeatable)")
	flags.BoolVarP(&dryRun, "dry-run", "n", false, "show what would be written without writing or committing")
	flags.BoolVarP(&showDiff, "diff", "d", false, "show the manifest diff")

	rootCmd.PersistentFlags().StringVar(&colorMode, "color", ui.ColorAuto, "color output: auto, always, never")

	_ = rootCmd.RegisterFlagCompletionFunc("set", completeSettings)
	_ = rootCmd.RegisterFlagCompletionFunc("color", completeFixed(ui.ColorAuto, ui.ColorAlways, ui.ColorNever))
	_ = rootCmd.RegisterFlagCompletionFunc(config.FlagLogLevel, completeFixed("debug", "info", "warn", "error"))

	rootCmd.SetVersionTemplate("vongform version {{.Version}}\n")
}

func runUmbrella(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := logging.NewWithWriter(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger = logger.With(zap.String("run", uuid.New().String()[:8]))
	if cfg.ConfigFile != "" {
		logger.Debug("loaded config file", zap.String("path", cfg.ConfigFile))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := kv.NewClient(cfg.ConsulAddr, kv.WithToken(cfg.ConsulToken), kv.WithTimeout(cfg.Timeout))
	runner := umbrella.NewRunner(client, cfg.Key, umbrella.WithLogger(logger))

	res, err := runner.Run(ctx, umbrella.Options{
		Settings:    settings,
		OutputDir:   cfg.OutputDir,
		Repository:  cfg.Repository,
		DryRun:      dryRun,
		Diff:        showDiff,
		Concurrency: cfg.Concurrency,
	})
	if res == nil {
		return err
	}

	report(res, cfg)

	var stale *umbrella.StaleOutputError
	if errors.As(err, &stale) && errors.Is(err, store.ErrConflict) {
		ui.Warning("%s changed in Consul while this run was in progress.", cfg.Key)
		ui.Warning("The files in %s do not match the stored manifest. Re-run to regenerate them.", stale.OutputDir)
	}
	return err
}

func report(res *umbrella.Result, cfg *config.Config) {
	if showDiff {
		if res.Diff == "" {
			ui.Info("Manifest %s unchanged", cfg.Key)
		} else {
			ui.Diff(res.Diff)
		}
	}

	if dryRun {
		ui.Header("# %s", chart.RequirementsFile)
		fmt.Fprint(ui.Out, string(res.Files.Requirements))
		ui.Header("# %s", chart.ValuesFile)
		fmt.Fprint(ui.Out, string(res.Files.Values))
		ui.Info("Dry run: nothing written to %s, %s not committed", cfg.OutputDir, cfg.Key)
		return
	}

	for _, path := range res.Written {
		ui.Package("Wrote %s", path)
	}
	if n := len(res.Stats.Skipped); n > 0 {
		ui.Warning("Skipped %d unreadable override entries", n)
	}
	if res.Committed {
		ui.Success("Committed %s (%d dependencies)", cfg.Key, len(res.Requirements))
	}
}
