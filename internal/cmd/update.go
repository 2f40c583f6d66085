package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vongform/vongform/internal/ui"
	"github.com/vongform/vongform/internal/update"
)

// changelogLines caps how much of the release notes is printed.
const changelogLines = 10

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"upgrade", "selfupdate"},
	Short:   "Update vongform to the latest version",
	Long: `Update vongform to the latest version from GitHub releases.

Examples:
  vongform update           # Update to latest version
  vongform update --check   # Check for updates without installing`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

var checkOnly bool

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().BoolVar(&checkOnly, "check", false, "Only check for updates, don't install")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ui.Info("Current version: %s (%s)", version, update.Platform())
	ui.Info("Checking for updates...")

	if checkOnly {
		release, available, err := update.Check(ctx, version)
		if err != nil {
			return fmt.Errorf("check for updates: %w", err)
		}
		if !available {
			ui.Success("You're running the latest version!")
			return nil
		}
		ui.Success("New version available: %s (released %s)", release.Version, release.PublishedAt)
		ui.Info("To update, run: vongform update")
		printChangelog(release.Changelog)
		return nil
	}

	release, err := update.Apply(ctx, version)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if release == nil {
		ui.Success("You're already running the latest version!")
		return nil
	}

	ui.Success("Successfully updated to version %s!", release.Version)
	printChangelog(release.Changelog)
	return nil
}

func printChangelog(notes string) {
	lines := update.Summarize(notes, changelogLines)
	if len(lines) == 0 {
		return
	}
	ui.Yellow.Fprintln(ui.Out, "What's new:")
	for _, l := range lines {
		fmt.Fprintf(ui.Out, "  %s\n", l)
	}
}
