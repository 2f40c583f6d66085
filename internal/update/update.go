// Package update replaces the running vongform binary with the latest
// GitHub release.
package update

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/creativeprojects/go-selfupdate"
)

// GitHub repository releases are published to.
const (
	Owner = "vongform"
	Repo  = "vongform"
)

// Release describes a published version.
type Release struct {
	Version     string
	ReleaseURL  string
	PublishedAt string
	Changelog   string
}

// Check reports the latest release and whether it is newer than current.
func Check(ctx context.Context, current string) (*Release, bool, error) {
	_, latest, err := detect(ctx)
	if err != nil {
		return nil, false, err
	}
	if latest == nil || latest.LessOrEqual(current) {
		return nil, false, nil
	}
	return toRelease(latest), true, nil
}

// Apply installs the latest release over the running executable. It returns
// nil, nil when current is already the latest.
func Apply(ctx context.Context, current string) (*Release, error) {
	updater, latest, err := detect(ctx)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("no releases found for %s/%s", Owner, Repo)
	}
	if latest.LessOrEqual(current) {
		return nil, nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return nil, fmt.Errorf("replace binary: %w", err)
	}
	return toRelease(latest), nil
}

// Platform returns "os/arch" of the running binary.
func Platform() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}

// Summarize returns at most max lines of notes, with a trailing marker
// counting the lines left out.
func Summarize(notes string, max int) []string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil
	}
	lines := strings.Split(notes, "\n")
	if len(lines) <= max {
		return lines
	}
	out := append([]string(nil), lines[:max]...)
	return append(out, fmt.Sprintf("... (%d more lines)", len(lines)-max))
}

func detect(ctx context.Context) (*selfupdate.Updater, *selfupdate.Release, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, nil, fmt.Errorf("create update source: %w", err)
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: source})
	if err != nil {
		return nil, nil, fmt.Errorf("create updater: %w", err)
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(Owner, Repo))
	if err != nil {
		return nil, nil, fmt.Errorf("detect latest release: %w", err)
	}
	if !found {
		return updater, nil, nil
	}
	return updater, latest, nil
}

func toRelease(r *selfupdate.Release) *Release {
	return &Release{
		Version:     r.Version(),
		ReleaseURL:  r.URL,
		PublishedAt: r.PublishedAt.Format("2006-01-02"),
		Changelog:   r.ReleaseNotes,
	}
}
