// Package umbrella runs one vongform update of the umbrella chart.
//
// A run fetches the manifest and its revision, applies the requested
// version settings, rebuilds the values tree from the store, writes the
// chart directory, and commits the manifest with a check-and-set on the
// revision it fetched. A conflict at that last step is fatal and is not
// retried. The chart directory has already been written by then and no
// longer matches the store.
package umbrella

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vongform/vongform/internal/chart"
	"github.com/vongform/vongform/internal/lock"
	"github.com/vongform/vongform/internal/manifest"
	"github.com/vongform/vongform/internal/overrides"
	"github.com/vongform/vongform/internal/store"
)

// Backend is the KV access a run needs. *kv.Client implements it.
type Backend interface {
	store.Backend
	overrides.Lister
}

// Options describes one run.
type Options struct {
	// Settings are the raw "name=version" arguments.
	Settings []string

	// OutputDir receives the chart.
	OutputDir string

	// Repository, when non-nil, is set on every dependency given a version.
	Repository *string

	// DryRun renders without writing files or committing.
	DryRun bool

	// Diff computes a diff between the stored and the updated manifest.
	Diff bool

	// Concurrency bounds the parallel override fetches.
	Concurrency int
}

// Result describes what a run did.
type Result struct {
	Previous     *store.Record
	Requirements []manifest.Requirement
	Tree         *overrides.Tree
	Stats        overrides.Stats
	Files        *chart.Files
	GeneratedAt  time.Time

	// Diff is set when Options.Diff was requested and the manifest changed.
	Diff string

	// Written lists the files written, in order.
	Written []string

	// Committed is true once the store accepted the new manifest.
	Committed bool
}

// StaleOutputError reports a commit that failed after the chart directory
// was already written.
type StaleOutputError struct {
	OutputDir string
	Err       error
}

func (e *StaleOutputError) Error() string {
	return fmt.Sprintf("chart in %s was written but the manifest was not committed: %v", e.OutputDir, e.Err)
}

func (e *StaleOutputError) Unwrap() error {
	return e.Err
}

// Runner performs runs against one manifest key.
type Runner struct {
	backend Backend
	store   *store.Store
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithClock replaces time.Now for the generation timestamp.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a runner for the manifest stored under key.
func NewRunner(backend Backend, key string, opts ...Option) *Runner {
	r := &Runner{
		backend: backend,
		store:   store.New(backend, key),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one update. Settings are validated before the store is
// contacted. On a commit conflict the error wraps store.ErrConflict inside
// a *StaleOutputError.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	settings, err := manifest.ParseSettings(opts.Settings)
	if err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	log := r.logger.With(zap.String("key", r.store.Key()))

	rec, err := r.store.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug("fetched manifest",
		zap.Bool("exists", rec.Exists),
		zap.Uint64("modify_index", rec.Token),
		zap.Int("dependencies", len(rec.Requirements)),
	)

	reqs := manifest.Apply(rec.Requirements, settings, opts.Repository)
	log.Debug("applied settings", zap.Int("settings", len(settings)), zap.Int("dependencies", len(reqs)))

	tree, stats, err := overrides.Fetch(ctx, r.backend, manifest.Names(reqs), opts.Concurrency)
	if err != nil {
		return nil, err
	}
	for _, s := range stats.Skipped {
		log.Warn("skipped override entry", zap.String("entry", s.Key), zap.String("reason", s.Reason))
	}
	log.Debug("built overrides", zap.Int("entries", stats.Inserted))

	generatedAt := r.now()
	files, err := chart.Render(reqs, tree, generatedAt)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Previous:     rec,
		Requirements: reqs,
		Tree:         tree,
		Stats:        stats,
		Files:        files,
		GeneratedAt:  generatedAt,
	}

	if opts.Diff {
		diff, err := ManifestDiff(r.store.Key(), rec.Requirements, reqs)
		if err != nil {
			return nil, err
		}
		res.Diff = diff
	}

	if opts.DryRun {
		log.Info("dry run, nothing written")
		return res, nil
	}

	err = lock.WithLock(opts.OutputDir, func() error {
		written, err := chart.Write(opts.OutputDir, files)
		res.Written = written
		return err
	})
	if err != nil {
		return res, fmt.Errorf("emit chart: %w", err)
	}
	log.Info("wrote chart", zap.String("dir", opts.OutputDir), zap.Int("files", len(res.Written)))

	if err := r.store.Commit(ctx, rec, reqs); err != nil {
		if errors.Is(err, store.ErrConflict) {
			log.Error("manifest changed during run", zap.Uint64("modify_index", rec.Token))
		}
		return res, &StaleOutputError{OutputDir: opts.OutputDir, Err: err}
	}
	res.Committed = true
	log.Info("committed manifest", zap.Int("dependencies", len(reqs)))

	return res, nil
}
