package overrides

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/vongform/vongform/internal/kv"
)

// GlobalScope is always fetched alongside the manifest's services.
const GlobalScope = "global"

// DefaultConcurrency bounds the parallel prefix fetches in Collect.
const DefaultConcurrency = 4

// Lister fetches every KV entry under a prefix. A prefix with nothing under
// it returns no entries and no error.
type Lister interface {
	List(ctx context.Context, prefix string) ([]kv.Entry, error)
}

// Scopes returns the de-duplicated, sorted prefixes to fetch for names,
// always including GlobalScope.
func Scopes(names []string) []string {
	seen := map[string]bool{GlobalScope: true}
	scopes := []string{GlobalScope}
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		scopes = append(scopes, n)
	}
	sort.Strings(scopes)
	return scopes
}

// Collect fetches the entries of every scope of names. Fetches run in
// parallel, at most concurrency at a time (DefaultConcurrency if <= 0).
// Results are concatenated in scope order. Any fetch error aborts the
// collection.
func Collect(ctx context.Context, lister Lister, names []string, concurrency int) ([]kv.Entry, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	scopes := Scopes(names)
	results := make([][]kv.Entry, len(scopes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, scope := range scopes {
		g.Go(func() error {
			entries, err := lister.List(gctx, scope)
			if err != nil {
				return fmt.Errorf("fetch overrides for %s: %w", scope, err)
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []kv.Entry
	for _, entries := range results {
		all = append(all, entries...)
	}
	return all, nil
}

// Fetch collects the entries for names and builds the tree.
func Fetch(ctx context.Context, lister Lister, names []string, concurrency int) (*Tree, Stats, error) {
	entries, err := Collect(ctx, lister, names, concurrency)
	if err != nil {
		return nil, Stats{}, err
	}
	tree, stats := Build(entries)
	return tree, stats, nil
}
