package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vongform/vongform/internal/config"
	"github.com/vongform/vongform/internal/kv"
	"github.com/vongform/vongform/internal/store"
)

// Completion timeout to avoid hanging shell.
const completionTimeout = 2 * time.Second

// completeSettings completes --set with "name=" for every dependency in the
// stored manifest.
func completeSettings(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Already past the name.
	if strings.Contains(toComplete, "=") {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()

	client := kv.NewClient(cfg.ConsulAddr, kv.WithToken(cfg.ConsulToken), kv.WithTimeout(completionTimeout))
	rec, err := store.New(client, cfg.Key).Fetch(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, r := range rec.Requirements {
		if strings.HasPrefix(r.Name, toComplete) {
			names = append(names, r.Name+"=")
		}
	}

	return names, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

// completeFixed completes from a fixed list of values.
func completeFixed(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, v := range values {
			if strings.HasPrefix(v, toComplete) {
				out = append(out, v)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}
