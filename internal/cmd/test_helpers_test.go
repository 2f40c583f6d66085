package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/pflag"
)

// resetRootCmd resets the root command state for test isolation.
// Cobra commands are package globals, so flag values and the parsed
// settings would otherwise leak from one test into the next.
func resetRootCmd(t *testing.T) {
	t.Helper()

	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	rootCmd.Flags().VisitAll(reset)
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, cmd := range rootCmd.Commands() {
		cmd.SetContext(context.TODO())
		cmd.Flags().VisitAll(reset)
	}
	rootCmd.SetContext(context.TODO())
}

// isolateEnv keeps the user's environment and config files out of a test.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		"CONSUL_HTTP_ADDR", "CONSUL_HTTP_TOKEN",
		"VONGFORM_OUTPUT_DIR", "VONGFORM_DEFAULT_REPOSITORY", "VONGFORM_CONFIG",
		"VONGFORM_KEY", "VONGFORM_TIMEOUT", "VONGFORM_LOG_LEVEL", "VONGFORM_CONCURRENCY",
	} {
		t.Setenv(env, "")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)
}

// executeCmd executes the root command with the given args and returns
// stdout and stderr.
func executeCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetRootCmd(t)

	var stdout, stderr bytes.Buffer
	// Important: Set args BEFORE setting output buffers
	rootCmd.SetArgs(append([]string{"--color", "never"}, args...))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}
