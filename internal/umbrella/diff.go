package umbrella

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/vongform/vongform/internal/manifest"
)

// ManifestDiff returns a unified diff between the encoded before and after
// manifests, or "" when they are identical.
func ManifestDiff(key string, before, after []manifest.Requirement) (string, error) {
	a, err := manifest.Encode(before)
	if err != nil {
		return "", err
	}
	b, err := manifest.Encode(after)
	if err != nil {
		return "", err
	}
	if string(a) == string(b) {
		return "", nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: fmt.Sprintf("%s (stored)", key),
		ToFile:   fmt.Sprintf("%s (updated)", key),
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff manifest: %w", err)
	}
	return out, nil
}
