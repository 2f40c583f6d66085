package update

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlatform(t *testing.T) {
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, Platform())
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name  string
		notes string
		max   int
		want  []string
	}{
		{name: "empty", notes: "  \n", max: 3, want: nil},
		{name: "fits", notes: "a\nb", max: 3, want: []string{"a", "b"}},
		{name: "exact", notes: "a\nb\nc\n", max: 3, want: []string{"a", "b", "c"}},
		{name: "truncated", notes: "a\nb\nc\nd\ne", max: 2, want: []string{"a", "b", "... (3 more lines)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.notes, tt.max))
		})
	}
}
