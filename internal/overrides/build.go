package overrides

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/vongform/vongform/internal/kv"
)

// Skip reasons reported in Stats.
const (
	SkipBase64 = "value is not valid base64"
	SkipUTF8   = "value is not valid UTF-8"
	SkipFolder = "key is a folder"
)

// Skipped describes an entry left out of the tree.
type Skipped struct {
	Key    string
	Reason string
}

// Stats summarizes a Build.
type Stats struct {
	Inserted int
	Skipped  []Skipped
}

// Build turns entries into a tree.
//
// Entries are processed in key order, so the result does not depend on the
// order the store returned them in. When a key is a prefix of another
// ("a" and "a/b"), the longer key is processed last and wins.
//
// An entry whose value does not decode is skipped and reported in Stats;
// it never fails the build.
func Build(entries []kv.Entry) (*Tree, Stats) {
	sorted := make([]kv.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})

	return BuildOrdered(sorted)
}

// BuildOrdered is Build without the sort; entries are inserted exactly in
// the order given.
func BuildOrdered(entries []kv.Entry) (*Tree, Stats) {
	root := Node()
	var stats Stats

	for _, e := range entries {
		// Folder placeholders ("svc/") carry no value.
		if strings.HasSuffix(e.Key, "/") {
			stats.Skipped = append(stats.Skipped, Skipped{Key: e.Key, Reason: SkipFolder})
			continue
		}

		raw, err := e.Decode()
		if err != nil {
			stats.Skipped = append(stats.Skipped, Skipped{Key: e.Key, Reason: SkipBase64})
			continue
		}
		if !utf8.Valid(raw) {
			stats.Skipped = append(stats.Skipped, Skipped{Key: e.Key, Reason: SkipUTF8})
			continue
		}

		root.Insert(strings.Split(e.Key, "/"), string(raw))
		stats.Inserted++
	}

	return root, stats
}
