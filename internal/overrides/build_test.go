package overrides

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vongform/vongform/internal/kv"
)

func entry(key, value string) kv.Entry {
	return kv.Entry{Key: key, Value: base64.StdEncoding.EncodeToString([]byte(value))}
}

func TestBuild(t *testing.T) {
	t.Run("siblings under one node", func(t *testing.T) {
		tree, stats := Build([]kv.Entry{entry("a/b", "X"), entry("a/c", "Y")})

		want := Node()
		want.Insert([]string{"a", "b"}, "X")
		want.Insert([]string{"a", "c"}, "Y")
		assert.True(t, want.Equal(tree))
		assert.Equal(t, 2, stats.Inserted)
		assert.Empty(t, stats.Skipped)
	})

	t.Run("shorter key leaf is discarded by longer key", func(t *testing.T) {
		tree, _ := Build([]kv.Entry{entry("a", "X"), entry("a/b", "Y")})

		a, ok := tree.Child("a")
		require.True(t, ok)
		assert.False(t, a.IsLeaf())
		b, ok := a.Child("b")
		require.True(t, ok)
		assert.Equal(t, "Y", b.Text())
	})

	t.Run("collision result does not depend on input order", func(t *testing.T) {
		forward, _ := Build([]kv.Entry{entry("a", "X"), entry("a/b", "Y")})
		reverse, _ := Build([]kv.Entry{entry("a/b", "Y"), entry("a", "X")})
		assert.True(t, forward.Equal(reverse))
	})

	t.Run("ordered build honors given order", func(t *testing.T) {
		tree, _ := BuildOrdered([]kv.Entry{entry("a/b", "Y"), entry("a", "X")})
		a, ok := tree.Child("a")
		require.True(t, ok)
		assert.True(t, a.IsLeaf())
		assert.Equal(t, "X", a.Text())
	})

	t.Run("bad entries are skipped", func(t *testing.T) {
		tree, stats := Build([]kv.Entry{
			entry("svc/good", "ok"),
			{Key: "svc/not-base64", Value: "%%%"},
			{Key: "svc/binary", Value: base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe})},
			{Key: "svc/folder/"},
		})

		assert.Equal(t, 1, stats.Inserted)
		assert.ElementsMatch(t, []Skipped{
			{Key: "svc/not-base64", Reason: SkipBase64},
			{Key: "svc/binary", Reason: SkipUTF8},
			{Key: "svc/folder/", Reason: SkipFolder},
		}, stats.Skipped)

		svc, ok := tree.Child("svc")
		require.True(t, ok)
		assert.Equal(t, []string{"good"}, svc.Keys())
	})

	t.Run("no entries gives empty node", func(t *testing.T) {
		tree, stats := Build(nil)
		assert.Equal(t, KindNode, tree.Kind())
		assert.Equal(t, 0, tree.Len())
		assert.Equal(t, 0, stats.Inserted)
	})

	t.Run("does not reorder the caller's slice", func(t *testing.T) {
		in := []kv.Entry{entry("b", "1"), entry("a", "2")}
		Build(in)
		assert.Equal(t, "b", in[0].Key)
	})
}
