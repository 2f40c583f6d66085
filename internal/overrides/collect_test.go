package overrides

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vongform/vongform/internal/kv"
	"github.com/vongform/vongform/internal/kv/kvtest"
)

type fakeLister struct {
	mu      sync.Mutex
	data    map[string][]kv.Entry
	fail    map[string]error
	fetched []string
}

func (f *fakeLister) List(_ context.Context, prefix string) ([]kv.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, prefix)
	if err := f.fail[prefix]; err != nil {
		return nil, err
	}
	return f.data[prefix], nil
}

func TestScopes(t *testing.T) {
	assert.Equal(t, []string{"global"}, Scopes(nil))
	assert.Equal(t, []string{"auth", "global", "sessions"}, Scopes([]string{"sessions", "auth", "sessions", ""}))
	assert.Equal(t, []string{"global"}, Scopes([]string{"global"}))
}

func TestCollect(t *testing.T) {
	t.Run("fetches every scope including global", func(t *testing.T) {
		f := &fakeLister{data: map[string][]kv.Entry{
			"global":   {entry("global/domain", "example.com")},
			"sessions": {entry("sessions/replicas", "2")},
		}}

		got, err := Collect(context.Background(), f, []string{"sessions", "auth"}, 2)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"auth", "global", "sessions"}, f.fetched)
		require.Len(t, got, 2)
		assert.Equal(t, "global/domain", got[0].Key)
		assert.Equal(t, "sessions/replicas", got[1].Key)
	})

	t.Run("fetch error aborts", func(t *testing.T) {
		boom := errors.New("connection refused")
		f := &fakeLister{fail: map[string]error{"auth": boom}}

		_, err := Collect(context.Background(), f, []string{"auth", "sessions"}, 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, boom))
		assert.Contains(t, err.Error(), "fetch overrides for auth")
	})
}

func TestFetch_AgainstStore(t *testing.T) {
	srv := kvtest.New()
	defer srv.Close()
	srv.Put("global/domain", "example.com")
	srv.Put("sessions/replicas", "2")
	srv.Put("sessions/image/tag", "v1.4.0")
	srv.PutEncoded("sessions/broken", "not base64!")
	srv.Put("unrelated/key", "ignored")

	client := kv.NewClient(srv.URL())
	tree, stats, err := Fetch(context.Background(), client, []string{"sessions", "missing"}, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Inserted)
	require.Len(t, stats.Skipped, 1)
	assert.Equal(t, "sessions/broken", stats.Skipped[0].Key)

	assert.Equal(t, map[string]any{
		"global": map[string]any{"domain": "example.com"},
		"sessions": map[string]any{
			"image":    map[string]any{"tag": "v1.4.0"},
			"replicas": "2",
		},
	}, tree.ToMap())
}

func TestFetch_TransportFailure(t *testing.T) {
	srv := kvtest.New()
	defer srv.Close()
	srv.Put("sessions/replicas", "2")
	srv.Break("sessions")

	client := kv.NewClient(srv.URL())
	_, _, err := Fetch(context.Background(), client, []string{"sessions"}, 0)
	require.Error(t, err)

	var te *kv.TransportError
	assert.True(t, errors.As(err, &te))
}
