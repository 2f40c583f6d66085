package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vongform/vongform/internal/kv"
	"github.com/vongform/vongform/internal/kv/kvtest"
	"github.com/vongform/vongform/internal/manifest"
)

func newStore(t *testing.T) (*Store, *kvtest.Server) {
	t.Helper()
	srv := kvtest.New()
	t.Cleanup(srv.Close)
	return New(kv.NewClient(srv.URL()), ""), srv
}

func TestNew_DefaultKey(t *testing.T) {
	s := New(nil, "")
	assert.Equal(t, DefaultKey, s.Key())
	assert.Equal(t, "custom", New(nil, "custom").Key())
}

func TestStore_Fetch(t *testing.T) {
	t.Run("absent key yields default manifest", func(t *testing.T) {
		s, _ := newStore(t)

		rec, err := s.Fetch(context.Background())
		require.NoError(t, err)
		assert.False(t, rec.Exists)
		assert.Equal(t, NoToken, rec.Token)
		assert.Empty(t, rec.Requirements)
		assert.Equal(t, manifest.DefaultDocument, string(rec.Document))
	})

	t.Run("present key keeps its token", func(t *testing.T) {
		s, srv := newStore(t)
		idx := srv.Put(DefaultKey, "dependencies:\n  - name: auth\n    version: 1.0.0\n")

		rec, err := s.Fetch(context.Background())
		require.NoError(t, err)
		assert.True(t, rec.Exists)
		assert.Equal(t, idx, rec.Token)
		require.Len(t, rec.Requirements, 1)
		assert.Equal(t, "auth", rec.Requirements[0].Name)
	})

	t.Run("invalid base64 is fatal", func(t *testing.T) {
		s, srv := newStore(t)
		srv.PutEncoded(DefaultKey, "!!not-base64!!")

		_, err := s.Fetch(context.Background())
		require.Error(t, err)

		var de *DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "base64", de.Stage)
	})

	t.Run("invalid document is fatal", func(t *testing.T) {
		s, srv := newStore(t)
		srv.Put(DefaultKey, "not: a manifest\n")

		_, err := s.Fetch(context.Background())
		require.Error(t, err)

		var de *DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "yaml", de.Stage)
		assert.True(t, errors.Is(err, manifest.ErrMissingDependencies))
	})

	t.Run("transport failure is fatal", func(t *testing.T) {
		s, srv := newStore(t)
		srv.Break(DefaultKey)

		_, err := s.Fetch(context.Background())
		require.Error(t, err)

		var te *kv.TransportError
		assert.True(t, errors.As(err, &te))
	})
}

func TestStore_Commit(t *testing.T) {
	reqs := []manifest.Requirement{{Name: "svc-a", Version: "1.0.0"}}

	t.Run("first write creates the key", func(t *testing.T) {
		s, srv := newStore(t)

		rec, err := s.Fetch(context.Background())
		require.NoError(t, err)
		require.NoError(t, s.Commit(context.Background(), rec, reqs))

		got, ok := srv.Value(DefaultKey)
		require.True(t, ok)
		assert.Equal(t, "dependencies:\n  - name: svc-a\n    version: 1.0.0\n    repository: null\n", got)
		assert.Equal(t, []uint64{NoToken}, srv.Accepted())
	})

	t.Run("write after fetch succeeds", func(t *testing.T) {
		s, srv := newStore(t)
		idx := srv.Put(DefaultKey, manifest.DefaultDocument)

		rec, err := s.Fetch(context.Background())
		require.NoError(t, err)
		require.NoError(t, s.Commit(context.Background(), rec, reqs))
		assert.Equal(t, []uint64{idx}, srv.Accepted())
	})

	t.Run("stale token conflicts and keeps the stored value", func(t *testing.T) {
		s, srv := newStore(t)
		srv.Put(DefaultKey, manifest.DefaultDocument)

		rec, err := s.Fetch(context.Background())
		require.NoError(t, err)

		// Someone else writes in between.
		srv.Put(DefaultKey, "dependencies:\n  - name: theirs\n    version: 9.9.9\n")

		err = s.Commit(context.Background(), rec, reqs)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConflict))

		got, _ := srv.Value(DefaultKey)
		assert.Contains(t, got, "theirs")
		assert.Empty(t, srv.Accepted())
		assert.Equal(t, []uint64{rec.Token}, srv.Rejected())
	})

	t.Run("concurrent creation conflicts", func(t *testing.T) {
		s, srv := newStore(t)

		rec, err := s.Fetch(context.Background())
		require.NoError(t, err)
		srv.Put(DefaultKey, manifest.DefaultDocument)

		err = s.Commit(context.Background(), rec, reqs)
		assert.True(t, errors.Is(err, ErrConflict))
	})
}

func TestStore_FetchCommitRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	repo := "https://charts.example.com"
	reqs := []manifest.Requirement{
		{Name: "auth", Version: "1.0.0", Repository: &repo},
		{Name: "sessions", Version: "2.0.0"},
	}

	rec, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Commit(context.Background(), rec, reqs))

	again, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reqs, again.Requirements)
	assert.NotEqual(t, rec.Token, again.Token)
}
