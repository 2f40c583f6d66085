// Package store reads and writes the umbrella manifest in the KV store.
//
// A run fetches the manifest together with its ModifyIndex and later
// commits the updated manifest with a check-and-set on that same index. If
// anything else wrote the key in between, the commit fails with ErrConflict.
// There is no retry.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/vongform/vongform/internal/kv"
	"github.com/vongform/vongform/internal/manifest"
)

// DefaultKey is the KV key holding the manifest.
const DefaultKey = "umbrella"

// NoToken is the revision of a manifest that has never been written.
// A CAS write with it only succeeds while the key is still absent.
const NoToken uint64 = 0

// ErrConflict indicates the manifest changed since it was fetched.
var ErrConflict = errors.New("manifest was modified since it was fetched")

// DecodeError reports a stored manifest that cannot be read.
type DecodeError struct {
	Key   string
	Stage string // "base64" or "yaml"
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode manifest %s (%s): %v", e.Key, e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Backend is the subset of the KV client the store needs.
type Backend interface {
	Get(ctx context.Context, key string) (*kv.Entry, error)
	CAS(ctx context.Context, key string, body []byte, index uint64) (bool, error)
}

// Record is a fetched manifest and the revision it was read at.
type Record struct {
	Key          string
	Requirements []manifest.Requirement
	Token        uint64

	// Exists is false when the default manifest was substituted.
	Exists bool

	// Document is the raw manifest text as stored.
	Document []byte
}

// Store reads and commits the manifest under one key.
type Store struct {
	backend Backend
	key     string
}

// New creates a store for key. An empty key means DefaultKey.
func New(backend Backend, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{backend: backend, key: key}
}

// Key returns the manifest key.
func (s *Store) Key() string {
	return s.key
}

// Fetch reads and decodes the manifest. A missing key yields the default
// empty manifest with NoToken. A stored value that does not decode is fatal.
func (s *Store) Fetch(ctx context.Context) (*Record, error) {
	entry, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest %s: %w", s.key, err)
	}

	if entry == nil {
		reqs, err := manifest.Decode([]byte(manifest.DefaultDocument))
		if err != nil {
			return nil, &DecodeError{Key: s.key, Stage: "yaml", Err: err}
		}
		return &Record{
			Key:          s.key,
			Requirements: reqs,
			Token:        NoToken,
			Document:     []byte(manifest.DefaultDocument),
		}, nil
	}

	raw, err := entry.Decode()
	if err != nil {
		return nil, &DecodeError{Key: s.key, Stage: "base64", Err: err}
	}

	reqs, err := manifest.Decode(raw)
	if err != nil {
		return nil, &DecodeError{Key: s.key, Stage: "yaml", Err: err}
	}

	return &Record{
		Key:          s.key,
		Requirements: reqs,
		Token:        entry.ModifyIndex,
		Exists:       true,
		Document:     raw,
	}, nil
}

// Commit writes reqs back with a check-and-set against rec.Token.
// It returns ErrConflict if the stored revision moved.
func (s *Store) Commit(ctx context.Context, rec *Record, reqs []manifest.Requirement) error {
	body, err := manifest.Encode(reqs)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	ok, err := s.backend.CAS(ctx, s.key, body, rec.Token)
	if err != nil {
		return fmt.Errorf("commit manifest %s: %w", s.key, err)
	}
	if !ok {
		return fmt.Errorf("commit manifest %s at index %d: %w", s.key, rec.Token, ErrConflict)
	}
	return nil
}
