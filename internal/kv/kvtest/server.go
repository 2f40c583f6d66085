// Package kvtest provides an in-memory fake of the Consul KV HTTP API.
package kvtest

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/vongform/vongform/internal/kv"
)

// Server is a fake Consul agent serving /v1/kv/.
type Server struct {
	HS *httptest.Server

	mu       sync.Mutex
	entries  map[string]*kv.Entry
	index    uint64
	requests []string
	accepted []uint64
	rejected []uint64
	broken   map[string]bool
}

// New starts a fake agent. Call Close when done.
func New() *Server {
	s := &Server{
		entries: make(map[string]*kv.Entry),
		broken:  make(map[string]bool),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/kv/", s.handleKV)
	s.HS = httptest.NewServer(mux)
	return s
}

// Close shuts the server down.
func (s *Server) Close() {
	s.HS.Close()
}

// URL returns the base address of the agent.
func (s *Server) URL() string {
	return s.HS.URL
}

// Put stores value under key as a regular write would, bumping the index.
func (s *Server) Put(key, value string) uint64 {
	return s.PutEncoded(key, base64.StdEncoding.EncodeToString([]byte(value)))
}

// PutEncoded stores an already-encoded Value verbatim, which lets tests
// plant values that are not valid base64.
func (s *Server) PutEncoded(key, encoded string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(key, encoded)
}

// Value returns the decoded value stored under key.
func (s *Server) Value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(e.Value)
	if err != nil {
		return e.Value, true
	}
	return string(raw), true
}

// ModifyIndex returns the current revision of key, or 0 if absent.
func (s *Server) ModifyIndex(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.ModifyIndex
	}
	return 0
}

// Break makes every request for prefix fail at the connection level.
func (s *Server) Break(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken[prefix] = true
}

// Requests returns "METHOD path?query" for every request received.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Writes returns how many PUT requests were received.
func (s *Server) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if strings.HasPrefix(r, http.MethodPut+" ") {
			n++
		}
	}
	return n
}

// Accepted returns the CAS tokens of writes that were applied.
func (s *Server) Accepted() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.accepted...)
}

// Rejected returns the CAS tokens of writes that lost the race.
func (s *Server) Rejected() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.rejected...)
}

// store must be called with mu held.
func (s *Server) store(key, encoded string) uint64 {
	s.index++
	e, ok := s.entries[key]
	if !ok {
		e = &kv.Entry{Key: key, CreateIndex: s.index}
		s.entries[key] = e
	}
	e.ModifyIndex = s.index
	e.Value = encoded
	return s.index
}

func (s *Server) handleKV(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/v1/kv/")

	s.mu.Lock()
	line := r.Method + " " + r.URL.Path
	if r.URL.RawQuery != "" {
		line += "?" + r.URL.RawQuery
	}
	s.requests = append(s.requests, line)
	broken := s.broken[key]
	s.mu.Unlock()

	if broken {
		hijackAndClose(w)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, r, key)
	case http.MethodPut:
		s.handlePut(w, r, key)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, key string) {
	s.mu.Lock()
	var out []kv.Entry
	if _, recurse := r.URL.Query()["recurse"]; recurse {
		for k, e := range s.entries {
			if strings.HasPrefix(k, key) {
				out = append(out, *e)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	} else if e, ok := s.entries[key]; ok {
		out = append(out, *e)
	}
	s.mu.Unlock()

	if len(out) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request, key string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if raw := r.URL.Query().Get("cas"); raw != "" {
		token, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid cas index", http.StatusBadRequest)
			return
		}

		current := uint64(0)
		if e, ok := s.entries[key]; ok {
			current = e.ModifyIndex
		}
		if current != token {
			s.rejected = append(s.rejected, token)
			_, _ = io.WriteString(w, "false")
			return
		}
		s.accepted = append(s.accepted, token)
	}

	s.store(key, base64.StdEncoding.EncodeToString(body))
	_, _ = io.WriteString(w, "true")
}

func hijackAndClose(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "hijack unsupported", http.StatusInternalServerError)
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	conn.Close()
}
