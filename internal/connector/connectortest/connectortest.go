// Package connectortest runs upstream fakes for adapter and service tests.
package connectortest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/pkg/client"
)

// Call is one request received by a fake upstream.
type Call struct {
	Method string
	Path   string
	Body   map[string]any
	Header http.Header
}

// Recorder collects the calls made to a fake upstream.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

// Calls returns a snapshot of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Count returns how many calls matched method and path.
func (r *Recorder) Count(method, path string) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// NewUpstream starts a fake upstream named name and returns a client for it.
// The request body is decoded into Call.Body before h runs.
func NewUpstream(t *testing.T, name string, h http.HandlerFunc) (*client.Client, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := Call{Method: r.Method, Path: r.URL.RequestURI(), Header: r.Header.Clone()}
		_ = json.NewDecoder(r.Body).Decode(&call.Body)
		rec.mu.Lock()
		rec.calls = append(rec.calls, call)
		rec.mu.Unlock()
		if h != nil {
			h(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return client.New(client.Config{Name: name, BaseURL: srv.URL}, client.StaticToken("test-token"), zap.NewNop(), nil), rec
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
