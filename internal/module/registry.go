// Package module maps module names to handler implementations, replacing
// string-compare dispatch with a registry lookup so the session layer needs no
// knowledge of which tools exist.
package module

import (
	"net/http"
	"sort"
	"sync"
)

// Handler serves one named module. The request context carries the validated
// identity (user id, token, permission flags) set by the session middleware.
type Handler interface {
	ServeModule(w http.ResponseWriter, r *http.Request)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(w http.ResponseWriter, r *http.Request)

func (f HandlerFunc) ServeModule(w http.ResponseWriter, r *http.Request) { f(w, r) }

// Registry is a concurrency-safe name-to-handler lookup table.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds name to h, replacing any previous binding.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Lookup returns the handler bound to name and whether one exists.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered module names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
