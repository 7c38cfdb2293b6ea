package server

import (
	"sync"

	"github.com/cchalm/cloudops-assistant/internal/chat"
	"github.com/cchalm/cloudops-assistant/internal/metrics"
)

// Registry holds the live chat sessions of the web surface. Each session is independent; the registry lock only
// guards the map.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]*chat.Session
	max        int
	newSession func() *chat.Session
	metrics    *metrics.Recorder
}

// NewRegistry creates a registry that keeps at most max sessions, evicting the oldest first
func NewRegistry(max int, newSession func() *chat.Session, recorder *metrics.Recorder) *Registry {
	return &Registry{
		sessions:   make(map[string]*chat.Session),
		max:        max,
		newSession: newSession,
		metrics:    recorder,
	}
}

func (r *Registry) Create() *chat.Session {
	s := r.newSession()
	r.mu.Lock()
	for r.max > 0 && len(r.sessions) >= r.max {
		r.evictOldestLocked()
	}
	r.sessions[s.ID()] = s
	n := len(r.sessions)
	r.mu.Unlock()
	r.metrics.SetSessions(n)
	return s
}

func (r *Registry) Get(id string) (*chat.Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	return s, ok
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()
	r.metrics.SetSessions(n)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) evictOldestLocked() {
	var oldest *chat.Session
	for _, s := range r.sessions {
		if oldest == nil || s.CreatedAt().Before(oldest.CreatedAt()) {
			oldest = s
		}
	}
	if oldest != nil {
		delete(r.sessions, oldest.ID())
	}
}
