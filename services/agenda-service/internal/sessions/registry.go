// Package sessions keeps one appointment editor per calendar client.
package sessions

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/editor"
)

var ErrNotFound = errors.New("editor session not found")

type session struct {
	mu       sync.Mutex
	editor   *editor.Editor
	lastUsed time.Time
}

// Registry maps session ids to editors. Each editor is serialized by its own
// lock, so two clients never contend on each other's modal.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	factory  func() *editor.Editor
	now      func() time.Time
}

func NewRegistry(factory func() *editor.Editor) *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		factory:  factory,
		now:      time.Now,
	}
}

// Open creates a fresh editor and returns its session id.
func (r *Registry) Open() string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = &session{editor: r.factory(), lastUsed: r.now()}
	r.mu.Unlock()
	return id
}

// With runs fn while holding the session's lock.
func (r *Registry) With(id string, fn func(*editor.Editor) error) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		s.lastUsed = r.now()
	}
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.editor)
}

func (r *Registry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions unused for longer than maxIdle and reports how many
// were removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
