package checkout

import (
	"errors"
	"log"
	"sync"
)

var ErrSessionNotFound = errors.New("checkout session not found")

// Registry holds the open checkout sessions of every signed-in user.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Replace registers s as its owner's only session and returns how many older ones it evicted.
func (r *Registry) Replace(s *Session) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, existing := range r.sessions {
		if existing.userID == s.userID {
			delete(r.sessions, id)
			evicted++
		}
	}
	r.sessions[s.id] = s
	return evicted
}

// Get returns the session only to its owner.
func (r *Registry) Get(uid, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.userID != uid {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *Registry) Drop(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// DropUser forgets every session owned by uid.
func (r *Registry) DropUser(uid string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for id, s := range r.sessions {
		if s.userID == uid {
			delete(r.sessions, id)
			dropped++
		}
	}
	return dropped
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// HandleAuthChange drops a user's sessions on sign-out. It matches auth.Listener.
func (r *Registry) HandleAuthChange(uid string, signedIn bool) {
	if signedIn {
		return
	}
	if n := r.DropUser(uid); n > 0 {
		log.Printf("[CHECKOUT] [INFO] dropped %d sessions after sign-out of %s", n, uid)
	}
}
