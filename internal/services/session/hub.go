package session

import (
	"context"
	"sync"

	"github.com/profyagosales/correction-engine-api/internal/services/palette"
)

// Hub tracks the live sessions by essay ID. One correction session per
// essay; a second open of the same essay joins the existing session.
type Hub struct {
	pal  *palette.Palette
	save SaveFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewHub creates a Hub whose sessions save through save.
func NewHub(pal *palette.Palette, save SaveFunc) *Hub {
	return &Hub{
		pal:      pal,
		save:     save,
		sessions: make(map[string]*Session),
	}
}

// Get returns the live session for an essay, if any.
func (h *Hub) Get(essayID string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[essayID]
	return s, ok
}

// Open returns the essay's session, creating one if needed. pageWidth is
// only used when the session does not exist yet.
func (h *Hub) Open(essayID string, pageWidth float64) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[essayID]; ok {
		return s
	}
	s := New(essayID, h.pal, pageWidth, h.save)
	h.sessions[essayID] = s
	return s
}

// Close flushes and removes an essay's session. Closing an unknown essay is
// a no-op.
func (h *Hub) Close(ctx context.Context, essayID string) error {
	h.mu.Lock()
	s, ok := h.sessions[essayID]
	delete(h.sessions, essayID)
	h.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Close(ctx)
}

// CloseAll flushes every session, used on shutdown. The first error is
// returned; remaining sessions still close.
func (h *Hub) CloseAll(ctx context.Context) error {
	h.mu.Lock()
	all := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		all = append(all, s)
	}
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()

	var first error
	for _, s := range all {
		if err := s.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
