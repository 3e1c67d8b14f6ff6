// manager.go enforces the document lifecycle: at most one live decoded
// handle per displayed slot, at most one in-flight load, and deterministic
// teardown on swap/close. There are no process-wide caches here — every
// resource is owned by a slot and released when the slot moves on.
package document

import (
	"context"
	"errors"
	"log"
	"sync"
)

// Manager owns all document slots. A slot is one displayed file position
// (the correction view has one, the print preview another).
type Manager struct {
	fetcher *Fetcher

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	handle *Handle
	// generation increments on every Open/Close so a cancelled load can
	// detect it was superseded and must not install its handle.
	generation uint64
	cancel     context.CancelFunc
	inflight   chan struct{} // closed when the current load has torn down
}

// NewManager creates a Manager acquiring documents through fetcher.
func NewManager(fetcher *Fetcher) *Manager {
	return &Manager{
		fetcher: fetcher,
		slots:   make(map[string]*slot),
	}
}

// Open loads the document at ref into the given slot and returns the ready
// handle. Any in-flight load for the slot is cancelled and awaited first,
// and any previously open handle is destroyed before the new one goes live.
// A cancelled Open returns ctx.Err() and is silent: it never installs a
// handle over a newer load and never counts as a load failure.
func (m *Manager) Open(ctx context.Context, slotID, ref string, creds Credentials) (*Handle, error) {
	loadCtx, gen, err := m.begin(ctx, slotID)
	if err != nil {
		return nil, err
	}

	handle, err := m.load(loadCtx, ref, creds)
	return m.finish(slotID, gen, handle, err)
}

// begin supersedes whatever the slot was doing and registers a new load.
func (m *Manager) begin(ctx context.Context, slotID string) (context.Context, uint64, error) {
	for {
		m.mu.Lock()
		s := m.slots[slotID]
		if s == nil {
			s = &slot{}
			m.slots[slotID] = s
		}

		if s.inflight != nil {
			// Cancel the previous load and wait for its teardown before
			// starting ours — two loads must never race for the slot.
			cancel, done := s.cancel, s.inflight
			m.mu.Unlock()
			cancel()
			<-done
			continue
		}

		// Destroy the previous handle before the new one starts loading.
		if s.handle != nil {
			if err := s.handle.Close(); err != nil {
				log.Printf("document manager: closing superseded handle: %v", err)
			}
			s.handle = nil
		}

		s.generation++
		gen := s.generation
		loadCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.inflight = make(chan struct{})
		m.mu.Unlock()
		return loadCtx, gen, nil
	}
}

func (m *Manager) load(ctx context.Context, ref string, creds Credentials) (*Handle, error) {
	data, err := m.fetcher.Fetch(ctx, ref, creds)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Decode(ref, data)
}

// finish installs the handle if this load is still the latest; a superseded
// or cancelled load destroys its own handle instead.
func (m *Manager) finish(slotID string, gen uint64, handle *Handle, loadErr error) (*Handle, error) {
	m.mu.Lock()
	s := m.slots[slotID]
	current := s != nil && s.generation == gen

	if current {
		close(s.inflight)
		s.inflight = nil
		s.cancel = nil
	}

	if loadErr != nil {
		m.mu.Unlock()
		return nil, loadErr
	}
	if !current {
		m.mu.Unlock()
		handle.Close()
		return nil, context.Canceled
	}

	s.handle = handle
	m.mu.Unlock()
	return handle, nil
}

// Handle returns the live handle for a slot, if one is ready.
func (m *Manager) Handle(slotID string) (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slots[slotID]
	if s == nil || s.handle == nil {
		return nil, false
	}
	return s.handle, true
}

// Close tears down a slot: cancels any in-flight load, waits for it, and
// destroys the open handle. Closing an unknown slot is a no-op.
func (m *Manager) Close(slotID string) error {
	for {
		m.mu.Lock()
		s := m.slots[slotID]
		if s == nil {
			m.mu.Unlock()
			return nil
		}
		if s.inflight != nil {
			cancel, done := s.cancel, s.inflight
			m.mu.Unlock()
			cancel()
			<-done
			continue
		}
		s.generation++
		handle := s.handle
		delete(m.slots, slotID)
		m.mu.Unlock()

		if handle != nil {
			return handle.Close()
		}
		return nil
	}
}

// CloseAll tears down every slot (service shutdown).
func (m *Manager) CloseAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.slots))
	for id := range m.slots {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.Close(id); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("document manager: closing slot %s: %v", id, err)
		}
	}
}
