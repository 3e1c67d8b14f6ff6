// Package selection keeps the canvas view and the comment list mutually
// synchronized around a single selected region id.
//
// Both sides react to the same selection: the canvas scrolls the page band
// holding the region into view, the list scrolls the matching entry. The
// coordinator only ever adjusts the owning scrollable container — never the
// page as a whole — and suppresses feedback while a programmatic scroll is
// in flight so the two sides cannot ping-pong each other.
package selection

import (
	"sort"
	"sync"
	"time"
)

// Container names the two scrollable surfaces the engine coordinates.
const (
	ContainerCanvas = "canvas"
	ContainerList   = "list"
)

// ScrollDuration is the bounded length of an eased programmatic scroll.
// Long documents don't get longer scrolls — the duration is fixed, the
// distance covered grows.
const ScrollDuration = 350 * time.Millisecond

// Band is the currently visible window of a container, in that container's
// own scroll units. Margin widens the "already visible" check so entries
// hugging the edge don't trigger pointless micro-scrolls.
type Band struct {
	Top    float64
	Height float64
	Margin float64
}

// Entry is a scroll target's position inside a container's content.
type Entry struct {
	Top    float64
	Height float64
}

// Command tells the adapter to ease one container to a new scroll offset.
type Command struct {
	Container string        `json:"container"`
	To        float64       `json:"to"`
	Duration  time.Duration `json:"duration"`
	Eased     bool          `json:"eased"`
}

// Coordinator tracks the selected region and plans scroll commands.
type Coordinator struct {
	mu         sync.Mutex
	selectedID string
	pendingID  string // selection deferred by the scroll lock
	lockUntil  time.Time
	now        func() time.Time

	bands   map[string]Band
	entries map[string]map[string]Entry // container -> region id -> entry
}

// NewCoordinator returns an empty coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		now:     time.Now,
		bands:   make(map[string]Band),
		entries: make(map[string]map[string]Entry),
	}
}

// SetBand records a container's visible band (updated by the adapter on
// scroll/resize).
func (c *Coordinator) SetBand(container string, b Band) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bands[container] = b
}

// SetEntry records where a region lives inside a container's content.
func (c *Coordinator) SetEntry(container, regionID string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.entries[container]
	if m == nil {
		m = make(map[string]Entry)
		c.entries[container] = m
	}
	m[regionID] = e
}

// DropEntry forgets a region (after delete).
func (c *Coordinator) DropEntry(regionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.entries {
		delete(m, regionID)
	}
}

// Selected returns the current selected region id ("" when none).
func (c *Coordinator) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedID
}

// ClearSelection drops the selection (document swap/close).
func (c *Coordinator) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedID = ""
	c.pendingID = ""
}

// Select records id as the single selected region and returns the scroll
// commands needed to bring it into view in every registered container.
// Re-selecting the same id is a no-op. While a programmatic scroll from a
// previous selection is still in flight the selection updates but no new
// commands are emitted — that is the loop guard.
// A selection deferred by the lock stays pending: the next Select or Focus
// after expiry re-plans it even when the id has not changed, so the entry
// never stays off-screen just because the click landed mid-scroll.
func (c *Coordinator) Select(id string) []Command {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id == c.selectedID && c.pendingID == "" {
		return nil
	}
	c.selectedID = id

	if c.now().Before(c.lockUntil) {
		c.pendingID = id
		return nil
	}
	c.pendingID = ""
	cmds := c.planLocked(id, nil)
	if len(cmds) > 0 {
		c.lockUntil = c.now().Add(ScrollDuration)
	}
	return cmds
}

// Focus handles programmatic focus of a region's comment field: the list
// container scrolls its entry into view, but the canvas — and by extension
// the page — is never touched. Only the nearest scrollable ancestor moves.
func (c *Coordinator) Focus(id string) []Command {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selectedID = id
	if c.now().Before(c.lockUntil) {
		c.pendingID = id
		return nil
	}
	c.pendingID = ""
	only := map[string]bool{ContainerList: true}
	cmds := c.planLocked(id, only)
	if len(cmds) > 0 {
		c.lockUntil = c.now().Add(ScrollDuration)
	}
	return cmds
}

func (c *Coordinator) planLocked(id string, only map[string]bool) []Command {
	var cmds []Command
	names := make([]string, 0, len(c.bands))
	for name := range c.bands {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic command order

	for _, name := range names {
		if only != nil && !only[name] {
			continue
		}
		entry, ok := c.entries[name][id]
		if !ok {
			continue
		}
		band := c.bands[name]
		if cmd, need := Plan(band, entry, name); need {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

// Plan computes the scroll command for one container, or reports that none
// is needed because the entry already sits inside the visible band (plus
// margin). The target offset centers the entry in the band, clamped at the
// top of the content.
func Plan(band Band, entry Entry, container string) (Command, bool) {
	if entry.Top >= band.Top-band.Margin &&
		entry.Top+entry.Height <= band.Top+band.Height+band.Margin {
		return Command{}, false
	}

	to := entry.Top + entry.Height/2 - band.Height/2
	if to < 0 {
		to = 0
	}
	return Command{
		Container: container,
		To:        to,
		Duration:  ScrollDuration,
		Eased:     true,
	}, true
}
