// Package session holds the live correction state for one essay: the open
// document slot, the region store, the pointer state machine, and the
// selection coordinator. Handlers talk to a Session; the Session owns the
// ordering and the debounce rules.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/profyagosales/correction-engine-api/internal/models"
	"github.com/profyagosales/correction-engine-api/internal/services/interaction"
	"github.com/profyagosales/correction-engine-api/internal/services/palette"
	"github.com/profyagosales/correction-engine-api/internal/services/raster"
	"github.com/profyagosales/correction-engine-api/internal/services/regions"
	"github.com/profyagosales/correction-engine-api/internal/services/selection"
)

// Debounce windows. Saves coalesce rapid edits into one write; resizes
// coalesce the event storm a window drag produces into one re-render.
const (
	SaveDebounce   = 800 * time.Millisecond
	ResizeDebounce = 150 * time.Millisecond
)

// ErrSessionClosed is returned for operations on a closed session.
var ErrSessionClosed = errors.New("session is closed")

// SaveFunc persists the full region set for an essay. Called off the
// caller's goroutine after the save debounce elapses, and synchronously
// from Flush.
type SaveFunc func(ctx context.Context, essayID string, list []models.Region) error

// ScaleFunc is notified when the debounced fit-width scale settles.
type ScaleFunc func(scale float64)

// Outcome is what one pointer event produced: the effects the client must
// apply (pointer capture and release), any region created by a commit, and
// the scroll commands a selection triggered.
type Outcome struct {
	Phase    interaction.Phase    `json:"phase"`
	Effects  []interaction.Effect `json:"effects,omitempty"`
	Created  *models.Region       `json:"created,omitempty"`
	Scroll   []selection.Command  `json:"scroll,omitempty"`
	Selected string               `json:"selected,omitempty"`
}

// Session is safe for concurrent use.
type Session struct {
	EssayID string

	mu        sync.Mutex
	closed    bool
	state     interaction.State
	store     *regions.Store
	coord     *selection.Coordinator
	pageWidth float64

	dirty       bool
	save        SaveFunc
	saveTimer   *time.Timer
	onScale     ScaleFunc
	resizeTimer *time.Timer
	lastWidth   float64
}

// New builds a session. pageWidth is the native width in points of the
// document's first page, used for fit-width scaling. save may be nil for
// read-only sessions.
func New(essayID string, pal *palette.Palette, pageWidth float64, save SaveFunc) *Session {
	return &Session{
		EssayID:   essayID,
		state:     interaction.NewState(palette.CategoryGeneral),
		store:     regions.NewStore(pal),
		coord:     selection.NewCoordinator(),
		pageWidth: pageWidth,
		save:      save,
	}
}

// Store exposes the region store for loading and listing.
func (s *Session) Store() *regions.Store { return s.store }

// Coordinator exposes the selection coordinator for layout reports.
func (s *Session) Coordinator() *selection.Coordinator { return s.coord }

// SetCategory changes the active highlight category for new regions.
func (s *Session) SetCategory(c palette.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if !s.store.Palette().Valid(c) {
		return fmt.Errorf("unknown category %q", c)
	}
	s.state.ActiveCategory = c
	return nil
}

// SetExporting blocks or unblocks annotation gestures. While an export is
// running the document must stay frozen, so in-progress gestures are
// cancelled when exporting turns on.
func (s *Session) SetExporting(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if on && !s.state.Disabled {
		s.state, _ = interaction.Step(s.state, interaction.Event{Kind: interaction.Cancel})
	}
	s.state.Disabled = on
}

// ApplyEvent advances the pointer state machine and applies the resulting
// effects to the region store and selection coordinator. Mutations arm the
// save debounce.
func (s *Session) ApplyEvent(ev interaction.Event) (*Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	next, effects := interaction.Step(s.state, ev)
	s.state = next

	out := &Outcome{Phase: next.Phase}
	for _, eff := range effects {
		switch eff.Kind {
		case interaction.EffectCreateRegion:
			reg, err := s.store.Create(eff.Page, eff.Rect, eff.Category)
			if err != nil {
				return nil, err
			}
			out.Created = reg
			out.Scroll = append(out.Scroll, s.coord.Select(reg.ID)...)
			s.markDirtyLocked()
		case interaction.EffectMoveRegion:
			if _, err := s.store.Move(eff.RegionID, eff.Rect); err != nil {
				return nil, err
			}
			s.markDirtyLocked()
		case interaction.EffectResizeRegion:
			if _, err := s.store.Resize(eff.RegionID, eff.Rect); err != nil {
				return nil, err
			}
			s.markDirtyLocked()
		case interaction.EffectSelectRegion:
			out.Scroll = append(out.Scroll, s.coord.Select(eff.RegionID)...)
		default:
			// Pointer capture effects pass through to the client.
			out.Effects = append(out.Effects, eff)
		}
	}
	out.Selected = s.coord.Selected()
	return out, nil
}

// Select picks a region from the comment list side and returns the scroll
// commands to bring it into view.
func (s *Session) Select(regionID string) ([]selection.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.coord.Select(regionID), nil
}

// Focus marks a region's comment field as focused. Only the comment list
// scrolls; the page canvas stays where the corrector left it.
func (s *Session) Focus(regionID string) ([]selection.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.coord.Focus(regionID), nil
}

// Remove deletes a region, renumbers survivors, and arms the save debounce.
func (s *Session) Remove(regionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if err := s.store.Remove(regionID); err != nil {
		return err
	}
	s.coord.DropEntry(regionID)
	if s.coord.Selected() == regionID {
		s.coord.ClearSelection()
	}
	s.markDirtyLocked()
	return nil
}

// UpdateComment edits a region's comment text and arms the save debounce.
func (s *Session) UpdateComment(regionID, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if _, err := s.store.Update(regionID, regions.Patch{Comment: &comment}); err != nil {
		return err
	}
	s.markDirtyLocked()
	return nil
}

// OnScale registers the callback invoked when the debounced fit-width scale
// settles after Resize reports.
func (s *Session) OnScale(fn ScaleFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onScale = fn
}

// Resize reports a new container width. The recompute is debounced: only
// the width standing after a quiet window triggers the scale callback.
func (s *Session) Resize(containerWidth float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.lastWidth = containerWidth
	if s.resizeTimer != nil {
		s.resizeTimer.Stop()
	}
	s.resizeTimer = time.AfterFunc(ResizeDebounce, s.fireResize)
}

func (s *Session) fireResize() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	scale := raster.FitWidthScale(s.lastWidth, s.pageWidth)
	fn := s.onScale
	s.mu.Unlock()
	if fn != nil {
		fn(scale)
	}
}

// markDirtyLocked arms (or re-arms) the save debounce. Every further edit
// inside the window pushes the write out again.
func (s *Session) markDirtyLocked() {
	s.dirty = true
	if s.save == nil {
		return
	}
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(SaveDebounce, func() {
		if err := s.Flush(context.Background()); err != nil {
			log.Printf("session %s: debounced save failed: %v", s.EssayID, err)
		}
	})
}

// Flush writes the region set out immediately if there are unsaved edits.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	if !s.dirty || s.save == nil {
		s.mu.Unlock()
		return nil
	}
	list := s.store.List()
	save := s.save
	essayID := s.EssayID
	s.dirty = false
	s.mu.Unlock()

	if err := save(ctx, essayID, list); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return err
	}
	return nil
}

// Close flushes pending edits and stops the timers. Further operations
// return ErrSessionClosed.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	if s.resizeTimer != nil {
		s.resizeTimer.Stop()
	}
	dirty := s.dirty
	list := s.store.List()
	save := s.save
	s.dirty = false
	s.mu.Unlock()

	if dirty && save != nil {
		return save(ctx, s.EssayID, list)
	}
	return nil
}
