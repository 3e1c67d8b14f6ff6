// Package regions holds the in-memory authoritative list of annotation
// regions for an open document. All mutation goes through the store's
// operations so the numbering invariant can never be bypassed — the
// interaction controller, selection coordinator and export compositor share
// this one object and none of them pokes at fields directly.
package regions

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/profyagosales/correction-engine-api/internal/models"
	"github.com/profyagosales/correction-engine-api/internal/services/geometry"
	"github.com/profyagosales/correction-engine-api/internal/services/palette"
)

// Minimum normalized region size. Drags below this are treated as clicks and
// resizes are floored here, never to zero. Width and height differ because
// essay lines are wide and short.
const (
	MinWidth  = 0.01
	MinHeight = 0.005
)

// Patch carries partial updates for Update. Nil fields are left untouched.
type Patch struct {
	Page     *int
	Rects    *[]geometry.Rect
	Category *palette.Category
	Comment  *string
}

// Store is the authoritative region list for one open document.
// Mutations are synchronous and totally ordered behind the mutex; all entry
// points are invoked from the single session loop, so there is never a
// concurrent writer racing the numbering pass.
type Store struct {
	mu      sync.Mutex
	regions []*models.Region
	palette *palette.Palette
	now     func() time.Time // swapped in tests
}

// NewStore creates an empty store validating categories against p.
func NewStore(p *palette.Palette) *Store {
	return &Store{palette: p, now: time.Now}
}

// Palette returns the palette this store validates against.
func (s *Store) Palette() *palette.Palette {
	return s.palette
}

// Load replaces the store contents from a persisted region list, e.g. when a
// document is opened. Numbers are re-densified in case the stored payload
// predates the renumbering rule.
func (s *Store) Load(list []models.Region) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.regions = s.regions[:0]
	for i := range list {
		r := list[i]
		if len(r.Rects) == 0 {
			continue
		}
		for j := range r.Rects {
			r.Rects[j] = geometry.ClampRect(geometry.Normalize(r.Rects[j]))
		}
		s.regions = append(s.regions, &r)
	}
	s.renumberLocked()
}

// Create assigns the next id and number and stores a region with an empty
// comment. Degenerate rects (below the minimum size) are the caller's
// problem — the interaction controller filters them before commit — but the
// store still clamps whatever arrives into the unit square.
func (s *Store) Create(page int, rect geometry.Rect, category palette.Category) (*models.Region, error) {
	if page < 1 {
		return nil, fmt.Errorf("invalid page %d", page)
	}
	if !s.palette.Valid(category) {
		return nil, fmt.Errorf("unknown highlight category %q", category)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rect = geometry.ClampRect(geometry.Normalize(rect))
	rect.Width = geometry.Clamp(rect.Width, MinWidth, 1)
	rect.Height = geometry.Clamp(rect.Height, MinHeight, 1)
	rect = geometry.ClampRect(rect)

	now := s.now().UTC()
	r := &models.Region{
		ID:        uuid.New().String(),
		Page:      page,
		Rects:     []geometry.Rect{rect},
		Category:  category,
		Comment:   "",
		Number:    len(s.regions) + 1,
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	s.regions = append(s.regions, r)
	return copyRegion(r), nil
}

// Update merges partial fields into a region. Changed rects are clamped back
// into the unit square; a changed page must still be a valid index.
func (s *Store) Update(id string, patch Patch) (*models.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.findLocked(id)
	if r == nil {
		return nil, fmt.Errorf("region %s not found", id)
	}

	if patch.Page != nil {
		if *patch.Page < 1 {
			return nil, fmt.Errorf("invalid page %d", *patch.Page)
		}
		r.Page = *patch.Page
	}
	if patch.Category != nil {
		if !s.palette.Valid(*patch.Category) {
			return nil, fmt.Errorf("unknown highlight category %q", *patch.Category)
		}
		r.Category = *patch.Category
	}
	if patch.Comment != nil {
		r.Comment = *patch.Comment
	}
	if patch.Rects != nil {
		if len(*patch.Rects) == 0 {
			return nil, fmt.Errorf("region %s: rects must be non-empty", id)
		}
		clamped := make([]geometry.Rect, len(*patch.Rects))
		for i, rect := range *patch.Rects {
			rect = geometry.ClampRect(geometry.Normalize(rect))
			rect.Width = geometry.Clamp(rect.Width, MinWidth, 1)
			rect.Height = geometry.Clamp(rect.Height, MinHeight, 1)
			clamped[i] = geometry.ClampRect(rect)
		}
		r.Rects = clamped
	}

	now := s.now().UTC()
	r.UpdatedAt = &now
	return copyRegion(r), nil
}

// Move replaces a region's primary rect, keeping it inside the page.
// The page is never reassigned by a move. Used by the interaction controller
// after it converts pointer-pixel deltas back through the geometry module.
func (s *Store) Move(id string, rect geometry.Rect) (*models.Region, error) {
	rects := []geometry.Rect{rect}
	return s.Update(id, Patch{Rects: &rects})
}

// Resize is Move with resize semantics; the size floor in Update applies.
func (s *Store) Resize(id string, rect geometry.Rect) (*models.Region, error) {
	rects := []geometry.Rect{rect}
	return s.Update(id, Patch{Rects: &rects})
}

// Remove deletes a region and renumbers the remainder so numbers stay a
// contiguous 1..N sequence in stable relative order (ties broken by id).
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, r := range s.regions {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("region %s not found", id)
	}
	s.regions = append(s.regions[:idx], s.regions[idx+1:]...)
	s.renumberLocked()
	return nil
}

// Get returns one region by id.
func (s *Store) Get(id string) (*models.Region, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findLocked(id)
	if r == nil {
		return nil, false
	}
	return copyRegion(r), true
}

// List returns every region ordered by number.
func (s *Store) List() []models.Region {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Region, 0, len(s.regions))
	for _, r := range s.regions {
		out = append(out, *copyRegion(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// ListByPage returns the regions on one page ordered by number.
func (s *Store) ListByPage(page int) []models.Region {
	all := s.List()
	out := all[:0]
	for _, r := range all {
		if r.Page == page {
			out = append(out, r)
		}
	}
	return out[:len(out):len(out)]
}

// Len returns the number of regions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.regions)
}

func (s *Store) findLocked(id string) *models.Region {
	for _, r := range s.regions {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// renumberLocked reassigns dense 1..N numbers, preserving the survivors'
// relative order by previous number, ties broken by id.
func (s *Store) renumberLocked() {
	sort.SliceStable(s.regions, func(i, j int) bool {
		if s.regions[i].Number != s.regions[j].Number {
			return s.regions[i].Number < s.regions[j].Number
		}
		return s.regions[i].ID < s.regions[j].ID
	})
	for i, r := range s.regions {
		r.Number = i + 1
	}
}

func copyRegion(r *models.Region) *models.Region {
	cp := *r
	cp.Rects = append([]geometry.Rect(nil), r.Rects...)
	return &cp
}
