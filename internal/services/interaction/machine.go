// Package interaction implements the pointer-driven editing state machine
// that creates, drags and resizes regions on a rendered page.
//
// The machine is a pure transition function: Step(state, event) returns the
// next state plus a list of effects for the caller to apply (region store
// mutations, selection, pointer capture). Keeping it pure means the whole
// gesture model is testable without a rendering surface — the HTTP session
// adapter and any future native surface are thin wrappers around Step.
package interaction

import (
	"github.com/profyagosales/correction-engine-api/internal/services/geometry"
	"github.com/profyagosales/correction-engine-api/internal/services/palette"
	"github.com/profyagosales/correction-engine-api/internal/services/regions"
)

// Phase is the machine's current gesture.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseDrawing  Phase = "drawing"
	PhaseDragging Phase = "dragging"
	PhaseResizing Phase = "resizing"
)

// EventKind classifies incoming pointer events.
type EventKind string

const (
	PointerDown EventKind = "pointerdown"
	PointerMove EventKind = "pointermove"
	PointerUp   EventKind = "pointerup"
	// Cancel covers every external interruption: blur, escape, document
	// swap. Whatever was in progress is discarded, never committed.
	Cancel EventKind = "cancel"
)

// TargetKind says what was under the pointer when it went down.
type TargetKind string

const (
	TargetCanvas TargetKind = "canvas" // empty page area
	TargetRegion TargetKind = "region" // an existing region's body
	TargetHandle TargetKind = "handle" // a resize handle
)

// Handle names a resize handle by the edges it drags.
type Handle string

const (
	HandleN  Handle = "n"
	HandleS  Handle = "s"
	HandleE  Handle = "e"
	HandleW  Handle = "w"
	HandleNE Handle = "ne"
	HandleNW Handle = "nw"
	HandleSE Handle = "se"
	HandleSW Handle = "sw"
)

// Point is a position in normalized page coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Event is one pointer event, already converted to normalized coordinates by
// the adapter (pixel → normalized goes through the geometry package there).
type Event struct {
	Kind      EventKind  `json:"kind"`
	Page      int        `json:"page"`
	Point     Point      `json:"point"`
	PointerID int        `json:"pointer_id"`
	Target    TargetKind `json:"target,omitempty"`
	RegionID  string     `json:"region_id,omitempty"`
	Handle    Handle     `json:"handle,omitempty"`
	// RegionRect is the primary rect of the region under the pointer at
	// down time; the adapter looks it up from the store.
	RegionRect geometry.Rect `json:"region_rect,omitempty"`
}

// State is the machine state. The zero value is not usable; call NewState.
type State struct {
	Phase          Phase
	ActiveCategory palette.Category
	// Disabled blocks new gestures while printing/exporting.
	Disabled  bool
	PointerID int

	// Drawing
	Page    int
	Origin  Point
	Current Point

	// Dragging
	RegionID string
	Offset   Point
	SizeW    float64
	SizeH    float64

	// Resizing
	Handle Handle
	Anchor geometry.Rect
}

// NewState returns an idle machine with the given active category.
func NewState(active palette.Category) State {
	return State{Phase: PhaseIdle, ActiveCategory: active}
}

// Preview returns the live drawing rectangle, if any. It exists only in the
// machine state — nothing is written to the region store until commit.
func (s State) Preview() (geometry.Rect, bool) {
	if s.Phase != PhaseDrawing {
		return geometry.Rect{}, false
	}
	return geometry.Normalize(geometry.Rect{
		X:      s.Origin.X,
		Y:      s.Origin.Y,
		Width:  s.Current.X - s.Origin.X,
		Height: s.Current.Y - s.Origin.Y,
	}), true
}

// Effect is an action the caller must apply after a transition.
type Effect struct {
	Kind     EffectKind       `json:"kind"`
	Page     int              `json:"page,omitempty"`
	RegionID string           `json:"region_id,omitempty"`
	Rect     geometry.Rect    `json:"rect,omitempty"`
	Category palette.Category `json:"category,omitempty"`
}

// EffectKind enumerates the effects Step can emit.
type EffectKind string

const (
	EffectCreateRegion   EffectKind = "create_region"
	EffectMoveRegion     EffectKind = "move_region"
	EffectResizeRegion   EffectKind = "resize_region"
	EffectSelectRegion   EffectKind = "select_region"
	EffectCapturePointer EffectKind = "capture_pointer"
	EffectReleasePointer EffectKind = "release_pointer"
)

// Step advances the machine. Unrecognized or out-of-turn events (a second
// pointer during an active gesture, moves from a different pointer) are
// ignored and return the state unchanged.
func Step(s State, ev Event) (State, []Effect) {
	if ev.Kind == Cancel {
		return cancel(s)
	}

	switch s.Phase {
	case PhaseIdle:
		return stepIdle(s, ev)
	case PhaseDrawing:
		return stepDrawing(s, ev)
	case PhaseDragging:
		return stepDragging(s, ev)
	case PhaseResizing:
		return stepResizing(s, ev)
	}
	return s, nil
}

func cancel(s State) (State, []Effect) {
	var effects []Effect
	if s.Phase != PhaseIdle {
		effects = append(effects, Effect{Kind: EffectReleasePointer})
	}
	return idle(s), effects
}

func idle(s State) State {
	return State{Phase: PhaseIdle, ActiveCategory: s.ActiveCategory, Disabled: s.Disabled}
}

func stepIdle(s State, ev Event) (State, []Effect) {
	if ev.Kind != PointerDown || s.Disabled {
		return s, nil
	}

	switch ev.Target {
	case TargetCanvas:
		if s.ActiveCategory == "" {
			return s, nil
		}
		s.Phase = PhaseDrawing
		s.PointerID = ev.PointerID
		s.Page = ev.Page
		s.Origin = clampPoint(ev.Point)
		s.Current = s.Origin
		return s, []Effect{{Kind: EffectCapturePointer}}

	case TargetRegion:
		rect := ev.RegionRect
		p := clampPoint(ev.Point)
		s.Phase = PhaseDragging
		s.PointerID = ev.PointerID
		s.Page = ev.Page
		s.RegionID = ev.RegionID
		// Offset between pointer and region origin, clamped into the rect
		// so a grab near the edge cannot fling the region on first move.
		s.Offset = Point{
			X: geometry.Clamp(p.X-rect.X, 0, rect.Width),
			Y: geometry.Clamp(p.Y-rect.Y, 0, rect.Height),
		}
		s.SizeW = rect.Width
		s.SizeH = rect.Height
		return s, []Effect{
			{Kind: EffectSelectRegion, RegionID: ev.RegionID},
			{Kind: EffectCapturePointer},
		}

	case TargetHandle:
		s.Phase = PhaseResizing
		s.PointerID = ev.PointerID
		s.Page = ev.Page
		s.RegionID = ev.RegionID
		s.Handle = ev.Handle
		s.Anchor = ev.RegionRect
		return s, []Effect{
			{Kind: EffectSelectRegion, RegionID: ev.RegionID},
			{Kind: EffectCapturePointer},
		}
	}
	return s, nil
}

func stepDrawing(s State, ev Event) (State, []Effect) {
	if ev.PointerID != s.PointerID {
		return s, nil // single-pointer exclusivity via capture
	}

	switch ev.Kind {
	case PointerMove:
		s.Current = clampPoint(ev.Point)
		return s, nil

	case PointerUp:
		rect, _ := s.Preview()
		next := idle(s)
		effects := []Effect{{Kind: EffectReleasePointer}}
		// Below the minimum size it was a click, not a drag: discard
		// silently, never an error.
		if rect.Width > regions.MinWidth && rect.Height > regions.MinHeight {
			effects = append(effects, Effect{
				Kind:     EffectCreateRegion,
				Page:     s.Page,
				Rect:     geometry.ClampRect(rect),
				Category: s.ActiveCategory,
			})
		}
		return next, effects
	}
	return s, nil
}

func stepDragging(s State, ev Event) (State, []Effect) {
	if ev.PointerID != s.PointerID {
		return s, nil
	}

	switch ev.Kind {
	case PointerMove:
		p := clampPoint(ev.Point)
		rect := geometry.Rect{
			X:      geometry.Clamp(p.X-s.Offset.X, 0, 1-s.SizeW),
			Y:      geometry.Clamp(p.Y-s.Offset.Y, 0, 1-s.SizeH),
			Width:  s.SizeW,
			Height: s.SizeH,
		}
		return s, []Effect{{Kind: EffectMoveRegion, RegionID: s.RegionID, Rect: rect}}

	case PointerUp:
		return idle(s), []Effect{{Kind: EffectReleasePointer}}
	}
	return s, nil
}

func stepResizing(s State, ev Event) (State, []Effect) {
	if ev.PointerID != s.PointerID {
		return s, nil
	}

	switch ev.Kind {
	case PointerMove:
		rect := resizeRect(s.Anchor, s.Handle, clampPoint(ev.Point))
		return s, []Effect{{Kind: EffectResizeRegion, RegionID: s.RegionID, Rect: rect}}

	case PointerUp:
		return idle(s), []Effect{{Kind: EffectReleasePointer}}
	}
	return s, nil
}

// resizeRect recomputes a rect from its anchor and the dragged handle. The
// opposite corner/edge stays fixed; width/height are floored at the minimum
// region size and the result is clamped into the unit square.
func resizeRect(anchor geometry.Rect, h Handle, p Point) geometry.Rect {
	left := anchor.X
	right := anchor.X + anchor.Width
	top := anchor.Y
	bottom := anchor.Y + anchor.Height

	switch h {
	case HandleE, HandleNE, HandleSE:
		right = p.X
	case HandleW, HandleNW, HandleSW:
		left = p.X
	}
	switch h {
	case HandleS, HandleSE, HandleSW:
		bottom = p.Y
	case HandleN, HandleNE, HandleNW:
		top = p.Y
	}

	rect := geometry.Normalize(geometry.Rect{
		X: left, Y: top, Width: right - left, Height: bottom - top,
	})
	rect.Width = geometry.Clamp(rect.Width, regions.MinWidth, 1)
	rect.Height = geometry.Clamp(rect.Height, regions.MinHeight, 1)
	return geometry.ClampRect(rect)
}

func clampPoint(p Point) Point {
	return Point{X: geometry.Clamp(p.X, 0, 1), Y: geometry.Clamp(p.Y, 0, 1)}
}
