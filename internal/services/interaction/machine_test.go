package interaction

import (
	"testing"

	"github.com/profyagosales/correction-engine-api/internal/services/geometry"
	"github.com/profyagosales/correction-engine-api/internal/services/palette"
	"github.com/profyagosales/correction-engine-api/internal/services/regions"
)

func findEffect(effects []Effect, kind EffectKind) (Effect, bool) {
	for _, e := range effects {
		if e.Kind == kind {
			return e, true
		}
	}
	return Effect{}, false
}

func TestDrawCommitsAboveThreshold(t *testing.T) {
	s := NewState(palette.CategoryArgument)

	s, effects := Step(s, Event{Kind: PointerDown, Page: 2, PointerID: 1, Target: TargetCanvas, Point: Point{X: 0.1, Y: 0.2}})
	if s.Phase != PhaseDrawing {
		t.Fatalf("phase = %s, want drawing", s.Phase)
	}
	if _, ok := findEffect(effects, EffectCapturePointer); !ok {
		t.Error("pointer not captured on draw start")
	}

	s, _ = Step(s, Event{Kind: PointerMove, Page: 2, PointerID: 1, Point: Point{X: 0.4, Y: 0.25}})
	if preview, ok := s.Preview(); !ok || preview.Width == 0 {
		t.Fatalf("expected live preview, got %+v ok=%v", preview, ok)
	}

	s, effects = Step(s, Event{Kind: PointerUp, Page: 2, PointerID: 1, Point: Point{X: 0.4, Y: 0.25}})
	if s.Phase != PhaseIdle {
		t.Fatalf("phase after up = %s, want idle", s.Phase)
	}
	create, ok := findEffect(effects, EffectCreateRegion)
	if !ok {
		t.Fatal("no create effect after committed drag")
	}
	want := geometry.Rect{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.05}
	if create.Page != 2 || create.Category != palette.CategoryArgument {
		t.Errorf("create effect = %+v", create)
	}
	approx := func(a, b float64) bool { d := a - b; return d < 1e-9 && d > -1e-9 }
	if !approx(create.Rect.X, want.X) || !approx(create.Rect.Width, want.Width) || !approx(create.Rect.Height, want.Height) {
		t.Errorf("create rect = %+v, want %+v", create.Rect, want)
	}
}

func TestDegenerateDragCreatesNothing(t *testing.T) {
	s := NewState(palette.CategoryGrammar)

	s, _ = Step(s, Event{Kind: PointerDown, Page: 1, PointerID: 1, Target: TargetCanvas, Point: Point{X: 0.5, Y: 0.5}})
	// Zero net movement: pointer up exactly where it went down.
	s, effects := Step(s, Event{Kind: PointerUp, Page: 1, PointerID: 1, Point: Point{X: 0.5, Y: 0.5}})

	if _, ok := findEffect(effects, EffectCreateRegion); ok {
		t.Error("click without movement created a region")
	}
	if _, ok := findEffect(effects, EffectReleasePointer); !ok {
		t.Error("pointer not released after click")
	}
	if s.Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", s.Phase)
	}
}

func TestDrawBelowMinimumDiscarded(t *testing.T) {
	s := NewState(palette.CategoryGeneral)
	s, _ = Step(s, Event{Kind: PointerDown, Page: 1, PointerID: 1, Target: TargetCanvas, Point: Point{X: 0.5, Y: 0.5}})
	s, _ = Step(s, Event{Kind: PointerMove, Page: 1, PointerID: 1, Point: Point{X: 0.505, Y: 0.502}})
	_, effects := Step(s, Event{Kind: PointerUp, Page: 1, PointerID: 1, Point: Point{X: 0.505, Y: 0.502}})
	if _, ok := findEffect(effects, EffectCreateRegion); ok {
		t.Error("sub-threshold drag created a region")
	}
}

func TestNoActiveCategoryNoDrawing(t *testing.T) {
	s := NewState("")
	s, effects := Step(s, Event{Kind: PointerDown, Page: 1, PointerID: 1, Target: TargetCanvas, Point: Point{X: 0.2, Y: 0.2}})
	if s.Phase != PhaseIdle || len(effects) != 0 {
		t.Errorf("drawing started without an active category: %s %v", s.Phase, effects)
	}
}

func TestDragClampsWithinPage(t *testing.T) {
	s := NewState(palette.CategoryArgument)
	rect := geometry.Rect{X: 0.8, Y: 0.1, Width: 0.3, Height: 0.1}

	s, effects := Step(s, Event{
		Kind: PointerDown, Page: 1, PointerID: 1,
		Target: TargetRegion, RegionID: "r1", RegionRect: rect,
		Point: Point{X: 0.85, Y: 0.15},
	})
	if s.Phase != PhaseDragging {
		t.Fatalf("phase = %s, want dragging", s.Phase)
	}
	if _, ok := findEffect(effects, EffectSelectRegion); !ok {
		t.Error("grabbing a region did not select it")
	}

	// Drag right by +0.5: x would be 1.3, must clamp to 1-width = 0.7.
	_, effects = Step(s, Event{Kind: PointerMove, Page: 1, PointerID: 1, Point: Point{X: 1.0, Y: 0.15}})
	move, ok := findEffect(effects, EffectMoveRegion)
	if !ok {
		t.Fatal("no move effect during drag")
	}
	if move.Rect.X != 0.7 {
		t.Errorf("x after clamped drag = %v, want 0.7", move.Rect.X)
	}
	if move.Rect.Width != rect.Width || move.Rect.Height != rect.Height {
		t.Errorf("drag changed size: %+v", move.Rect)
	}
}

func TestSecondPointerIgnored(t *testing.T) {
	s := NewState(palette.CategoryArgument)
	s, _ = Step(s, Event{Kind: PointerDown, Page: 1, PointerID: 1, Target: TargetCanvas, Point: Point{X: 0.1, Y: 0.1}})

	// A second pointer goes down and moves; the gesture must not notice.
	before := s
	s, effects := Step(s, Event{Kind: PointerDown, Page: 1, PointerID: 2, Target: TargetCanvas, Point: Point{X: 0.9, Y: 0.9}})
	if len(effects) != 0 || s.Phase != PhaseDrawing {
		t.Error("second pointer-down disturbed the active gesture")
	}
	s, _ = Step(s, Event{Kind: PointerMove, Page: 1, PointerID: 2, Point: Point{X: 0.8, Y: 0.8}})
	if s.Current != before.Current {
		t.Error("move from a second pointer updated the preview")
	}
}

func TestResizeFloorsAtMinimum(t *testing.T) {
	s := NewState(palette.CategoryArgument)
	anchor := geometry.Rect{X: 0.2, Y: 0.2, Width: 0.3, Height: 0.1}

	s, _ = Step(s, Event{
		Kind: PointerDown, Page: 1, PointerID: 1,
		Target: TargetHandle, RegionID: "r1", Handle: HandleSE,
		RegionRect: anchor, Point: Point{X: 0.5, Y: 0.3},
	})
	if s.Phase != PhaseResizing {
		t.Fatalf("phase = %s, want resizing", s.Phase)
	}

	// Collapse the rect past its own origin: floor, never zero.
	_, effects := Step(s, Event{Kind: PointerMove, Page: 1, PointerID: 1, Point: Point{X: 0.2001, Y: 0.2}})
	resize, ok := findEffect(effects, EffectResizeRegion)
	if !ok {
		t.Fatal("no resize effect")
	}
	if resize.Rect.Width < regions.MinWidth || resize.Rect.Height < regions.MinHeight {
		t.Errorf("resize went below minimum: %+v", resize.Rect)
	}
	if resize.Rect.Width == 0 || resize.Rect.Height == 0 {
		t.Error("resize produced zero size")
	}
}

func TestResizeAnchorsOppositeCorner(t *testing.T) {
	s := NewState(palette.CategoryArgument)
	anchor := geometry.Rect{X: 0.2, Y: 0.2, Width: 0.3, Height: 0.1}

	s, _ = Step(s, Event{
		Kind: PointerDown, Page: 1, PointerID: 1,
		Target: TargetHandle, RegionID: "r1", Handle: HandleNW,
		RegionRect: anchor, Point: Point{X: 0.2, Y: 0.2},
	})
	_, effects := Step(s, Event{Kind: PointerMove, Page: 1, PointerID: 1, Point: Point{X: 0.1, Y: 0.15}})
	resize, _ := findEffect(effects, EffectResizeRegion)

	// Bottom-right corner stays fixed at (0.5, 0.3).
	approx := func(a, b float64) bool { d := a - b; return d < 1e-9 && d > -1e-9 }
	if !approx(resize.Rect.X+resize.Rect.Width, 0.5) || !approx(resize.Rect.Y+resize.Rect.Height, 0.3) {
		t.Errorf("opposite corner moved during nw resize: %+v", resize.Rect)
	}
}

func TestCancelDiscardsPreview(t *testing.T) {
	s := NewState(palette.CategoryArgument)
	s, _ = Step(s, Event{Kind: PointerDown, Page: 1, PointerID: 1, Target: TargetCanvas, Point: Point{X: 0.1, Y: 0.1}})
	s, _ = Step(s, Event{Kind: PointerMove, Page: 1, PointerID: 1, Point: Point{X: 0.6, Y: 0.6}})

	s, effects := Step(s, Event{Kind: Cancel})
	if s.Phase != PhaseIdle {
		t.Errorf("phase after cancel = %s, want idle", s.Phase)
	}
	if _, ok := findEffect(effects, EffectCreateRegion); ok {
		t.Error("cancel committed the preview")
	}
	if _, ok := findEffect(effects, EffectReleasePointer); !ok {
		t.Error("cancel did not release the pointer")
	}
}

func TestDisabledBlocksGestures(t *testing.T) {
	s := NewState(palette.CategoryArgument)
	s.Disabled = true

	s, effects := Step(s, Event{Kind: PointerDown, Page: 1, PointerID: 1, Target: TargetCanvas, Point: Point{X: 0.1, Y: 0.1}})
	if s.Phase != PhaseIdle || len(effects) != 0 {
		t.Error("gesture started while disabled (printing/exporting)")
	}
}
