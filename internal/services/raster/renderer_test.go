package raster

import (
	"context"
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/profyagosales/correction-engine-api/internal/services/document"
)

func TestFitWidthScale(t *testing.T) {
	tests := []struct {
		name           string
		containerWidth float64
		pageWidth      float64
		want           float64
	}{
		{"exact fit", 612, 612, 1.0},
		{"wide container", 1224, 612, 2.0},
		{"narrow container clamps low", 30, 612, MinScale},
		{"huge container clamps high", 10000, 612, MaxScale},
		{"zero page width", 800, 0, MinScale},
		{"zero container", 0, 612, MinScale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitWidthScale(tt.containerWidth, tt.pageWidth)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("FitWidthScale(%g, %g) = %g, want %g",
					tt.containerWidth, tt.pageWidth, got, tt.want)
			}
		})
	}
}

func TestClampDPR(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.0, 1.0},
		{1.5, 1.5},
		{2.0, 2.0},
		{3.0, 2.0}, // retina tablets report 3; surface cost is capped
		{0, 1.0},
		{-1, 1.0},
	}
	for _, tt := range tests {
		if got := ClampDPR(tt.in); got != tt.want {
			t.Errorf("ClampDPR(%g) = %g, want %g", tt.in, got, tt.want)
		}
	}
}

func TestRenderSurfaceDimensions(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	h := decodeTestDoc(t, 1)
	defer h.Close()

	res, err := r.Render(context.Background(), h, Request{Page: 1, Scale: 1.0, DPR: 2.0})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// 612x792 points at scale 1 and DPR 2 is a 1224x1584 device surface.
	if res.Width != 1224 || res.Height != 1584 {
		t.Errorf("surface = %dx%d, want 1224x1584", res.Width, res.Height)
	}
	if res.Placeholder {
		t.Error("healthy page rendered as placeholder")
	}
	// Empty page renders white.
	if c := res.Image.RGBAAt(10, 10); c != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("corner pixel = %v, want white", c)
	}
}

func TestRenderClampsExtremes(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	h := decodeTestDoc(t, 1)
	defer h.Close()

	res, err := r.Render(context.Background(), h, Request{Page: 1, Scale: 99, DPR: 9})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	wantW := int(math.Round(612 * MaxScale * MaxDevicePixelRatio))
	if res.Width != wantW {
		t.Errorf("clamped width = %d, want %d", res.Width, wantW)
	}
	if res.Scale != MaxScale {
		t.Errorf("reported scale = %g, want %g", res.Scale, MaxScale)
	}
}

func TestRenderPageOutOfRange(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	h := decodeTestDoc(t, 2)
	defer h.Close()

	if _, err := r.Render(context.Background(), h, Request{Page: 5, Scale: 1, DPR: 1}); err == nil {
		t.Error("render of page 5 in a 2-page document succeeded")
	}
}

func TestRenderCancelledContext(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	h := decodeTestDoc(t, 1)
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Render(ctx, h, Request{Page: 1, Scale: 1, DPR: 1}); err == nil {
		t.Error("render on a cancelled context succeeded")
	}
}

func TestRenderClosedHandleReportsSwap(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	h := decodeTestDoc(t, 1)
	h.Close()

	// A handle destroyed by a document swap is a conflict the caller must
	// see, never a placeholder served as if the page were merely broken.
	if _, err := r.Render(context.Background(), h, Request{Page: 1, Scale: 1, DPR: 1}); !errors.Is(err, document.ErrHandleClosed) {
		t.Errorf("Render on closed handle: %v, want ErrHandleClosed", err)
	}
}

func TestRenderBrokenPageIsPlaceholder(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	h := decodeBrokenDoc(t)
	defer h.Close()

	// A page whose content stream cannot be read degrades to a neutral
	// placeholder instead of failing the whole request.
	res, err := r.Render(context.Background(), h, Request{Page: 1, Scale: 1, DPR: 1})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !res.Placeholder {
		t.Error("expected a placeholder raster for an unreadable page")
	}
}
