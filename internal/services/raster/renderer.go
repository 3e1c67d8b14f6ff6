// Package raster turns a decoded document page into a bitmap. It paints the
// page as positioned text runs on a white surface, which is what the essay
// corpus needs: scanned essays arrive pre-flattened and authored essays are
// text over white.
package raster

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/profyagosales/correction-engine-api/internal/services/document"
)

// Scale and pixel-density bounds. Fit-width scales outside this range
// produce either useless thumbnails or runaway surfaces, so both ends are
// clamped. Device pixel ratio is capped because beyond 2x the extra pixels
// are invisible and the surface cost is quadratic.
const (
	MinScale            = 0.1
	MaxScale            = 4.0
	MaxDevicePixelRatio = 2.0
	minContainerWidth   = 1.0
	placeholderGray     = 0xF3
)

// Request describes one page raster.
type Request struct {
	Page  int
	Scale float64 // CSS-pixel scale relative to the page's native point size
	DPR   float64 // device pixel ratio; capped at MaxDevicePixelRatio
}

// Result is a finished raster. Placeholder is set when page decoding failed
// and a neutral surface was produced instead; the document as a whole stays
// usable.
type Result struct {
	Page        int
	Image       *image.RGBA
	Width       int // device pixels
	Height      int
	Scale       float64
	Placeholder bool
}

// FitWidthScale computes the scale at which a page's native width fills the
// container, clamped to [MinScale, MaxScale].
func FitWidthScale(containerWidth, pageWidth float64) float64 {
	if pageWidth <= 0 || containerWidth < minContainerWidth {
		return MinScale
	}
	scale := containerWidth / pageWidth
	if scale < MinScale {
		return MinScale
	}
	if scale > MaxScale {
		return MaxScale
	}
	return scale
}

// ClampDPR caps the device pixel ratio. Zero or negative means the caller
// did not report one, which renders at 1x.
func ClampDPR(dpr float64) float64 {
	if dpr <= 0 {
		return 1.0
	}
	if dpr > MaxDevicePixelRatio {
		return MaxDevicePixelRatio
	}
	return dpr
}

// Renderer rasterizes pages with latest-wins semantics: a new request for a
// page cancels the in-flight render of that same page. Requests for
// different pages proceed independently.
type Renderer struct {
	fontSrc *opentype.Font
	facesMu sync.Mutex
	faces   map[int]font.Face // keyed by pixel size

	mu      sync.Mutex
	gen     uint64
	renders map[int]*pageRender
}

type pageRender struct {
	gen    uint64
	cancel context.CancelFunc
}

// NewRenderer builds a Renderer. The embedded Go Regular face substitutes
// for the document's own fonts; glyph-exact fidelity is not a goal of the
// correction surface, legible geometry-faithful text is.
func NewRenderer() (*Renderer, error) {
	src, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		fontSrc: src,
		faces:   make(map[int]font.Face),
		renders: make(map[int]*pageRender),
	}, nil
}

// Render rasterizes one page of the handle. If another render for the same
// page is in flight it is cancelled first; if this render is itself
// superseded before finishing, Render returns context.Canceled and the
// caller must treat it as silence, not failure.
func (r *Renderer) Render(ctx context.Context, h *document.Handle, req Request) (*Result, error) {
	scale := req.Scale
	if scale < MinScale {
		scale = MinScale
	}
	if scale > MaxScale {
		scale = MaxScale
	}
	dpr := ClampDPR(req.DPR)

	ctx, gen := r.claim(ctx, req.Page)
	defer r.release(req.Page, gen)

	info, err := h.PageInfo(req.Page)
	if err != nil {
		return nil, err
	}

	px := scale * dpr
	w := int(math.Round(info.Width * px))
	hgt := int(math.Round(info.Height * px))
	if w < 1 {
		w = 1
	}
	if hgt < 1 {
		hgt = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, w, hgt))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	runs, err := h.TextRuns(ctx, req.Page)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// A swapped-out handle is a conflict for the caller to signal, not
		// a bad page.
		if errors.Is(err, document.ErrHandleClosed) {
			return nil, err
		}
		// A single bad page must not take the document down. Surface a
		// neutral placeholder and keep the rest of the pages rendering.
		log.Printf("raster: page %d of %s failed, using placeholder: %v", req.Page, h.Ref(), err)
		draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: placeholderGray}), image.Point{}, draw.Src)
		return &Result{Page: req.Page, Image: img, Width: w, Height: hgt, Scale: scale, Placeholder: true}, nil
	}

	black := image.NewUniform(color.Black)
	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		face, err := r.face(run.FontSize * px)
		if err != nil {
			continue
		}
		// PDF text space puts the origin at the bottom-left with y
		// increasing upward; image space is top-left down.
		x := run.X * px
		y := (info.Height - run.Y) * px
		d := &font.Drawer{
			Dst:  img,
			Src:  black,
			Face: face,
			Dot:  fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(y)},
		}
		d.DrawString(run.Text)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{Page: req.Page, Image: img, Width: w, Height: hgt, Scale: scale}, nil
}

// claim registers this render as the latest for the page, cancelling any
// predecessor.
func (r *Renderer) claim(ctx context.Context, page int) (context.Context, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev := r.renders[page]; prev != nil {
		prev.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	r.gen++
	cur := &pageRender{gen: r.gen, cancel: cancel}
	r.renders[page] = cur
	return ctx, cur.gen
}

func (r *Renderer) release(page int, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.renders[page]
	if cur != nil && cur.gen == gen {
		cur.cancel()
		delete(r.renders, page)
	}
}

// CancelAll aborts every in-flight render, used when the document handle is
// about to be destroyed.
func (r *Renderer) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for page, pr := range r.renders {
		pr.cancel()
		delete(r.renders, page)
	}
}

// face returns a cached face for the given pixel size, rounded to whole
// pixels to keep the cache bounded.
func (r *Renderer) face(size float64) (font.Face, error) {
	px := int(math.Round(size))
	if px < 4 {
		px = 4
	}
	if px > 288 {
		px = 288
	}

	r.facesMu.Lock()
	defer r.facesMu.Unlock()
	if f, ok := r.faces[px]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(r.fontSrc, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	r.faces[px] = f
	return f, nil
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
