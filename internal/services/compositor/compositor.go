// Package compositor flattens a page raster and its annotation overlay into
// a single bitmap for printing and export. Export output always renders at
// a fixed 2x scale so the printed sheet stays crisp regardless of what the
// correction view happened to be zoomed to.
package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/profyagosales/correction-engine-api/internal/models"
	"github.com/profyagosales/correction-engine-api/internal/services/document"
	"github.com/profyagosales/correction-engine-api/internal/services/geometry"
	"github.com/profyagosales/correction-engine-api/internal/services/palette"
	"github.com/profyagosales/correction-engine-api/internal/services/raster"
)

// PrintScale is the fixed raster scale for export output, independent of
// any on-screen zoom.
const PrintScale = 2.0

// Badge geometry in page points; scaled with the raster.
const (
	badgeSize     = 14.0
	badgeFontSize = 9.0
	borderWidth   = 1.0
)

// Page is one composited export page, PNG-encoded.
type Page struct {
	Page   int
	PNG    []byte
	Width  int
	Height int
}

// Compositor renders pages and burns the annotation overlay into them.
type Compositor struct {
	renderer *raster.Renderer
	palette  *palette.Palette

	mu        sync.Mutex
	badgeFont *opentype.Font
	badgeFace font.Face
}

// New builds a Compositor drawing its colors from pal.
func New(renderer *raster.Renderer, pal *palette.Palette) *Compositor {
	return &Compositor{renderer: renderer, palette: pal}
}

// ComposeRange composites the inclusive page range [first, last]. Zero
// values select the full document. Regions outside the range are skipped.
func (c *Compositor) ComposeRange(ctx context.Context, h *document.Handle, regions []*models.Region, first, last int) ([]*Page, error) {
	count := h.PageCount()
	if first < 1 {
		first = 1
	}
	if last < 1 || last > count {
		last = count
	}
	if first > last {
		return nil, fmt.Errorf("page range %d..%d is empty", first, last)
	}

	byPage := make(map[int][]*models.Region)
	for _, reg := range regions {
		byPage[reg.Page] = append(byPage[reg.Page], reg)
	}

	pages := make([]*Page, 0, last-first+1)
	for p := first; p <= last; p++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := c.ComposePage(ctx, h, byPage[p], p)
		if err != nil {
			return nil, fmt.Errorf("compositing page %d: %w", p, err)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// ComposePage rasterizes one page at PrintScale and draws the given regions
// over it: translucent category fill, solid border, and a numbered badge at
// the top-left corner of the region's first rectangle.
func (c *Compositor) ComposePage(ctx context.Context, h *document.Handle, regions []*models.Region, page int) (*Page, error) {
	res, err := c.renderer.Render(ctx, h, raster.Request{Page: page, Scale: PrintScale, DPR: 1.0})
	if err != nil {
		return nil, err
	}

	img := res.Image
	surface := geometry.Surface{Width: float64(res.Width), Height: float64(res.Height)}

	for _, reg := range regions {
		fill := image.NewUniform(c.palette.Fill(reg.Category))
		border := image.NewUniform(c.palette.Border(reg.Category))
		for _, r := range reg.Rects {
			px := geometry.ToPixels(r, surface)
			bounds := pixelBounds(px)
			draw.Draw(img, bounds, fill, image.Point{}, draw.Over)
			drawBorder(img, bounds, border, int(math.Round(borderWidth*PrintScale)))
		}
		if len(reg.Rects) > 0 {
			if err := c.drawBadge(img, geometry.ToPixels(reg.Rects[0], surface), reg); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding page %d: %w", page, err)
	}
	return &Page{Page: page, PNG: buf.Bytes(), Width: res.Width, Height: res.Height}, nil
}

// drawBadge paints the region number in a solid square anchored to the
// rectangle's top-left corner, mirroring the on-screen marker so printed
// numbers line up with the comment list.
func (c *Compositor) drawBadge(img *image.RGBA, px geometry.PixelRect, reg *models.Region) error {
	size := int(math.Round(badgeSize * PrintScale))
	x0 := int(math.Round(px.X))
	y0 := int(math.Round(px.Y)) - size
	if y0 < 0 {
		y0 = 0
	}
	rect := image.Rect(x0, y0, x0+size, y0+size).Intersect(img.Bounds())

	bg := c.palette.Border(reg.Category)
	bg.A = 0xFF
	draw.Draw(img, rect, image.NewUniform(bg), image.Point{}, draw.Src)

	face, err := c.face()
	if err != nil {
		return err
	}
	label := strconv.Itoa(reg.Number)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{0x1F, 0x1F, 0x1F, 0xFF}),
		Face: face,
	}
	w := d.MeasureString(label)
	d.Dot = fixed.Point26_6{
		X: fixed.I(x0+size/2) - w/2,
		Y: fixed.I(y0 + size*3/4),
	}
	d.DrawString(label)
	return nil
}

func (c *Compositor) face() (font.Face, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.badgeFace != nil {
		return c.badgeFace, nil
	}
	if c.badgeFont == nil {
		f, err := opentype.Parse(gobold.TTF)
		if err != nil {
			return nil, err
		}
		c.badgeFont = f
	}
	face, err := opentype.NewFace(c.badgeFont, &opentype.FaceOptions{
		Size:    badgeFontSize * PrintScale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	c.badgeFace = face
	return face, nil
}

func pixelBounds(px geometry.PixelRect) image.Rectangle {
	return image.Rect(
		int(math.Round(px.X)),
		int(math.Round(px.Y)),
		int(math.Round(px.X+px.Width)),
		int(math.Round(px.Y+px.Height)),
	)
}

// drawBorder strokes the rectangle outline inward with the given width.
func drawBorder(img *image.RGBA, r image.Rectangle, src image.Image, width int) {
	if width < 1 {
		width = 1
	}
	top := image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width)
	bottom := image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y)
	left := image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y)
	right := image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y)
	for _, edge := range []image.Rectangle{top, bottom, left, right} {
		draw.Draw(img, edge, src, image.Point{}, draw.Over)
	}
}
