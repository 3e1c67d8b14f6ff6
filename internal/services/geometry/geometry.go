// Package geometry converts between the three coordinate spaces the
// correction engine works in:
//
//   - normalized space: fractions of a page's own width/height, in [0,1].
//     This is what we persist — it survives zoom, DPI and viewport changes.
//   - pixel space: coordinates on a rendered raster surface.
//   - point space: the PDF's native units (1/72 inch, origin bottom-left).
//
// Everything here is a pure function. Given the same inputs you always get
// the same outputs, which is what lets us re-derive pixel rects after a
// resize without accumulating drift.
package geometry

// Rect is an axis-aligned rectangle in normalized page coordinates.
// All four fields are fractions of the page's width/height.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PixelRect is an axis-aligned rectangle on a rendered surface, in pixels.
type PixelRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Surface is the pixel size of a rendered page.
type Surface struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Clamp bounds v to [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ToNormalized converts a pixel rect on the given surface to normalized
// page coordinates. A zero-sized surface yields a zero rect rather than NaN.
func ToNormalized(r PixelRect, s Surface) Rect {
	if s.Width <= 0 || s.Height <= 0 {
		return Rect{}
	}
	return Rect{
		X:      r.X / s.Width,
		Y:      r.Y / s.Height,
		Width:  r.Width / s.Width,
		Height: r.Height / s.Height,
	}
}

// ToPixels converts a normalized rect back to pixels on the given surface.
func ToPixels(r Rect, s Surface) PixelRect {
	return PixelRect{
		X:      r.X * s.Width,
		Y:      r.Y * s.Height,
		Width:  r.Width * s.Width,
		Height: r.Height * s.Height,
	}
}

// ClampRect forces a normalized rect inside the unit square, preserving its
// size when possible. Oversized rects are shrunk to fit. This is the rule
// behind drag/resize: out-of-bounds deltas are clamped, never rejected.
func ClampRect(r Rect) Rect {
	r.Width = Clamp(r.Width, 0, 1)
	r.Height = Clamp(r.Height, 0, 1)
	r.X = Clamp(r.X, 0, 1-r.Width)
	r.Y = Clamp(r.Y, 0, 1-r.Height)
	return r
}

// Normalize rewrites a rect so width/height are non-negative, moving the
// origin to the top-left corner. Drags can go in any direction; storage
// always uses positive sizes.
func Normalize(r Rect) Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}
