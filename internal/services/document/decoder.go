// decoder.go wraps the decoded PDF document behind a Handle.
//
// We use the ledongthuc/pdf library — a pure Go implementation, no CGO or
// external dependencies, so deployment stays a single binary. The library
// needs random access to the PDF structure, hence bytes.Reader over the
// fetched payload rather than streaming.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ledongthuc/pdf"

	"github.com/profyagosales/correction-engine-api/internal/models"
)

// ErrHandleClosed is returned for any operation on a destroyed handle.
var ErrHandleClosed = errors.New("document handle is closed")

// Default page size (US Letter, in points) when a malformed page carries no
// resolvable MediaBox anywhere in its parent chain.
const (
	fallbackPageWidth  = 612.0
	fallbackPageHeight = 792.0
)

// TextRun is one positioned text fragment on a page, in PDF point space
// (origin bottom-left, y increasing upward).
type TextRun struct {
	X        float64
	Y        float64
	W        float64
	FontSize float64
	Text     string
}

// Handle wraps a decoded document plus its page count and per-page native
// sizes. It is owned exclusively by the lifecycle Manager; everything else
// borrows it and must tolerate Close happening on swap.
type Handle struct {
	ref    string
	reader *pdf.Reader
	pages  []models.PageInfo

	mu       sync.Mutex
	closed   bool
	textRuns map[int][]TextRun // lazy per-page cache
}

// ValidatePDF checks the magic bytes before handing data to the decoder.
func ValidatePDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

// Decode opens the document bytes and resolves every page's native size.
// A corrupt or unsupported document fails here and is reported on the same
// recoverable path as an acquisition failure.
func Decode(ref string, data []byte) (*Handle, error) {
	if !ValidatePDF(data) {
		return nil, fmt.Errorf("document %s is not a PDF", ref)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PDF: %w", err)
	}

	count := reader.NumPage()
	if count == 0 {
		return nil, fmt.Errorf("document %s has no pages", ref)
	}

	pages := make([]models.PageInfo, 0, count)
	for i := 1; i <= count; i++ {
		w, h := resolvePageSize(reader, i)
		pages = append(pages, models.PageInfo{Page: i, Width: w, Height: h})
	}

	return &Handle{
		ref:      ref,
		reader:   reader,
		pages:    pages,
		textRuns: make(map[int][]TextRun),
	}, nil
}

// Ref returns the document reference this handle was opened from.
func (h *Handle) Ref() string { return h.ref }

// PageCount returns the number of pages.
func (h *Handle) PageCount() int { return len(h.pages) }

// Pages returns every page's native size in points.
func (h *Handle) Pages() []models.PageInfo {
	out := make([]models.PageInfo, len(h.pages))
	copy(out, h.pages)
	return out
}

// PageInfo returns one page's native size. Pages are 1-based.
func (h *Handle) PageInfo(page int) (models.PageInfo, error) {
	if page < 1 || page > len(h.pages) {
		return models.PageInfo{}, fmt.Errorf("page %d out of range 1..%d", page, len(h.pages))
	}
	return h.pages[page-1], nil
}

// TextRuns extracts the positioned text fragments of a page, caching the
// result. ctx bounds the extraction — page decode is a suspension point and
// must stay cancellable.
func (h *Handle) TextRuns(ctx context.Context, page int) ([]TextRun, error) {
	if _, err := h.PageInfo(page); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHandleClosed
	}
	if runs, ok := h.textRuns[page]; ok {
		return runs, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := pageContent(h.reader, page)
	if err != nil {
		return nil, err
	}

	runs := make([]TextRun, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		runs = append(runs, TextRun{
			X:        t.X,
			Y:        t.Y,
			W:        t.W,
			FontSize: t.FontSize,
			Text:     t.S,
		})
	}
	h.textRuns[page] = runs
	return runs, nil
}

// Close destroys the handle, releasing the decoded document. Safe to call
// more than once. After Close every operation fails with ErrHandleClosed —
// a superseded handle must never serve a stale page to a fresh view.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.reader = nil
	h.textRuns = nil
	return nil
}

// Destroyed reports whether Close has run.
func (h *Handle) Destroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// pageContent extracts a page's content stream. The library's content
// interpreter panics on malformed operator streams instead of returning an
// error; a corrupt page must surface as a page error the renderer can
// contain, never as a crash, so the panic is recovered here.
func pageContent(reader *pdf.Reader, page int) (content pdf.Content, err error) {
	defer func() {
		if r := recover(); r != nil {
			content = pdf.Content{}
			err = fmt.Errorf("malformed content stream on page %d: %v", page, r)
		}
	}()

	p := reader.Page(page)
	if p.V.IsNull() || p.V.Key("Contents").IsNull() {
		return pdf.Content{}, nil
	}
	return p.Content(), nil
}

// resolvePageSize looks up one page's size, falling back to the default when
// the page dictionary is broken enough to panic the library.
func resolvePageSize(reader *pdf.Reader, page int) (w, h float64) {
	defer func() {
		if recover() != nil {
			w, h = fallbackPageWidth, fallbackPageHeight
		}
	}()
	return pageSize(reader.Page(page))
}

// pageSize resolves a page's MediaBox, walking the parent chain since the
// attribute is inheritable.
func pageSize(p pdf.Page) (w, h float64) {
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.IsNull() || box.Len() != 4 {
			continue
		}
		llx, lly := box.Index(0).Float64(), box.Index(1).Float64()
		urx, ury := box.Index(2).Float64(), box.Index(3).Float64()
		w, h = urx-llx, ury-lly
		if w > 0 && h > 0 {
			return w, h
		}
	}
	return fallbackPageWidth, fallbackPageHeight
}
