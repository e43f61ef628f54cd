package pdf

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/ximiwu/Exocortex/pkg/models"
)

// Document adapts a go-fitz document to the Rasterizer interface. go-fitz
// handles are not safe for concurrent use, so every call on the underlying
// document is serialized by a mutex; that makes Rasterize safe to invoke
// from cache workers.
type Document struct {
	mu   sync.Mutex
	doc  *fitz.Document
	path string
}

// Open opens the PDF at path for rasterization.
func Open(path string) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	return &Document{doc: doc, path: path}, nil
}

// Path returns the path the document was opened from.
func (d *Document) Path() string { return d.path }

// PageCount returns the number of pages, or zero after Close.
func (d *Document) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return 0
	}
	return d.doc.NumPage()
}

// PageBounds returns the document-space size of a page in points.
func (d *Document) PageBounds(pageIndex int) (models.PageDimensions, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return models.PageDimensions{}, fmt.Errorf("document %s is closed", d.path)
	}
	bounds, err := d.doc.Bound(pageIndex)
	if err != nil {
		return models.PageDimensions{}, fmt.Errorf("failed to get bounds for page %d: %w", pageIndex, err)
	}
	return models.PageDimensions{
		Width:  float64(bounds.Dx()),
		Height: float64(bounds.Dy()),
	}, nil
}

// Rasterize renders one page at the given DPI. The returned buffer is copied
// out of the renderer's native memory, so its lifetime is independent of the
// document handle. Failures are reported as *RasterizationError.
func (d *Document) Rasterize(ctx context.Context, pageIndex int, dpi float64) (*image.RGBA, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil, &RasterizationError{PageIndex: pageIndex, Err: fmt.Errorf("document %s is closed", d.path)}
	}
	img, err := d.doc.ImageDPI(pageIndex, dpi)
	if err != nil {
		return nil, &RasterizationError{PageIndex: pageIndex, Err: err}
	}
	return cloneRGBA(img), nil
}

// Close releases the underlying document handle.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	if err != nil {
		return fmt.Errorf("failed to close PDF %s: %w", d.path, err)
	}
	return nil
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := &image.RGBA{
		Pix:    make([]uint8, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	copy(dst.Pix, src.Pix)
	return dst
}
