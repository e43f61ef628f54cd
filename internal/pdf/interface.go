package pdf

import (
	"context"
	"fmt"
	"image"

	"github.com/ximiwu/Exocortex/pkg/models"
)

// Rasterizer is the external rendering collaborator: something that can
// describe a paginated document and turn a page into pixels at a requested
// resolution. Rasterize must be safe to call from a worker goroutine.
type Rasterizer interface {
	PageCount() int
	PageBounds(pageIndex int) (models.PageDimensions, error)
	Rasterize(ctx context.Context, pageIndex int, dpi float64) (*image.RGBA, error)
}

// RasterizationError reports a failure to rasterize one page. It carries the
// page index alongside the underlying cause; the session stays usable.
type RasterizationError struct {
	PageIndex int
	Err       error
}

func (e *RasterizationError) Error() string {
	return fmt.Sprintf("rasterizing page %d: %v", e.PageIndex, e.Err)
}

func (e *RasterizationError) Unwrap() error { return e.Err }
