package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/ximiwu/Exocortex/pkg/logger"
)

// ErrCacheClosed is returned by cache operations after Close.
var ErrCacheClosed = errors.New("raster cache is closed")

// Raster is a rasterized page at a specific resolution. The image is owned
// by the cache; consumers get a read-only view and must not modify or retain
// ownership of the pixel data.
type Raster struct {
	PageIndex int
	DPI       float64
	Image     *image.RGBA
}

// Width returns the pixel width of the raster.
func (r *Raster) Width() int { return r.Image.Bounds().Dx() }

// Height returns the pixel height of the raster.
func (r *Raster) Height() int { return r.Image.Bounds().Dy() }

type rasterKey struct {
	page int
	dpi  float64
}

// inflight is one pending rasterization. Callers asking for the same
// (page, dpi) before it completes wait on the same done channel, so a key is
// rasterized at most once at a time. gen is the page generation the render
// was issued under: a caller arriving after an Invalidate must not join it,
// or it would be handed the pre-invalidation pixels.
type inflight struct {
	done   chan struct{}
	gen    int
	raster *Raster
	err    error
}

// RasterCache owns the rasterized page buffers for one open document. It
// keeps at most one raster per page: asking for a page at a new resolution
// evicts the old entry for that page on completion.
//
// Cache misses are rendered on a worker goroutine. Invalidate and Close bump
// a per-page generation counter; an in-flight result whose generation no
// longer matches is handed to the callers that are already waiting but is
// not cached.
type RasterCache struct {
	mu      sync.Mutex
	src     Rasterizer
	log     *logger.Logger
	entries map[int]*Raster
	pending map[rasterKey]*inflight
	gen     map[int]int
	closed  bool
}

// NewRasterCache returns an empty cache backed by the given rasterizer.
func NewRasterCache(src Rasterizer, log *logger.Logger) *RasterCache {
	return &RasterCache{
		src:     src,
		log:     log,
		entries: make(map[int]*Raster),
		pending: make(map[rasterKey]*inflight),
		gen:     make(map[int]int),
	}
}

// Ensure returns the cached raster for (pageIndex, dpi), rasterizing on a
// worker if needed. Concurrent calls for the same key are coalesced onto one
// underlying rasterization. The returned raster always matches the requested
// resolution. On failure the cache keeps its prior state.
//
// Cancelling the context abandons the wait; the rasterization itself keeps
// running so that other coalesced callers still get their result.
func (c *RasterCache) Ensure(ctx context.Context, pageIndex int, dpi float64) (*Raster, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("invalid raster resolution %v", dpi)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrCacheClosed
	}
	if entry := c.entries[pageIndex]; entry != nil && entry.DPI == dpi {
		c.mu.Unlock()
		return entry, nil
	}

	key := rasterKey{page: pageIndex, dpi: dpi}
	fl, ok := c.pending[key]
	if !ok || fl.gen != c.gen[pageIndex] {
		// No render in flight, or only one issued before an Invalidate.
		// Either way this caller needs a fresh one; the superseded
		// render keeps serving the callers that joined it earlier.
		fl = &inflight{done: make(chan struct{}), gen: c.gen[pageIndex]}
		c.pending[key] = fl
		go c.render(key, fl)
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-fl.done:
		return fl.raster, fl.err
	}
}

// EnsureAsync rasterizes on a worker and delivers the result to fn from that
// worker. The view layer is expected to marshal the callback back onto its
// owner thread.
func (c *RasterCache) EnsureAsync(pageIndex int, dpi float64, fn func(*Raster, error)) {
	go func() {
		raster, err := c.Ensure(context.Background(), pageIndex, dpi)
		fn(raster, err)
	}()
}

func (c *RasterCache) render(key rasterKey, fl *inflight) {
	img, err := c.src.Rasterize(context.Background(), key.page, key.dpi)

	c.mu.Lock()
	// A superseding render may already occupy the slot; only the render
	// that owns it clears it.
	if c.pending[key] == fl {
		delete(c.pending, key)
	}
	switch {
	case err != nil:
		fl.err = err
		if c.log != nil {
			c.log.Debug("rasterization failed for page %d at %.0f dpi: %v", key.page, key.dpi, err)
		}
	default:
		fl.raster = &Raster{PageIndex: key.page, DPI: key.dpi, Image: img}
		if !c.closed && c.gen[key.page] == fl.gen {
			c.entries[key.page] = fl.raster
		} else if c.log != nil {
			c.log.Debug("discarding stale raster for page %d at %.0f dpi", key.page, key.dpi)
		}
	}
	c.mu.Unlock()
	close(fl.done)
}

// Cached returns the live raster for a page, if any, without triggering
// rasterization.
func (c *RasterCache) Cached(pageIndex int) (*Raster, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[pageIndex]
	return entry, ok
}

// Invalidate drops the cached buffer for a page. Any rasterization already
// in flight for that page is discarded on arrival rather than cached.
func (c *RasterCache) Invalidate(pageIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, pageIndex)
	c.gen[pageIndex]++
}

// Close empties the cache and rejects further use. In-flight results are
// discarded on arrival.
func (c *RasterCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.entries = make(map[int]*Raster)
}
