package selection

import (
	"fmt"

	"github.com/ximiwu/Exocortex/internal/pdf"
	"github.com/ximiwu/Exocortex/pkg/geometry"
	"github.com/ximiwu/Exocortex/pkg/logger"
)

// Session bundles the per-document state: the block store, the raster
// cache, the coordinate mapper, and the interaction controller. Each open
// document owns its own session; there is no shared registry. Store and
// controller belong to the goroutine that created the session.
type Session struct {
	log *logger.Logger
	src pdf.Rasterizer

	Store      *Store
	Cache      *pdf.RasterCache
	Mapper     *geometry.Mapper
	Controller *Controller

	page int
}

// NewSession creates the state for one open document. renderDPI is the
// resolution pages are displayed at; minDragPx separates clicks from drags.
func NewSession(src pdf.Rasterizer, renderDPI, minDragPx float64, log *logger.Logger) *Session {
	store := NewStore(log)
	mapper := geometry.NewMapper(renderDPI)
	controller := NewController(store, mapper, src.PageBounds, log)
	if minDragPx > 0 {
		controller.SetMinDragSize(minDragPx)
	}
	return &Session{
		log:        log,
		src:        src,
		Store:      store,
		Cache:      pdf.NewRasterCache(src, log),
		Mapper:     mapper,
		Controller: controller,
	}
}

// PageCount returns the number of pages in the document.
func (s *Session) PageCount() int { return s.src.PageCount() }

// CurrentPage returns the page the session is focused on.
func (s *Session) CurrentPage() int { return s.page }

// SetPage switches the current page, cancelling any pending drag.
func (s *Session) SetPage(pageIndex int) error {
	if pageIndex < 0 || pageIndex >= s.src.PageCount() {
		return fmt.Errorf("page %d out of range [0,%d)", pageIndex, s.src.PageCount())
	}
	s.page = pageIndex
	s.Controller.SetPage(pageIndex)
	return nil
}

// SetRenderDPI changes the display resolution. Cached rasters for every
// page are dropped, and in-flight renders at the old resolution are
// discarded on arrival.
func (s *Session) SetRenderDPI(dpi float64) {
	if dpi <= 0 {
		return
	}
	s.Mapper.SetDPI(dpi)
	for i := 0; i < s.src.PageCount(); i++ {
		s.Cache.Invalidate(i)
	}
}

// RemovePage drops every block on a page along with its cached raster, for
// documents that changed underneath the session.
func (s *Session) RemovePage(pageIndex int) {
	for _, block := range s.Store.List(pageIndex) {
		if err := s.Store.Delete(block.ID); err != nil && s.log != nil {
			s.log.Debug("removing page %d: %v", pageIndex, err)
		}
	}
	s.Cache.Invalidate(pageIndex)
}

// Close tears the session down: all blocks and cached rasters are released.
func (s *Session) Close() {
	s.Controller.Cancel()
	s.Store.Clear()
	s.Cache.Close()
}
