package selection

import (
	"errors"
	"fmt"

	"github.com/ximiwu/Exocortex/pkg/geometry"
	"github.com/ximiwu/Exocortex/pkg/logger"
	"github.com/ximiwu/Exocortex/pkg/models"
)

// DefaultMinDragPixels is the drag distance below which a gesture counts as
// a click rather than a rubber-band selection.
const DefaultMinDragPixels = 4.0

// PageBoundsFunc reports the document-space bounds of a page. It is the
// slice of the document-open collaborator the controller needs for clamping.
type PageBoundsFunc func(pageIndex int) (models.PageDimensions, error)

type controllerState int

const (
	stateIdle controllerState = iota
	stateDragging
)

// Controller is the interaction state machine. It consumes pointer events in
// view space, converts them to document space through the mapper, and drives
// store mutations. It runs on the session's owner goroutine for its whole
// lifetime; there is no terminal state.
//
// Pressing on an existing block toggles it; pressing on empty page space
// starts a rubber-band drag that creates a block on release. A secondary
// click deletes the topmost block under the pointer. Cancel discards any
// pending drag without touching the store.
type Controller struct {
	log    *logger.Logger
	store  *Store
	mapper *geometry.Mapper
	bounds PageBoundsFunc

	page    int
	state   controllerState
	origin  geometry.Point // view space
	moved   bool           // true once the drag passed the click threshold
	minDrag float64

	onPreview func(rect geometry.Rect, active bool)
	onNotice  func(msg string)
}

// NewController wires the state machine to a store and mapper.
func NewController(store *Store, mapper *geometry.Mapper, bounds PageBoundsFunc, log *logger.Logger) *Controller {
	return &Controller{
		log:     log,
		store:   store,
		mapper:  mapper,
		bounds:  bounds,
		minDrag: DefaultMinDragPixels,
	}
}

// SetMinDragSize sets the pixel threshold separating clicks from drags.
func (c *Controller) SetMinDragSize(px float64) {
	if px > 0 {
		c.minDrag = px
	}
}

// SetPage switches the page pointer events are interpreted against. Any
// pending drag is discarded.
func (c *Controller) SetPage(pageIndex int) {
	c.Cancel()
	c.page = pageIndex
}

// Page returns the page the controller currently targets.
func (c *Controller) Page() int { return c.page }

// OnPreview registers the live rubber-band callback. The rect is in view
// space; active is false when the preview should be cleared.
func (c *Controller) OnPreview(fn func(rect geometry.Rect, active bool)) {
	c.onPreview = fn
}

// OnNotice registers the callback for user-visible, non-fatal notices.
func (c *Controller) OnNotice(fn func(msg string)) {
	c.onNotice = fn
}

func (c *Controller) preview(rect geometry.Rect, active bool) {
	if c.onPreview != nil {
		c.onPreview(rect, active)
	}
}

func (c *Controller) notice(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.log != nil {
		c.log.Debug("notice: %s", msg)
	}
	if c.onNotice != nil {
		c.onNotice(msg)
	}
}

// PointerDown handles a primary-button press at a view-space point. On a
// block it toggles that block and stays idle; on empty space it arms a drag.
func (c *Controller) PointerDown(p geometry.Point) {
	if c.state != stateIdle {
		return
	}
	if block, ok := c.hit(p); ok {
		if toggled, err := c.store.Toggle(block.ID); err != nil {
			c.notice("toggle failed: %v", err)
		} else if c.log != nil {
			c.log.Trace("block %d enabled=%v", toggled.ID, toggled.Enabled)
		}
		return
	}
	c.state = stateDragging
	c.origin = p
	c.moved = false
}

// PointerMove updates the live preview rectangle while dragging. The rubber
// band only appears once the pointer has moved past the click threshold.
func (c *Controller) PointerMove(p geometry.Point) {
	if c.state != stateDragging {
		return
	}
	if !c.moved {
		dx := p.X - c.origin.X
		dy := p.Y - c.origin.Y
		if dx < 0 {
			dx = -dx
		}
		if dy < 0 {
			dy = -dy
		}
		if dx < c.minDrag && dy < c.minDrag {
			return
		}
		c.moved = true
	}
	c.preview(geometry.RectFromPoints(c.origin, p), true)
}

// PointerUp completes a drag. A gesture below the click threshold is
// discarded silently; otherwise the drag rectangle is mapped to document
// space, clamped to the page, and inserted as a new block. The created block
// is returned when one was made.
func (c *Controller) PointerUp(p geometry.Point) (models.Block, bool) {
	if c.state != stateDragging {
		return models.Block{}, false
	}
	c.state = stateIdle
	c.preview(geometry.Rect{}, false)

	viewRect := geometry.RectFromPoints(c.origin, p)
	if !c.moved || (viewRect.Width < c.minDrag && viewRect.Height < c.minDrag) {
		// A stationary press-release is a click on empty space, not a drag.
		return models.Block{}, false
	}

	dims, err := c.bounds(c.page)
	if err != nil {
		c.notice("no page bounds for page %d: %v", c.page, err)
		return models.Block{}, false
	}
	docRect := c.mapper.RectToDocument(viewRect).Clamp(dims.Bounds())
	block, err := c.store.Create(c.page, docRect)
	if err != nil {
		if errors.Is(err, ErrInvalidRegion) {
			// Drag ended entirely off the page; nothing to create.
			return models.Block{}, false
		}
		c.notice("could not create block: %v", err)
		return models.Block{}, false
	}
	return block, true
}

// SecondaryClick deletes the topmost block under the pointer, if any.
func (c *Controller) SecondaryClick(p geometry.Point) {
	if c.state != stateIdle {
		return
	}
	block, ok := c.hit(p)
	if !ok {
		return
	}
	if err := c.store.Delete(block.ID); err != nil {
		c.notice("delete failed: %v", err)
	}
}

// Cancel aborts any pending drag and returns to idle without mutating the
// store.
func (c *Controller) Cancel() {
	if c.state == stateDragging {
		c.preview(geometry.Rect{}, false)
	}
	c.state = stateIdle
	c.moved = false
}

// Dragging reports whether a rubber-band drag is in progress.
func (c *Controller) Dragging() bool { return c.state == stateDragging }

func (c *Controller) hit(viewPoint geometry.Point) (models.Block, bool) {
	return c.store.HitTest(c.page, c.mapper.ToDocument(viewPoint))
}
