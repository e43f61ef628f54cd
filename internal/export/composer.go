// Package export turns selection blocks into cropped raster artifacts.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/ximiwu/Exocortex/internal/pdf"
	"github.com/ximiwu/Exocortex/internal/selection"
	"github.com/ximiwu/Exocortex/pkg/geometry"
	"github.com/ximiwu/Exocortex/pkg/logger"
	"github.com/ximiwu/Exocortex/pkg/models"
	"github.com/ximiwu/Exocortex/pkg/utils"
)

// ErrEmptyExport rejects exporting a unit with no enabled blocks.
var ErrEmptyExport = errors.New("export unit has no enabled blocks")

// Unit is one named output buffer for the shell to persist.
type Unit struct {
	Name  string
	Image *image.RGBA
}

// Composer crops block regions out of cached page rasters and composes
// grouped blocks through a layout policy.
//
// The composer never touches a live Store. Callers capture a snapshot on the
// store's owner goroutine (Store.Snapshot, in creation order, group
// membership included in the block values) and hand that value in; with the
// snapshot taken, every export method is safe to run on a worker goroutine
// while the owner keeps mutating the store.
type Composer struct {
	cache  *pdf.RasterCache
	layout Layout
	dpi    float64
	log    *logger.Logger
}

// NewComposer returns a composer exporting at exportDPI by default. A nil
// layout falls back to vertical stacking with the default margin.
func NewComposer(cache *pdf.RasterCache, layout Layout, exportDPI float64, log *logger.Logger) *Composer {
	if layout == nil {
		layout = NewVerticalStack(DefaultSeparatorMargin)
	}
	return &Composer{cache: cache, layout: layout, dpi: exportDPI, log: log}
}

// resolveDPI picks the resolution for a page: the caller's explicit choice,
// else the resolution already cached for that page, else the default.
func (c *Composer) resolveDPI(pageIndex int, dpi float64) float64 {
	if dpi > 0 {
		return dpi
	}
	if raster, ok := c.cache.Cached(pageIndex); ok {
		return raster.DPI
	}
	return c.dpi
}

// findBlock locates a block in a snapshot by id.
func findBlock(blocks []models.Block, id int) (models.Block, bool) {
	for _, b := range blocks {
		if b.ID == id {
			return b, true
		}
	}
	return models.Block{}, false
}

// groupMembers returns a group's members in snapshot (creation) order.
func groupMembers(blocks []models.Block, groupID int) []models.Block {
	var members []models.Block
	for _, b := range blocks {
		if b.GroupID == groupID {
			members = append(members, b)
		}
	}
	return members
}

// ExportSingle crops one block of the snapshot out of its page raster. dpi
// zero means the default export resolution.
func (c *Composer) ExportSingle(ctx context.Context, blocks []models.Block, id int, dpi float64) (*Unit, error) {
	block, ok := findBlock(blocks, id)
	if !ok {
		return nil, fmt.Errorf("export block %d: %w", id, selection.ErrNotFound)
	}
	if !block.Enabled {
		return nil, fmt.Errorf("export block %d: %w", id, ErrEmptyExport)
	}
	img, err := c.crop(ctx, block, dpi)
	if err != nil {
		return nil, err
	}
	return &Unit{
		Name:  fmt.Sprintf("block_%d_%s.png", block.ID, utils.ShortImageHash(img)),
		Image: img,
	}, nil
}

// ExportGroup crops every enabled member of a group and composes them with
// the layout policy, in block creation order. Members on different pages are
// each cropped from their own page's raster.
func (c *Composer) ExportGroup(ctx context.Context, blocks []models.Block, groupID int, dpi float64) (*Unit, error) {
	members := groupMembers(blocks, groupID)
	if len(members) == 0 {
		return nil, fmt.Errorf("export group %d: %w", groupID, selection.ErrNotFound)
	}

	var parts []*image.RGBA
	for _, block := range members {
		if !block.Enabled {
			continue
		}
		img, err := c.crop(ctx, block, dpi)
		if err != nil {
			return nil, fmt.Errorf("export group %d: %w", groupID, err)
		}
		parts = append(parts, img)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("export group %d: %w", groupID, ErrEmptyExport)
	}

	img := c.layout.Compose(parts)
	return &Unit{
		Name:  fmt.Sprintf("group_%d_%s.png", groupID, utils.ShortImageHash(img)),
		Image: img,
	}, nil
}

// ExportAll exports every top-level unit of the snapshot: each ungrouped
// enabled block and each group, ordered by the creation order of the unit's
// first member. A unit that fails (empty group, rasterization failure) is
// logged and skipped; the remaining units still export. The per-unit
// failures are returned joined alongside the successful units.
func (c *Composer) ExportAll(ctx context.Context, blocks []models.Block, dpi float64) ([]*Unit, error) {
	var units []*Unit
	var failures []error
	seenGroups := make(map[int]bool)

	for _, block := range blocks {
		select {
		case <-ctx.Done():
			return units, ctx.Err()
		default:
		}

		var unit *Unit
		var err error
		switch {
		case block.Grouped():
			if seenGroups[block.GroupID] {
				continue
			}
			seenGroups[block.GroupID] = true
			unit, err = c.ExportGroup(ctx, blocks, block.GroupID, dpi)
		case block.Enabled:
			unit, err = c.ExportSingle(ctx, blocks, block.ID, dpi)
		default:
			continue
		}

		if err != nil {
			if c.log != nil {
				c.log.Info("skipping export unit: %v", err)
			}
			failures = append(failures, err)
			continue
		}
		units = append(units, unit)
	}

	return units, errors.Join(failures...)
}

// crop renders the block's page at the resolved resolution and copies the
// block's region into a fresh buffer. The cached raster is only read, never
// sliced into the result.
func (c *Composer) crop(ctx context.Context, block models.Block, dpi float64) (*image.RGBA, error) {
	resolved := c.resolveDPI(block.PageIndex, dpi)
	raster, err := c.cache.Ensure(ctx, block.PageIndex, resolved)
	if err != nil {
		return nil, err
	}

	r := geometry.RasterRect(block.Rect, resolved)
	x0 := int(math.Round(r.Left()))
	y0 := int(math.Round(r.Top()))
	x1 := int(math.Round(r.Right()))
	y1 := int(math.Round(r.Bottom()))

	bounds := raster.Image.Bounds()
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > bounds.Dx() {
		x1 = bounds.Dx()
	}
	if y1 > bounds.Dy() {
		y1 = bounds.Dy()
	}
	if x1 <= x0 || y1 <= y0 {
		return nil, fmt.Errorf("block %d maps to an empty raster region: %w", block.ID, selection.ErrInvalidRegion)
	}

	out := image.NewRGBA(image.Rect(0, 0, x1-x0, y1-y0))
	draw.Draw(out, out.Bounds(), raster.Image, image.Pt(x0, y0).Add(bounds.Min), draw.Src)
	return out, nil
}
