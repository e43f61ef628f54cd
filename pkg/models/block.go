package models

import "github.com/ximiwu/Exocortex/pkg/geometry"

// PageDimensions is the document-space size of one page, in PDF points.
type PageDimensions struct {
	Width  float64
	Height float64
}

// Bounds returns the page as a document-space rectangle anchored at the
// origin.
func (d PageDimensions) Bounds() geometry.Rect {
	return geometry.NewRect(0, 0, d.Width, d.Height)
}

// Block is a user-created rectangular region of interest on one page.
//
// Rect is held in document space so the block survives resolution and zoom
// changes unchanged. Disabled blocks stay visible and deletable but never
// appear in exported output. A non-zero GroupID marks the block as part of a
// merge group; group membership is otherwise tracked by the store, never by
// back-pointers.
type Block struct {
	ID        int
	PageIndex int
	Rect      geometry.Rect
	Enabled   bool
	GroupID   int
}

// Grouped reports whether the block belongs to a merge group.
func (b Block) Grouped() bool { return b.GroupID != 0 }
