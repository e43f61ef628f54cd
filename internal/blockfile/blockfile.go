// Package blockfile persists a session's block set to a YAML sidecar file
// next to the PDF, so selections survive closing the document.
package blockfile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ximiwu/Exocortex/internal/selection"
	"github.com/ximiwu/Exocortex/pkg/geometry"
	"github.com/ximiwu/Exocortex/pkg/models"
)

// Suffix is appended to the PDF path (extension stripped) to form the
// sidecar path.
const Suffix = ".blocks.yaml"

// BlockRecord is the on-disk form of one block. The rect is stored in
// document space so records are independent of render resolution.
type BlockRecord struct {
	ID      int     `yaml:"id"`
	Page    int     `yaml:"page"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
	Enabled bool    `yaml:"enabled"`
	GroupID int     `yaml:"group,omitempty"`
}

// File is a complete persisted block set, in creation order.
type File struct {
	Blocks []BlockRecord `yaml:"blocks"`
}

// SidecarPath returns the sidecar path for a PDF path.
func SidecarPath(pdfPath string) string {
	return strings.TrimSuffix(pdfPath, ".pdf") + Suffix
}

// Load reads a sidecar file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read block file %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse block file %s: %w", path, err)
	}
	return &f, nil
}

// Save writes a sidecar file.
func Save(path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal block file: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write block file %s: %w", path, err)
	}
	return nil
}

// FromStore snapshots a store into its persisted form.
func FromStore(store *selection.Store) *File {
	blocks := store.Snapshot()
	f := &File{Blocks: make([]BlockRecord, 0, len(blocks))}
	for _, b := range blocks {
		f.Blocks = append(f.Blocks, BlockRecord{
			ID:      b.ID,
			Page:    b.PageIndex,
			X:       b.Rect.X,
			Y:       b.Rect.Y,
			Width:   b.Rect.Width,
			Height:  b.Rect.Height,
			Enabled: b.Enabled,
			GroupID: b.GroupID,
		})
	}
	return f
}

// Apply replays the persisted records into a store, replacing whatever it
// held. Ids and groups are preserved so exports refer to the same blocks the
// user created.
//
// Each rect is clamped to its page's bounds, so a stale or hand-edited file
// cannot reintroduce an out-of-page block. A record whose page the document
// no longer has, or whose rect lies entirely off its page, fails the load.
func (f *File) Apply(store *selection.Store, bounds selection.PageBoundsFunc) error {
	store.Clear()
	for _, rec := range f.Blocks {
		dims, err := bounds(rec.Page)
		if err != nil {
			return fmt.Errorf("block %d references page %d: %w", rec.ID, rec.Page, err)
		}
		rect := geometry.NewRect(rec.X, rec.Y, rec.Width, rec.Height).Clamp(dims.Bounds())
		if rect.IsEmpty() {
			return fmt.Errorf("failed to restore block %d: rect lies outside page %d: %w",
				rec.ID, rec.Page, selection.ErrInvalidRegion)
		}
		block := models.Block{
			ID:        rec.ID,
			PageIndex: rec.Page,
			Rect:      rect,
			Enabled:   rec.Enabled,
			GroupID:   rec.GroupID,
		}
		if err := store.Restore(block); err != nil {
			return fmt.Errorf("failed to restore block %d: %w", rec.ID, err)
		}
	}
	return nil
}
