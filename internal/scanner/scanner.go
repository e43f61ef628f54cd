// Package scanner locates annotated PDFs: documents that carry a sidecar
// block file and are therefore ready for batch export.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ximiwu/Exocortex/internal/blockfile"
	"github.com/ximiwu/Exocortex/pkg/logger"
)

// Entry is one exportable document.
type Entry struct {
	PDFPath      string
	SidecarPath  string
	RelativePath string
}

type DirectoryScanner struct {
	log *logger.Logger
}

func New(log *logger.Logger) *DirectoryScanner {
	return &DirectoryScanner{log: log}
}

// FindAnnotated walks dir and returns every PDF that has a sidecar block
// file next to it. PDFs without a sidecar are logged and skipped.
func (s *DirectoryScanner) FindAnnotated(ctx context.Context, dir string) ([]Entry, error) {
	var entries []Entry

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			s.log.Debug("scanning directory: %s", path)
			return nil
		}

		if filepath.Ext(path) != ".pdf" {
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			relPath = path
		}

		sidecar := blockfile.SidecarPath(path)
		if _, err := os.Stat(sidecar); err != nil {
			s.log.Debug("skipping %s: no block file", relPath)
			return nil
		}

		entries = append(entries, Entry{
			PDFPath:      path,
			SidecarPath:  sidecar,
			RelativePath: relPath,
		})
		s.log.Debug("found annotated PDF (%d): %s", len(entries), relPath)
		return nil
	})

	if err != nil {
		return entries, err
	}

	if len(entries) == 0 {
		return entries, fmt.Errorf("no annotated PDFs found in %s or its subdirectories", dir)
	}

	return entries, nil
}
