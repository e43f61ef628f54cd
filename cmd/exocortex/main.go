package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/ximiwu/Exocortex/internal/blockfile"
	"github.com/ximiwu/Exocortex/internal/config"
	"github.com/ximiwu/Exocortex/internal/export"
	"github.com/ximiwu/Exocortex/internal/pdf"
	"github.com/ximiwu/Exocortex/internal/scanner"
	"github.com/ximiwu/Exocortex/internal/selection"
	"github.com/ximiwu/Exocortex/pkg/logger"
	"github.com/ximiwu/Exocortex/pkg/version"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	pdfDir := flag.String("pdf-dir", "", "directory containing annotated PDF files (overrides config)")
	outputDir := flag.String("output-dir", "", "directory to save exported crops (overrides config)")
	exportDPI := flag.Float64("dpi", 0, "export resolution in DPI (overrides config)")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	debug := flag.Bool("debug", false, "enable debug mode with trace logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetDetailedVersionInfo())
		return
	}

	log := logger.New(logger.WithPrefix("[exocortex] "))
	log.SetVerbose(*verbose)
	if *debug {
		log.SetLevel(logger.LevelTrace)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatal("Error loading config: %v", err)
		}
		cfg = config.Default()
		log.Debug("No config file at %s, using defaults", *configPath)
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *exportDPI > 0 {
		cfg.ExportDPI = *exportDPI
	}

	dir := *pdfDir
	if dir == "" {
		dir = "."
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Fatal("PDF directory does not exist: %s", dir)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		log.Fatal("Error creating output directory: %v", err)
	}

	ctx := context.Background()

	log.Info("Scanning directory: %s", dir)
	entries, err := scanner.New(log).FindAnnotated(ctx, dir)
	if err != nil {
		log.Fatal("Error finding annotated PDFs: %v", err)
	}
	log.Info("Found %d annotated PDFs to export", len(entries))

	totalUnits := 0
	for _, entry := range entries {
		n, err := exportOne(ctx, entry, cfg, log)
		if err != nil {
			log.Info("Error exporting %s: %v", entry.RelativePath, err)
			continue
		}
		totalUnits += n
	}

	log.Info("Export complete:")
	log.Info("- PDFs processed: %d", len(entries))
	log.Info("- Crops written: %d", totalUnits)
	log.Info("- Output directory: %s", cfg.OutputDir)
}

func exportOne(ctx context.Context, entry scanner.Entry, cfg *config.Config, log *logger.Logger) (int, error) {
	doc, err := pdf.Open(entry.PDFPath)
	if err != nil {
		return 0, err
	}
	defer doc.Close()

	session := selection.NewSession(doc, cfg.RenderDPI, cfg.MinDragPixels, log)
	defer session.Close()

	blocks, err := blockfile.Load(entry.SidecarPath)
	if err != nil {
		return 0, err
	}
	if err := blocks.Apply(session.Store, doc.PageBounds); err != nil {
		return 0, err
	}
	log.Info("Exporting %d blocks from %s", session.Store.Len(), entry.RelativePath)

	composer := export.NewComposer(
		session.Cache,
		export.NewVerticalStack(cfg.SeparatorMargin),
		cfg.ExportDPI,
		log,
	)
	units, err := composer.ExportAll(ctx, session.Store.Snapshot(), 0)
	if err != nil {
		// Failed units are already logged; the rest still export.
		log.Debug("Partial export for %s: %v", entry.RelativePath, err)
	}

	base := strings.TrimSuffix(filepath.Base(entry.PDFPath), ".pdf")
	written := 0
	for _, unit := range units {
		target := filepath.Join(cfg.OutputDir, base+"_"+unit.Name)
		if err := writePNG(target, unit); err != nil {
			log.Info("Error writing %s: %v", target, err)
			continue
		}
		log.Debug("Wrote %s", target)
		written++
	}
	return written, nil
}

func writePNG(path string, unit *export.Unit) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, unit.Image)
}
