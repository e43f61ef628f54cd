package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	xdraw "golang.org/x/image/draw"

	"github.com/ximiwu/Exocortex/internal/blockfile"
	"github.com/ximiwu/Exocortex/internal/config"
	"github.com/ximiwu/Exocortex/internal/export"
	"github.com/ximiwu/Exocortex/internal/pdf"
	"github.com/ximiwu/Exocortex/internal/selection"
	"github.com/ximiwu/Exocortex/pkg/geometry"
	"github.com/ximiwu/Exocortex/pkg/logger"
	"github.com/ximiwu/Exocortex/pkg/utils"
	"github.com/ximiwu/Exocortex/pkg/version"
)

const zoomStep = 1.25

var (
	colorEnabled  = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	colorDisabled = color.RGBA{R: 130, G: 130, B: 130, A: 255}
	colorGrouped  = color.RGBA{R: 40, G: 90, B: 220, A: 255}
	colorPreview  = color.RGBA{R: 220, G: 40, B: 40, A: 255}
)

type blockGUI struct {
	window fyne.Window
	log    *logger.Logger
	cfg    *config.Config

	// mutex guards doc, session, and page against the worker goroutines
	// that deliver rasters and export results, and serializes status
	// updates issued from them.
	mutex   sync.Mutex
	doc     *pdf.Document
	session *selection.Session
	page    int

	view           *pageView
	status         *widget.Label
	pageLabel      *widget.Label
	outputDirEntry *widget.Entry
}

func main() {
	log := logger.New(logger.WithPrefix("[exocortex-gui] "))
	log.SetVerbose(true)

	cfg, err := config.Load("config.yaml")
	if err != nil {
		cfg = config.Default()
	}

	gui := &blockGUI{log: log, cfg: cfg}

	a := app.New()
	gui.window = a.NewWindow("Exocortex " + version.Version)
	gui.setupUI()
	gui.window.Resize(fyne.NewSize(1100, 800))
	gui.window.ShowAndRun()
}

func (g *blockGUI) setupUI() {
	g.status = widget.NewLabel("Open a PDF to begin.")
	g.pageLabel = widget.NewLabel("")
	g.view = newPageView(g)

	g.outputDirEntry = widget.NewEntry()
	if g.cfg.OutputDir != "" {
		g.outputDirEntry.SetText(g.cfg.OutputDir)
	} else {
		g.outputDirEntry.SetText(utils.GetDefaultOutputDir())
	}

	openButton := widget.NewButton("Open PDF", g.openDocument)
	prevButton := widget.NewButton("Prev", func() { g.turnPage(-1) })
	nextButton := widget.NewButton("Next", func() { g.turnPage(1) })
	zoomInButton := widget.NewButton("Zoom +", func() { g.zoomBy(zoomStep) })
	zoomOutButton := widget.NewButton("Zoom -", func() { g.zoomBy(1 / zoomStep) })
	saveButton := widget.NewButton("Save Blocks", g.saveBlocks)
	loadButton := widget.NewButton("Load Blocks", g.loadBlocks)
	groupButton := widget.NewButton("Group Enabled", g.groupEnabled)
	ungroupButton := widget.NewButton("Ungroup All", g.ungroupAll)
	exportButton := widget.NewButton("Export All", g.exportAll)

	toolbar := container.NewHBox(
		openButton, prevButton, nextButton, g.pageLabel,
		zoomInButton, zoomOutButton,
		saveButton, loadButton,
		groupButton, ungroupButton,
		exportButton,
	)
	exportBar := container.NewBorder(nil, nil, widget.NewLabel("Output:"), nil, g.outputDirEntry)

	g.window.SetContent(container.NewBorder(
		container.NewVBox(toolbar, exportBar), g.status, nil, nil,
		container.NewScroll(g.view),
	))
	g.window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			if session := g.currentSession(); session != nil {
				session.Controller.Cancel()
			}
		}
	})
}

func (g *blockGUI) currentSession() *selection.Session {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.session
}

func (g *blockGUI) setStatus(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.status.SetText(msg)
}

func (g *blockGUI) openDocument() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()
		g.openPath(path)
	}, g.window)
}

func (g *blockGUI) openPath(path string) {
	doc, err := pdf.Open(path)
	if err != nil {
		dialog.ShowError(err, g.window)
		return
	}

	session := selection.NewSession(doc, g.cfg.RenderDPI, g.cfg.MinDragPixels, g.log)
	session.Store.Subscribe(func(ev selection.Event) {
		g.log.Trace("store event: %s", ev.Kind)
		g.view.Refresh()
	})
	session.Controller.OnPreview(func(rect geometry.Rect, active bool) {
		g.view.setPreview(rect, active)
	})
	session.Controller.OnNotice(func(msg string) {
		g.setStatus("%s", msg)
	})

	g.closeDocument()
	g.mutex.Lock()
	g.doc = doc
	g.session = session
	g.page = 0
	g.mutex.Unlock()

	// Pick up an existing sidecar automatically, the way the desktop
	// app restores a previous session.
	sidecar := blockfile.SidecarPath(path)
	if f, err := blockfile.Load(sidecar); err == nil {
		if err := f.Apply(session.Store, doc.PageBounds); err != nil {
			g.setStatus("Could not restore blocks: %v", err)
		} else {
			g.setStatus("Restored %d blocks from %s", session.Store.Len(), filepath.Base(sidecar))
		}
	} else {
		g.setStatus("Opened %s (%d pages)", filepath.Base(path), doc.PageCount())
	}

	g.showPage(0)
}

func (g *blockGUI) closeDocument() {
	g.mutex.Lock()
	session, doc := g.session, g.doc
	g.session, g.doc = nil, nil
	g.mutex.Unlock()

	if session != nil {
		session.Close()
	}
	if doc != nil {
		doc.Close()
	}
	g.view.setRaster(nil)
}

func (g *blockGUI) turnPage(delta int) {
	g.mutex.Lock()
	page := g.page
	g.mutex.Unlock()
	g.showPage(page + delta)
}

func (g *blockGUI) showPage(pageIndex int) {
	session := g.currentSession()
	if session == nil {
		return
	}
	if err := session.SetPage(pageIndex); err != nil {
		return
	}
	g.mutex.Lock()
	g.page = pageIndex
	g.mutex.Unlock()
	g.pageLabel.SetText(fmt.Sprintf("Page %d / %d", pageIndex+1, session.PageCount()))

	// Rasterization runs on a worker; the result arrives as a callback on
	// that worker, so it only touches mutex-guarded state.
	g.view.setRaster(nil)
	session.Cache.EnsureAsync(pageIndex, session.Mapper.DPI(), func(raster *pdf.Raster, err error) {
		if err != nil {
			g.setStatus("No raster available for page %d: %v", pageIndex+1, err)
			return
		}
		if !g.showing(session, pageIndex) {
			return // stale delivery after another page turn
		}
		g.view.setRaster(raster)
	})
}

// showing reports whether the given session and page are still what the
// window displays, for workers deciding whether their result is stale.
func (g *blockGUI) showing(session *selection.Session, pageIndex int) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.session == session && g.page == pageIndex
}

func (g *blockGUI) zoomBy(factor float64) {
	session := g.currentSession()
	if session == nil {
		return
	}
	session.Mapper.SetZoom(session.Mapper.Zoom() * factor)
	g.setStatus("Zoom %.0f%%", session.Mapper.Zoom()*100)
	g.view.Refresh()
}

func (g *blockGUI) saveBlocks() {
	g.mutex.Lock()
	session, doc := g.session, g.doc
	g.mutex.Unlock()
	if session == nil || doc == nil {
		return
	}
	path := blockfile.SidecarPath(doc.Path())
	if err := blockfile.Save(path, blockfile.FromStore(session.Store)); err != nil {
		dialog.ShowError(err, g.window)
		return
	}
	g.setStatus("Saved %d blocks to %s", session.Store.Len(), filepath.Base(path))
}

func (g *blockGUI) loadBlocks() {
	g.mutex.Lock()
	session, doc := g.session, g.doc
	g.mutex.Unlock()
	if session == nil || doc == nil {
		return
	}
	path := blockfile.SidecarPath(doc.Path())
	f, err := blockfile.Load(path)
	if err != nil {
		dialog.ShowError(err, g.window)
		return
	}
	if err := f.Apply(session.Store, doc.PageBounds); err != nil {
		dialog.ShowError(err, g.window)
		return
	}
	g.setStatus("Loaded %d blocks from %s", session.Store.Len(), filepath.Base(path))
	g.view.Refresh()
}

func (g *blockGUI) groupEnabled() {
	session := g.currentSession()
	if session == nil {
		return
	}
	var ids []int
	for _, block := range session.Store.Snapshot() {
		if block.Enabled && !block.Grouped() {
			ids = append(ids, block.ID)
		}
	}
	gid, err := session.Store.Group(ids)
	if err != nil {
		g.setStatus("Cannot group: %v", err)
		return
	}
	g.setStatus("Grouped %d blocks as group %d", len(ids), gid)
}

func (g *blockGUI) ungroupAll() {
	session := g.currentSession()
	if session == nil {
		return
	}
	for _, gid := range session.Store.GroupIDs() {
		if err := session.Store.Ungroup(gid); err != nil {
			g.setStatus("Cannot ungroup %d: %v", gid, err)
			return
		}
	}
	g.setStatus("Cleared all groups")
}

func (g *blockGUI) exportAll() {
	g.mutex.Lock()
	session, doc := g.session, g.doc
	g.mutex.Unlock()
	if session == nil || doc == nil {
		return
	}
	outputDir := g.outputDirEntry.Text
	if outputDir == "" {
		outputDir = utils.GetDefaultOutputDir()
		g.outputDirEntry.SetText(outputDir)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		dialog.ShowError(err, g.window)
		return
	}

	composer := export.NewComposer(
		session.Cache,
		export.NewVerticalStack(g.cfg.SeparatorMargin),
		g.cfg.ExportDPI,
		g.log,
	)
	// The snapshot is taken here, on the store's owner goroutine; the
	// worker below never reads the live store, so blocks can keep being
	// toggled and deleted while the export runs.
	snapshot := session.Store.Snapshot()
	base := strings.TrimSuffix(filepath.Base(doc.Path()), ".pdf")

	g.setStatus("Exporting...")
	go func() {
		units, err := composer.ExportAll(context.Background(), snapshot, 0)
		written := 0
		for _, unit := range units {
			target := filepath.Join(outputDir, base+"_"+unit.Name)
			if werr := writePNG(target, unit.Image); werr != nil {
				g.log.Info("Error writing %s: %v", target, werr)
				continue
			}
			written++
		}
		if err != nil {
			g.setStatus("Exported %d crops to %s (some units failed)", written, outputDir)
			return
		}
		g.setStatus("Exported %d crops to %s", written, outputDir)
	}()
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, img)
}

// pageView renders the current page raster with block overlays and feeds
// pointer events to the selection controller.
type pageView struct {
	widget.BaseWidget
	gui    *blockGUI
	raster *fynecanvas.Raster

	// mu guards the page raster and preview rect: workers publish them,
	// the draw callback reads them.
	mu            sync.RWMutex
	page          *pdf.Raster
	preview       geometry.Rect
	previewActive bool

	dragging bool
	lastDrag geometry.Point
}

func newPageView(gui *blockGUI) *pageView {
	pv := &pageView{gui: gui}
	pv.raster = fynecanvas.NewRaster(pv.draw)
	pv.ExtendBaseWidget(pv)
	return pv
}

func (pv *pageView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(pv.raster)
}

func (pv *pageView) MinSize() fyne.Size {
	pv.mu.RLock()
	page := pv.page
	pv.mu.RUnlock()
	session := pv.gui.currentSession()
	if page == nil || session == nil {
		return fyne.NewSize(400, 300)
	}
	zoom := session.Mapper.Zoom()
	return fyne.NewSize(
		float32(float64(page.Width())*zoom),
		float32(float64(page.Height())*zoom),
	)
}

func (pv *pageView) setRaster(raster *pdf.Raster) {
	pv.mu.Lock()
	pv.page = raster
	pv.mu.Unlock()
	pv.Refresh()
}

func (pv *pageView) setPreview(rect geometry.Rect, active bool) {
	pv.mu.Lock()
	pv.preview = rect
	pv.previewActive = active
	pv.mu.Unlock()
	pv.Refresh()
}

func (pv *pageView) Tapped(ev *fyne.PointEvent) {
	controller := pv.controller()
	if controller == nil {
		return
	}
	p := viewPoint(ev.Position)
	// A tap is a press-release pair: on a block it toggles, on empty
	// space the zero-length drag is discarded.
	controller.PointerDown(p)
	controller.PointerUp(p)
}

func (pv *pageView) TappedSecondary(ev *fyne.PointEvent) {
	if controller := pv.controller(); controller != nil {
		controller.SecondaryClick(viewPoint(ev.Position))
	}
}

func (pv *pageView) Dragged(ev *fyne.DragEvent) {
	controller := pv.controller()
	if controller == nil {
		return
	}
	pos := viewPoint(ev.Position)
	if !pv.dragging {
		pv.dragging = true
		start := geometry.Point{
			X: pos.X - float64(ev.Dragged.DX),
			Y: pos.Y - float64(ev.Dragged.DY),
		}
		controller.PointerDown(start)
	}
	pv.lastDrag = pos
	controller.PointerMove(pos)
}

func (pv *pageView) DragEnd() {
	if !pv.dragging {
		return
	}
	pv.dragging = false
	if controller := pv.controller(); controller != nil {
		controller.PointerUp(pv.lastDrag)
	}
}

func (pv *pageView) controller() *selection.Controller {
	session := pv.gui.currentSession()
	if session == nil {
		return nil
	}
	return session.Controller
}

func viewPoint(pos fyne.Position) geometry.Point {
	return geometry.Point{X: float64(pos.X), Y: float64(pos.Y)}
}

// draw produces the widget pixels: the zoomed page raster, block overlays,
// then the live rubber band.
func (pv *pageView) draw(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	session := pv.gui.currentSession()

	pv.mu.RLock()
	page := pv.page
	preview := pv.preview
	previewActive := pv.previewActive
	pv.mu.RUnlock()

	if session == nil || page == nil {
		return out
	}

	zoom := session.Mapper.Zoom()
	pageW := int(float64(page.Width()) * zoom)
	pageH := int(float64(page.Height()) * zoom)
	if pageW > w {
		pageW = w
	}
	if pageH > h {
		pageH = h
	}
	if pageW > 0 && pageH > 0 {
		xdraw.ApproxBiLinear.Scale(
			out, image.Rect(0, 0, pageW, pageH),
			page.Image, page.Image.Bounds(),
			xdraw.Src, nil,
		)
	}

	for _, block := range session.Store.List(session.CurrentPage()) {
		tint := colorEnabled
		switch {
		case !block.Enabled:
			tint = colorDisabled
		case block.Grouped():
			tint = colorGrouped
		}
		viewRect := session.Mapper.RectToView(block.Rect)
		strokeRect(out, viewRect, tint)
		fillRect(out, viewRect, color.RGBA{R: tint.R, G: tint.G, B: tint.B, A: 40})
	}

	if previewActive {
		strokeRect(out, preview, colorPreview)
	}
	return out
}

func strokeRect(img *image.RGBA, r geometry.Rect, c color.RGBA) {
	x0, y0 := int(r.Left()), int(r.Top())
	x1, y1 := int(r.Right()), int(r.Bottom())
	for x := x0; x <= x1; x++ {
		setPixel(img, x, y0, c)
		setPixel(img, x, y1, c)
	}
	for y := y0; y <= y1; y++ {
		setPixel(img, x0, y, c)
		setPixel(img, x1, y, c)
	}
}

func fillRect(img *image.RGBA, r geometry.Rect, c color.RGBA) {
	x0, y0 := int(r.Left())+1, int(r.Top())+1
	x1, y1 := int(r.Right()), int(r.Bottom())
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			blendPixel(img, x, y, c)
		}
	}
}

func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func blendPixel(img *image.RGBA, x, y int, c color.RGBA) {
	if !image.Pt(x, y).In(img.Bounds()) {
		return
	}
	base := img.RGBAAt(x, y)
	a := uint32(c.A)
	inv := 255 - a
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((uint32(c.R)*a + uint32(base.R)*inv) / 255),
		G: uint8((uint32(c.G)*a + uint32(base.G)*inv) / 255),
		B: uint8((uint32(c.B)*a + uint32(base.B)*inv) / 255),
		A: 255,
	})
}
