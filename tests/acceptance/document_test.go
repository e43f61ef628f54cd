package acceptance_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ximiwu/Exocortex/internal/export"
	"github.com/ximiwu/Exocortex/internal/pdf"
	"github.com/ximiwu/Exocortex/internal/selection"
	"github.com/ximiwu/Exocortex/pkg/geometry"
)

func getTestDataPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("Could not get current file path")
	}

	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))
	return filepath.Join(projectRoot, "tests", "acceptance", "testdata")
}

var _ = Describe("Real document export", Ordered, func() {
	var (
		ctx     context.Context
		doc     *pdf.Document
		session *selection.Session
		pdfPath string
	)

	BeforeAll(func() {
		pdfPath = filepath.Join(getTestDataPath(), "sample.pdf")
		if _, err := os.Stat(pdfPath); err != nil {
			Skip(fmt.Sprintf("test fixture not present: %s", pdfPath))
		}

		ctx = context.Background()
		var err error
		doc, err = pdf.Open(pdfPath)
		Expect(err).NotTo(HaveOccurred())
		session = selection.NewSession(doc, 150, 4, acceptanceLogger())
	})

	AfterAll(func() {
		if session != nil {
			session.Close()
		}
		if doc != nil {
			Expect(doc.Close()).To(Succeed())
		}
	})

	It("rasterizes the first page at the render resolution", func() {
		raster, err := session.Cache.Ensure(ctx, 0, 150)
		Expect(err).NotTo(HaveOccurred())

		dims, err := doc.PageBounds(0)
		Expect(err).NotTo(HaveOccurred())

		scale := geometry.RasterScale(150)
		Expect(raster.Width()).To(BeNumerically("~", dims.Width*scale, 2))
		Expect(raster.Height()).To(BeNumerically("~", dims.Height*scale, 2))
	})

	It("crops a dragged region out of the real page", func() {
		dims, err := doc.PageBounds(0)
		Expect(err).NotTo(HaveOccurred())

		// Select the top-left quarter of the page. Render DPI 150 and
		// zoom 1 put view coordinates at 150/72 times document points.
		scale := geometry.RasterScale(150)
		session.Controller.PointerDown(geometry.Point{X: 0, Y: 0})
		end := geometry.Point{X: dims.Width / 2 * scale, Y: dims.Height / 2 * scale}
		session.Controller.PointerMove(end)
		block, ok := session.Controller.PointerUp(end)
		Expect(ok).To(BeTrue())

		composer := export.NewComposer(session.Cache, nil, 150, acceptanceLogger())
		unit, err := composer.ExportSingle(ctx, session.Store.Snapshot(), block.ID, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(unit.Image.Bounds().Dx()).To(BeNumerically("~", dims.Width/2*scale, 2))
		Expect(unit.Image.Bounds().Dy()).To(BeNumerically("~", dims.Height/2*scale, 2))
	})
})
