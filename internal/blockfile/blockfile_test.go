package blockfile_test

import (
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ximiwu/Exocortex/internal/blockfile"
	"github.com/ximiwu/Exocortex/internal/selection"
	"github.com/ximiwu/Exocortex/pkg/geometry"
	"github.com/ximiwu/Exocortex/pkg/logger"
	"github.com/ximiwu/Exocortex/pkg/models"
)

// letterBounds is a two-page US-letter document for Apply calls.
func letterBounds(pageIndex int) (models.PageDimensions, error) {
	if pageIndex < 0 || pageIndex > 1 {
		return models.PageDimensions{}, fmt.Errorf("page %d out of range", pageIndex)
	}
	return models.PageDimensions{Width: 612, Height: 792}, nil
}

func blockfileTestLogger() *logger.Logger {
	log := logger.New(
		logger.WithOutput(GinkgoWriter),
		logger.WithPrefix("[blockfile-test] "),
		logger.WithFlags(0),
	)
	log.SetVerbose(true)
	return log
}

var _ = Describe("Blockfile", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "blockfile-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	It("derives the sidecar path from the PDF path", func() {
		Expect(blockfile.SidecarPath("/docs/paper.pdf")).To(Equal("/docs/paper.blocks.yaml"))
		Expect(blockfile.SidecarPath("notes")).To(Equal("notes.blocks.yaml"))
	})

	It("round-trips a store through disk", func() {
		store := selection.NewStore(blockfileTestLogger())
		a, err := store.Create(0, geometry.NewRect(10, 10, 90, 40))
		Expect(err).NotTo(HaveOccurred())
		b, err := store.Create(1, geometry.NewRect(5, 5, 50, 60))
		Expect(err).NotTo(HaveOccurred())
		c, err := store.Create(1, geometry.NewRect(100, 5, 40, 30))
		Expect(err).NotTo(HaveOccurred())
		_, err = store.Toggle(b.ID)
		Expect(err).NotTo(HaveOccurred())
		gid, err := store.Group([]int{b.ID, c.ID})
		Expect(err).NotTo(HaveOccurred())

		path := filepath.Join(tempDir, "doc.blocks.yaml")
		Expect(blockfile.Save(path, blockfile.FromStore(store))).To(Succeed())

		loaded, err := blockfile.Load(path)
		Expect(err).NotTo(HaveOccurred())

		restored := selection.NewStore(blockfileTestLogger())
		Expect(loaded.Apply(restored, letterBounds)).To(Succeed())

		Expect(restored.Len()).To(Equal(3))
		gotA, _ := restored.Get(a.ID)
		Expect(gotA.Rect).To(Equal(geometry.NewRect(10, 10, 90, 40)))
		Expect(gotA.Enabled).To(BeTrue())

		gotB, _ := restored.Get(b.ID)
		Expect(gotB.Enabled).To(BeFalse())
		Expect(gotB.GroupID).To(Equal(gid))

		Expect(restored.GroupMembers(gid)).To(HaveLen(2))

		// Fresh ids continue past the restored ones.
		fresh, err := restored.Create(0, geometry.NewRect(0, 0, 5, 5))
		Expect(err).NotTo(HaveOccurred())
		Expect(fresh.ID).To(Equal(c.ID + 1))
	})

	It("replaces existing store contents on Apply", func() {
		store := selection.NewStore(blockfileTestLogger())
		_, err := store.Create(0, geometry.NewRect(0, 0, 10, 10))
		Expect(err).NotTo(HaveOccurred())

		empty := &blockfile.File{}
		Expect(empty.Apply(store, letterBounds)).To(Succeed())
		Expect(store.Len()).To(BeZero())
	})

	It("clamps restored rects to their page bounds", func() {
		f := &blockfile.File{Blocks: []blockfile.BlockRecord{
			{ID: 1, Page: 0, X: 500, Y: 700, Width: 300, Height: 300, Enabled: true},
		}}

		store := selection.NewStore(blockfileTestLogger())
		Expect(f.Apply(store, letterBounds)).To(Succeed())

		got, _ := store.Get(1)
		Expect(got.Rect).To(Equal(geometry.NewRect(500, 700, 112, 92)))
	})

	It("rejects a restored rect that lies entirely off its page", func() {
		f := &blockfile.File{Blocks: []blockfile.BlockRecord{
			{ID: 1, Page: 0, X: 700, Y: 900, Width: 50, Height: 50, Enabled: true},
		}}

		store := selection.NewStore(blockfileTestLogger())
		err := f.Apply(store, letterBounds)
		Expect(err).To(MatchError(selection.ErrInvalidRegion))
	})

	It("rejects a record referencing a page the document does not have", func() {
		f := &blockfile.File{Blocks: []blockfile.BlockRecord{
			{ID: 1, Page: 9, X: 10, Y: 10, Width: 50, Height: 50, Enabled: true},
		}}

		store := selection.NewStore(blockfileTestLogger())
		Expect(f.Apply(store, letterBounds)).NotTo(Succeed())
	})

	It("fails to load a malformed file", func() {
		path := filepath.Join(tempDir, "bad.blocks.yaml")
		Expect(os.WriteFile(path, []byte("blocks: [not a map"), 0644)).To(Succeed())
		_, err := blockfile.Load(path)
		Expect(err).To(HaveOccurred())
	})

	It("fails to load a missing file", func() {
		_, err := blockfile.Load(filepath.Join(tempDir, "absent.blocks.yaml"))
		Expect(err).To(HaveOccurred())
	})
})
