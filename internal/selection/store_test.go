package selection_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ximiwu/Exocortex/internal/selection"
	"github.com/ximiwu/Exocortex/pkg/geometry"
	"github.com/ximiwu/Exocortex/pkg/logger"
)

func selectionTestLogger() *logger.Logger {
	log := logger.New(
		logger.WithOutput(GinkgoWriter),
		logger.WithPrefix("[selection-test] "),
		logger.WithFlags(0),
	)
	log.SetVerbose(true)
	return log
}

var _ = Describe("Store", func() {
	var (
		store  *selection.Store
		events []selection.Event
	)

	BeforeEach(func() {
		store = selection.NewStore(selectionTestLogger())
		events = nil
		store.Subscribe(func(ev selection.Event) {
			events = append(events, ev)
		})
	})

	Describe("Create", func() {
		It("assigns unique increasing ids and enables new blocks", func() {
			a, err := store.Create(0, geometry.NewRect(10, 10, 90, 40))
			Expect(err).NotTo(HaveOccurred())
			b, err := store.Create(0, geometry.NewRect(20, 20, 30, 30))
			Expect(err).NotTo(HaveOccurred())

			Expect(a.ID).To(Equal(1))
			Expect(b.ID).To(Equal(2))
			Expect(a.Enabled).To(BeTrue())
			Expect(store.Len()).To(Equal(2))
		})

		It("rejects a degenerate rect", func() {
			_, err := store.Create(0, geometry.NewRect(10, 10, 0, 40))
			Expect(err).To(MatchError(selection.ErrInvalidRegion))
			Expect(store.Len()).To(BeZero())
			Expect(events).To(BeEmpty())
		})

		It("emits one created event per block", func() {
			_, err := store.Create(0, geometry.NewRect(0, 0, 10, 10))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Kind).To(Equal(selection.EventCreated))
			Expect(events[0].Block.ID).To(Equal(1))
		})

		It("never reuses the id of a deleted block", func() {
			a, _ := store.Create(0, geometry.NewRect(0, 0, 10, 10))
			Expect(store.Delete(a.ID)).To(Succeed())
			b, err := store.Create(0, geometry.NewRect(0, 0, 10, 10))
			Expect(err).NotTo(HaveOccurred())
			Expect(b.ID).To(BeNumerically(">", a.ID))
		})
	})

	Describe("Toggle", func() {
		It("flips enabled back and forth with one event each", func() {
			block, _ := store.Create(0, geometry.NewRect(0, 0, 10, 10))
			events = nil

			toggled, err := store.Toggle(block.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(toggled.Enabled).To(BeFalse())

			toggled, err = store.Toggle(block.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(toggled.Enabled).To(BeTrue())

			Expect(events).To(HaveLen(2))
			Expect(events[0].Kind).To(Equal(selection.EventToggled))
			Expect(events[1].Kind).To(Equal(selection.EventToggled))
		})

		It("fails on a stale id", func() {
			_, err := store.Toggle(99)
			Expect(err).To(MatchError(selection.ErrNotFound))
		})
	})

	Describe("Delete", func() {
		It("removes the block from the list and from its group", func() {
			a, _ := store.Create(0, geometry.NewRect(0, 0, 10, 10))
			b, _ := store.Create(0, geometry.NewRect(20, 0, 10, 10))
			gid, err := store.Group([]int{a.ID, b.ID})
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Delete(a.ID)).To(Succeed())
			Expect(store.List(-1)).To(HaveLen(1))

			members := store.GroupMembers(gid)
			Expect(members).To(HaveLen(1))
			Expect(members[0].ID).To(Equal(b.ID))
		})

		It("fails on a stale id", func() {
			Expect(store.Delete(42)).To(MatchError(selection.ErrNotFound))
		})
	})

	Describe("Group and Ungroup", func() {
		var a, b, c int

		BeforeEach(func() {
			blockA, _ := store.Create(0, geometry.NewRect(0, 0, 10, 10))
			blockB, _ := store.Create(1, geometry.NewRect(0, 0, 10, 10))
			blockC, _ := store.Create(1, geometry.NewRect(20, 0, 10, 10))
			a, b, c = blockA.ID, blockB.ID, blockC.ID
			events = nil
		})

		It("assigns a fresh group id to ungrouped blocks", func() {
			gid, err := store.Group([]int{a, b})
			Expect(err).NotTo(HaveOccurred())
			Expect(gid).To(Equal(1))

			got, _ := store.Get(a)
			Expect(got.GroupID).To(Equal(gid))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Kind).To(Equal(selection.EventGrouped))
			Expect(events[0].BlockIDs).To(Equal([]int{a, b}))
		})

		It("rejects fewer than two members", func() {
			_, err := store.Group([]int{a})
			Expect(err).To(MatchError(selection.ErrInvalidGroup))
		})

		It("rejects missing ids", func() {
			_, err := store.Group([]int{a, 99})
			Expect(err).To(MatchError(selection.ErrInvalidGroup))
		})

		It("rejects already-grouped blocks", func() {
			_, err := store.Group([]int{a, b})
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Group([]int{a, c})
			Expect(err).To(MatchError(selection.ErrInvalidGroup))
		})

		It("ungroups all members", func() {
			gid, _ := store.Group([]int{a, b})
			Expect(store.Ungroup(gid)).To(Succeed())

			got, _ := store.Get(a)
			Expect(got.Grouped()).To(BeFalse())
			Expect(store.GroupMembers(gid)).To(BeEmpty())
		})
	})

	Describe("List", func() {
		It("returns blocks in creation order, optionally filtered by page", func() {
			store.Create(0, geometry.NewRect(0, 0, 10, 10))
			store.Create(1, geometry.NewRect(0, 0, 10, 10))
			store.Create(0, geometry.NewRect(20, 0, 10, 10))

			all := store.List(-1)
			Expect(all).To(HaveLen(3))
			Expect(all[0].ID).To(Equal(1))
			Expect(all[2].ID).To(Equal(3))

			pageZero := store.List(0)
			Expect(pageZero).To(HaveLen(2))
			Expect(pageZero[0].ID).To(Equal(1))
			Expect(pageZero[1].ID).To(Equal(3))
		})
	})

	Describe("HitTest", func() {
		It("picks the topmost block when rects overlap", func() {
			store.Create(0, geometry.NewRect(0, 0, 100, 100))
			top, _ := store.Create(0, geometry.NewRect(25, 25, 50, 50))

			hit, ok := store.HitTest(0, geometry.Point{X: 50, Y: 50})
			Expect(ok).To(BeTrue())
			Expect(hit.ID).To(Equal(top.ID))

			hit, ok = store.HitTest(0, geometry.Point{X: 5, Y: 5})
			Expect(ok).To(BeTrue())
			Expect(hit.ID).To(Equal(1))

			_, ok = store.HitTest(0, geometry.Point{X: 200, Y: 200})
			Expect(ok).To(BeFalse())
		})

		It("ignores blocks on other pages", func() {
			store.Create(1, geometry.NewRect(0, 0, 100, 100))
			_, ok := store.HitTest(0, geometry.Point{X: 50, Y: 50})
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Restore", func() {
		It("replays persisted blocks and advances the id counters", func() {
			Expect(store.Restore(newBlock(7, 0, 10, 10, 50, 50, true, 3))).To(Succeed())
			Expect(store.Restore(newBlock(9, 1, 0, 0, 20, 20, false, 3))).To(Succeed())

			fresh, err := store.Create(0, geometry.NewRect(0, 0, 5, 5))
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.ID).To(Equal(10))

			members := store.GroupMembers(3)
			Expect(members).To(HaveLen(2))

			gid, err := store.Group([]int{fresh.ID, members[0].ID})
			Expect(err).To(HaveOccurred()) // member already grouped
			Expect(gid).To(BeZero())
		})

		It("rejects duplicate ids", func() {
			Expect(store.Restore(newBlock(7, 0, 0, 0, 10, 10, true, 0))).To(Succeed())
			Expect(store.Restore(newBlock(7, 0, 0, 0, 10, 10, true, 0))).To(HaveOccurred())
		})
	})
})
