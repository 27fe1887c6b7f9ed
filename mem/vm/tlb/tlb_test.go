package tlb

import (
	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/memsym/mem/vm"
	"github.com/sarchlab/memsym/mem/vm/tlb/internal"
	"github.com/sarchlab/memsym/sim"
)

var _ = ginkgo.Describe("TLB", func() {
	var (
		mockCtrl *gomock.Controller
		clock    *sim.Clock
		set      *MockSet
		tlb      *Comp
	)

	ginkgo.BeforeEach(func() {
		mockCtrl = gomock.NewController(ginkgo.GinkgoT())
		clock = sim.NewClock()
		clock.Tick()
		clock.Tick()

		set = NewMockSet(mockCtrl)
		tlb = MakeBuilder().WithTimeTeller(clock).Build("TLB")
		tlb.Sets = []internal.Set{set}
	})

	ginkgo.AfterEach(func() {
		mockCtrl.Finish()
	})

	ginkgo.Context("lookup", func() {
		var page vm.Page

		ginkgo.BeforeEach(func() {
			page = vm.Page{PID: 1, VPN: 0x10, PFN: 0x20, Valid: true}
		})

		ginkgo.It("should not refresh on hit under FIFO", func() {
			set.EXPECT().Lookup(vm.PID(1), uint64(0x10)).Return(3, page, true)

			slot, found, ok := tlb.Lookup(1, 0x10)

			Expect(ok).To(BeTrue())
			Expect(slot).To(Equal(3))
			Expect(found).To(Equal(page))
		})

		ginkgo.It("should refresh on hit under LRU", func() {
			tlb.policy = LRU
			set.EXPECT().Lookup(vm.PID(1), uint64(0x10)).Return(3, page, true)
			set.EXPECT().Visit(3, sim.VTime(2))

			_, _, ok := tlb.Lookup(1, 0x10)

			Expect(ok).To(BeTrue())
		})

		ginkgo.It("should not change anything on miss", func() {
			tlb.policy = LRU
			set.EXPECT().Lookup(vm.PID(1), uint64(0x10)).Return(0, vm.Page{}, false)

			_, _, ok := tlb.Lookup(1, 0x10)

			Expect(ok).To(BeFalse())
		})
	})

	ginkgo.Context("insert", func() {
		ginkgo.It("should overwrite the existing entry", func() {
			old := vm.Page{PID: 1, VPN: 0x10, PFN: 0x20, Valid: true}
			set.EXPECT().Lookup(vm.PID(1), uint64(0x10)).Return(4, old, true)
			set.EXPECT().Update(4, vm.Page{PID: 1, VPN: 0x10, PFN: 0x30, Valid: true})
			set.EXPECT().Visit(4, sim.VTime(2))

			slot := tlb.InsertOrUpdate(1, 0x10, 0x30)

			Expect(slot).To(Equal(4))
		})

		ginkgo.It("should replace a victim and report the eviction", func() {
			var evicted []Entry
			tlb.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
				Expect(ctx.Pos).To(BeIdenticalTo(HookPosEvict))
				evicted = append(evicted, ctx.Item.(Entry))
			}))

			victim := internal.Block{
				Page:      vm.Page{PID: 2, VPN: 7, PFN: 1, Valid: true},
				LastVisit: 1,
			}
			set.EXPECT().Lookup(vm.PID(1), uint64(0x10)).Return(0, vm.Page{}, false)
			set.EXPECT().Evict().Return(5, true)
			set.EXPECT().Block(5).Return(victim)
			set.EXPECT().Update(5, vm.Page{PID: 1, VPN: 0x10, PFN: 0x30, Valid: true})
			set.EXPECT().Visit(5, sim.VTime(2))

			slot := tlb.InsertOrUpdate(1, 0x10, 0x30)

			Expect(slot).To(Equal(5))
			Expect(evicted).To(Equal([]Entry{
				{Valid: true, VPN: 7, PFN: 1, PID: 2, Timestamp: 1},
			}))
		})

		ginkgo.It("should panic if nothing can be evicted", func() {
			set.EXPECT().Lookup(vm.PID(1), uint64(0x10)).Return(0, vm.Page{}, false)
			set.EXPECT().Evict().Return(0, false)

			Expect(func() { tlb.InsertOrUpdate(1, 0x10, 0x30) }).To(Panic())
		})
	})

	ginkgo.Context("invalidate", func() {
		ginkgo.It("should invalidate a matching entry", func() {
			page := vm.Page{PID: 1, VPN: 0x10, PFN: 0x20, Valid: true}
			set.EXPECT().Lookup(vm.PID(1), uint64(0x10)).Return(6, page, true)
			set.EXPECT().Invalidate(6)

			Expect(tlb.Invalidate(1, 0x10)).To(BeTrue())
		})

		ginkgo.It("should do nothing without a matching entry", func() {
			set.EXPECT().Lookup(vm.PID(1), uint64(0x10)).Return(0, vm.Page{}, false)

			Expect(tlb.Invalidate(1, 0x10)).To(BeFalse())
		})
	})
})

var _ = ginkgo.Describe("TLB replacement", func() {
	var (
		clock *sim.Clock
	)

	build := func(p Policy) *Comp {
		return MakeBuilder().
			WithTimeTeller(clock).
			WithPolicy(p).
			Build("TLB")
	}

	fill := func(tlb *Comp) {
		for vpn := uint64(0); vpn < 8; vpn++ {
			clock.Tick()
			tlb.InsertOrUpdate(0, vpn, vpn+100)
		}
	}

	ginkgo.BeforeEach(func() {
		clock = sim.NewClock()
	})

	ginkgo.It("should use free slots in slot order", func() {
		tlb := build(FIFO)

		for vpn := uint64(0); vpn < 8; vpn++ {
			clock.Tick()
			Expect(tlb.InsertOrUpdate(1, vpn, 0)).To(Equal(int(vpn)))
		}
	})

	ginkgo.It("should evict the first inserted entry under FIFO despite hits", func() {
		tlb := build(FIFO)
		fill(tlb)

		clock.Tick()
		_, _, hit := tlb.Lookup(0, 0)
		Expect(hit).To(BeTrue())

		clock.Tick()
		slot := tlb.InsertOrUpdate(0, 8, 108)

		Expect(slot).To(Equal(0))
		_, _, hit = tlb.Lookup(0, 0)
		Expect(hit).To(BeFalse())
	})

	ginkgo.It("should keep the just-hit entry under LRU", func() {
		tlb := build(LRU)
		fill(tlb)

		clock.Tick()
		_, _, hit := tlb.Lookup(0, 0)
		Expect(hit).To(BeTrue())

		clock.Tick()
		slot := tlb.InsertOrUpdate(0, 8, 108)

		Expect(slot).To(Equal(1))
		_, page, hit := tlb.Lookup(0, 0)
		Expect(hit).To(BeTrue())
		Expect(page.PFN).To(Equal(uint64(100)))
		_, _, hit = tlb.Lookup(0, 1)
		Expect(hit).To(BeFalse())
	})

	ginkgo.It("should treat an update as a use", func() {
		tlb := build(FIFO)
		fill(tlb)

		clock.Tick()
		tlb.InsertOrUpdate(0, 0, 200)

		clock.Tick()
		slot := tlb.InsertOrUpdate(0, 8, 108)

		Expect(slot).To(Equal(1))
	})

	ginkgo.It("should never hold two valid entries for the same page", func() {
		tlb := build(LRU)
		fill(tlb)

		for i := 0; i < 20; i++ {
			clock.Tick()
			tlb.InsertOrUpdate(0, uint64(i%10), uint64(i))
		}

		seen := make(map[[2]uint64]bool)
		for _, e := range tlb.Entries() {
			if !e.Valid {
				continue
			}

			key := [2]uint64{uint64(e.PID), e.VPN}
			Expect(seen[key]).To(BeFalse())
			seen[key] = true
		}
	})

	ginkgo.It("should tell processes apart", func() {
		tlb := build(FIFO)

		clock.Tick()
		tlb.InsertOrUpdate(0, 3, 1)
		clock.Tick()
		tlb.InsertOrUpdate(1, 3, 2)

		_, p0, _ := tlb.Lookup(0, 3)
		_, p1, _ := tlb.Lookup(1, 3)

		Expect(p0.PFN).To(Equal(uint64(1)))
		Expect(p1.PFN).To(Equal(uint64(2)))
	})

	ginkgo.It("should invalidate entries", func() {
		tlb := build(FIFO)
		clock.Tick()
		slot := tlb.InsertOrUpdate(2, 3, 1)

		Expect(tlb.Invalidate(2, 3)).To(BeTrue())

		_, _, hit := tlb.Lookup(2, 3)
		Expect(hit).To(BeFalse())
		entry, ok := tlb.Entry(slot)
		Expect(ok).To(BeTrue())
		Expect(entry.Valid).To(BeFalse())
	})

	ginkgo.It("should report slot snapshots", func() {
		tlb := build(FIFO)
		clock.Tick()
		clock.Tick()
		tlb.InsertOrUpdate(3, 9, 4)

		entry, ok := tlb.Entry(0)

		Expect(ok).To(BeTrue())
		Expect(entry).To(Equal(Entry{
			Valid: true, VPN: 9, PFN: 4, PID: 3, Timestamp: 2,
		}))

		_, ok = tlb.Entry(8)
		Expect(ok).To(BeFalse())
		_, ok = tlb.Entry(-1)
		Expect(ok).To(BeFalse())
	})

	ginkgo.It("should index slots across sets", func() {
		tlb := MakeBuilder().
			WithTimeTeller(clock).
			WithNumSets(2).
			WithNumWays(2).
			Build("TLB")

		clock.Tick()
		slot := tlb.InsertOrUpdate(0, 3, 1)

		Expect(slot).To(Equal(2))
		Expect(tlb.NumEntries()).To(Equal(4))
	})

	ginkgo.It("should reset all entries", func() {
		tlb := build(FIFO)
		fill(tlb)

		tlb.Reset()

		for _, e := range tlb.Entries() {
			Expect(e.Valid).To(BeFalse())
		}
	})
})

var _ = ginkgo.Describe("Policy", func() {
	ginkgo.It("should parse policy names", func() {
		p, err := ParsePolicy("lru")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(LRU))

		p, err = ParsePolicy("FIFO")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(FIFO))
		Expect(p.String()).To(Equal("FIFO"))

		_, err = ParsePolicy("MRU")
		Expect(err).To(HaveOccurred())
	})
})
