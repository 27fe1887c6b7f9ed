package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PageTable", func() {
	var pageTable PageTable

	BeforeEach(func() {
		pageTable = NewPageTable(4)
	})

	It("should start with all entries invalid", func() {
		for pid := PID(0); pid < NumProcesses; pid++ {
			for vpn := uint64(0); vpn < 4; vpn++ {
				_, found := pageTable.Find(pid, vpn)
				Expect(found).To(BeFalse())
				Expect(pageTable.Entry(pid, vpn)).To(Equal(Page{PID: pid, VPN: vpn}))
			}
		}
		Expect(pageTable.NumPages()).To(Equal(uint64(4)))
	})

	It("should map a page", func() {
		Expect(pageTable.Map(1, 2, 3)).To(BeTrue())

		page, found := pageTable.Find(1, 2)

		Expect(found).To(BeTrue())
		Expect(page).To(Equal(Page{PID: 1, VPN: 2, PFN: 3, Valid: true}))
	})

	It("should isolate processes", func() {
		pageTable.Map(1, 2, 3)

		_, found := pageTable.Find(0, 2)

		Expect(found).To(BeFalse())
	})

	It("should unmap a page and clear its frame", func() {
		pageTable.Map(0, 1, 3)

		Expect(pageTable.Unmap(0, 1)).To(BeTrue())

		_, found := pageTable.Find(0, 1)
		Expect(found).To(BeFalse())
		Expect(pageTable.Entry(0, 1).PFN).To(Equal(uint64(0)))
	})

	It("should ignore VPNs outside the table", func() {
		Expect(pageTable.Map(0, 4, 1)).To(BeFalse())
		Expect(pageTable.Unmap(0, 4)).To(BeFalse())

		_, found := pageTable.Find(0, 4)
		Expect(found).To(BeFalse())
		Expect(pageTable.Entry(0, 4)).To(Equal(Page{PID: 0, VPN: 4}))
	})

	It("should allocate entries only where pages are mapped", func() {
		pt := NewPageTable(1 << MaxVPNBits).(*pageTableImpl)
		last := uint64(1<<MaxVPNBits - 1)

		Expect(pt.tables[0].chunks).To(BeEmpty())
		Expect(pt.Unmap(0, last)).To(BeTrue())
		Expect(pt.tables[0].chunks).To(BeEmpty())

		Expect(pt.Map(0, last, 0xffffffff)).To(BeTrue())
		Expect(pt.tables[0].chunks).To(HaveLen(1))
		Expect(pt.tables[1].chunks).To(BeEmpty())
		Expect(pt.Entry(0, last)).To(Equal(Page{
			PID: 0, VPN: last, PFN: 0xffffffff, Valid: true,
		}))
		Expect(pt.Entry(0, last-1)).To(Equal(Page{PID: 0, VPN: last - 1}))
	})

	It("should panic on an unknown process", func() {
		Expect(func() { pageTable.Map(4, 0, 0) }).To(Panic())
	})
})

var _ = Describe("Geometry", func() {
	It("should derive sizes", func() {
		g := Geometry{OffsetBits: 2, PFNBits: 3, VPNBits: 4}

		Expect(g.Validate()).To(Succeed())
		Expect(g.NumPages()).To(Equal(uint64(16)))
		Expect(g.PhysWords()).To(Equal(uint64(32)))
		Expect(g.PageSize()).To(Equal(uint64(4)))
	})

	It("should split and compose addresses", func() {
		g := Geometry{OffsetBits: 2, PFNBits: 2, VPNBits: 2}

		vpn, offset := g.Split(0b1110)

		Expect(vpn).To(Equal(uint64(0b11)))
		Expect(offset).To(Equal(uint64(0b10)))
		Expect(g.Compose(0b01, offset)).To(Equal(uint64(0b0110)))
	})

	It("should allow zero-width fields", func() {
		g := Geometry{}

		Expect(g.Validate()).To(Succeed())
		Expect(g.NumPages()).To(Equal(uint64(1)))
		vpn, offset := g.Split(5)
		Expect(vpn).To(Equal(uint64(5)))
		Expect(offset).To(Equal(uint64(0)))
	})

	DescribeTable("should reject geometries that cannot be simulated",
		func(g Geometry) {
			Expect(g.Validate()).To(MatchError(ErrInvalidGeometry))
		},
		Entry("negative", Geometry{OffsetBits: -1}),
		Entry("wide physical", Geometry{OffsetBits: 20, PFNBits: 13}),
		Entry("wide virtual", Geometry{OffsetBits: 20, VPNBits: 13}),
		Entry("huge page table", Geometry{VPNBits: MaxVPNBits + 1}),
	)
})
