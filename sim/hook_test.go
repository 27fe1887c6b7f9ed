package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/xid"
)

var _ = Describe("HookableBase", func() {
	var (
		domain *ComponentBase
		pos    *HookPos
	)

	BeforeEach(func() {
		domain = NewComponentBase("Comp")
		pos = &HookPos{Name: "Test"}
	})

	It("should invoke hooks in registration order", func() {
		var order []int

		domain.AcceptHook(HookFunc(func(ctx HookCtx) {
			order = append(order, 1)
			Expect(ctx.Pos).To(BeIdenticalTo(pos))
			Expect(ctx.Item).To(Equal("item"))
		}))
		domain.AcceptHook(HookFunc(func(ctx HookCtx) {
			order = append(order, 2)
		}))

		domain.InvokeHook(HookCtx{Domain: domain, Pos: pos, Item: "item"})

		Expect(domain.NumHooks()).To(Equal(2))
		Expect(order).To(Equal([]int{1, 2}))
	})

	It("should do nothing without hooks", func() {
		Expect(func() {
			domain.InvokeHook(HookCtx{Domain: domain, Pos: pos})
		}).NotTo(Panic())
	})
})

var _ = Describe("Clock", func() {
	It("should start at zero and advance by one", func() {
		c := NewClock()

		Expect(c.Now()).To(Equal(VTime(0)))
		Expect(c.Tick()).To(Equal(VTime(1)))
		Expect(c.Tick()).To(Equal(VTime(2)))
		Expect(c.Now()).To(Equal(VTime(2)))
	})

	It("should wrap around", func() {
		c := &Clock{now: ^VTime(0)}

		Expect(c.Tick()).To(Equal(VTime(0)))
	})
})

var _ = Describe("NewRunID", func() {
	It("should generate unique run ids", func() {
		Expect(NewRunID()).NotTo(Equal(NewRunID()))
	})

	It("should generate ids that xid can parse", func() {
		_, err := xid.FromString(NewRunID())

		Expect(err).NotTo(HaveOccurred())
	})
})
