package sim

import (
	"bytes"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stringItem string

func (s stringItem) String() string {
	return string(s)
}

var _ = Describe("EventLogger", func() {
	var (
		buf    *bytes.Buffer
		clock  *Clock
		domain *ComponentBase
		pos    *HookPos
	)

	newLogger := func(level slog.Level) *slog.Logger {
		return slog.New(slog.NewTextHandler(buf,
			&slog.HandlerOptions{Level: level}))
	}

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		clock = NewClock()
		clock.Tick()
		domain = NewComponentBase("Comp")
		pos = &HookPos{Name: "Test"}
	})

	It("should log hooks at debug level", func() {
		domain.AcceptHook(NewEventLogger(newLogger(slog.LevelDebug), clock))

		domain.InvokeHook(HookCtx{Domain: domain, Pos: pos, Item: stringItem("x")})

		Expect(buf.String()).To(ContainSubstring("msg=hook"))
		Expect(buf.String()).To(ContainSubstring("clock=1"))
		Expect(buf.String()).To(ContainSubstring("pos=Test"))
		Expect(buf.String()).To(ContainSubstring("domain=Comp"))
		Expect(buf.String()).To(ContainSubstring("what=x"))
	})

	It("should stay quiet above debug level", func() {
		domain.AcceptHook(NewEventLogger(newLogger(slog.LevelInfo), clock))

		domain.InvokeHook(HookCtx{Domain: domain, Pos: pos})

		Expect(buf.Len()).To(BeZero())
	})
})
