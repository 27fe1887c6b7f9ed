package mmu

import (
	"fmt"

	"github.com/sarchlab/memsym/mem/vm"
	"github.com/sarchlab/memsym/sim"
)

// HookPosTranslation marks one step of an address translation. The hook item
// is an Event.
var HookPosTranslation = &sim.HookPos{Name: "Translation"}

// EventKind tells what happened during a translation step.
type EventKind int

const (
	// TLBHit means the TLB provided the frame.
	TLBHit EventKind = iota

	// TLBMiss means the TLB did not hold the translation.
	TLBMiss

	// PageWalkHit means the page table provided the frame after a TLB miss.
	PageWalkHit

	// PageFault means neither the TLB nor the page table could translate.
	PageFault
)

var eventKindNames = map[EventKind]string{
	TLBHit:      "tlb-hit",
	TLBMiss:     "tlb-miss",
	PageWalkHit: "page-walk-hit",
	PageFault:   "page-fault",
}

func (k EventKind) String() string {
	name, ok := eventKindNames[k]
	if !ok {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}

	return name
}

// An Event describes one translation step.
type Event struct {
	Kind EventKind
	PID  vm.PID
	VPN  uint64
	PFN  uint64

	// Slot is the TLB slot that hit. It is only meaningful for TLBHit.
	Slot int
}

// ProcessID returns the process that requested the translation.
func (e Event) ProcessID() vm.PID {
	return e.PID
}

// Message renders the event the way it appears in the output trace.
func (e Event) Message() string {
	switch e.Kind {
	case TLBHit:
		return fmt.Sprintf(
			"Translating. Lookup for VPN %d hit in TLB entry %d. PFN is %d",
			e.VPN, e.Slot, e.PFN)
	case TLBMiss:
		return fmt.Sprintf(
			"Translating. Lookup for VPN %d caused a TLB miss", e.VPN)
	case PageWalkHit:
		return fmt.Sprintf(
			"Translating. Successfully mapped VPN %d to PFN %d", e.VPN, e.PFN)
	case PageFault:
		return fmt.Sprintf(
			"Translating. Translation for VPN %d not found in page table",
			e.VPN)
	default:
		panic(fmt.Sprintf("unknown event kind %s", e.Kind))
	}
}
