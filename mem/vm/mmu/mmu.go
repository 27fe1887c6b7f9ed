// Package mmu provides the translation engine that turns virtual addresses
// into physical addresses, first through the TLB and then through the page
// table.
package mmu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/memsym/mem/vm"
	"github.com/sarchlab/memsym/sim"
)

// ErrPageFault is returned when a virtual page has no valid mapping.
var ErrPageFault = errors.New("page fault")

// A TLB caches translations for the MMU.
type TLB interface {
	Lookup(pid vm.PID, vpn uint64) (slot int, page vm.Page, found bool)
	InsertOrUpdate(pid vm.PID, vpn, pfn uint64) int
	Invalidate(pid vm.PID, vpn uint64) bool
}

// Comp is the default mmu implementation.
type Comp struct {
	*sim.ComponentBase

	geometry  vm.Geometry
	pageTable vm.PageTable
	tlb       TLB
}

// Geometry returns the address geometry the MMU translates with.
func (c *Comp) Geometry() vm.Geometry {
	return c.geometry
}

// PageTable returns the page table behind the TLB.
func (c *Comp) PageTable() vm.PageTable {
	return c.pageTable
}

// Translate converts a virtual address of a process to a physical address.
//
// The TLB is always consulted first. On a miss the page table is walked and,
// if it holds a valid entry, the translation is inserted into the TLB. If the
// page table cannot translate either, an error wrapping ErrPageFault is
// returned.
func (c *Comp) Translate(pid vm.PID, vAddr uint64) (uint64, error) {
	vpn, offset := c.geometry.Split(vAddr)

	pfn, err := c.translatePage(pid, vpn)
	if err != nil {
		return 0, err
	}

	return c.geometry.Compose(pfn, offset), nil
}

func (c *Comp) translatePage(pid vm.PID, vpn uint64) (uint64, error) {
	slot, page, found := c.tlb.Lookup(pid, vpn)
	if found {
		c.report(Event{Kind: TLBHit, PID: pid, VPN: vpn, PFN: page.PFN, Slot: slot})
		return page.PFN, nil
	}

	c.report(Event{Kind: TLBMiss, PID: pid, VPN: vpn})

	page, found = c.pageTable.Find(pid, vpn)
	if !found {
		c.report(Event{Kind: PageFault, PID: pid, VPN: vpn})
		return 0, fmt.Errorf("%w: process %d, VPN %d", ErrPageFault, pid, vpn)
	}

	c.report(Event{Kind: PageWalkHit, PID: pid, VPN: vpn, PFN: page.PFN})
	c.tlb.InsertOrUpdate(pid, vpn, page.PFN)

	return page.PFN, nil
}

// Map installs a translation in the page table and refreshes the TLB.
//
// The TLB is refreshed even when the VPN lies outside the page table, so such
// a page can still be translated through the TLB until its entry is evicted.
func (c *Comp) Map(pid vm.PID, vpn, pfn uint64) {
	c.pageTable.Map(pid, vpn, pfn)
	c.tlb.InsertOrUpdate(pid, vpn, pfn)
}

// Unmap removes a translation from both the page table and the TLB.
func (c *Comp) Unmap(pid vm.PID, vpn uint64) {
	c.pageTable.Unmap(pid, vpn)
	c.tlb.Invalidate(pid, vpn)
}

func (c *Comp) report(e Event) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosTranslation,
		Item:   e,
	})
}
