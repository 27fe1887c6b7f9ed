// Package tlb provides a translation lookaside buffer that caches the
// translation from (process, virtual page) to physical frame.
package tlb

import (
	"github.com/sarchlab/memsym/mem/vm"
	"github.com/sarchlab/memsym/mem/vm/tlb/internal"
	"github.com/sarchlab/memsym/sim"
)

// HookPosEvict marks a valid entry being replaced by a new one. The hook item
// is the evicted Entry.
var HookPosEvict = &sim.HookPos{Name: "TLB Evict"}

// An Entry is a snapshot of one TLB slot.
type Entry struct {
	Valid     bool
	VPN       uint64
	PFN       uint64
	PID       vm.PID
	Timestamp sim.VTime
}

// Comp is a cache(TLB) that maintains some page information.
type Comp struct {
	*sim.ComponentBase

	timeTeller sim.TimeTeller
	numSets    int
	numWays    int
	policy     Policy

	Sets []internal.Set
}

// Reset sets all the entries in the TLB to be invalid.
func (c *Comp) Reset() {
	c.reset()
}

func (c *Comp) reset() {
	c.Sets = make([]internal.Set, c.numSets)
	for i := 0; i < c.numSets; i++ {
		set := internal.NewSet(c.numWays)
		c.Sets[i] = set
	}
}

// Policy returns the replacement policy of the TLB.
func (c *Comp) Policy() Policy {
	return c.policy
}

// NumEntries returns the total number of slots.
func (c *Comp) NumEntries() int {
	return c.numSets * c.numWays
}

func (c *Comp) vpnToSetID(vpn uint64) int {
	return int(vpn % uint64(c.numSets))
}

func (c *Comp) slotIndex(setID, wayID int) int {
	return setID*c.numWays + wayID
}

// Lookup searches for a valid entry of the process and the virtual page. On a
// hit it returns the flat slot index and the cached page. Under LRU the hit
// refreshes the entry's timestamp. A miss changes nothing.
func (c *Comp) Lookup(pid vm.PID, vpn uint64) (slot int, page vm.Page, found bool) {
	setID := c.vpnToSetID(vpn)
	set := c.Sets[setID]

	wayID, page, found := set.Lookup(pid, vpn)
	if !found {
		return 0, vm.Page{}, false
	}

	if c.policy.refreshOnHit() {
		set.Visit(wayID, c.timeTeller.Now())
	}

	return c.slotIndex(setID, wayID), page, true
}

// InsertOrUpdate caches the translation. An existing entry for the same
// process and page is overwritten in place, so no two valid entries ever share
// a (process, page) pair. Otherwise a victim is replaced. Either way the entry
// is stamped with the current time. The slot that was written is returned.
func (c *Comp) InsertOrUpdate(pid vm.PID, vpn, pfn uint64) int {
	setID := c.vpnToSetID(vpn)
	set := c.Sets[setID]
	page := vm.Page{PID: pid, VPN: vpn, PFN: pfn, Valid: true}

	wayID, _, found := set.Lookup(pid, vpn)
	if !found {
		wayID = c.evict(setID)
	}

	set.Update(wayID, page)
	set.Visit(wayID, c.timeTeller.Now())

	return c.slotIndex(setID, wayID)
}

func (c *Comp) evict(setID int) int {
	set := c.Sets[setID]

	wayID, ok := set.Evict()
	if !ok {
		panic("failed to evict")
	}

	victim := set.Block(wayID)
	if victim.Page.Valid && c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosEvict,
			Item:   blockToEntry(victim),
		})
	}

	return wayID
}

// Invalidate drops the entry of the process and the virtual page, if any. It
// reports whether an entry was dropped.
func (c *Comp) Invalidate(pid vm.PID, vpn uint64) bool {
	setID := c.vpnToSetID(vpn)
	set := c.Sets[setID]

	wayID, _, found := set.Lookup(pid, vpn)
	if !found {
		return false
	}

	set.Invalidate(wayID)

	return true
}

// Entry returns a snapshot of the slot at the flat index. The bool return
// value is false if the index does not name a slot.
func (c *Comp) Entry(slot int) (Entry, bool) {
	if slot < 0 || slot >= c.NumEntries() {
		return Entry{}, false
	}

	set := c.Sets[slot/c.numWays]
	block := set.Block(slot % c.numWays)

	return blockToEntry(block), true
}

// Entries returns snapshots of all slots in slot order.
func (c *Comp) Entries() []Entry {
	entries := make([]Entry, 0, c.NumEntries())
	for i := 0; i < c.NumEntries(); i++ {
		e, _ := c.Entry(i)
		entries = append(entries, e)
	}

	return entries
}

func blockToEntry(b internal.Block) Entry {
	return Entry{
		Valid:     b.Page.Valid,
		VPN:       b.Page.VPN,
		PFN:       b.Page.PFN,
		PID:       b.Page.PID,
		Timestamp: b.LastVisit,
	}
}
