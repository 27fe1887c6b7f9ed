// Package vm provides the models for address translations
package vm

import "fmt"

// NumProcesses is the number of process slots. Process IDs range from 0 to
// NumProcesses-1.
const NumProcesses = 4

// PID stands for Process ID.
type PID uint32

// Valid tells if the PID names one of the process slots.
func (p PID) Valid() bool {
	return p < NumProcesses
}

// A Page is an entry in the page table, maintaining the information about how
// to translate a virtual page number to a physical frame number.
type Page struct {
	PID   PID
	VPN   uint64
	PFN   uint64
	Valid bool
}

// A PageTable holds one table of pages for every process slot.
type PageTable interface {
	// Map installs a valid entry. It reports false if the VPN is outside
	// the table, in which case nothing is changed.
	Map(pid PID, vpn, pfn uint64) bool

	// Unmap invalidates an entry and clears its frame number. It reports
	// false if the VPN is outside the table.
	Unmap(pid PID, vpn uint64) bool

	// Find returns the page for the VPN. The bool return value indicates
	// if the VPN is inside the table and the entry is valid.
	Find(pid PID, vpn uint64) (Page, bool)

	// Entry returns the raw entry, valid or not. Entries outside the table
	// are reported as invalid with frame zero.
	Entry(pid PID, vpn uint64) Page

	// NumPages returns the number of entries in each process's table.
	NumPages() uint64
}

// NewPageTable creates a new PageTable where every process has numPages
// invalid entries. PFNs are stored in 32 bits.
func NewPageTable(numPages uint64) PageTable {
	pt := &pageTableImpl{numPages: numPages}
	for i := range pt.tables {
		pt.tables[i] = newProcessTable(PID(i), numPages)
	}

	return pt
}

// pageTableImpl is the default implementation of a Page Table
type pageTableImpl struct {
	numPages uint64
	tables   [NumProcesses]*processTable
}

func (pt *pageTableImpl) getTable(pid PID) *processTable {
	if !pid.Valid() {
		panic(fmt.Sprintf("process %d does not exist", pid))
	}

	return pt.tables[pid]
}

func (pt *pageTableImpl) NumPages() uint64 {
	return pt.numPages
}

func (pt *pageTableImpl) Map(pid PID, vpn, pfn uint64) bool {
	return pt.getTable(pid).set(vpn, pfn, true)
}

func (pt *pageTableImpl) Unmap(pid PID, vpn uint64) bool {
	return pt.getTable(pid).set(vpn, 0, false)
}

func (pt *pageTableImpl) Find(pid PID, vpn uint64) (Page, bool) {
	page := pt.Entry(pid, vpn)
	if !page.Valid {
		return Page{}, false
	}

	return page, true
}

func (pt *pageTableImpl) Entry(pid PID, vpn uint64) Page {
	return pt.getTable(pid).get(vpn)
}

// processTable models the page table of one process. Entries are stored in
// chunks that are only allocated once a page inside them is mapped, so a
// large, sparsely used table stays small.
type processTable struct {
	pid      PID
	numPages uint64
	chunks   map[uint64]*pteChunk
}

const pteChunkBits = 10

// pte is the stored form of a page table entry.
type pte struct {
	pfn   uint32
	valid bool
}

type pteChunk [1 << pteChunkBits]pte

func newProcessTable(pid PID, numPages uint64) *processTable {
	return &processTable{
		pid:      pid,
		numPages: numPages,
		chunks:   make(map[uint64]*pteChunk),
	}
}

func (t *processTable) inRange(vpn uint64) bool {
	return vpn < t.numPages
}

func (t *processTable) set(vpn, pfn uint64, valid bool) bool {
	if !t.inRange(vpn) {
		return false
	}

	chunk, ok := t.chunks[vpn>>pteChunkBits]
	if !ok {
		if !valid {
			return true
		}

		chunk = new(pteChunk)
		t.chunks[vpn>>pteChunkBits] = chunk
	}

	chunk[vpn&(1<<pteChunkBits-1)] = pte{pfn: uint32(pfn), valid: valid}

	return true
}

func (t *processTable) get(vpn uint64) Page {
	page := Page{PID: t.pid, VPN: vpn}

	chunk, ok := t.chunks[vpn>>pteChunkBits]
	if !t.inRange(vpn) || !ok {
		return page
	}

	e := chunk[vpn&(1<<pteChunkBits-1)]
	page.PFN = uint64(e.pfn)
	page.Valid = e.valid

	return page
}
