package mmu

import (
	"github.com/sarchlab/memsym/mem/vm"
	"github.com/sarchlab/memsym/sim"
)

// A Builder can build MMU component
type Builder struct {
	geometry  vm.Geometry
	pageTable vm.PageTable
	tlb       TLB
}

// MakeBuilder creates a new builder
func MakeBuilder() Builder {
	return Builder{}
}

// WithGeometry sets how virtual addresses are split into pages.
func (b Builder) WithGeometry(g vm.Geometry) Builder {
	b.geometry = g
	return b
}

// WithPageTable sets the page table that the MMU uses. If not set, a page
// table sized by the geometry is created.
func (b Builder) WithPageTable(pageTable vm.PageTable) Builder {
	b.pageTable = pageTable
	return b
}

// WithTLB sets the TLB that caches the translations.
func (b Builder) WithTLB(tlb TLB) Builder {
	b.tlb = tlb
	return b
}

// Build returns a newly created MMU component
func (b Builder) Build(name string) *Comp {
	if b.tlb == nil {
		panic("an MMU requires a TLB")
	}

	mmu := new(Comp)
	mmu.ComponentBase = sim.NewComponentBase(name)
	mmu.geometry = b.geometry
	mmu.tlb = b.tlb

	mmu.pageTable = b.pageTable
	if mmu.pageTable == nil {
		mmu.pageTable = vm.NewPageTable(b.geometry.NumPages())
	}

	return mmu
}
