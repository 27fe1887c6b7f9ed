// Package internal provides the definition required for defining TLB.
package internal

import (
	"fmt"

	"github.com/sarchlab/memsym/mem/vm"
	"github.com/sarchlab/memsym/sim"
)

// A Set holds a certain number of Pages.
type Set interface {
	Lookup(pid vm.PID, vpn uint64) (wayID int, page vm.Page, found bool)
	Update(wayID int, page vm.Page)
	Evict() (wayID int, ok bool)
	Visit(wayID int, now sim.VTime)
	Invalidate(wayID int)
	Block(wayID int) Block
	NumWays() int
	Reset()
}

// A Block is one way of a set. The page it holds is only meaningful when the
// page is valid.
type Block struct {
	Page      vm.Page
	LastVisit sim.VTime
}

// NewSet creates a new TLB set.
func NewSet(numWays int) Set {
	s := &setImpl{}
	s.blocks = make([]Block, numWays)

	return s
}

type setImpl struct {
	blocks []Block
}

func (s *setImpl) NumWays() int {
	return len(s.blocks)
}

func (s *setImpl) mustBeValidWay(wayID int) {
	if wayID < 0 || wayID >= len(s.blocks) {
		panic(fmt.Sprintf("way %d out of range [0, %d)", wayID, len(s.blocks)))
	}
}

func (s *setImpl) Lookup(pid vm.PID, vpn uint64) (
	wayID int,
	page vm.Page,
	found bool,
) {
	for i, b := range s.blocks {
		if b.Page.Valid && b.Page.PID == pid && b.Page.VPN == vpn {
			return i, b.Page, true
		}
	}

	return 0, vm.Page{}, false
}

func (s *setImpl) Update(wayID int, page vm.Page) {
	s.mustBeValidWay(wayID)
	s.blocks[wayID].Page = page
}

// Evict selects the block to be replaced. A block that holds no valid page
// is preferred, the first one in way order. Otherwise the block with the
// smallest visit time is selected, with ties going to the lowest way.
func (s *setImpl) Evict() (wayID int, ok bool) {
	if len(s.blocks) == 0 {
		return 0, false
	}

	for i, b := range s.blocks {
		if !b.Page.Valid {
			return i, true
		}
	}

	wayID = 0
	for i, b := range s.blocks {
		if b.LastVisit < s.blocks[wayID].LastVisit {
			wayID = i
		}
	}

	return wayID, true
}

func (s *setImpl) Visit(wayID int, now sim.VTime) {
	s.mustBeValidWay(wayID)
	s.blocks[wayID].LastVisit = now
}

func (s *setImpl) Invalidate(wayID int) {
	s.mustBeValidWay(wayID)
	s.blocks[wayID].Page.Valid = false
}

func (s *setImpl) Block(wayID int) Block {
	s.mustBeValidWay(wayID)
	return s.blocks[wayID]
}

func (s *setImpl) Reset() {
	for i := range s.blocks {
		s.blocks[i] = Block{}
	}
}
