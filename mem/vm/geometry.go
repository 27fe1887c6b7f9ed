package vm

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is returned when the bit widths of an address space
// cannot be simulated.
var ErrInvalidGeometry = errors.New("invalid memory geometry")

// MaxVPNBits bounds the number of entries in each page table.
const MaxVPNBits = 20

// MaxAddressBits is the width of both virtual and physical addresses.
const MaxAddressBits = 32

// Geometry describes how addresses are split into page numbers and offsets.
// It is set once per run and never changes afterwards.
type Geometry struct {
	OffsetBits int
	PFNBits    int
	VPNBits    int
}

// Validate checks that the geometry can be simulated.
func (g Geometry) Validate() error {
	switch {
	case g.OffsetBits < 0 || g.PFNBits < 0 || g.VPNBits < 0:
		return fmt.Errorf("%w: negative bit width in %s", ErrInvalidGeometry, g)
	case g.OffsetBits+g.PFNBits > MaxAddressBits:
		return fmt.Errorf("%w: physical address wider than %d bits in %s",
			ErrInvalidGeometry, MaxAddressBits, g)
	case g.OffsetBits+g.VPNBits > MaxAddressBits:
		return fmt.Errorf("%w: virtual address wider than %d bits in %s",
			ErrInvalidGeometry, MaxAddressBits, g)
	case g.VPNBits > MaxVPNBits:
		return fmt.Errorf("%w: more than %d VPN bits in %s",
			ErrInvalidGeometry, MaxVPNBits, g)
	}

	return nil
}

// NumPages returns the number of virtual pages of each process.
func (g Geometry) NumPages() uint64 {
	return 1 << g.VPNBits
}

// PhysWords returns the number of words in physical memory.
func (g Geometry) PhysWords() uint64 {
	return 1 << (g.OffsetBits + g.PFNBits)
}

// PageSize returns the number of words in a page.
func (g Geometry) PageSize() uint64 {
	return 1 << g.OffsetBits
}

// Split breaks a virtual address into its virtual page number and its page
// offset.
func (g Geometry) Split(vAddr uint64) (vpn, offset uint64) {
	vpn = vAddr >> g.OffsetBits
	offset = vAddr & (g.PageSize() - 1)

	return vpn, offset
}

// Compose builds a physical address from a frame number and a page offset.
func (g Geometry) Compose(pfn, offset uint64) uint64 {
	return (pfn << g.OffsetBits) | offset
}

func (g Geometry) String() string {
	return fmt.Sprintf("{off: %d, pfn: %d, vpn: %d}",
		g.OffsetBits, g.PFNBits, g.VPNBits)
}
