// Package mem provides the physical memory model.
package mem

import (
	"errors"
	"fmt"
)

// ErrAddressOutOfRange is returned when a physical address is not backed by
// the storage.
var ErrAddressOutOfRange = errors.New("physical address out of range")

const defaultUnitSize = 1024

// A Storage is a flat, word-addressable physical memory.
//
// The storage manages its words in units. Units that are not touched by Write
// are never allocated, and reading from them returns zero. This keeps large
// but sparsely used physical memories cheap while preserving the
// zero-initialized semantics.
type Storage struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]uint32
}

// NewStorage creates a storage object with the specified capacity, counted in
// 32-bit words.
func NewStorage(capacity uint64) *Storage {
	storage := new(Storage)

	storage.unitSize = defaultUnitSize
	storage.capacity = capacity
	storage.data = make(map[uint64][]uint32)

	return storage
}

// Capacity returns the number of words in the storage.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr
	return
}

func (s *Storage) checkAddress(addr uint64) error {
	if addr >= s.capacity {
		return fmt.Errorf("%w: %d", ErrAddressOutOfRange, addr)
	}

	return nil
}

// Read returns the word stored at the given physical address.
func (s *Storage) Read(addr uint64) (uint32, error) {
	if err := s.checkAddress(addr); err != nil {
		return 0, err
	}

	baseAddr, inUnitAddr := s.parseAddress(addr)
	unit, ok := s.data[baseAddr]
	if !ok {
		return 0, nil
	}

	return unit[inUnitAddr], nil
}

// Write stores a word at the given physical address.
func (s *Storage) Write(addr uint64, value uint32) error {
	if err := s.checkAddress(addr); err != nil {
		return err
	}

	baseAddr, inUnitAddr := s.parseAddress(addr)
	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]uint32, s.unitSize)
		s.data[baseAddr] = unit
	}

	unit[inUnitAddr] = value

	return nil
}

// Peek returns the word at addr, or zero if addr is out of range.
func (s *Storage) Peek(addr uint64) uint32 {
	v, err := s.Read(addr)
	if err != nil {
		return 0
	}

	return v
}

// NumAllocatedUnits returns how many units have been written to.
func (s *Storage) NumAllocatedUnits() int {
	return len(s.data)
}
