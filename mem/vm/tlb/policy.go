package tlb

import (
	"fmt"
	"strings"
)

// Policy decides when the timestamp of a TLB entry is refreshed. The victim
// is always the entry with the oldest timestamp, so the policy alone decides
// whether that means the oldest insertion or the least recent use.
type Policy int

const (
	// FIFO refreshes timestamps only when an entry is inserted or updated.
	FIFO Policy = iota

	// LRU additionally refreshes timestamps on every hit.
	LRU
)

// ParsePolicy converts a policy name, such as "FIFO" or "lru", to a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToUpper(name) {
	case "FIFO":
		return FIFO, nil
	case "LRU":
		return LRU, nil
	default:
		return FIFO, fmt.Errorf("unknown replacement policy %q", name)
	}
}

func (p Policy) String() string {
	switch p {
	case FIFO:
		return "FIFO"
	case LRU:
		return "LRU"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// refreshOnHit tells if a hit counts as a use of the entry.
func (p Policy) refreshOnHit() bool {
	return p == LRU
}
