package tlb

import (
	"github.com/sarchlab/memsym/sim"
)

// A Builder can build TLBs
type Builder struct {
	timeTeller sim.TimeTeller
	numSets    int
	numWays    int
	policy     Policy
}

// MakeBuilder returns a Builder
func MakeBuilder() Builder {
	return Builder{
		numSets: 1,
		numWays: 8,
		policy:  FIFO,
	}
}

// WithTimeTeller sets the clock that timestamps the TLB entries.
func (b Builder) WithTimeTeller(timeTeller sim.TimeTeller) Builder {
	b.timeTeller = timeTeller
	return b
}

// WithNumSets sets the number of sets in a TLB. Use 1 for fully associated
// TLBs.
func (b Builder) WithNumSets(n int) Builder {
	b.numSets = n
	return b
}

// WithNumWays sets the number of ways in a TLB. Set this field to the number
// of TLB entries for all the functions.
func (b Builder) WithNumWays(n int) Builder {
	b.numWays = n
	return b
}

// WithPolicy sets the replacement policy.
func (b Builder) WithPolicy(p Policy) Builder {
	b.policy = p
	return b
}

// Build creates a new TLB
func (b Builder) Build(name string) *Comp {
	if b.timeTeller == nil {
		panic("a TLB requires a time teller")
	}

	if b.numSets < 1 || b.numWays < 1 {
		panic("a TLB requires at least one set and one way")
	}

	tlb := &Comp{}
	tlb.ComponentBase = sim.NewComponentBase(name)
	tlb.timeTeller = b.timeTeller
	tlb.numSets = b.numSets
	tlb.numWays = b.numWays
	tlb.policy = b.policy

	tlb.reset()

	return tlb
}
